package scope

import (
	"errors"
	"image"
	"testing"

	"github.com/example/regionkit/pkg/coverage"
	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/prompt"
	"github.com/example/regionkit/pkg/region"
)

func canvas() image.Rectangle { return image.Rect(0, 0, 16, 8) }

func opaque(r image.Rectangle) *mask.Mask {
	m := mask.New(canvas())
	m.Fill(r, 1)
	return m
}

// tabletop builds the documented still-life scene: a full-canvas
// background layer at the bottom, an opaque patch on the left half and one
// on the right half, each linked to its own top-level region.
func tabletop(t *testing.T) (*layer.Graph, *region.Graph, *Resolver) {
	t.Helper()
	lg := layer.New(canvas())
	for _, step := range []struct {
		id   string
		fill image.Rectangle
	}{
		{"bg", image.Rect(0, 0, 16, 8)},
		{"left", image.Rect(0, 0, 8, 8)},
		{"right", image.Rect(8, 0, 16, 8)},
	} {
		if err := lg.AddPaint(step.id, ""); err != nil {
			t.Fatal(err)
		}
		if err := lg.SetOpacity(step.id, opaque(step.fill)); err != nil {
			t.Fatal(err)
		}
	}

	rg := region.NewGraph("a vase with flowers and a bowl on a wooden table")
	texts := map[string]string{
		"left":  "a white porcelain vase with light blue cornflowers",
		"right": "a ceramic bowl with fruit",
		"bg":    "rustic planks, warm light",
	}
	for _, id := range []string{"bg", "left", "right"} {
		r, err := rg.Insert("r-"+id, rg.RootID())
		if err != nil {
			t.Fatal(err)
		}
		rg.SetText(r.ID, texts[id])
		if err := rg.Link(r.ID, id); err != nil {
			t.Fatal(err)
		}
	}

	cov := coverage.NewResolver(lg, rg)
	return lg, rg, NewResolver(rg, cov, prompt.Composer{}, Options{})
}

func entryIDs(p *Plan) []string {
	out := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.RegionID
	}
	return out
}

func contains(p *Plan, regionID string) bool {
	for _, e := range p.Entries {
		if e.RegionID == regionID {
			return true
		}
	}
	return false
}

func TestFullGenerationScope(t *testing.T) {
	_, rg, res := tabletop(t)

	plan, err := res.PlanFor(Request{Kind: Full})
	if err != nil {
		t.Fatal(err)
	}

	// Exactly bg, left and right: no omission, no duplication, and no
	// root entry because the background layer claims every free pixel.
	want := map[string]bool{"r-bg": true, "r-left": true, "r-right": true}
	if len(plan.Entries) != 3 {
		t.Fatalf("entries = %v, want exactly 3", entryIDs(plan))
	}
	seen := map[string]bool{}
	for _, e := range plan.Entries {
		if !want[e.RegionID] {
			t.Errorf("unexpected entry %s", e.RegionID)
		}
		if seen[e.RegionID] {
			t.Errorf("duplicated entry %s", e.RegionID)
		}
		seen[e.RegionID] = true
	}
	if contains(plan, rg.RootID()) {
		t.Error("root fallback entry should be absent when regions cover everything")
	}
	if plan.Fallback {
		t.Error("plan should not be a fallback")
	}

	// The left entry's prompt ends with the root prompt.
	for _, e := range plan.Entries {
		if e.RegionID == "r-left" {
			want := "a white porcelain vase with light blue cornflowers, a vase with flowers and a bowl on a wooden table"
			if e.Prompt != want {
				t.Errorf("left prompt = %q, want %q", e.Prompt, want)
			}
		}
	}
}

func TestFullGenerationExcludesUnattached(t *testing.T) {
	_, rg, res := tabletop(t)
	rg.Insert("u", rg.RootID())

	plan, err := res.PlanFor(Request{Kind: Full})
	if err != nil {
		t.Fatal(err)
	}
	if contains(plan, "u") {
		t.Error("unattached region must be excluded from full-generation scope")
	}
}

func TestRefineIgnoresSiblings(t *testing.T) {
	_, _, res := tabletop(t)

	plan, err := res.PlanFor(Request{Kind: Refine, RegionID: "r-left"})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Entries) != 1 || plan.Entries[0].RegionID != "r-left" {
		t.Fatalf("entries = %v, want only r-left", entryIDs(plan))
	}
	// Composed prompt still includes the root.
	if plan.Entries[0].Prompt == "a white porcelain vase with light blue cornflowers" {
		t.Error("refine prompt should still append ancestors and root")
	}
}

func TestRefineExpandsChildren(t *testing.T) {
	lg, rg, res := tabletop(t)

	// Nest a sub-region inside r-left, linked to a patch on the left side.
	lg.AddPaint("detail", "")
	lg.SetOpacity("detail", opaque(image.Rect(0, 0, 4, 8)))
	child, _ := rg.Insert("r-detail", rg.RootID())
	rg.SetParent(child.ID, "r-left")
	rg.SetText(child.ID, "detail text")
	rg.Link(child.ID, "detail")

	plan, err := res.PlanFor(Request{Kind: Refine, RegionID: "r-left"})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(plan, "r-detail") {
		t.Fatalf("entries = %v, want child r-detail included", entryIDs(plan))
	}
	if contains(plan, "r-right") || contains(plan, "r-bg") {
		t.Error("refine must not include siblings of the target")
	}

	// The child's mask is restricted to the parent's coverage.
	for _, e := range plan.Entries {
		if e.RegionID == "r-detail" {
			if e.Mask.At(2, 4) == 0 {
				t.Error("child coverage inside parent should survive")
			}
			if e.Mask.At(12, 4) != 0 {
				t.Error("child coverage outside parent should be clipped")
			}
		}
	}
}

func TestRefineUnattachedIsDegenerate(t *testing.T) {
	_, rg, res := tabletop(t)
	rg.Insert("u", rg.RootID())

	_, err := res.PlanFor(Request{Kind: Refine, RegionID: "u"})
	if !errors.Is(err, ErrDegenerateMask) {
		t.Errorf("error = %v, want ErrDegenerateMask", err)
	}
}

func TestTileInclusionByOverlap(t *testing.T) {
	_, _, res := tabletop(t)

	// Tile overlapping the left half by a single pixel column.
	tile := image.Rect(7, 0, 12, 8)
	plan, err := res.PlanFor(Request{Kind: Tile, TileRect: tile})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(plan, "r-left") {
		t.Error("one-column overlap should include the left region")
	}
	if !contains(plan, "r-right") {
		t.Error("right region overlaps the tile and should be included")
	}

	// A tile entirely inside the right half excludes the left region.
	plan, err = res.PlanFor(Request{Kind: Tile, TileRect: image.Rect(10, 0, 14, 8)})
	if err != nil {
		t.Fatal(err)
	}
	if contains(plan, "r-left") {
		t.Error("left region has no overlap with the tile and must be excluded")
	}

	// Masks are clipped to the padded context rectangle.
	plan, _ = res.PlanFor(Request{Kind: Tile, TileRect: tile, Padding: 2})
	for _, e := range plan.Entries {
		want := tile.Inset(-2)
		if e.Mask.Bounds() != want {
			t.Errorf("entry %s mask bounds = %v, want %v", e.RegionID, e.Mask.Bounds(), want)
		}
	}
}

func TestTileOverlapThreshold(t *testing.T) {
	lg, rg, _ := tabletop(t)
	cov := coverage.NewResolver(lg, rg)
	res := NewResolver(rg, cov, prompt.Composer{}, Options{TileOverlapThreshold: 0.5})

	// Left region covers 1 of 5 tile columns: 20% < 50% threshold.
	plan, err := res.PlanFor(Request{Kind: Tile, TileRect: image.Rect(7, 0, 12, 8)})
	if err != nil {
		t.Fatal(err)
	}
	if contains(plan, "r-left") {
		t.Error("overlap below threshold should exclude the region")
	}
	if !contains(plan, "r-right") {
		t.Error("overlap above threshold should include the region")
	}
}

func TestSelectionInclusion(t *testing.T) {
	_, _, res := tabletop(t)

	sel := mask.New(canvas())
	sel.Fill(image.Rect(0, 0, 8, 8), 1) // select the left half

	plan, err := res.PlanFor(Request{Kind: Selection, SelectionMask: sel})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(plan, "r-left") {
		t.Error("region covering the selection should be included")
	}
	if contains(plan, "r-right") {
		t.Error("region outside the selection should be excluded")
	}
	for _, e := range plan.Entries {
		if e.RegionID == "r-left" && e.Mask.At(12, 4) != 0 {
			t.Error("selection entries should be intersected with the selection")
		}
	}
}

func TestSelectionExplicitZeroThreshold(t *testing.T) {
	lg, rg, _ := tabletop(t)

	// A selection over the right half that grazes the left patch with a
	// half-opaque column: the left region covers well under a tenth of
	// the selection's weight.
	sel := mask.New(canvas())
	sel.Fill(image.Rect(8, 0, 16, 8), 1)
	sel.Fill(image.Rect(7, 0, 8, 8), 0.5)

	cov := coverage.NewResolver(lg, rg)
	loose := NewResolver(rg, cov, prompt.Composer{}, Options{SelectionCoverageMin: 0})
	plan, err := loose.PlanFor(Request{Kind: Selection, SelectionMask: sel})
	if err != nil {
		t.Fatal(err)
	}
	if !contains(plan, "r-left") {
		t.Error("zero threshold should include a region on any overlap")
	}

	strict := NewResolver(rg, cov, prompt.Composer{}, Options{SelectionCoverageMin: DefaultSelectionCoverageMin})
	plan, err = strict.PlanFor(Request{Kind: Selection, SelectionMask: sel})
	if err != nil {
		t.Fatal(err)
	}
	if contains(plan, "r-left") {
		t.Error("a grazing overlap should stay below the default threshold")
	}
}

func TestEmptyScopeFallsBackToRoot(t *testing.T) {
	lg := layer.New(canvas())
	rg := region.NewGraph("root prompt")
	cov := coverage.NewResolver(lg, rg)
	res := NewResolver(rg, cov, prompt.Composer{}, Options{})

	// A tile over a document with no regions: root-only fallback, not an
	// error.
	sel := mask.New(canvas()) // empty selection
	plan, err := res.PlanFor(Request{Kind: Selection, SelectionMask: sel})
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Fallback {
		t.Error("empty scope should be marked as fallback")
	}
	if len(plan.Entries) != 1 || plan.Entries[0].RegionID != rg.RootID() {
		t.Fatalf("entries = %v, want only the root", entryIDs(plan))
	}
	if plan.Entries[0].Prompt != "root prompt" {
		t.Errorf("fallback prompt = %q", plan.Entries[0].Prompt)
	}
}

func TestPlanCarriesStamp(t *testing.T) {
	lg, rg, res := tabletop(t)

	plan, err := res.PlanFor(Request{Kind: Full})
	if err != nil {
		t.Fatal(err)
	}
	stamp := func() uint64 { return lg.Generation() + rg.Generation() }
	if plan.Stamp != stamp() {
		t.Errorf("plan stamp = %d, want %d", plan.Stamp, stamp())
	}

	lg.SetVisible("left", false)
	if plan.Stamp == stamp() {
		t.Error("a layer edit after plan construction should advance the stamp")
	}

	plan, err = res.PlanFor(Request{Kind: Full})
	if err != nil {
		t.Fatal(err)
	}
	rg.Unlink("r-left", "left")
	if plan.Stamp == stamp() {
		t.Error("a region edit after plan construction should advance the stamp")
	}
}
