package region

import (
	"errors"
	"fmt"
	"testing"
)

// stackAlloc is a LayerAllocator backed by a counter.
type stackAlloc struct{ n int }

func (a *stackAlloc) CloneSibling(layerID string) (string, error) {
	a.n++
	return fmt.Sprintf("%s-sibling-%d", layerID, a.n), nil
}

func TestNewGraphHasOnlyRoot(t *testing.T) {
	g := NewGraph("a wooden table")
	root, err := g.Region(g.RootID())
	if err != nil {
		t.Fatal(err)
	}
	if root.Text != "a wooden table" {
		t.Errorf("root text = %q", root.Text)
	}
	if root.Parent != "" {
		t.Error("root should have no parent")
	}
	if root.Attached() {
		t.Error("root should have no layer links")
	}
	if len(g.Regions()) != 1 {
		t.Errorf("region count = %d, want 1", len(g.Regions()))
	}
}

func TestLinkConstraints(t *testing.T) {
	g := NewGraph("")
	a, _ := g.Insert("a", g.RootID())
	b, _ := g.Insert("b", g.RootID())

	if err := g.Link(a.ID, "layer1"); err != nil {
		t.Fatal(err)
	}
	// A layer belongs to at most one region.
	if err := g.Link(b.ID, "layer1"); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("second link error = %v, want ErrAlreadyLinked", err)
	}
	// Re-linking to the same region is a no-op.
	if err := g.Link(a.ID, "layer1"); err != nil {
		t.Errorf("idempotent link error = %v", err)
	}
	// A region may hold many layers.
	if err := g.Link(a.ID, "layer2"); err != nil {
		t.Fatal(err)
	}
	if got := len(a.Links()); got != 2 {
		t.Errorf("links = %d, want 2", got)
	}
	if g.RegionForLayer("layer2") != a.ID {
		t.Error("reverse lookup should find the owning region")
	}

	// The root region never links.
	if err := g.Link(g.RootID(), "layer3"); !errors.Is(err, ErrRootRegion) {
		t.Errorf("root link error = %v, want ErrRootRegion", err)
	}
}

func TestUnlinkAlwaysPermitted(t *testing.T) {
	g := NewGraph("")
	a, _ := g.Insert("a", g.RootID())
	g.Link(a.ID, "layer1")

	if err := g.Unlink(a.ID, "layer1"); err != nil {
		t.Fatal(err)
	}
	if a.Attached() {
		t.Error("region should be unattached after unlink")
	}
	if g.RegionForLayer("layer1") != "" {
		t.Error("layer should be free after unlink")
	}
	// Unlinking again is a no-op.
	if err := g.Unlink(a.ID, "layer1"); err != nil {
		t.Errorf("repeated unlink error = %v", err)
	}
}

func TestCreateAllocatesFreshLayerWhenOccupied(t *testing.T) {
	g := NewGraph("")
	alloc := &stackAlloc{}

	first, err := g.Create(g.RootID(), "layer1", alloc)
	if err != nil {
		t.Fatal(err)
	}
	if got := first.Links(); len(got) != 1 || got[0] != "layer1" {
		t.Errorf("first region links = %v, want [layer1]", got)
	}

	// layer1 is taken: the new region gets a freshly allocated sibling.
	second, err := g.Create(g.RootID(), "layer1", alloc)
	if err != nil {
		t.Fatal(err)
	}
	if got := second.Links(); len(got) != 1 || got[0] != "layer1-sibling-1" {
		t.Errorf("second region links = %v, want the allocated sibling", got)
	}

	// Unattached creation needs no allocator.
	third, err := g.Create(g.RootID(), "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if third.Attached() {
		t.Error("region created with no layer should be unattached")
	}
}

func TestSetParentCycleRejected(t *testing.T) {
	g := NewGraph("")
	a, _ := g.Insert("a", g.RootID())
	b, _ := g.Insert("b", a.ID)
	c, _ := g.Insert("c", b.ID)

	// Moving a under its own descendant must fail and change nothing.
	if err := g.SetParent(a.ID, c.ID); !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("cycle error = %v, want ErrCycleDetected", err)
	}
	if a.Parent != g.RootID() {
		t.Error("failed SetParent must leave the graph unchanged")
	}
	if err := g.SetParent(a.ID, a.ID); !errors.Is(err, ErrCycleDetected) {
		t.Errorf("self-parent error = %v, want ErrCycleDetected", err)
	}

	// A legal move works.
	if err := g.SetParent(c.ID, g.RootID()); err != nil {
		t.Fatal(err)
	}
	if c.Parent != g.RootID() {
		t.Error("SetParent should update the parent")
	}
	if err := g.SetParent(g.RootID(), a.ID); !errors.Is(err, ErrRootRegion) {
		t.Errorf("root move error = %v, want ErrRootRegion", err)
	}
}

func TestRemoveKeepsLayersAndReparentsChildren(t *testing.T) {
	g := NewGraph("")
	a, _ := g.Insert("a", g.RootID())
	child, _ := g.Insert("child", a.ID)
	g.Link(a.ID, "layer1")

	if err := g.Remove(a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Region(a.ID); !errors.Is(err, ErrNotFound) {
		t.Error("removed region should be gone")
	}
	if g.RegionForLayer("layer1") != "" {
		t.Error("removed region's layer should be unlinked, not deleted")
	}
	if child.Parent != g.RootID() {
		t.Error("children of a removed region move to its parent")
	}
	if err := g.Remove(g.RootID()); !errors.Is(err, ErrRootRegion) {
		t.Errorf("root removal error = %v, want ErrRootRegion", err)
	}
}

func TestAncestorsOfNearestFirst(t *testing.T) {
	g := NewGraph("root text")
	a, _ := g.Insert("a", g.RootID())
	b, _ := g.Insert("b", a.ID)

	anc, err := g.AncestorsOf(b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(anc) != 2 || anc[0].ID != a.ID || anc[1].ID != g.RootID() {
		t.Errorf("ancestors = %v, want [a root]", ids(anc))
	}

	anc, _ = g.AncestorsOf(g.RootID())
	if len(anc) != 0 {
		t.Error("root has no ancestors")
	}
}

func TestLinkNotifications(t *testing.T) {
	g := NewGraph("")
	var events []LinkEvent
	g.Notify = func(ev LinkEvent) { events = append(events, ev) }

	a, _ := g.Insert("a", g.RootID())
	g.Link(a.ID, "layer1")
	g.Unlink(a.ID, "layer1")

	if len(events) != 2 {
		t.Fatalf("event count = %d, want 2", len(events))
	}
	if !events[0].Linked || events[1].Linked {
		t.Errorf("events = %+v, want link then unlink", events)
	}
}

func TestGenerationBumpsOnMutation(t *testing.T) {
	g := NewGraph("")
	last := g.Generation()
	step := func(desc string, f func() error) {
		t.Helper()
		if err := f(); err != nil {
			t.Fatalf("%s: %v", desc, err)
		}
		if g.Generation() <= last {
			t.Errorf("%s did not bump the generation", desc)
		}
		last = g.Generation()
	}

	var a, b *Region
	step("insert a", func() error { var err error; a, err = g.Insert("a", g.RootID()); return err })
	step("insert b", func() error { var err error; b, err = g.Insert("b", g.RootID()); return err })
	step("set text", func() error { return g.SetText(a.ID, "a vase") })
	step("add control", func() error { return g.AddControl(a.ID, Control{Kind: ControlDepth, Ref: "d"}) })
	step("link", func() error { return g.Link(a.ID, "layer1") })
	step("unlink", func() error { return g.Unlink(a.ID, "layer1") })
	step("reparent", func() error { return g.SetParent(b.ID, a.ID) })
	step("remove", func() error { return g.Remove(b.ID) })

	// Failed mutations leave the counter alone.
	before := g.Generation()
	if err := g.Link(g.RootID(), "layer2"); err == nil {
		t.Fatal("linking the root should fail")
	}
	if g.Generation() != before {
		t.Error("a rejected mutation should not bump the generation")
	}
}

func ids(regions []*Region) []string {
	out := make([]string, len(regions))
	for i, r := range regions {
		out[i] = r.ID
	}
	return out
}
