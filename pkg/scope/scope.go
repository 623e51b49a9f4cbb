// Package scope resolves which regions participate in a generation
// request and assembles the resulting plan.
//
// A request names one of four kinds - whole-image generation, refinement
// of a single region, one tile of a tiled upscale, or a
// selection-constrained fill - and the resolver combines the region
// hierarchy with coverage masks to produce an ordered GenerationPlan for
// the backend.
//
// Scope anomalies degrade gracefully: a request no region qualifies for
// falls back to the root prompt over the full requested area instead of
// failing. The one hard error is ErrDegenerateMask, raised when an
// explicitly refined region has no coverage at all, since that points at
// a configuration mistake (refining an unattached region) the user should
// see.
package scope

import (
	"errors"
	"fmt"
	"image"

	"github.com/example/regionkit/pkg/coverage"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/prompt"
	"github.com/example/regionkit/pkg/region"
)

// ErrDegenerateMask is returned by [Resolver.PlanFor] when an explicitly
// targeted region's coverage is all-zero. Generation is not attempted.
var ErrDegenerateMask = errors.New("targeted region has empty coverage")

// Kind enumerates generation request kinds.
type Kind int

const (
	// Full generates the whole image: every top-level region plus the
	// root as background fallback.
	Full Kind = iota
	// Refine regenerates one region's area, ignoring its siblings.
	Refine
	// Tile generates one rectangle of a tiled upscale.
	Tile
	// Selection generates inside a user selection mask.
	Selection
)

// String returns the lowercase kind name used in logs and plan JSON.
func (k Kind) String() string {
	switch k {
	case Refine:
		return "refine"
	case Tile:
		return "tile"
	case Selection:
		return "selection"
	default:
		return "full"
	}
}

// Request describes one generation request.
type Request struct {
	Kind Kind

	// RegionID targets a region for Refine requests.
	RegionID string

	// TileRect is the tile rectangle for Tile requests.
	TileRect image.Rectangle
	// Padding widens the tile's context area on every side. Masks are
	// clipped to the padded rectangle; inclusion is evaluated against
	// the raw tile.
	Padding int

	// SelectionMask is the canvas-sized selection for Selection requests.
	SelectionMask *mask.Mask
}

// Options holds the tunable inclusion thresholds. The source material
// fixes neither constant, so both are configuration with documented
// defaults.
type Options struct {
	// TileOverlapThreshold is the minimum fraction of a tile's area a
	// region's coverage must reach for inclusion. The default 0 means
	// any non-zero overlap includes the region.
	TileOverlapThreshold float64

	// SelectionCoverageMin is the minimum fraction of the selection a
	// region's coverage must reach for inclusion. The zero value means
	// any non-zero overlap includes the region, same as the tile
	// threshold; the engine options apply DefaultSelectionCoverageMin
	// when the caller leaves the setting unset.
	SelectionCoverageMin float64
}

// DefaultSelectionCoverageMin is the selection threshold engine.Options
// applies when none is configured.
const DefaultSelectionCoverageMin = 0.1

// Entry is one (region, prompt, mask, controls) tuple of a plan.
type Entry struct {
	RegionID string
	Prompt   string
	// Mask is the region's coverage, clipped or intersected per the
	// request kind. Nil for a fallback entry with no coverage-bearing
	// link; the backend then applies the prompt to the whole area.
	Mask     *mask.Mask
	Controls []region.Control
}

// Plan is the transient output of scope resolution, handed to the
// generation backend. It captures an immutable snapshot: concurrent edits
// after construction do not alter it.
type Plan struct {
	Kind    Kind
	Entries []Entry

	// Area is the canvas sub-rectangle the request generates into.
	Area image.Rectangle

	// Stamp is the snapshot stamp the coverage masks were computed
	// against, covering both layer edits and region link or structure
	// edits. Compare with the live stamp to detect staleness.
	Stamp uint64

	// Fallback marks a plan downgraded to root-only because no region
	// met the inclusion criteria.
	Fallback bool
}

// Resolver turns requests into plans.
type Resolver struct {
	regions  *region.Graph
	coverage *coverage.Resolver
	composer prompt.Composer
	opts     Options
}

// NewResolver creates a scope resolver. Options are taken as given; both
// thresholds treat zero as "any non-zero overlap".
func NewResolver(rg *region.Graph, cov *coverage.Resolver, composer prompt.Composer, opts Options) *Resolver {
	return &Resolver{regions: rg, coverage: cov, composer: composer, opts: opts}
}

// PlanFor resolves the active region set for a request and builds the
// plan. See the package comment for the fallback and error semantics.
func (s *Resolver) PlanFor(req Request) (*Plan, error) {
	switch req.Kind {
	case Refine:
		return s.planRefine(req)
	case Tile:
		return s.planTile(req)
	case Selection:
		return s.planSelection(req)
	default:
		return s.planFull(req)
	}
}

func (s *Resolver) planFull(req Request) (*Plan, error) {
	plan := &Plan{Kind: Full, Stamp: s.coverage.Stamp()}

	for _, id := range s.regions.TopLevel() {
		m, err := s.coverage.CoverageFor(id)
		if err != nil {
			return nil, err
		}
		// Zero-coverage regions (unattached, fully occluded, or hidden)
		// are valid but contribute no pixels to a full generation.
		if m.Empty() {
			continue
		}
		entry, err := s.entry(id, m)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
		plan.Area = plan.Area.Union(m.Bounds())
	}

	// The root claims whatever no region covers.
	rootMask, err := s.coverage.CoverageFor(s.regions.RootID())
	if err != nil {
		return nil, err
	}
	if !rootMask.Empty() {
		entry, err := s.entry(s.regions.RootID(), rootMask)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
		plan.Area = plan.Area.Union(rootMask.Bounds())
	}

	if len(plan.Entries) == 0 {
		return s.fallback(plan, rootMask.Bounds())
	}
	return plan, nil
}

func (s *Resolver) planRefine(req Request) (*Plan, error) {
	target, err := s.regions.Region(req.RegionID)
	if err != nil {
		return nil, err
	}
	own, err := s.coverage.CoverageFor(target.ID)
	if err != nil {
		return nil, err
	}
	if own.Empty() && target.ID != s.regions.RootID() {
		return nil, fmt.Errorf("refine %s: %w", target.ID, ErrDegenerateMask)
	}

	plan := &Plan{Kind: Refine, Stamp: s.coverage.Stamp(), Area: own.Bounds()}

	if len(target.Children()) == 0 {
		// Siblings are ignored: the target is the whole scope.
		entry, err := s.entry(target.ID, own)
		if err != nil {
			return nil, err
		}
		plan.Entries = []Entry{entry}
		return plan, nil
	}

	// A region with children expands one level: each child restricted to
	// the parent's coverage, the parent itself claiming the remainder.
	remainder := own.Clone()
	for _, childID := range target.Children() {
		cm, err := s.coverage.CoverageFor(childID)
		if err != nil {
			return nil, err
		}
		clipped, err := cm.Clone().Intersect(own)
		if err != nil {
			return nil, err
		}
		if clipped.Empty() {
			continue
		}
		entry, err := s.entry(childID, clipped)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
		remainder.Sub(clipped)
	}
	if !remainder.Empty() {
		entry, err := s.entry(target.ID, remainder)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}
	if len(plan.Entries) == 0 {
		entry, err := s.entry(target.ID, own)
		if err != nil {
			return nil, err
		}
		plan.Entries = []Entry{entry}
	}
	return plan, nil
}

func (s *Resolver) planTile(req Request) (*Plan, error) {
	context := req.TileRect.Inset(-req.Padding)
	plan := &Plan{Kind: Tile, Stamp: s.coverage.Stamp(), Area: context}

	for _, id := range s.regions.TopLevel() {
		m, err := s.coverage.CoverageFor(id)
		if err != nil {
			return nil, err
		}
		overlap := m.OverlapIn(req.TileRect)
		if overlap <= 0 || overlap < s.opts.TileOverlapThreshold {
			continue
		}
		entry, err := s.entry(id, m.Clip(context))
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}

	rootMask, err := s.coverage.CoverageFor(s.regions.RootID())
	if err != nil {
		return nil, err
	}
	if rootClip := rootMask.Clip(context); !rootClip.Empty() {
		entry, err := s.entry(s.regions.RootID(), rootClip)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}

	if len(plan.Entries) == 0 {
		return s.fallback(plan, context)
	}
	return plan, nil
}

func (s *Resolver) planSelection(req Request) (*Plan, error) {
	sel := req.SelectionMask
	if sel == nil {
		return nil, fmt.Errorf("selection request has no mask")
	}
	plan := &Plan{Kind: Selection, Stamp: s.coverage.Stamp(), Area: sel.Bounds()}

	for _, id := range s.regions.TopLevel() {
		m, err := s.coverage.CoverageFor(id)
		if err != nil {
			return nil, err
		}
		// Inclusion is judged against the raw selection even though the
		// generated area blends beyond it.
		frac := m.CoveredFraction(sel)
		if frac <= 0 || frac < s.opts.SelectionCoverageMin {
			continue
		}
		clipped, err := m.Clone().Intersect(sel)
		if err != nil {
			return nil, err
		}
		entry, err := s.entry(id, clipped)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}

	rootMask, err := s.coverage.CoverageFor(s.regions.RootID())
	if err != nil {
		return nil, err
	}
	if rootSel, err := rootMask.Clone().Intersect(sel); err == nil && !rootSel.Empty() {
		entry, err := s.entry(s.regions.RootID(), rootSel)
		if err != nil {
			return nil, err
		}
		plan.Entries = append(plan.Entries, entry)
	}

	if len(plan.Entries) == 0 {
		return s.fallback(plan, sel.Bounds())
	}
	return plan, nil
}

// entry assembles a plan entry for a region with its composed prompt and
// region-scoped controls.
func (s *Resolver) entry(regionID string, m *mask.Mask) (Entry, error) {
	text, err := s.composer.Compose(s.regions, regionID)
	if err != nil {
		return Entry{}, err
	}
	reg, err := s.regions.Region(regionID)
	if err != nil {
		return Entry{}, err
	}
	return Entry{RegionID: regionID, Prompt: text, Mask: m, Controls: reg.Controls}, nil
}

// fallback downgrades an empty scope to a root-only plan over area.
func (s *Resolver) fallback(plan *Plan, area image.Rectangle) (*Plan, error) {
	entry, err := s.entry(s.regions.RootID(), nil)
	if err != nil {
		return nil, err
	}
	plan.Entries = []Entry{entry}
	plan.Area = area
	plan.Fallback = true
	return plan, nil
}
