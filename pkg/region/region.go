// Package region implements the prompt-bearing region hierarchy.
//
// Regions form a forest rooted at a single root region. The root carries
// the document-wide prompt, links to no layer, and is appended to every
// other region's composed prompt. Every other region links to zero or more
// layer nodes that give it spatial coverage; a layer node belongs to at
// most one region.
//
// Region parentage is set by the user and is deliberately independent of
// layer nesting: a region's linked layer may sit inside another region's
// linked group without the regions being related.
//
// Structural errors reject the mutating call synchronously and leave the
// graph unchanged - there are no partial edits.
package region

import (
	"errors"
	"slices"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when a region ID is not in the graph.
	ErrNotFound = errors.New("region not found")

	// ErrAlreadyLinked is returned by [Graph.Link] when the layer node is
	// linked to a different region. Unlink it there first.
	ErrAlreadyLinked = errors.New("layer node already linked to another region")

	// ErrCycleDetected is returned by [Graph.SetParent] when the new
	// parent is a descendant of the region being moved.
	ErrCycleDetected = errors.New("region re-parenting would create a cycle")

	// ErrRootRegion is returned when an operation that does not apply to
	// the root region (link, re-parent, remove) targets it.
	ErrRootRegion = errors.New("operation not permitted on the root region")

	// ErrInvalidID is returned by [Graph.Insert] when the region ID is empty.
	ErrInvalidID = errors.New("region ID must not be empty")

	// ErrDuplicateID is returned by [Graph.Insert] when a region with the
	// same ID already exists.
	ErrDuplicateID = errors.New("duplicate region ID")
)

// ControlKind names the conditioning mode of a region-scoped control input.
type ControlKind string

// Control kinds mirror the conditioning modes the generation backend
// accepts. The engine treats them as opaque.
const (
	ControlReference ControlKind = "reference"
	ControlLine      ControlKind = "line"
	ControlDepth     ControlKind = "depth"
	ControlPose      ControlKind = "pose"
)

// Control is a region-scoped control input reference. Ref identifies the
// control image or asset on the backend side.
type Control struct {
	Kind     ControlKind `json:"kind"`
	Ref      string      `json:"ref"`
	Strength float64     `json:"strength,omitempty"`
}

// Region is a prompt-bearing unit, spatially scoped via layer links.
type Region struct {
	ID       string
	Text     string
	Parent   string // "" only for the root region
	Controls []Control

	children []string // insertion order = display order
	links    []string // linked layer node IDs, insertion order
}

// Children returns child region IDs in display order.
// The returned slice must not be modified.
func (r *Region) Children() []string { return r.children }

// Links returns the linked layer node IDs.
// The returned slice must not be modified.
func (r *Region) Links() []string { return r.links }

// Attached reports whether the region has at least one layer link.
func (r *Region) Attached() bool { return len(r.links) > 0 }

// LayerAllocator creates a fresh paint layer next to an existing one.
// It is implemented by the editing surface; the engine never mutates the
// layer stack itself. CloneSibling returns the new layer's ID.
type LayerAllocator interface {
	CloneSibling(layerID string) (string, error)
}

// LinkEvent notifies the presentation layer of link changes so the active
// layer can follow region selection. Emitted after the mutation commits.
type LinkEvent struct {
	RegionID string
	LayerID  string
	Linked   bool
}

// Graph is the arena of regions.
//
// Graph is not safe for concurrent mutation; only the editing surface
// writes, per the single-writer discipline.
type Graph struct {
	regions       map[string]*Region
	rootID        string
	layerToRegion map[string]string
	generation    uint64

	// Notify, when set, receives link change events. Presentation state
	// only; the graph stores nothing about selection.
	Notify func(LinkEvent)
}

// NewGraph creates a region graph containing only the root region with
// the given prompt text.
func NewGraph(rootText string) *Graph {
	rootID := uuid.NewString()
	g := &Graph{
		regions:       make(map[string]*Region),
		rootID:        rootID,
		layerToRegion: make(map[string]string),
	}
	g.regions[rootID] = &Region{ID: rootID, Text: rootText}
	return g
}

// RootID returns the root region's ID.
func (g *Graph) RootID() string { return g.rootID }

// Region returns the region with the given ID, or ErrNotFound.
func (g *Graph) Region(id string) (*Region, error) {
	r, ok := g.regions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// Regions returns all region IDs, root included. Order is not guaranteed.
func (g *Graph) Regions() []string {
	ids := make([]string, 0, len(g.regions))
	for id := range g.regions {
		ids = append(ids, id)
	}
	return ids
}

// TopLevel returns the root's direct children in display order.
func (g *Graph) TopLevel() []string {
	return g.regions[g.rootID].children
}

// Generation returns a graph-wide counter bumped on every mutation.
// Coverage memo keys and plan stamps include it because a region's mask
// depends on which layers are linked to it, which the layer graph's own
// counter does not track.
func (g *Graph) Generation() uint64 { return g.generation }

// RegionForLayer returns the ID of the region a layer node is linked to,
// or "" when the layer is unlinked.
func (g *Graph) RegionForLayer(layerID string) string {
	return g.layerToRegion[layerID]
}

// SetText replaces a region's prompt text.
func (g *Graph) SetText(id, text string) error {
	r, ok := g.regions[id]
	if !ok {
		return ErrNotFound
	}
	r.Text = text
	g.generation++
	return nil
}

// AddControl appends a control input reference to a region.
func (g *Graph) AddControl(id string, c Control) error {
	r, ok := g.regions[id]
	if !ok {
		return ErrNotFound
	}
	r.Controls = append(r.Controls, c)
	g.generation++
	return nil
}

// Create adds a region under parentID, attached to the layer node
// attachTo. When attachTo is already linked to another region, a fresh
// layer is allocated beside it via alloc and linked instead - creating a
// region on an occupied layer grows the stack rather than stealing the
// link. attachTo may be "" for a region created unattached.
//
// Returns the new region.
func (g *Graph) Create(parentID, attachTo string, alloc LayerAllocator) (*Region, error) {
	if _, ok := g.regions[parentID]; !ok {
		return nil, ErrNotFound
	}
	if attachTo != "" && g.layerToRegion[attachTo] != "" {
		if alloc == nil {
			return nil, ErrAlreadyLinked
		}
		fresh, err := alloc.CloneSibling(attachTo)
		if err != nil {
			return nil, err
		}
		attachTo = fresh
	}

	r := &Region{ID: uuid.NewString(), Parent: parentID}
	g.regions[r.ID] = r
	parent := g.regions[parentID]
	parent.children = append(parent.children, r.ID)
	g.generation++

	if attachTo != "" {
		if err := g.Link(r.ID, attachTo); err != nil {
			// Link cannot fail here: the layer is fresh or was unlinked.
			return nil, err
		}
	}
	return r, nil
}

// Insert adds a region with an explicit ID under parentID, unattached.
// Used when loading a document whose region IDs are already assigned.
// Fails with ErrNotFound for an unknown parent and ErrAlreadyLinked is
// never possible here; a duplicate ID is rejected as ErrDuplicateID.
func (g *Graph) Insert(id, parentID string) (*Region, error) {
	if id == "" {
		return nil, ErrInvalidID
	}
	if _, exists := g.regions[id]; exists {
		return nil, ErrDuplicateID
	}
	parent, ok := g.regions[parentID]
	if !ok {
		return nil, ErrNotFound
	}
	r := &Region{ID: id, Parent: parentID}
	g.regions[id] = r
	parent.children = append(parent.children, id)
	g.generation++
	return r, nil
}

// Link attaches a layer node to a region. Fails with ErrAlreadyLinked if
// the layer is linked to a different region; linking twice to the same
// region is a no-op.
func (g *Graph) Link(regionID, layerID string) error {
	r, ok := g.regions[regionID]
	if !ok {
		return ErrNotFound
	}
	if regionID == g.rootID {
		return ErrRootRegion
	}
	if owner := g.layerToRegion[layerID]; owner != "" {
		if owner == regionID {
			return nil
		}
		return ErrAlreadyLinked
	}
	r.links = append(r.links, layerID)
	g.layerToRegion[layerID] = regionID
	g.generation++
	g.notify(LinkEvent{RegionID: regionID, LayerID: layerID, Linked: true})
	return nil
}

// Unlink detaches a layer node from its region. Always permitted; the
// layer node itself is never deleted. Unlinking an unlinked layer is a
// no-op.
func (g *Graph) Unlink(regionID, layerID string) error {
	r, ok := g.regions[regionID]
	if !ok {
		return ErrNotFound
	}
	if g.layerToRegion[layerID] != regionID {
		return nil
	}
	r.links = slices.DeleteFunc(r.links, func(s string) bool { return s == layerID })
	delete(g.layerToRegion, layerID)
	g.generation++
	g.notify(LinkEvent{RegionID: regionID, LayerID: layerID, Linked: false})
	return nil
}

// SetParent moves a region under a new parent, keeping display order by
// appending it to the new parent's children. Fails with ErrCycleDetected
// when newParentID is the region itself or one of its descendants; the
// graph is left unchanged on failure.
func (g *Graph) SetParent(id, newParentID string) error {
	r, ok := g.regions[id]
	if !ok {
		return ErrNotFound
	}
	if id == g.rootID {
		return ErrRootRegion
	}
	newParent, ok := g.regions[newParentID]
	if !ok {
		return ErrNotFound
	}
	if g.isDescendantOrSelf(newParentID, id) {
		return ErrCycleDetected
	}

	old := g.regions[r.Parent]
	old.children = slices.DeleteFunc(old.children, func(s string) bool { return s == id })
	newParent.children = append(newParent.children, id)
	r.Parent = newParentID
	g.generation++
	return nil
}

// Remove deletes a region: its text and links are discarded, its linked
// layer nodes stay in the layer stack unlinked, and its children are
// re-parented to the removed region's parent.
func (g *Graph) Remove(id string) error {
	r, ok := g.regions[id]
	if !ok {
		return ErrNotFound
	}
	if id == g.rootID {
		return ErrRootRegion
	}

	for _, layerID := range slices.Clone(r.links) {
		_ = g.Unlink(id, layerID)
	}

	parent := g.regions[r.Parent]
	parent.children = slices.DeleteFunc(parent.children, func(s string) bool { return s == id })
	for _, childID := range r.children {
		child := g.regions[childID]
		child.Parent = r.Parent
		parent.children = append(parent.children, childID)
	}
	delete(g.regions, id)
	g.generation++
	return nil
}

// AncestorsOf returns the region's ancestors nearest first, ending at the
// root. The root itself has no ancestors.
func (g *Graph) AncestorsOf(id string) ([]*Region, error) {
	r, ok := g.regions[id]
	if !ok {
		return nil, ErrNotFound
	}
	var out []*Region
	for r.Parent != "" {
		r = g.regions[r.Parent]
		out = append(out, r)
	}
	return out, nil
}

// isDescendantOrSelf reports whether id is candidate or sits underneath it.
func (g *Graph) isDescendantOrSelf(id, candidate string) bool {
	if id == candidate {
		return true
	}
	for _, child := range g.regions[candidate].children {
		if g.isDescendantOrSelf(id, child) {
			return true
		}
	}
	return false
}

func (g *Graph) notify(ev LinkEvent) {
	if g.Notify != nil {
		g.Notify(ev)
	}
}
