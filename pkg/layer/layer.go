// Package layer implements the layer stack view consumed by the coverage
// engine.
//
// A Graph is an arena of paint layers and layer groups keyed by stable
// string IDs, with links stored as ID fields rather than pointers. Children
// of a group are ordered back-to-front: insertion order is stacking order,
// and layers on top hide parts of layers below.
//
// The editing surface owns the authoritative layer stack; the engine holds
// a Graph as a read-model plus derived caches. Every mutation bumps version
// counters used for cache invalidation; all coverage reads are pure
// functions of the current structure.
package layer

import (
	"errors"
	"image"
	"slices"

	"github.com/google/uuid"

	"github.com/example/regionkit/pkg/mask"
)

var (
	// ErrNotFound is returned when a node ID is not in the graph.
	ErrNotFound = errors.New("layer node not found")

	// ErrInvalidID is returned by [Graph.AddPaint] and [Graph.AddGroup]
	// when the node ID is empty.
	ErrInvalidID = errors.New("layer node ID must not be empty")

	// ErrDuplicateID is returned when a node with the same ID already
	// exists in the graph.
	ErrDuplicateID = errors.New("duplicate layer node ID")

	// ErrNotAGroup is returned when a child is added under a paint layer,
	// or a transparency mask is set on one. Paint nodes have no children.
	ErrNotAGroup = errors.New("layer node is not a group")

	// ErrNotPaint is returned when an opacity buffer is set on a group.
	// Group coverage is derived from children, never painted directly.
	ErrNotPaint = errors.New("layer node is not a paint layer")
)

// Kind distinguishes paint layers from layer groups.
type Kind int

const (
	// Paint is a leaf layer carrying an opacity buffer.
	Paint Kind = iota
	// Group composites its children and may carry transparency masks.
	Group
)

// String returns the lowercase kind name used in serialized documents.
func (k Kind) String() string {
	if k == Group {
		return "group"
	}
	return "paint"
}

// Node is a single entry in the layer stack.
//
// Fields are read by the engine but mutated only through Graph methods so
// version counters stay consistent.
type Node struct {
	ID      string
	Kind    Kind
	Parent  string // "" for top-level nodes
	Visible bool

	children []string // back-to-front; Group only

	opacity *mask.Mask // Paint only
	addMask *mask.Mask // Group only, additive transparency mask
	subMask *mask.Mask // Group only, subtractive transparency mask
}

// Children returns the node's child IDs in back-to-front stacking order.
// The returned slice must not be modified.
func (n *Node) Children() []string { return n.children }

// Graph is the arena of layer nodes.
//
// Graph is not safe for concurrent mutation; the single-writer discipline
// is the caller's responsibility. Reads are safe against a quiescent graph.
type Graph struct {
	canvas     image.Rectangle
	nodes      map[string]*Node
	top        []string // top-level stack, back-to-front
	versions   map[string]uint64
	generation uint64
}

// New creates an empty layer graph over the given canvas rectangle.
func New(canvas image.Rectangle) *Graph {
	return &Graph{
		canvas:   canvas,
		nodes:    make(map[string]*Node),
		versions: make(map[string]uint64),
	}
}

// Canvas returns the canvas pixel rectangle all masks are sized to.
func (g *Graph) Canvas() image.Rectangle { return g.canvas }

// Node returns the node with the given ID, or ErrNotFound.
func (g *Graph) Node(id string) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// Contains reports whether the graph has a node with the given ID.
func (g *Graph) Contains(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// TopLevel returns the IDs of the top-level stack in back-to-front order.
// The returned slice must not be modified.
func (g *Graph) TopLevel() []string { return g.top }

// AddPaint adds a paint layer on top of the stack under parent
// ("" for top-level). The layer starts visible with no opacity buffer.
func (g *Graph) AddPaint(id, parent string) error {
	return g.add(&Node{ID: id, Kind: Paint, Parent: parent, Visible: true})
}

// AddGroup adds a layer group on top of the stack under parent
// ("" for top-level).
func (g *Graph) AddGroup(id, parent string) error {
	return g.add(&Node{ID: id, Kind: Group, Parent: parent, Visible: true})
}

func (g *Graph) add(n *Node) error {
	if n.ID == "" {
		return ErrInvalidID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateID
	}
	if n.Parent != "" {
		p, ok := g.nodes[n.Parent]
		if !ok {
			return ErrNotFound
		}
		if p.Kind != Group {
			return ErrNotAGroup
		}
		p.children = append(p.children, n.ID)
	} else {
		g.top = append(g.top, n.ID)
	}
	g.nodes[n.ID] = n
	g.bump(n.ID)
	return nil
}

// CloneSibling allocates a fresh, empty paint layer directly above the
// given layer in the same parent, returning its generated ID. Implements
// the allocator the region graph uses when a region is created on an
// already-linked layer.
func (g *Graph) CloneSibling(layerID string) (string, error) {
	n, ok := g.nodes[layerID]
	if !ok {
		return "", ErrNotFound
	}
	fresh := &Node{ID: uuid.NewString(), Kind: Paint, Parent: n.Parent, Visible: true}
	g.nodes[fresh.ID] = fresh

	siblings := &g.top
	if n.Parent != "" {
		siblings = &g.nodes[n.Parent].children
	}
	idx := slices.Index(*siblings, layerID)
	*siblings = slices.Insert(*siblings, idx+1, fresh.ID)
	g.bump(fresh.ID)
	return fresh.ID, nil
}

// Remove deletes a node and its entire subtree from the graph.
func (g *Graph) Remove(id string) error {
	n, ok := g.nodes[id]
	if !ok {
		return ErrNotFound
	}
	for _, child := range slices.Clone(n.children) {
		_ = g.Remove(child)
	}
	if n.Parent != "" {
		if p, ok := g.nodes[n.Parent]; ok {
			p.children = slices.DeleteFunc(p.children, func(s string) bool { return s == id })
		}
	} else {
		g.top = slices.DeleteFunc(g.top, func(s string) bool { return s == id })
	}
	parent := n.Parent
	delete(g.nodes, id)
	delete(g.versions, id)
	g.bumpChain(parent)
	return nil
}

// SetOpacity replaces a paint layer's opacity buffer.
// Passing nil clears the buffer; the layer then contributes nothing.
func (g *Graph) SetOpacity(id string, m *mask.Mask) error {
	n, ok := g.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.Kind != Paint {
		return ErrNotPaint
	}
	n.opacity = m
	g.bump(id)
	return nil
}

// SetTransparencyMasks sets a group's additive and subtractive masks.
// Either may be nil. Applied to the composited group coverage as
// clamp(coverage + add - sub, 0, 1).
func (g *Graph) SetTransparencyMasks(id string, add, sub *mask.Mask) error {
	n, ok := g.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.Kind != Group {
		return ErrNotAGroup
	}
	n.addMask, n.subMask = add, sub
	g.bump(id)
	return nil
}

// SetVisible toggles a node's visibility. Hidden nodes and their subtrees
// contribute no coverage and no occlusion.
func (g *Graph) SetVisible(id string, visible bool) error {
	n, ok := g.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if n.Visible != visible {
		n.Visible = visible
		g.bump(id)
	}
	return nil
}

// Version returns the node's monotonic version counter. The counter is
// bumped by any change at the node, under it, or at one of its ancestors.
func (g *Graph) Version(id string) (uint64, error) {
	if _, ok := g.nodes[id]; !ok {
		return 0, ErrNotFound
	}
	return g.versions[id], nil
}

// Generation returns a graph-wide counter bumped on every mutation.
// Coverage memo keys include it because a node's occluded coverage also
// depends on layers stacked in front of it, which per-node counters do
// not track.
func (g *Graph) Generation() uint64 { return g.generation }

// bump increments the version of id, its ancestors, and its descendants.
func (g *Graph) bump(id string) {
	g.generation++
	g.bumpChain(id)
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, child := range n.children {
		g.bumpSubtree(child)
	}
}

func (g *Graph) bumpChain(id string) {
	for id != "" {
		n, ok := g.nodes[id]
		if !ok {
			return
		}
		g.versions[id]++
		id = n.Parent
	}
}

func (g *Graph) bumpSubtree(id string) {
	n, ok := g.nodes[id]
	if !ok {
		return
	}
	g.versions[id]++
	for _, child := range n.children {
		g.bumpSubtree(child)
	}
}
