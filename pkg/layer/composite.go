package layer

import (
	"github.com/example/regionkit/pkg/mask"
)

// CompositeCoverage returns the node's own coverage, computing group
// composites recursively front-to-back.
//
// For a paint layer this is its opacity buffer (all-zero when none is set,
// or the layer is hidden). For a group, children are folded from topmost to
// bottommost with an accumulating occlusion mask - each child contributes
// child*(1-covered) - and the group's transparency masks are then applied
// as clamp(result + add - sub, 0, 1).
//
// The result is freshly allocated; callers may mutate it.
func (g *Graph) CompositeCoverage(id string) (*mask.Mask, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return g.composite(n), nil
}

func (g *Graph) composite(n *Node) *mask.Mask {
	if !n.Visible {
		return mask.New(g.canvas)
	}
	if n.Kind == Paint {
		if n.opacity == nil {
			return mask.New(g.canvas)
		}
		return n.opacity.Clone()
	}

	result := mask.New(g.canvas)
	covered := mask.New(g.canvas)
	// Topmost child is last in the sequence.
	for i := len(n.children) - 1; i >= 0; i-- {
		child := g.nodes[n.children[i]]
		contrib, _ := covered.Accumulate(g.composite(child))
		result.Union(contrib)
	}
	if n.addMask != nil {
		result.Add(n.addMask)
	}
	if n.subMask != nil {
		result.Sub(n.subMask)
	}
	return result
}

// OccludedCoverage returns the node's coverage as seen in the final image:
// its composite, with every pixel hidden by layers stacked in front of it
// removed. A pixel belongs to the topmost node with non-zero opacity
// there, so siblings in front at every ancestor level occlude.
func (g *Graph) OccludedCoverage(id string) (*mask.Mask, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, ErrNotFound
	}

	// A hidden ancestor hides the whole subtree.
	for cur := n; cur.Parent != ""; {
		cur = g.nodes[cur.Parent]
		if !cur.Visible {
			return mask.New(g.canvas), nil
		}
	}

	covered := mask.New(g.canvas)
	// Walk up the ancestor chain; at each level, everything stacked in
	// front of the node on the path occludes.
	for cur := n; ; {
		siblings := g.top
		if cur.Parent != "" {
			siblings = g.nodes[cur.Parent].children
		}
		idx := len(siblings) - 1
		for i, sib := range siblings {
			if sib == cur.ID {
				idx = i
				break
			}
		}
		for i := len(siblings) - 1; i > idx; i-- {
			covered.Accumulate(g.composite(g.nodes[siblings[i]]))
		}
		if cur.Parent == "" {
			break
		}
		cur = g.nodes[cur.Parent]
	}

	result := g.composite(n)
	covered.Invert()
	result.Intersect(covered)
	return result, nil
}
