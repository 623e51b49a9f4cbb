package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/goccy/go-graphviz"

	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/region"
)

// ToDOT returns a Graphviz DOT rendering of the region hierarchy and its
// layer links.
//
// Regions appear as ellipses connected by solid parent edges; layer nodes
// appear as boxes (groups doubled) connected to their owning region by
// dashed link edges. The output is a complete digraph suitable for the
// dot command or RenderDOT.
func ToDOT(lg *layer.Graph, rg *region.Graph) string {
	var buf bytes.Buffer
	buf.WriteString("digraph regions {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [fontname=\"SF Mono, Menlo, monospace\", fontsize=12, style=filled, fillcolor=white];\n\n")

	var walkRegion func(id string)
	walkRegion = func(id string) {
		r, err := rg.Region(id)
		if err != nil {
			return
		}
		label := r.Text
		if label == "" {
			label = id
		}
		if len(label) > 32 {
			label = label[:29] + "..."
		}
		shape := "ellipse"
		if id == rg.RootID() {
			shape = "doublecircle"
			if label == id {
				label = "root"
			}
		}
		fmt.Fprintf(&buf, "  %q [label=%q, shape=%s];\n", "r_"+id, label, shape)
		for _, layerID := range r.Links() {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, arrowhead=none];\n", "r_"+id, "l_"+layerID)
		}
		for _, child := range r.Children() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", "r_"+id, "r_"+child)
			walkRegion(child)
		}
	}
	walkRegion(rg.RootID())
	buf.WriteString("\n")

	var walkLayer func(id string)
	walkLayer = func(id string) {
		n, err := lg.Node(id)
		if err != nil {
			return
		}
		shape := "box"
		if n.Kind == layer.Group {
			shape = "box3d"
		}
		fmt.Fprintf(&buf, "  %q [label=%q, shape=%s];\n", "l_"+id, id, shape)
		for _, child := range n.Children() {
			fmt.Fprintf(&buf, "  %q -> %q [color=gray];\n", "l_"+id, "l_"+child)
			walkLayer(child)
		}
	}
	for _, id := range lg.TopLevel() {
		walkLayer(id)
	}

	buf.WriteString("}\n")
	return buf.String()
}

// RenderDOT renders the region/layer structure to the given Graphviz
// format ("svg", "png", "dot").
//
// Requires the Graphviz library (github.com/goccy/go-graphviz). Errors
// are wrapped with %w for unwrapping.
func RenderDOT(ctx context.Context, lg *layer.Graph, rg *region.Graph, format string) ([]byte, error) {
	dot := ToDOT(lg, rg)
	if format == "dot" || format == "" {
		return []byte(dot), nil
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.Format(format), &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
