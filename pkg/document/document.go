// Package document reads and writes the JSON interchange form of a
// layered canvas with regions.
//
// The engine core is persistence-free; this codec is the CLI-side
// collaborator that loads a document into layer and region graphs and
// writes one back out. Opacity buffers are expressed either as filled
// rectangles (compact, the test-fixture form) or as external alpha PNG
// files referenced by path.
package document

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/example/regionkit/pkg/layer"
	"github.com/example/regionkit/pkg/mask"
	"github.com/example/regionkit/pkg/region"
)

// Canvas gives the document's pixel dimensions.
type Canvas struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// OpacityRect is a filled rectangle of constant opacity, the compact form
// of an opacity buffer.
type OpacityRect struct {
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
	Value float32 `json:"value"`
}

// Layer is the serialized form of a layer node. Layers appear in
// stacking order, back-to-front, parents before children.
type Layer struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "paint" or "group"
	Parent  string `json:"parent,omitempty"`
	Visible *bool  `json:"visible,omitempty"` // nil means visible

	// Opacity rectangles for paint layers (ignored for groups).
	Opacity []OpacityRect `json:"opacity,omitempty"`
	// OpacityFile references an alpha PNG, relative to the document.
	OpacityFile string `json:"opacity_file,omitempty"`

	// Transparency masks for groups.
	AddMask []OpacityRect `json:"add_mask,omitempty"`
	SubMask []OpacityRect `json:"sub_mask,omitempty"`
}

// Region is the serialized form of a region. The root region is implied
// by RootPrompt on the document; serialized regions are all non-root.
type Region struct {
	ID       string           `json:"id"`
	Text     string           `json:"text,omitempty"`
	Parent   string           `json:"parent,omitempty"` // "" = child of root
	Links    []string         `json:"links,omitempty"`
	Controls []region.Control `json:"controls,omitempty"`
}

// Document is the on-disk form of a layered canvas with regions.
type Document struct {
	Canvas     Canvas   `json:"canvas"`
	RootPrompt string   `json:"root_prompt,omitempty"`
	Layers     []Layer  `json:"layers,omitempty"`
	Regions    []Region `json:"regions,omitempty"`

	// dir resolves relative opacity file paths; set by ReadFile.
	dir string
}

// Build constructs the layer and region graphs the engine runs against.
// Missing layer or region IDs are assigned fresh UUIDs. Validation
// failures (bad canvas, unknown parents, duplicate IDs, conflicting
// links) surface as wrapped errors from the graph packages.
func (d *Document) Build() (*layer.Graph, *region.Graph, error) {
	if d.Canvas.Width <= 0 || d.Canvas.Height <= 0 {
		return nil, nil, fmt.Errorf("canvas %dx%d: dimensions must be positive", d.Canvas.Width, d.Canvas.Height)
	}
	canvas := image.Rect(0, 0, d.Canvas.Width, d.Canvas.Height)
	lg := layer.New(canvas)

	for i := range d.Layers {
		l := &d.Layers[i]
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		var err error
		switch l.Kind {
		case "group":
			err = lg.AddGroup(l.ID, l.Parent)
		case "paint", "":
			err = lg.AddPaint(l.ID, l.Parent)
		default:
			err = fmt.Errorf("unknown layer kind %q", l.Kind)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("layer %s: %w", l.ID, err)
		}

		if l.Kind == "group" {
			if len(l.AddMask) > 0 || len(l.SubMask) > 0 {
				add := rectsToMask(canvas, l.AddMask)
				sub := rectsToMask(canvas, l.SubMask)
				if err := lg.SetTransparencyMasks(l.ID, add, sub); err != nil {
					return nil, nil, fmt.Errorf("layer %s: %w", l.ID, err)
				}
			}
		} else {
			m, err := d.opacityMask(canvas, l)
			if err != nil {
				return nil, nil, fmt.Errorf("layer %s: %w", l.ID, err)
			}
			if m != nil {
				if err := lg.SetOpacity(l.ID, m); err != nil {
					return nil, nil, fmt.Errorf("layer %s: %w", l.ID, err)
				}
			}
		}
		if l.Visible != nil && !*l.Visible {
			_ = lg.SetVisible(l.ID, false)
		}
	}

	rg := region.NewGraph(d.RootPrompt)
	// Two passes: insert all regions, then resolve parents and links, so
	// a region may name a parent declared after it.
	for i := range d.Regions {
		r := &d.Regions[i]
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if _, err := rg.Insert(r.ID, rg.RootID()); err != nil {
			return nil, nil, fmt.Errorf("region %s: %w", r.ID, err)
		}
		if err := rg.SetText(r.ID, r.Text); err != nil {
			return nil, nil, fmt.Errorf("region %s: %w", r.ID, err)
		}
		for _, c := range r.Controls {
			_ = rg.AddControl(r.ID, c)
		}
	}
	for _, r := range d.Regions {
		if r.Parent != "" {
			if err := rg.SetParent(r.ID, r.Parent); err != nil {
				return nil, nil, fmt.Errorf("region %s: parent %s: %w", r.ID, r.Parent, err)
			}
		}
		for _, layerID := range r.Links {
			if !lg.Contains(layerID) {
				return nil, nil, fmt.Errorf("region %s: link %s: %w", r.ID, layerID, layer.ErrNotFound)
			}
			if err := rg.Link(r.ID, layerID); err != nil {
				return nil, nil, fmt.Errorf("region %s: link %s: %w", r.ID, layerID, err)
			}
		}
	}

	return lg, rg, nil
}

func (d *Document) opacityMask(canvas image.Rectangle, l *Layer) (*mask.Mask, error) {
	if l.OpacityFile != "" {
		path := l.OpacityFile
		if !filepath.IsAbs(path) && d.dir != "" {
			path = filepath.Join(d.dir, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open opacity file: %w", err)
		}
		defer f.Close()
		img, err := png.Decode(f)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		m := mask.FromImage(img)
		if m.Bounds() != canvas {
			m = m.Resize(canvas)
		}
		return m, nil
	}
	if len(l.Opacity) == 0 {
		return nil, nil
	}
	return rectsToMask(canvas, l.Opacity), nil
}

func rectsToMask(canvas image.Rectangle, rects []OpacityRect) *mask.Mask {
	if len(rects) == 0 {
		return nil
	}
	m := mask.New(canvas)
	for _, r := range rects {
		m.Fill(image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H), r.Value)
	}
	return m
}
