// Package mask implements per-pixel coverage masks for region-scoped
// generation.
//
// A Mask is a dense 2-D opacity field with values in [0,1], matching the
// canvas pixel grid (or a sub-rectangle of it for tiled requests). Masks are
// the currency of the coverage engine: layer compositing produces them,
// region coverage unions them, and scope resolution clips and intersects
// them before they are handed to the generation backend.
//
// All operations clamp results into [0,1]. In-place operations return the
// receiver to allow chaining.
package mask

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"
)

// ErrSizeMismatch is returned by binary mask operations when the operands
// do not share the same bounds.
var ErrSizeMismatch = errors.New("mask size mismatch")

// Mask is a dense opacity field over a pixel rectangle.
// Pixel values live in [0,1]; Pix is indexed row-major as y*W + x.
//
// The zero value is not usable - use New or Full.
type Mask struct {
	// Rect places the mask on the canvas. For whole-canvas masks its
	// Min is (0,0); tile masks carry the tile offset.
	Rect image.Rectangle
	Pix  []float32
}

// New creates an all-zero mask covering r.
func New(r image.Rectangle) *Mask {
	return &Mask{
		Rect: r,
		Pix:  make([]float32, r.Dx()*r.Dy()),
	}
}

// Full creates a mask covering r with every pixel set to 1.
func Full(r image.Rectangle) *Mask {
	m := New(r)
	for i := range m.Pix {
		m.Pix[i] = 1
	}
	return m
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := New(m.Rect)
	copy(out.Pix, m.Pix)
	return out
}

// Bounds returns the mask's pixel rectangle.
func (m *Mask) Bounds() image.Rectangle { return m.Rect }

// At returns the opacity at canvas coordinates (x, y).
// Coordinates outside the mask's bounds read as 0.
func (m *Mask) At(x, y int) float32 {
	if !(image.Point{X: x, Y: y}).In(m.Rect) {
		return 0
	}
	return m.Pix[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)]
}

// Set writes the opacity at canvas coordinates (x, y), clamped to [0,1].
// Writes outside the mask's bounds are ignored.
func (m *Mask) Set(x, y int, v float32) {
	if !(image.Point{X: x, Y: y}).In(m.Rect) {
		return
	}
	m.Pix[(y-m.Rect.Min.Y)*m.Rect.Dx()+(x-m.Rect.Min.X)] = clamp01(v)
}

// Fill sets every pixel inside r (intersected with the mask bounds) to v.
func (m *Mask) Fill(r image.Rectangle, v float32) {
	v = clamp01(v)
	r = r.Intersect(m.Rect)
	w := m.Rect.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := (y - m.Rect.Min.Y) * w
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[row+(x-m.Rect.Min.X)] = v
		}
	}
}

// Union merges o into m as a pixelwise maximum.
// This is the combination rule for a region linked to several layers.
func (m *Mask) Union(o *Mask) (*Mask, error) {
	if o.Rect != m.Rect {
		return nil, ErrSizeMismatch
	}
	for i, v := range o.Pix {
		if v > m.Pix[i] {
			m.Pix[i] = v
		}
	}
	return m, nil
}

// Intersect multiplies m by o pixelwise. Multiplication (rather than
// minimum) preserves soft edges when a fractional selection meets a
// fractional coverage boundary.
func (m *Mask) Intersect(o *Mask) (*Mask, error) {
	if o.Rect != m.Rect {
		return nil, ErrSizeMismatch
	}
	for i, v := range o.Pix {
		m.Pix[i] *= v
	}
	return m, nil
}

// Accumulate folds o into m as front-to-back occlusion: each pixel of o
// contributes o*(1-m), and m grows by the contribution. The returned mask
// holds o's visible contribution; m becomes the updated "already covered"
// accumulator. This is the single compositing step of the layer stack.
func (m *Mask) Accumulate(o *Mask) (*Mask, error) {
	if o.Rect != m.Rect {
		return nil, ErrSizeMismatch
	}
	contrib := New(m.Rect)
	for i, v := range o.Pix {
		c := v * (1 - m.Pix[i])
		contrib.Pix[i] = c
		m.Pix[i] = clamp01(m.Pix[i] + c)
	}
	return contrib, nil
}

// Add adds o to m pixelwise, clamping to [0,1].
// Used for a group's additive transparency mask.
func (m *Mask) Add(o *Mask) (*Mask, error) {
	if o.Rect != m.Rect {
		return nil, ErrSizeMismatch
	}
	for i, v := range o.Pix {
		m.Pix[i] = clamp01(m.Pix[i] + v)
	}
	return m, nil
}

// Sub subtracts o from m pixelwise, clamping to [0,1].
// Used for a group's subtractive transparency mask.
func (m *Mask) Sub(o *Mask) (*Mask, error) {
	if o.Rect != m.Rect {
		return nil, ErrSizeMismatch
	}
	for i, v := range o.Pix {
		m.Pix[i] = clamp01(m.Pix[i] - v)
	}
	return m, nil
}

// Invert replaces every pixel v with 1-v.
func (m *Mask) Invert() *Mask {
	for i, v := range m.Pix {
		m.Pix[i] = 1 - v
	}
	return m
}

// Clip extracts the sub-mask covering r. Pixels of r outside the mask's
// bounds read as 0. The result's Rect is r, preserving canvas placement
// for tile requests.
func (m *Mask) Clip(r image.Rectangle) *Mask {
	out := New(r)
	shared := r.Intersect(m.Rect)
	for y := shared.Min.Y; y < shared.Max.Y; y++ {
		for x := shared.Min.X; x < shared.Max.X; x++ {
			out.Pix[(y-r.Min.Y)*r.Dx()+(x-r.Min.X)] = m.At(x, y)
		}
	}
	return out
}

// Sum returns the total opacity over the whole mask.
func (m *Mask) Sum() float64 {
	var s float64
	for _, v := range m.Pix {
		s += float64(v)
	}
	return s
}

// Mean returns the average opacity over the whole mask.
// An empty (zero-area) mask has mean 0.
func (m *Mask) Mean() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return m.Sum() / float64(len(m.Pix))
}

// OverlapIn returns the fraction of r covered by the mask:
// sum of opacity inside r divided by r's area. Used for tile inclusion.
func (m *Mask) OverlapIn(r image.Rectangle) float64 {
	area := r.Dx() * r.Dy()
	if area <= 0 {
		return 0
	}
	var s float64
	shared := r.Intersect(m.Rect)
	for y := shared.Min.Y; y < shared.Max.Y; y++ {
		for x := shared.Min.X; x < shared.Max.X; x++ {
			s += float64(m.At(x, y))
		}
	}
	return s / float64(area)
}

// CoveredFraction returns the share of sel's opacity that m covers:
// sum(m*sel) / sum(sel). Used for selection-constrained region inclusion.
// Returns 0 when sel is empty or the bounds differ.
func (m *Mask) CoveredFraction(sel *Mask) float64 {
	if sel.Rect != m.Rect {
		return 0
	}
	var num, den float64
	for i, s := range sel.Pix {
		den += float64(s)
		num += float64(m.Pix[i]) * float64(s)
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// Empty reports whether every pixel is zero.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v != 0 {
			return false
		}
	}
	return true
}

// ToAlpha converts the mask to an 8-bit alpha image for encoding or
// handoff to the generation backend.
func (m *Mask) ToAlpha() *image.Alpha {
	img := image.NewAlpha(m.Rect)
	for i, v := range m.Pix {
		img.Pix[i] = uint8(clamp01(v)*255 + 0.5)
	}
	return img
}

// FromAlpha builds a mask from an 8-bit alpha image.
func FromAlpha(img *image.Alpha) *Mask {
	m := New(img.Rect)
	for i, v := range img.Pix {
		m.Pix[i] = float32(v) / 255
	}
	return m
}

// FromImage builds a mask from an arbitrary image's alpha channel.
func FromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := New(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			m.Set(x, y, float32(a)/0xffff)
		}
	}
	return m
}

// Resize scales the mask to r using bilinear interpolation.
// Used to downsample coverage for tile context previews.
func (m *Mask) Resize(r image.Rectangle) *Mask {
	dst := image.NewAlpha(r)
	xdraw.BiLinear.Scale(dst, r, m.ToAlpha(), m.Rect, xdraw.Src, nil)
	return FromAlpha(dst)
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
