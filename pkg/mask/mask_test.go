package mask

import (
	"image"
	"testing"
)

func rect(w, h int) image.Rectangle { return image.Rect(0, 0, w, h) }

func TestNewAndFull(t *testing.T) {
	m := New(rect(4, 3))
	if len(m.Pix) != 12 {
		t.Fatalf("Pix length = %d, want 12", len(m.Pix))
	}
	if !m.Empty() {
		t.Error("New mask should be empty")
	}

	f := Full(rect(4, 3))
	if f.Mean() != 1 {
		t.Errorf("Full mean = %v, want 1", f.Mean())
	}
}

func TestSetClamps(t *testing.T) {
	m := New(rect(2, 2))
	m.Set(0, 0, 2.5)
	m.Set(1, 0, -1)
	if m.At(0, 0) != 1 {
		t.Errorf("At(0,0) = %v, want 1 (clamped)", m.At(0, 0))
	}
	if m.At(1, 0) != 0 {
		t.Errorf("At(1,0) = %v, want 0 (clamped)", m.At(1, 0))
	}

	// Out-of-bounds reads are 0, writes are ignored.
	m.Set(10, 10, 1)
	if m.At(10, 10) != 0 {
		t.Error("out-of-bounds At should be 0")
	}
}

func TestUnionIsPixelwiseMax(t *testing.T) {
	a := New(rect(2, 1))
	a.Set(0, 0, 0.3)
	a.Set(1, 0, 0.9)
	b := New(rect(2, 1))
	b.Set(0, 0, 0.7)
	b.Set(1, 0, 0.2)

	if _, err := a.Union(b); err != nil {
		t.Fatalf("Union error: %v", err)
	}
	if a.At(0, 0) != 0.7 || a.At(1, 0) != 0.9 {
		t.Errorf("Union = [%v %v], want [0.7 0.9]", a.At(0, 0), a.At(1, 0))
	}
}

func TestSizeMismatch(t *testing.T) {
	a := New(rect(2, 2))
	b := New(rect(3, 2))
	if _, err := a.Union(b); err != ErrSizeMismatch {
		t.Errorf("Union mismatch error = %v, want ErrSizeMismatch", err)
	}
	if _, err := a.Intersect(b); err != ErrSizeMismatch {
		t.Errorf("Intersect mismatch error = %v, want ErrSizeMismatch", err)
	}
}

func TestAccumulateOcclusion(t *testing.T) {
	// Opaque front layer fully masks the back layer's contribution.
	covered := New(rect(2, 1))
	front := Full(rect(2, 1))
	back := Full(rect(2, 1))

	c1, err := covered.Accumulate(front)
	if err != nil {
		t.Fatal(err)
	}
	c2, err := covered.Accumulate(back)
	if err != nil {
		t.Fatal(err)
	}

	if c1.At(0, 0) != 1 {
		t.Errorf("front contribution = %v, want 1", c1.At(0, 0))
	}
	if c2.At(0, 0) != 0 {
		t.Errorf("occluded back contribution = %v, want 0", c2.At(0, 0))
	}
}

func TestAccumulatePartialOpacity(t *testing.T) {
	covered := New(rect(1, 1))
	half := New(rect(1, 1))
	half.Set(0, 0, 0.5)

	c1, _ := covered.Accumulate(half)
	c2, _ := covered.Accumulate(Full(rect(1, 1)))

	if c1.At(0, 0) != 0.5 {
		t.Errorf("first contribution = %v, want 0.5", c1.At(0, 0))
	}
	if c2.At(0, 0) != 0.5 {
		t.Errorf("second contribution = %v, want 0.5", c2.At(0, 0))
	}
	if covered.At(0, 0) != 1 {
		t.Errorf("accumulated = %v, want 1", covered.At(0, 0))
	}
}

func TestAddSubClamp(t *testing.T) {
	m := New(rect(1, 1))
	m.Set(0, 0, 0.8)
	o := New(rect(1, 1))
	o.Set(0, 0, 0.5)

	m.Add(o)
	if m.At(0, 0) != 1 {
		t.Errorf("Add clamp = %v, want 1", m.At(0, 0))
	}
	m.Sub(o)
	m.Sub(o)
	m.Sub(o)
	if m.At(0, 0) != 0 {
		t.Errorf("Sub clamp = %v, want 0", m.At(0, 0))
	}
}

func TestClipCarriesOffset(t *testing.T) {
	m := New(rect(8, 8))
	m.Fill(image.Rect(0, 0, 4, 8), 1)

	tile := image.Rect(3, 0, 6, 8)
	clipped := m.Clip(tile)
	if clipped.Rect != tile {
		t.Errorf("clipped Rect = %v, want %v", clipped.Rect, tile)
	}
	if clipped.At(3, 0) != 1 {
		t.Error("pixel inside both tile and coverage should be 1")
	}
	if clipped.At(5, 0) != 0 {
		t.Error("pixel inside tile but outside coverage should be 0")
	}
}

func TestOverlapIn(t *testing.T) {
	m := New(rect(10, 10))
	m.Fill(image.Rect(0, 0, 5, 10), 1) // left half

	if got := m.OverlapIn(image.Rect(0, 0, 10, 10)); got != 0.5 {
		t.Errorf("overlap = %v, want 0.5", got)
	}
	// Tile touching coverage by a single pixel column.
	if got := m.OverlapIn(image.Rect(4, 0, 8, 10)); got != 0.25 {
		t.Errorf("overlap = %v, want 0.25", got)
	}
	if got := m.OverlapIn(image.Rect(6, 0, 10, 10)); got != 0 {
		t.Errorf("overlap = %v, want 0", got)
	}
}

func TestCoveredFraction(t *testing.T) {
	cov := New(rect(4, 1))
	cov.Fill(image.Rect(0, 0, 2, 1), 1) // covers left half

	sel := Full(rect(4, 1))
	if got := cov.CoveredFraction(sel); got != 0.5 {
		t.Errorf("fraction = %v, want 0.5", got)
	}

	empty := New(rect(4, 1))
	if got := cov.CoveredFraction(empty); got != 0 {
		t.Errorf("fraction with empty selection = %v, want 0", got)
	}
}

func TestAlphaRoundTrip(t *testing.T) {
	m := New(rect(3, 2))
	m.Set(1, 1, 0.5)
	m.Set(2, 0, 1)

	got := FromAlpha(m.ToAlpha())
	if got.At(2, 0) != 1 {
		t.Errorf("At(2,0) = %v, want 1", got.At(2, 0))
	}
	if diff := got.At(1, 1) - 0.5; diff > 0.01 || diff < -0.01 {
		t.Errorf("At(1,1) = %v, want ~0.5", got.At(1, 1))
	}
}

func TestResize(t *testing.T) {
	m := Full(rect(8, 8))
	small := m.Resize(rect(4, 4))
	if small.Rect.Dx() != 4 || small.Rect.Dy() != 4 {
		t.Fatalf("resized bounds = %v, want 4x4", small.Rect)
	}
	if small.Mean() < 0.99 {
		t.Errorf("resized full mask mean = %v, want ~1", small.Mean())
	}
}
