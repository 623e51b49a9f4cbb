// Package backend submits generation plans to an image synthesis service
// and applies the results back onto the layer stack.
//
// The engine core stops at the plan; everything past that boundary is a
// Backend. Two implementations ship here: an HTTP client for a diffusion
// server speaking the JSON wire form in wire.go, and an in-process memory
// backend that synthesizes flat-color images, used by tests and dry runs.
package backend

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/example/regionkit/pkg/scope"
)

// Backend executes a generation plan.
type Backend interface {
	// Submit sends the plan and blocks until the result is available or
	// ctx is done.
	Submit(ctx context.Context, plan *scope.Plan) (*Result, error)
}

// RegionImage is one generated image, scoped to the region it was
// conditioned on. Ordering follows the plan's entries.
type RegionImage struct {
	RegionID string
	Image    image.Image
}

// Result is the outcome of a submitted plan.
type Result struct {
	// Seed is the sampler seed the backend used, reported for
	// reproducibility.
	Seed uint64

	// Images holds one image per plan entry that produced output.
	Images []RegionImage
}

// Memory is an in-process backend producing deterministic flat-color
// images. Each plan entry yields an image of the plan area filled with a
// color derived from the entry's position, masked by the entry's
// coverage.
type Memory struct {
	// Seed is echoed into results.
	Seed uint64

	// Submitted counts Submit calls, for test assertions.
	Submitted int
}

// NewMemory creates a memory backend.
func NewMemory(seed uint64) *Memory {
	return &Memory{Seed: seed}
}

// Submit synthesizes one flat-color image per plan entry.
func (b *Memory) Submit(_ context.Context, plan *scope.Plan) (*Result, error) {
	if len(plan.Entries) == 0 {
		return nil, fmt.Errorf("plan has no entries")
	}
	b.Submitted++

	res := &Result{Seed: b.Seed}
	for i, e := range plan.Entries {
		img := image.NewNRGBA(plan.Area)
		fill := color.NRGBA{
			R: uint8(40 * (i + 1)),
			G: uint8(255 - 40*i),
			B: uint8(90 + 30*i),
			A: 255,
		}
		for y := plan.Area.Min.Y; y < plan.Area.Max.Y; y++ {
			for x := plan.Area.Min.X; x < plan.Area.Max.X; x++ {
				if e.Mask != nil && e.Mask.At(x, y) == 0 {
					continue
				}
				img.SetNRGBA(x, y, fill)
			}
		}
		res.Images = append(res.Images, RegionImage{RegionID: e.RegionID, Image: img})
	}
	return res, nil
}
