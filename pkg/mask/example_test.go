package mask_test

import (
	"fmt"
	"image"

	"github.com/example/regionkit/pkg/mask"
)

func ExampleMask_Accumulate() {
	// Fold two layers front to back. The front layer covers the left
	// half, so the back layer only contributes where it is not occluded.
	canvas := image.Rect(0, 0, 4, 2)

	covered := mask.New(canvas)
	front := mask.New(canvas)
	front.Fill(image.Rect(0, 0, 2, 2), 1)
	back := mask.Full(canvas)

	frontContrib, _ := covered.Accumulate(front)
	backContrib, _ := covered.Accumulate(back)

	fmt.Printf("front mean: %.2f\n", frontContrib.Mean())
	fmt.Printf("back mean: %.2f\n", backContrib.Mean())
	fmt.Printf("covered mean: %.2f\n", covered.Mean())
	// Output:
	// front mean: 0.50
	// back mean: 0.50
	// covered mean: 1.00
}

func ExampleMask_OverlapIn() {
	// A mask covering the left quarter of an 8x4 canvas, probed with
	// two tile rectangles.
	m := mask.New(image.Rect(0, 0, 8, 4))
	m.Fill(image.Rect(0, 0, 2, 4), 1)

	left := m.OverlapIn(image.Rect(0, 0, 4, 4))
	right := m.OverlapIn(image.Rect(4, 0, 8, 4))

	fmt.Printf("left tile: %.2f\n", left)
	fmt.Printf("right tile: %.2f\n", right)
	// Output:
	// left tile: 0.50
	// right tile: 0.00
}
