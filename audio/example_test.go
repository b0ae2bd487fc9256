// SPDX-License-Identifier: EPL-2.0

package audio_test

import (
	"fmt"

	"github.com/ik5/sampler/audio"
)

// Example_span demonstrates the block operations on a stereo span.
func Example_span() {
	left := make([]float64, 8)
	right := make([]float64, 8)
	span := audio.SpanOf(left, right)

	span.Fill(0.5)
	span.ApplyGain(2)

	fmt.Printf("channels: %d\n", span.Channels())
	fmt.Printf("frames: %d\n", span.Frames())
	fmt.Printf("sample: %v\n", span.Channel(0)[3])
	fmt.Printf("mean squared: %v\n", span.MeanSquared())
	// Output:
	// channels: 2
	// frames: 8
	// sample: 1
	// mean squared: 1
}

// Example_subspan demonstrates view slicing.
func Example_subspan() {
	data := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	span := audio.SpanOf(data)

	tail := span.Subspan(6)
	fmt.Printf("tail frames: %d\n", tail.Frames())
	fmt.Printf("tail first: %v\n", tail.Channel(0)[0])

	head := span.First(2)
	fmt.Printf("head frames: %d\n", head.Frames())
	// Output:
	// tail frames: 2
	// tail first: 6
	// head frames: 2
}
