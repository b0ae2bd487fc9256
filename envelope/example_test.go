// SPDX-License-Identifier: EPL-2.0

package envelope_test

import (
	"fmt"

	"github.com/ik5/sampler/envelope"
)

// Example_linear ramps a gain to a scheduled target.
func Example_linear() {
	var env envelope.Linear
	env.Reset(0)
	env.RegisterEvent(4, 1)

	out := make([]float64, 8)
	env.Block(out)

	fmt.Println(out)
	// Output:
	// [0.25 0.5 0.75 1 1 1 1 1]
}

// Example_adsr shows the hold stage reaching the peak immediately with a
// zero-length attack.
func Example_adsr() {
	var env envelope.ADSR
	env.Reset(envelope.Params{Hold: 4, Sustain: 0.5, Decay: 4})

	out := make([]float64, 4)
	env.Block(out)

	fmt.Println(out)
	fmt.Println(env.IsSmoothing())
	// Output:
	// [1 1 1 1]
	// true
}
