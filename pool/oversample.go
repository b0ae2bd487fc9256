// SPDX-License-Identifier: EPL-2.0

package pool

import (
	"github.com/ik5/sampler/audio"
	"github.com/ik5/sampler/utils"
)

// Oversample returns a buffer holding factor times the source frames,
// Catmull-Rom interpolated channel by channel. Factor 1 returns the source
// unchanged. Edge frames are clamped so the spline never reads outside the
// source.
func Oversample(src *audio.Buffer, factor int) *audio.Buffer {
	if factor <= 1 || src == nil {
		return src
	}

	out := audio.NewBuffer(src.Channels(), src.Frames()*factor)
	for c := 0; c < src.Channels(); c++ {
		in := src.Channel(c)
		dst := out.Channel(c)
		last := len(in) - 1

		for i := range dst {
			pos := float64(i) / float64(factor)
			i1 := int(pos)
			x := pos - float64(i1)

			i0 := max(i1-1, 0)
			i2 := min(i1+1, last)
			i3 := min(i1+2, last)

			dst[i] = utils.CubicInterpolate(in[i0], in[i1], in[i2], in[i3], x)
		}
	}
	return out
}
