// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"

	"github.com/ik5/sampler/buffer"
	"github.com/ik5/sampler/config"
)

// MaxChannels is the channel capacity of buffers and spans.
const MaxChannels = config.MaxChannels

// Buffer owns one aligned buffer per channel, all of equal frame count.
// Channels are stored deinterleaved so that voices can walk a single channel
// with a plain index.
type Buffer struct {
	channels    [MaxChannels]*buffer.Buffer[float64]
	numChannels int
	frames      int
}

// NewBuffer allocates a buffer with the given channel and frame counts.
// Channel counts outside [1, MaxChannels] return nil.
func NewBuffer(channels, frames int) *Buffer {
	if channels < 1 || channels > MaxChannels || frames < 0 {
		return nil
	}

	b := &Buffer{numChannels: channels, frames: frames}
	for c := 0; c < channels; c++ {
		b.channels[c] = buffer.New[float64](frames)
	}
	return b
}

func (b *Buffer) Channels() int { return b.numChannels }
func (b *Buffer) Frames() int   { return b.frames }

// Channel is the logical contents of one channel, Frames samples long.
func (b *Buffer) Channel(c int) []float64 {
	if c < 0 || c >= b.numChannels {
		return nil
	}
	return b.channels[c].Data()
}

// ChannelPadded extends Channel to the aligned end, so interpolating readers
// may fetch one frame past the logical end.
func (b *Buffer) ChannelPadded(c int) []float64 {
	if c < 0 || c >= b.numChannels {
		return nil
	}
	return b.channels[c].Padded()
}

// Span is a borrowed view over the whole buffer.
func (b *Buffer) Span() Span {
	var s Span
	s.numChannels = b.numChannels
	s.frames = b.frames
	for c := 0; c < b.numChannels; c++ {
		s.channels[c] = b.channels[c].Data()
	}
	return s
}

// ReadFrom fills the buffer by draining up to Frames frames from src,
// deinterleaving as it goes. It returns the number of frames read. A short
// source leaves the remainder zeroed.
func (b *Buffer) ReadFrom(src Source) (int, error) {
	if b.frames == 0 {
		return 0, nil
	}

	nch := src.Channels()
	if nch < 1 || nch > MaxChannels || nch != b.numChannels {
		return 0, ErrChannelMismatch
	}

	tmp := make([]float64, 4096*nch)
	frame := 0
	for frame < b.frames {
		want := (b.frames - frame) * nch
		if want > len(tmp) {
			want = len(tmp)
		}
		n, err := src.ReadSamples(tmp[:want])
		got := n / nch
		for f := 0; f < got; f++ {
			for c := 0; c < nch; c++ {
				b.channels[c].Data()[frame+f] = tmp[f*nch+c]
			}
		}
		frame += got
		if err == io.EOF {
			return frame, nil
		}
		if err != nil {
			return frame, err
		}
		if n == 0 {
			break
		}
	}
	return frame, nil
}
