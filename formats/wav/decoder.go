// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"

	"github.com/ik5/sampler/audio"
)

// wavReader is the part of gowav.Decoder the source needs, split out so
// tests can substitute a failing reader.
type wavReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        wavReader
	sampleRate int
	channels   int
	frames     int
	bitDepth   int

	loopStart int
	loopEnd   int
	hasLoop   bool

	intBuf *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Frames() int     { return s.frames }
func (s *source) Close() error    { return nil }

func (s *source) LoopPoints() (int, int, bool) {
	return s.loopStart, s.loopEnd, s.hasLoop
}

func (s *source) ReadSamples(dst []float64) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if cap(s.intBuf.Data) < len(dst) {
		s.intBuf.Data = make([]int, len(dst))
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("%w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	scale := 1.0 / float64(int64(1)<<(s.bitDepth-1))
	for i := 0; i < n; i++ {
		dst[i] = float64(s.intBuf.Data[i]) * scale
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.ReadSeeker) (audio.Source, error) {
	// First pass collects container metadata; the sampler chunk carries
	// the instrument loop points.
	md := gowav.NewDecoder(r)
	md.ReadMetadata()

	loopStart, loopEnd := 0, 0
	hasLoop := false
	if md.Metadata != nil && md.Metadata.SamplerInfo != nil && len(md.Metadata.SamplerInfo.Loops) > 0 {
		loop := md.Metadata.SamplerInfo.Loops[0]
		loopStart = int(loop.Start)
		loopEnd = int(loop.End)
		hasLoop = true
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	dec := gowav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotWavFile
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	dec = gowav.NewDecoder(r)
	dec.ReadInfo()
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w", err)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth != 16 && bitDepth != 24 {
		return nil, ErrUnsupportedBitDepth
	}
	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, ErrNotWavFile
	}

	bytesPerFrame := (bitDepth / 8) * channels
	frames := int(dec.PCMLen()) / bytesPerFrame

	return &source{
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   channels,
		frames:     frames,
		bitDepth:   bitDepth,
		loopStart:  loopStart,
		loopEnd:    loopEnd,
		hasLoop:    hasLoop,
		intBuf: &goaudio.IntBuffer{
			Format: &goaudio.Format{
				NumChannels: channels,
				SampleRate:  int(dec.SampleRate),
			},
			Data:           make([]int, 4096),
			SourceBitDepth: bitDepth,
		},
	}, nil
}
