package vorbis

import (
	"io"
	"testing"
)

// fakeOgg yields a fixed float32 stream like oggvorbis.Reader would.
type fakeOgg struct {
	data     []float32
	pos      int
	rate     int
	channels int
}

func (f *fakeOgg) SampleRate() int { return f.rate }
func (f *fakeOgg) Channels() int   { return f.channels }
func (f *fakeOgg) Length() int64   { return int64(len(f.data) / f.channels) }

func (f *fakeOgg) Read(p []float32) (int, error) {
	if f.pos >= len(f.data) {
		return 0, io.EOF
	}
	n := copy(p, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func TestReadSamplesPassthrough(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:        &fakeOgg{data: []float32{0.5, -0.5, 0.25, -0.25}, rate: 48000, channels: 2},
		sampleRate: 48000,
		channels:   2,
		frames:     2,
		frameBuf:   make([]float32, 8),
	}

	out := make([]float64, 4)
	n, err := s.ReadSamples(out)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}

	want := []float64{0.5, -0.5, 0.25, -0.25}
	for i := range want {
		diff := out[i] - want[i]
		if diff > 1e-7 || diff < -1e-7 {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestReadSamplesEOF(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:      &fakeOgg{data: []float32{0.1}, rate: 44100, channels: 1},
		channels: 1,
		frameBuf: make([]float32, 4),
	}

	out := make([]float64, 4)
	if n, _ := s.ReadSamples(out); n != 1 {
		t.Fatalf("first read n = %d, want 1", n)
	}
	if _, err := s.ReadSamples(out); err != io.EOF {
		t.Errorf("drained read error = %v, want io.EOF", err)
	}
}

func TestReadSamplesEmptyDst(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:      &fakeOgg{data: []float32{0.1}, rate: 44100, channels: 1},
		channels: 1,
		frameBuf: make([]float32, 4),
	}
	if n, err := s.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("empty dst read = (%d, %v), want (0, nil)", n, err)
	}
}
