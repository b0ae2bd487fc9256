package aiff

import (
	"io"
	"math"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// fakeAiff yields a fixed int stream like goaiff.Decoder would.
type fakeAiff struct {
	data []int
	pos  int
}

func (f *fakeAiff) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if f.pos >= len(f.data) {
		return 0, nil
	}
	n := copy(buf.Data, f.data[f.pos:])
	f.pos += n
	return n, nil
}

func TestReadSamplesConversion(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:        &fakeAiff{data: []int{0, 16384, -16384, -32768}},
		sampleRate: 44100,
		channels:   1,
		frames:     4,
		bitDepth:   16,
		intBuf:     &goaudio.IntBuffer{Data: make([]int, 8)},
	}

	out := make([]float64, 4)
	n, err := s.ReadSamples(out)
	if err != nil {
		t.Fatalf("ReadSamples: %v", err)
	}
	if n != 4 {
		t.Fatalf("n = %d, want 4", n)
	}

	want := []float64{0, 0.5, -0.5, -1}
	for i := range want {
		if math.Abs(out[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, out[i], want[i])
		}
	}
}

func TestReadSamplesEOF(t *testing.T) {
	t.Parallel()

	s := &source{
		dec:      &fakeAiff{data: []int{1}},
		channels: 1,
		bitDepth: 16,
		intBuf:   &goaudio.IntBuffer{Data: make([]int, 4)},
	}

	out := make([]float64, 4)
	if n, _ := s.ReadSamples(out); n != 1 {
		t.Fatalf("first read n = %d, want 1", n)
	}
	if _, err := s.ReadSamples(out); err != io.EOF {
		t.Errorf("drained read error = %v, want io.EOF", err)
	}
}
