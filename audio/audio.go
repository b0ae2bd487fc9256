// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"io"
	"strings"
	"sync"
)

type Source interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (1=mono, 2=stereo).
	Channels() int
	// Frames is the total frame count of the stream, or 0 when unknown.
	Frames() int
	// ReadSamples fills dst with interleaved float64 samples in [-1,1].
	// Returns the number of float64 values written (not frames). When
	// n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float64) (n int, err error)

	// Close releases any resources.
	Close() error
}

// Looper is implemented by sources whose container carries loop points
// (e.g. the WAV sampler chunk). Start and end are frame indices.
type Looper interface {
	LoopPoints() (start, end int, ok bool)
}

// Decoder constructs a Source from an input stream. Decoders may seek to
// parse container metadata ahead of the sample data.
type Decoder interface {
	Decode(r io.ReadSeeker) (Source, error)
}

// Registry maps lowercase file extensions (without the dot) to decoders.
type Registry struct {
	codecs map[string]Decoder

	mtx sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
	}
}

func (r *Registry) Register(ext string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[strings.ToLower(ext)] = d
}

func (r *Registry) Get(ext string) (Decoder, bool) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	d, ok := r.codecs[strings.ToLower(ext)]
	return d, ok
}

// ForFile resolves a decoder from a filename's extension.
func (r *Registry) ForFile(name string) (Decoder, bool) {
	ext := ""
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 {
		ext = name[idx+1:]
	}
	return r.Get(ext)
}
