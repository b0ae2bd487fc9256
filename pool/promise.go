// SPDX-License-Identifier: EPL-2.0

package pool

import (
	"sync/atomic"

	"github.com/ik5/sampler/audio"
)

// Promise is the handle shared between a voice and a loader worker. The
// voice reads the preload head immediately; a worker decodes the full file
// in the background, publishes it through fileData and flips dataReady with
// release semantics. The audio thread acquires dataReady before touching
// the full buffer.
//
// Promises carry an explicit reference count so ownership mirrors the
// queues: the creating caller holds one reference and the pending queue
// holds another. A worker that dequeues a promise whose count has dropped
// to one knows the voice abandoned it and skips the file I/O. Promises are
// destroyed only by the pool's cleanup pass on the audio thread, never on a
// worker.
type Promise struct {
	filename     string
	preloaded    *audio.Buffer
	fileData     *audio.Buffer
	sampleRate   float64
	oversampling int

	dataReady atomic.Bool
	refs      atomic.Int32
}

// Filename is the promise's file, relative to the pool root.
func (p *Promise) Filename() string { return p.filename }

// IsEmpty reports whether the promise carries no data at all; Promise
// returns such a handle for files that were never preloaded.
func (p *Promise) IsEmpty() bool { return p.preloaded == nil }

// Preloaded is the shared preload head, valid from creation.
func (p *Promise) Preloaded() *audio.Buffer { return p.preloaded }

// SampleRate is the file's native rate multiplied by the oversampling
// factor active when the promise was created.
func (p *Promise) SampleRate() float64 { return p.sampleRate }

// Oversampling is the factor the promise's data was loaded with.
func (p *Promise) Oversampling() int { return p.oversampling }

// DataReady reports whether the full file buffer has been published.
func (p *Promise) DataReady() bool { return p.dataReady.Load() }

// FileData is the full file buffer, or nil until DataReady observes true.
func (p *Promise) FileData() *audio.Buffer {
	if !p.dataReady.Load() {
		return nil
	}
	return p.fileData
}

// Release drops the holder's reference. Voices call this when they reset;
// the cleanup pass destroys the promise once only the pool retains it.
func (p *Promise) Release() {
	p.refs.Add(-1)
}

func (p *Promise) retain() {
	p.refs.Add(1)
}

// RefCount is the current reference count; exposed for the cleanup sweep
// and for tests.
func (p *Promise) RefCount() int32 { return p.refs.Load() }
