// SPDX-License-Identifier: EPL-2.0

// Package pool implements the two-tier sample storage behind the voices.
//
// Each sample file has a preload head: a prefix of configurable length kept
// resident from the moment the instrument loads. When a voice starts it
// receives a Promise carrying that head, so playback begins immediately;
// a fixed pool of background workers then decodes the whole file and
// publishes it through the promise's atomic dataReady flag. The voice
// switches to the full buffer the next time it renders.
//
// The audio thread never blocks on the pool: promise acquisition uses a
// non-blocking enqueue and degrades to head-only playback when the queue is
// full, and CleanupPromises — the only place promises are destroyed — runs
// between blocks on the audio thread so buffers are never freed by a
// worker.
//
// Preload size and oversampling changes reload every resident head
// synchronously and belong on a control thread, never inside the audio
// callback.
package pool
