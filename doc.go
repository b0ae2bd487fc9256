// SPDX-License-Identifier: EPL-2.0

// Package sampler is a realtime sample-based instrument engine: it turns a
// bank of sound-file regions triggered by note and controller events into a
// continuous stereo stream rendered in fixed-size blocks.
//
// # Architecture
//
// The engine is built bottom-up from small packages:
//
//   - buffer: SIMD-aligned linear storage with a padded end
//   - audio: decode interface, multi-channel buffers and spans
//   - formats/...: WAV, AIFF, MP3 and Ogg Vorbis decoders
//   - pool: preload heads, background tail loading, promises
//   - envelope: linear smoothing and ADSR generators
//   - region: the instrument description unit
//   - voice: the per-note render state machine
//
// The root package glues them together as an Engine.
//
// # Quick Start
//
//	engine := sampler.NewEngine("samples/")
//	defer engine.Close()
//
//	r := region.New("piano_c4.wav")
//	r.Keys = region.Range{Lo: 60, Hi: 60}
//	if err := engine.AddRegion(r); err != nil {
//	    // Handle error
//	}
//
//	engine.SetSampleRate(48000)
//	engine.SetSamplesPerBlock(512)
//
//	engine.NoteOn(0, 0, 60, 100)
//	left := make([]float64, 512)
//	right := make([]float64, 512)
//	engine.RenderBlock(audio.SpanOf(left, right))
//
// # Realtime behavior
//
// A voice starts from the sample's resident preload head long before the
// full file is decoded; a fixed worker pool loads tails in the background
// and hands them back through lock-free promise queues. The audio path —
// event registration, RenderBlock, promise cleanup — never allocates,
// locks or blocks, and never fails with an error: missing files and full
// queues degrade to silence for the affected voice.
//
// # Configuration
//
// Preload size and oversampling factor are pool-wide settings that reload
// every resident head; change them from a control thread only:
//
//	engine.Pool().SetPreloadSize(16384)
//	engine.Pool().SetOversampling(2)
package sampler
