// SPDX-License-Identifier: EPL-2.0

// Package audio provides the decode interface and the multi-channel sample
// containers used throughout the engine.
//
// # Sources and decoders
//
// A Source yields interleaved float64 frames and reports its native sample
// rate, channel count and, when known, total frame count. Format packages
// under formats/ implement Decoder; a Registry resolves decoders by file
// extension:
//
//	reg := audio.NewRegistry()
//	reg.Register("wav", wav.Decoder{})
//	dec, ok := reg.ForFile("kick.wav")
//
// Sources whose container carries loop points additionally implement Looper.
//
// # Buffers and spans
//
// Buffer owns one aligned channel buffer per channel (see package buffer);
// Span is the non-owning view passed along the render path. Span block
// operations (Fill, ApplyGain, Add, MeanSquared) run over whole channels so
// the vectorised kernels in algo-vecmath can do the work.
package audio
