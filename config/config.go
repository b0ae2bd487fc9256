// SPDX-License-Identifier: EPL-2.0

// Package config holds the engine-wide constants shared by the buffer,
// pool, voice and engine packages.
package config

const (
	// DefaultSampleRate is the host sample rate assumed until the host
	// announces one.
	DefaultSampleRate = 44100.0

	// DefaultSamplesPerBlock is the block size assumed until the host
	// announces one.
	DefaultSamplesPerBlock = 1024

	// DefaultOversampling is the load-time oversampling factor.
	DefaultOversampling = 1

	// DefaultPreloadSize is the number of frames kept resident per sample
	// file before oversampling.
	DefaultPreloadSize = 8192

	// NumBackgroundThreads is the size of the file loading worker pool.
	NumBackgroundThreads = 4

	// MaxVoices bounds the polyphony and the promise queue capacity.
	MaxVoices = 64

	// NumChannels is the engine output channel count. Sample files may be
	// mono or stereo; the output is always stereo.
	NumChannels = 2

	// MaxChannels is the per-span channel capacity.
	MaxChannels = 2

	// SustainCC is the MIDI controller number of the sustain pedal.
	SustainCC = 64

	// HalfCCThreshold is the controller value below which a pedal counts
	// as released.
	HalfCCThreshold = 64

	// DefaultAlignment is the byte alignment of sample buffers.
	DefaultAlignment = 16

	// PowerHistoryLength is the number of block mean-squares retained per
	// voice for steal decisions.
	PowerHistoryLength = 16

	// VirtuallyZero is the -86 dB floor toward which exponential envelope
	// segments decay.
	VirtuallyZero = 0.00005

	// CentsPerSemitone converts transpose values to cents.
	CentsPerSemitone = 100.0
)
