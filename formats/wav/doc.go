// SPDX-License-Identifier: EPL-2.0

// Package wav provides WAV audio file decoding and encoding.
//
// Decoding uses the github.com/go-audio library for robust WAV file
// handling. Supported sample formats are PCM 16-bit and 24-bit, mono or
// stereo, at any sample rate. Loop points stored in the sampler ("smpl")
// chunk are surfaced through the audio.Looper interface, which is how
// instrument samples announce their sustain loops to the file pool.
//
// Use the Decoder to read WAV files:
//
//	decoder := wav.Decoder{}
//	file, _ := os.Open("audio.wav")
//	source, err := decoder.Decode(file)
//	if err != nil {
//	    // Handle error
//	}
//
//	buf := make([]float64, 4096)
//	n, err := source.ReadSamples(buf)
//
// The decoder returns an audio.Source that provides interleaved samples as
// float64 values in the range [-1.0, 1.0].
//
// # Writing WAV Files
//
// Use WriteWAV16 to create WAV files from interleaved 16-bit PCM:
//
//	samples := []int16{100, -100, 200, -200}
//	file, _ := os.Create("output.wav")
//	err := wav.WriteWAV16(file, 44100, 2, samples)
//
// The function writes a complete WAV file with proper headers, in chunks,
// with a single scratch buffer.
//
// # Error Handling
//
//   - ErrNotWavFile: the input is not a valid WAV file
//   - ErrUnsupportedBitDepth: the sample format is not 16- or 24-bit PCM
//   - ErrBadChannelCount: WriteWAV16 was given fewer than one channel
package wav
