// SPDX-License-Identifier: EPL-2.0

// Package aiff provides AIFF audio decoding on top of
// github.com/go-audio/aiff.
//
// Supported sample formats are PCM 16-bit and 24-bit; the total frame count
// comes from the COMM chunk.
//
//	decoder := aiff.Decoder{}
//	source, err := decoder.Decode(file)
package aiff
