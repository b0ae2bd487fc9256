// SPDX-License-Identifier: EPL-2.0

// Package mp3 provides MP3 audio decoding on top of
// github.com/hajimehoshi/go-mp3.
//
// go-mp3 always yields 16-bit stereo PCM, so sources from this package
// report two channels regardless of the encoded stream. The total frame
// count is known up front from the decoder's byte length, which lets the
// file pool size preload heads without decoding the whole file.
//
//	decoder := mp3.Decoder{}
//	source, err := decoder.Decode(file)
package mp3
