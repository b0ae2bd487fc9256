// SPDX-License-Identifier: EPL-2.0

// Package vorbis provides Ogg Vorbis audio decoding on top of
// github.com/jfreymuth/oggvorbis.
//
// Sources report the stream's channel count and total frame count as read
// from the Ogg container.
//
//	decoder := vorbis.Decoder{}
//	source, err := decoder.Decode(file)
package vorbis
