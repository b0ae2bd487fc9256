// SPDX-License-Identifier: EPL-2.0

package wav

import "errors"

var (
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrUnsupportedBitDepth = errors.New("only PCM 16-bit and 24-bit supported")
	ErrBadChannelCount     = errors.New("channel count must be at least 1")
)
