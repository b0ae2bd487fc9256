// SPDX-License-Identifier: EPL-2.0

package audio

import "errors"

var (
	ErrChannelMismatch = errors.New("source channel count does not match buffer")
)
