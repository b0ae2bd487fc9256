// SPDX-License-Identifier: EPL-2.0

package pool

import "errors"

var (
	ErrUnknownFormat       = errors.New("no decoder registered for file extension")
	ErrUnsupportedChannels = errors.New("only mono and stereo samples supported")
)
