// SPDX-License-Identifier: EPL-2.0

package buffer

import "errors"

var (
	ErrBadAlignment = errors.New("alignment must be 4, 8 or 16 bytes")
	ErrAllocation   = errors.New("buffer allocation failed")
)
