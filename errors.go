// SPDX-License-Identifier: EPL-2.0

package sampler

import "errors"

var (
	ErrPreloadFailed = errors.New("sample could not be preloaded")
)
