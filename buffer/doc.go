// SPDX-License-Identifier: EPL-2.0

// Package buffer provides a SIMD-aligned linear buffer.
//
// A Buffer differs from a plain slice in two ways: its data start is aligned
// to a configurable byte boundary (16 bytes by default), and its logical end
// is followed by zero-initialized padding up to the next alignment multiple
// strictly past the end.
// Block-processing loops that consume full vector registers can therefore
// read or write slightly past the logical end without a scalar tail and
// without going out of bounds.
//
//	buf := buffer.New[float64](1000)
//	data := buf.Data()    // len 1000
//	padded := buf.Padded() // len 1000 rounded up to the alignment
//
// The padded region is the only reason this type exists; code that does not
// overread should use Data and treat the buffer as a slice.
package buffer
