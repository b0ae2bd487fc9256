// SPDX-License-Identifier: EPL-2.0

package buffer

import (
	"unsafe"

	"github.com/ik5/sampler/config"
)

// Element constrains the sample types a Buffer can hold.
type Element interface {
	~float32 | ~float64 | ~int32 | ~int64
}

// Buffer is a linear buffer whose data pointer is aligned to a fixed byte
// boundary and whose logical end is followed by zeroed padding up to the next
// alignment multiple. Vectorised consumers may read and write up to the
// padded end without bounds checks.
type Buffer[T Element] struct {
	raw         []T
	off         int // elements from raw start to the aligned data start
	size        int // logical length in elements
	alignedSize int // padded length in elements, multiple of the alignment
	align       int // bytes
}

// New returns a buffer of size elements aligned to config.DefaultAlignment.
func New[T Element](size int) *Buffer[T] {
	b, _ := NewAligned[T](size, config.DefaultAlignment)
	return b
}

// NewAligned returns a buffer of size elements aligned to the given byte
// boundary. The alignment must be 4, 8 or 16.
func NewAligned[T Element](size, alignment int) (*Buffer[T], error) {
	switch alignment {
	case 4, 8, 16:
	default:
		return nil, ErrBadAlignment
	}

	b := &Buffer[T]{align: alignment}
	if !b.Resize(size) {
		return nil, ErrAllocation
	}
	return b, nil
}

func (b *Buffer[T]) elemSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// alignElems is the alignment expressed in elements, at least one.
func (b *Buffer[T]) alignElems() int {
	n := b.align / b.elemSize()
	if n < 1 {
		n = 1
	}
	return n
}

// Resize grows or shrinks the buffer to size elements, preserving the common
// prefix of the previous contents. It reports false when size is negative; in
// that case a previously non-empty buffer is cleared.
func (b *Buffer[T]) Resize(size int) bool {
	if b.align == 0 {
		b.align = config.DefaultAlignment
	}
	if size < 0 {
		if !b.Empty() {
			b.Clear()
		}
		return false
	}
	if size == 0 {
		b.Clear()
		return true
	}

	// The padded end is strictly past the logical end so that overreading
	// consumers (vector kernels, the voice interpolator's idx+1 fetch)
	// always stay in bounds.
	ae := b.alignElems()
	alignedSize := ((size + ae) / ae) * ae

	raw := make([]T, alignedSize+ae)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	misalign := int(addr % uintptr(b.align))
	off := 0
	if misalign != 0 {
		off = (b.align - misalign) / b.elemSize()
	}

	copy(raw[off:off+alignedSize], b.Data())

	b.raw = raw
	b.off = off
	b.size = size
	b.alignedSize = alignedSize
	return true
}

// Clear releases the storage and leaves the buffer empty.
func (b *Buffer[T]) Clear() {
	b.raw = nil
	b.off = 0
	b.size = 0
	b.alignedSize = 0
}

// Data is the logical contents, Len elements long.
func (b *Buffer[T]) Data() []T {
	if b.raw == nil {
		return nil
	}
	return b.raw[b.off : b.off+b.size : b.off+b.alignedSize]
}

// Padded extends Data to the aligned end. The extra elements exist so that a
// full-width vector read starting inside the logical range stays in bounds;
// their values past Len are unspecified.
func (b *Buffer[T]) Padded() []T {
	if b.raw == nil {
		return nil
	}
	return b.raw[b.off : b.off+b.alignedSize]
}

// Len is the logical length in elements.
func (b *Buffer[T]) Len() int { return b.size }

// AlignedLen is the padded length in elements, a multiple of the alignment.
func (b *Buffer[T]) AlignedLen() int { return b.alignedSize }

// Alignment is the byte boundary the data start is aligned to.
func (b *Buffer[T]) Alignment() int {
	if b.align == 0 {
		return config.DefaultAlignment
	}
	return b.align
}

// Empty reports whether the buffer holds no elements.
func (b *Buffer[T]) Empty() bool { return b.size == 0 }

// CopyFrom resizes the buffer to match other and copies its contents.
func (b *Buffer[T]) CopyFrom(other *Buffer[T]) bool {
	b.align = other.Alignment()
	if !b.Resize(other.Len()) {
		return false
	}
	copy(b.Data(), other.Data())
	return true
}
