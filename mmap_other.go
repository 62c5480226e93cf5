// SPDX-License-Identifier: Apache-2.0

//go:build !unix

package hybridlist

// MmapAllocator is only available on unix platforms.
type MmapAllocator[T any] struct{}

// NewMmapAllocator always fails with ErrUnsupported on this platform.
func NewMmapAllocator[T any]() (*MmapAllocator[T], error) {
	return nil, ErrUnsupported
}

// Mapped satisfies the unix API surface.
func (m *MmapAllocator[T]) Mapped() int { return 0 }

// Alloc satisfies the Allocator interface.
func (m *MmapAllocator[T]) Alloc(int) ([]T, error) { return nil, ErrUnsupported }

// Realloc satisfies the Allocator interface.
func (m *MmapAllocator[T]) Realloc([]T, int) ([]T, error) { return nil, ErrUnsupported }

// Free satisfies the Allocator interface.
func (m *MmapAllocator[T]) Free([]T) {}
