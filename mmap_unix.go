// SPDX-License-Identifier: Apache-2.0

//go:build unix

package hybridlist

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// MmapAllocator maps every region as private anonymous memory, so regions
// are page aligned and go straight back to the kernel on Free. The mappings
// are invisible to the garbage collector, hence T must not contain pointers.
//
// A MmapAllocator is not safe for concurrent use; wrap it with
// NewConcurrentAllocator to share it.
type MmapAllocator[T any] struct {
	// mappings keeps the original byte slices, unix.Munmap needs them
	mappings map[*T][]byte
	mapped   int
}

// NewMmapAllocator creates a MmapAllocator for T.
func NewMmapAllocator[T any]() (*MmapAllocator[T], error) {
	if err := checkPointerFree[T](); err != nil {
		return nil, err
	}
	if sizeOf[T]() == 0 {
		return nil, fmt.Errorf("%w: zero-size element type", ErrUnsupported)
	}
	return &MmapAllocator[T]{mappings: make(map[*T][]byte)}, nil
}

// Mapped returns the number of bytes currently mapped.
func (m *MmapAllocator[T]) Mapped() int {
	return m.mapped
}

// Alloc satisfies the Allocator interface.
func (m *MmapAllocator[T]) Alloc(n int) ([]T, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	if n == 0 {
		return nil, nil
	}
	size, ok := bytesFor[T](n)
	if !ok || pageRound(size) < size {
		return nil, ErrOutOfMemory
	}
	data, err := unix.Mmap(-1, 0, pageRound(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap: %w", ErrOutOfMemory, err)
	}
	ptr := (*T)(unsafe.Pointer(unsafe.SliceData(data)))
	m.mappings[ptr] = data
	m.mapped += len(data)
	return unsafe.Slice(ptr, len(data)/sizeOf[T]())[:n], nil
}

// Realloc satisfies the Allocator interface.
func (m *MmapAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	if n <= cap(s) {
		return s[:n], nil
	}
	ns, err := m.Alloc(n)
	if err != nil {
		return nil, err
	}
	copy(ns, s)
	m.Free(s)
	return ns, nil
}

// Free satisfies the Allocator interface. Slices that were not returned by
// this allocator are ignored.
func (m *MmapAllocator[T]) Free(s []T) {
	if cap(s) == 0 {
		return
	}
	ptr := unsafe.SliceData(s)
	data, ok := m.mappings[ptr]
	if !ok {
		return
	}
	delete(m.mappings, ptr)
	m.mapped -= len(data)
	_ = unix.Munmap(data)
}
