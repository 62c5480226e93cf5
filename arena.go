// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"unsafe"
)

// Arena is an interface that describes a memory allocation arena.
type Arena interface {
	// Alloc allocates memory of the given size and returns a pointer to it.
	// The alignment parameter specifies the alignment of the allocated memory
	// and must be a power of two. It returns nil when the arena cannot grow.
	Alloc(size, alignment uintptr) unsafe.Pointer

	// Reset resets the arena's state without releasing the underlying memory.
	// After invoking this method any pointer previously returned by Alloc becomes immediately invalid.
	Reset()

	// Release releases the arena's underlying memory back to the system.
	Release()

	// Len returns the total number of bytes currently allocated in the arena.
	Len() int

	// Cap returns the total capacity (maximum bytes) that can be allocated in the arena.
	Cap() int

	// Peak returns the peak number of bytes that have been allocated in the arena.
	// This value is not reset when Reset is called.
	Peak() int
}

type arenaAllocator[T any] struct {
	a Arena
}

// NewArenaAllocator returns an allocator that carves page-aligned regions out
// of a. The arena's memory is not scanned by the garbage collector, so T must
// not contain pointers.
//
// Free is a no-op: regions are reclaimed all at once by a.Reset or a.Release,
// after which every list that grew into a must be considered released.
func NewArenaAllocator[T any](a Arena) (Allocator[T], error) {
	if err := checkPointerFree[T](); err != nil {
		return nil, err
	}
	return &arenaAllocator[T]{a: a}, nil
}

// allocateSlice returns a slice of length n and page-rounded capacity from
// the arena, or nil when the arena is exhausted.
func allocateSlice[T any](a Arena, n int) []T {
	size, ok := bytesFor[T](n)
	if !ok {
		return nil
	}
	if size == 0 {
		return make([]T, n)
	}
	rounded := pageRound(size)
	if rounded < size {
		return nil
	}
	ptr := (*T)(a.Alloc(uintptr(rounded), uintptr(pageSize)))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice(ptr, rounded/sizeOf[T]())[:n]
}

func (aa *arenaAllocator[T]) Alloc(n int) ([]T, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	s := allocateSlice[T](aa.a, n)
	if s == nil {
		return nil, ErrOutOfMemory
	}
	return s, nil
}

func (aa *arenaAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	if n <= cap(s) {
		return s[:n], nil
	}
	ns, err := aa.Alloc(n)
	if err != nil {
		return nil, err
	}
	copy(ns, s)
	return ns, nil
}

func (aa *arenaAllocator[T]) Free([]T) {}
