// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"sync"
)

type concurrentAllocator[T any] struct {
	mtx sync.Mutex
	a   Allocator[T]
}

// NewConcurrentAllocator returns an allocator that is safe to be shared by
// lists owned by different goroutines. The lists themselves still need a
// single owner each.
func NewConcurrentAllocator[T any](a Allocator[T]) Allocator[T] {
	return &concurrentAllocator[T]{a: a}
}

// Alloc satisfies the Allocator interface.
func (c *concurrentAllocator[T]) Alloc(n int) ([]T, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return nil, ErrOutOfMemory
	}
	return c.a.Alloc(n)
}

// Realloc satisfies the Allocator interface.
func (c *concurrentAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return nil, ErrOutOfMemory
	}
	return c.a.Realloc(s, n)
}

// Free satisfies the Allocator interface.
func (c *concurrentAllocator[T]) Free(s []T) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	if c.a == nil {
		return
	}
	c.a.Free(s)
}
