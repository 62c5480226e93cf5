// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"sync"
	"weak"
)

// RecyclingAllocator hands freed regions back out to later requests of the
// same page-rounded capacity. It is safe for concurrent use.
//
// Freed regions are kept as weak pointers, so the GC can collect them at any
// time. Before reusing a region we try to get a strong pointer while removing
// it from the pool. This lets the GC size the pool according to memory
// pressure instead of the pool pinning the peak of every list it served.
type RecyclingAllocator[T any] struct {
	// pool maps a capacity class to weak pointers of freed regions
	pool  map[int][]weak.Pointer[region[T]]
	stats RecyclingStats
	mu    sync.Mutex
}

// region wraps a freed slice for use in the pool
type region[T any] struct {
	buf []T
}

// RecyclingStats counts how requests to a RecyclingAllocator were served.
type RecyclingStats struct {
	Hits   int // served from a freed region
	Misses int // served by a fresh allocation
	Frees  int
}

// NewRecyclingAllocator creates a new RecyclingAllocator.
func NewRecyclingAllocator[T any]() *RecyclingAllocator[T] {
	return &RecyclingAllocator[T]{
		pool: make(map[int][]weak.Pointer[region[T]]),
	}
}

// Stats returns the counters accumulated so far.
func (r *RecyclingAllocator[T]) Stats() RecyclingStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Alloc satisfies the Allocator interface.
func (r *RecyclingAllocator[T]) Alloc(n int) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alloc(n)
}

func (r *RecyclingAllocator[T]) alloc(n int) ([]T, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	if size, ok := bytesFor[T](n); !ok || pageRound(size) < size {
		return nil, ErrOutOfMemory
	}
	class := pageElems[T](n)

	items := r.pool[class]
	for len(items) > 0 {
		// Pop the last item
		last := len(items) - 1
		wp := items[last]
		items = items[:last]

		if v := wp.Value(); v != nil {
			r.pool[class] = items
			r.stats.Hits++
			return v.buf[:n], nil
		}
		// If weak pointer was nil (GC collected), continue to next item
	}
	r.pool[class] = items

	r.stats.Misses++
	return make([]T, n, class), nil
}

// Realloc satisfies the Allocator interface.
func (r *RecyclingAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	if n <= cap(s) {
		return s[:n], nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ns, err := r.alloc(n)
	if err != nil {
		return nil, err
	}
	copy(ns, s)
	r.free(s)
	return ns, nil
}

// Free satisfies the Allocator interface.
func (r *RecyclingAllocator[T]) Free(s []T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.free(s)
}

func (r *RecyclingAllocator[T]) free(s []T) {
	if cap(s) == 0 {
		return
	}
	buf := s[:cap(s)]
	clear(buf)
	r.stats.Frees++

	// Add the region back to the pool using a weak pointer
	class := cap(buf)
	r.pool[class] = append(r.pool[class], weak.Make(&region[T]{buf: buf}))
}
