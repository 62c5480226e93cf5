// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"unsafe"
)

type monotonicArena struct {
	buffers            []*monotonicBuffer
	peak               uintptr // tracks peak allocated space
	minBufferSize      uintptr // minimum size for new buffers
	maxCap             uintptr // upper bound on the sum of buffer sizes, 0 means unbounded
	initialBufferCount int     // number of initial buffers to create
}

type monotonicBuffer struct {
	ptr    unsafe.Pointer
	offset uintptr
	size   uintptr
}

func newMonotonicBuffer(size uintptr) *monotonicBuffer {
	return &monotonicBuffer{size: size}
}

func alignUp(p, alignment uintptr) uintptr {
	return (p + alignment - 1) &^ (alignment - 1)
}

func (s *monotonicBuffer) alloc(size, alignment uintptr) (unsafe.Pointer, bool) {
	if s.ptr == nil {
		buf := make([]byte, s.size) // allocate monotonic buffer lazily
		s.ptr = unsafe.Pointer(unsafe.SliceData(buf))
	}
	base := uintptr(s.ptr)
	start := alignUp(base+s.offset, alignment) - base
	if start > s.size || s.size-start < size {
		return nil, false
	}
	ptr := unsafe.Add(s.ptr, start)
	s.offset = start + size

	// Buffers are reused after reset, hand out zeroed memory every time.
	clear(unsafe.Slice((*byte)(ptr), size))

	return ptr, true
}

func (s *monotonicBuffer) reset() {
	s.offset = 0
}

func (s *monotonicBuffer) release() {
	s.offset = 0
	s.ptr = nil
}

// NewMonotonicArena creates a new monotonic arena with optional configuration.
// If no options are provided, it uses minBufferSize (64KB) as the default buffer size,
// creates 1 initial buffer and grows without bound.
func NewMonotonicArena(opts ...MonotonicArenaOption) Arena {
	a := &monotonicArena{
		minBufferSize:      minBufferSize,
		initialBufferCount: 1,
	}

	for _, opt := range opts {
		opt(a)
	}

	for i := 0; i < a.initialBufferCount; i++ {
		a.buffers = append(a.buffers, newMonotonicBuffer(a.minBufferSize))
	}
	return a
}

const (
	minBufferSize = 1024 * 64 // 64KB
)

// MonotonicArenaOption represents a configuration option for a monotonic arena.
type MonotonicArenaOption func(*monotonicArena)

// WithMinBufferSize sets the minimum buffer size for new buffers created by the arena.
func WithMinBufferSize(size int) MonotonicArenaOption {
	return func(a *monotonicArena) {
		a.minBufferSize = uintptr(size)
	}
}

// WithInitialBufferCount sets the number of initial buffers to create.
func WithInitialBufferCount(count int) MonotonicArenaOption {
	return func(a *monotonicArena) {
		a.initialBufferCount = count
	}
}

// WithMaxCap bounds the total size of the arena's buffers. Alloc returns nil
// once a new buffer would exceed it.
func WithMaxCap(size int) MonotonicArenaOption {
	return func(a *monotonicArena) {
		a.maxCap = uintptr(size)
	}
}

// Alloc satisfies the Arena interface.
func (a *monotonicArena) Alloc(size, alignment uintptr) unsafe.Pointer {
	if alignment == 0 {
		alignment = 1
	}
	for i := 0; i < len(a.buffers); i++ {
		ptr, ok := a.buffers[i].alloc(size, alignment)
		if ok {
			a.updatePeak()
			return ptr
		}
	}

	// No existing buffer has enough space. A fresh buffer from make is only
	// guaranteed word alignment, reserve room to align inside it.
	newBufferSize := size + alignment - 1
	if newBufferSize < size {
		return nil
	}
	if newBufferSize < a.minBufferSize {
		newBufferSize = a.minBufferSize
	}
	if a.maxCap > 0 && uintptr(a.Cap())+newBufferSize > a.maxCap {
		return nil
	}

	newBuffer := newMonotonicBuffer(newBufferSize)
	a.buffers = append(a.buffers, newBuffer)

	ptr, ok := newBuffer.alloc(size, alignment)
	if !ok {
		// This should never happen since we just created a buffer large enough
		panic("hybridlist: failed to allocate on newly created arena buffer")
	}
	a.updatePeak()
	return ptr
}

func (a *monotonicArena) updatePeak() {
	if l := a.len(); l > a.peak {
		a.peak = l
	}
}

// Reset satisfies the Arena interface.
func (a *monotonicArena) Reset() {
	for _, s := range a.buffers {
		s.reset()
	}
}

// Release satisfies the Arena interface.
func (a *monotonicArena) Release() {
	for _, s := range a.buffers {
		s.release()
	}
}

func (a *monotonicArena) len() uintptr {
	var total uintptr
	for _, s := range a.buffers {
		total += s.offset
	}
	return total
}

// Len returns the total number of bytes currently allocated in the arena,
// alignment padding included.
func (a *monotonicArena) Len() int {
	return int(a.len())
}

// Cap returns the total capacity (maximum bytes) that can be allocated in the arena.
func (a *monotonicArena) Cap() int {
	var total uintptr
	for _, s := range a.buffers {
		total += s.size
	}
	return int(total)
}

// Peak returns the peak number of bytes that have been allocated in the arena.
func (a *monotonicArena) Peak() int {
	return int(a.peak)
}
