// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"math"
	"reflect"
	"unsafe"
)

// Allocator supplies the heap regions a list grows into once its inline
// block is full.
//
// Alloc returns a slice of length n. Realloc returns a slice of length n whose
// prefix holds the contents of s; on error s is left untouched and still owned
// by the caller. Free releases a region previously returned by Alloc or Realloc.
// A failed request is reported by an error, normally wrapping ErrOutOfMemory.
type Allocator[T any] interface {
	Alloc(n int) ([]T, error)
	Realloc(s []T, n int) ([]T, error)
	Free(s []T)
}

var pageSize = osPageSize()

// PageSize returns the page size allocation requests are rounded up to.
func PageSize() int {
	return pageSize
}

func sizeOf[T any]() int {
	var x T
	return int(unsafe.Sizeof(x))
}

// bytesFor returns the byte size of n elements of T and false on overflow.
func bytesFor[T any](n int) (int, bool) {
	size := sizeOf[T]()
	if size == 0 {
		return 0, true
	}
	if n > math.MaxInt/size {
		return 0, false
	}
	return n * size, true
}

// pageRound rounds size up to a multiple of the page size.
func pageRound(size int) int {
	return (size + pageSize - 1) &^ (pageSize - 1)
}

// pageElems returns the number of T slots that fit in the page-rounded
// region holding n elements.
func pageElems[T any](n int) int {
	size := sizeOf[T]()
	if size == 0 {
		return n
	}
	return pageRound(n*size) / size
}

// hasPointers reports whether values of t hold anything the garbage collector
// has to trace.
func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return false
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func checkPointerFree[T any]() error {
	if hasPointers(reflect.TypeFor[T]()) {
		return ErrPointerElements
	}
	return nil
}

type heapAllocator[T any] struct{}

// HeapAllocator returns the default allocator. Regions come from the Go heap
// with their capacity rounded up to a whole number of pages, so a later
// Realloc within that slack does not copy.
func HeapAllocator[T any]() Allocator[T] {
	return heapAllocator[T]{}
}

func (heapAllocator[T]) Alloc(n int) ([]T, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	if _, ok := bytesFor[T](n); !ok {
		return nil, ErrOutOfMemory
	}
	if pageRound(n*sizeOf[T]()) < 0 {
		return nil, ErrOutOfMemory
	}
	return make([]T, n, pageElems[T](n)), nil
}

func (h heapAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	if n <= cap(s) {
		return s[:n], nil
	}
	ns, err := h.Alloc(n)
	if err != nil {
		return nil, err
	}
	copy(ns, s)
	clear(s)
	return ns, nil
}

func (heapAllocator[T]) Free(s []T) {
	clear(s[:cap(s)])
}

// LimitAllocator caps the number of element bytes another allocator may hand
// out, that is len(s) times the element size of every live region. Slack the
// wrapped allocator adds through page rounding is not counted.
// Requests that would pass the limit fail with ErrOutOfMemory.
//
// A LimitAllocator is not safe for concurrent use; wrap it with
// NewConcurrentAllocator to share it.
type LimitAllocator[T any] struct {
	a    Allocator[T]
	max  int
	used int
}

// NewLimitAllocator wraps a with a budget of maxBytes. A nil a means the heap allocator.
func NewLimitAllocator[T any](a Allocator[T], maxBytes int) *LimitAllocator[T] {
	if a == nil {
		a = HeapAllocator[T]()
	}
	return &LimitAllocator[T]{a: a, max: maxBytes}
}

// Used returns the number of element bytes currently handed out.
func (l *LimitAllocator[T]) Used() int {
	return l.used
}

func (l *LimitAllocator[T]) Alloc(n int) ([]T, error) {
	size, ok := bytesFor[T](n)
	if !ok || size > l.max-l.used {
		return nil, ErrOutOfMemory
	}
	s, err := l.a.Alloc(n)
	if err != nil {
		return nil, err
	}
	l.used += size
	return s, nil
}

func (l *LimitAllocator[T]) Realloc(s []T, n int) ([]T, error) {
	size, ok := bytesFor[T](n)
	old, _ := bytesFor[T](len(s))
	if !ok || size-old > l.max-l.used {
		return nil, ErrOutOfMemory
	}
	ns, err := l.a.Realloc(s, n)
	if err != nil {
		return nil, err
	}
	l.used += size - old
	return ns, nil
}

func (l *LimitAllocator[T]) Free(s []T) {
	size, _ := bytesFor[T](len(s))
	l.used -= size
	l.a.Free(s)
}
