// SPDX-License-Identifier: Apache-2.0

// Package hybridlist provides an append-only list that keeps its first block
// of elements inside the list value and grows into page-rounded heap regions
// block by block once that block is full.
package hybridlist

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"unsafe"
)

// MaxIndex is the largest index a list hands out. The two largest int values
// are reserved.
const MaxIndex = math.MaxInt - 2

type storage uint8

const (
	storageNone   storage = iota // no block claimed yet
	storageInline                // the inline block is the only block
	storageHeap                  // a heap region of blocks*BlockSize slots
)

// List is an append-only sequence of T.
//
// A is the inline block type and must be an array of T; its length is the
// block size. P selects the lifecycle mode and the growth factor. Each
// instantiation is its own type, so a program may hold lists of many element
// types and layouts side by side.
//
// The zero value is an empty list using the heap allocator. A List must not be
// copied once it holds elements, and it is not safe for concurrent use.
type List[T any, A any, P Policy[T]] struct {
	count  int
	blocks int
	state  storage
	bs     int
	heap   []T
	alloc  Allocator[T]
	logger *slog.Logger
	inline A
}

// Vec is a list of plain-data elements with the default layout.
type Vec[T any] = List[T, [DefaultBlockSize]T, Trivial[T]]

// OwnedVec is a list of elements with construction and teardown hooks and the
// default layout.
type OwnedVec[T any, PT Element[T]] = List[T, [DefaultBlockSize]T, Owning[T, PT]]

// New creates an empty list. No storage is claimed until the first Append.
func New[T any, A any, P Policy[T]](opts ...Option[T]) (*List[T, A, P], error) {
	l := &List[T, A, P]{}
	var c config[T]
	for _, opt := range opts {
		opt(&c)
	}
	l.alloc = c.alloc
	l.logger = c.logger
	if err := l.layout(); err != nil {
		return nil, err
	}
	return l, nil
}

// NewWithSize creates a list holding n default-initialised elements.
// Lists shorter than one block live entirely in the inline block.
func NewWithSize[T any, A any, P Policy[T]](n int, opts ...Option[T]) (*List[T, A, P], error) {
	return newSized[T, A, P](n, nil, opts)
}

// NewFilled creates a list holding n elements placed from v.
func NewFilled[T any, A any, P Policy[T]](n int, v T, opts ...Option[T]) (*List[T, A, P], error) {
	return newSized[T, A, P](n, &v, opts)
}

func newSized[T any, A any, P Policy[T]](n int, v *T, opts []Option[T]) (*List[T, A, P], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if n > MaxIndex+1 {
		return nil, ErrOverflow
	}
	l, err := New[T, A, P](opts...)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return l, nil
	}

	var slots []T
	if n < l.bs {
		l.state = storageInline
		l.blocks = 1
		slots = l.inlineSlots()
	} else {
		blocks := n/l.bs + 1
		if blocks > math.MaxInt/l.bs {
			return nil, l.capacityOverflow("alloc", blocks)
		}
		heap, err := l.allocator().Alloc(blocks * l.bs)
		if err != nil {
			// nothing was claimed, the list stays empty
			return nil, l.allocFailed("alloc", blocks*l.bs, err)
		}
		l.heap = heap
		l.state = storageHeap
		l.blocks = blocks
		slots = heap
	}

	var p P
	for i := range n {
		if v != nil {
			p.Place(&slots[i], v)
		} else {
			p.Init(&slots[i])
		}
	}
	l.count = n
	return l, nil
}

// blockSizeOf checks that A is a non-empty array of T and returns its length.
func blockSizeOf[T any, A any]() (int, error) {
	at, et := reflect.TypeFor[A](), reflect.TypeFor[T]()
	if at.Kind() != reflect.Array || at.Elem() != et || at.Len() == 0 {
		return 0, fmt.Errorf("%w: inline block %v is not a non-empty array of %v", ErrInvalidLayout, at, et)
	}
	return at.Len(), nil
}

func (l *List[T, A, P]) layout() error {
	if l.bs > 0 {
		return nil
	}
	bs, err := blockSizeOf[T, A]()
	if err != nil {
		return err
	}
	var p P
	if g := p.GrowthFactor(); g < 2 {
		return fmt.Errorf("%w: growth factor %d is below 2", ErrInvalidLayout, g)
	}
	l.bs = bs
	return nil
}

func (l *List[T, A, P]) allocator() Allocator[T] {
	if l.alloc == nil {
		l.alloc = HeapAllocator[T]()
	}
	return l.alloc
}

func (l *List[T, A, P]) inlineSlots() []T {
	return unsafe.Slice((*T)(unsafe.Pointer(&l.inline)), l.bs)
}

// slots returns the storage accessors index into.
func (l *List[T, A, P]) slots() []T {
	if l.state == storageHeap {
		return l.heap
	}
	return l.inlineSlots()
}

func (l *List[T, A, P]) allocFailed(op string, slots int, err error) error {
	bytes, ok := bytesFor[T](slots)
	if !ok {
		bytes = math.MaxInt
	}
	if l.logger != nil {
		l.logger.Warn("hybridlist: allocation failed", "op", op, "bytes", bytes, "blocks", l.blocks, "error", err)
	}
	return &AllocError{Op: op, Bytes: bytes, cause: err}
}

// capacityOverflow reports a block count whose slot count does not fit in an int.
func (l *List[T, A, P]) capacityOverflow(op string, blocks int) error {
	if l.logger != nil {
		l.logger.Warn("hybridlist: capacity overflow", "op", op, "blocks", blocks, "block_size", l.bs)
	}
	return fmt.Errorf("%w: %s of %d blocks of %d slots", ErrOverflow, op, blocks, l.bs)
}

// grow makes sure block is backed by storage. A failure leaves the list
// exactly as it was.
func (l *List[T, A, P]) grow(block int) error {
	if block < l.blocks {
		return nil
	}
	var p P
	g := p.GrowthFactor()

	switch {
	case block == 0:
		l.state = storageInline
		l.blocks = 1
	case block == 1:
		if g > math.MaxInt/l.bs {
			return l.capacityOverflow("alloc", g)
		}
		heap, err := l.allocator().Alloc(g * l.bs)
		if err != nil {
			return l.allocFailed("alloc", g*l.bs, err)
		}
		inline := l.inlineSlots()
		copy(heap, inline)
		clear(inline)
		l.heap = heap
		l.state = storageHeap
		l.blocks = g
		if l.logger != nil {
			l.logger.Debug("hybridlist: moved to heap storage", "blocks", l.blocks, "slots", len(heap))
		}
	default:
		if l.blocks > math.MaxInt/g/l.bs {
			return l.capacityOverflow("realloc", l.blocks)
		}
		n := l.blocks * g * l.bs
		heap, err := l.allocator().Realloc(l.heap, n)
		if err != nil {
			return l.allocFailed("realloc", n, err)
		}
		l.heap = heap
		l.blocks *= g
		if l.logger != nil {
			l.logger.Debug("hybridlist: grew heap storage", "blocks", l.blocks, "slots", n)
		}
	}
	return nil
}

// reserve claims the next index, growing storage when it opens a new block.
func (l *List[T, A, P]) reserve() (int, error) {
	i := l.count
	if i > MaxIndex {
		return -1, ErrOverflow
	}
	if err := l.layout(); err != nil {
		return -1, err
	}
	if block := i / l.bs; block >= l.blocks {
		if err := l.grow(block); err != nil {
			return -1, err
		}
	}
	l.count++
	return i, nil
}

// Append places v at the end of the list and returns its index.
// On error the list is unchanged: ErrOverflow when the list is full or its
// capacity would not fit in an int, an *AllocError (matching ErrOutOfMemory)
// when storage could not grow.
func (l *List[T, A, P]) Append(v T) (int, error) {
	i, err := l.reserve()
	if err != nil {
		return -1, err
	}
	var p P
	p.Place(&l.slots()[i], &v)
	return i, nil
}

// AppendFunc default-initialises a new element at the end of the list and
// passes it to fn, if non-nil, to be filled in place.
func (l *List[T, A, P]) AppendFunc(fn func(*T)) (int, error) {
	i, err := l.reserve()
	if err != nil {
		return -1, err
	}
	var p P
	e := &l.slots()[i]
	p.Init(e)
	if fn != nil {
		fn(e)
	}
	return i, nil
}

// Get returns a pointer to the element at index i, which must be in [0, Len()).
// Breaking that precondition panics with a *ContractViolation unless built
// with the hybridlist_nodebug tag, in which case the result is undefined.
//
// The pointer is valid until the next Append that grows storage, Swap or Release.
func (l *List[T, A, P]) Get(i int) *T {
	assertIndex("Get", i, l.count)
	return &l.slots()[i]
}

// At returns a copy of the element at index i. The precondition is the same as Get.
func (l *List[T, A, P]) At(i int) T {
	assertIndex("At", i, l.count)
	return l.slots()[i]
}

// Back returns a pointer to the last element. The list must not be empty.
func (l *List[T, A, P]) Back() *T {
	assertIndex("Back", l.count-1, l.count)
	return &l.slots()[l.count-1]
}

// Len returns the number of elements in the list.
func (l *List[T, A, P]) Len() int {
	return l.count
}

// Empty reports whether the list holds no elements.
func (l *List[T, A, P]) Empty() bool {
	return l.count == 0
}

// Cap returns the number of slots currently backing the list.
func (l *List[T, A, P]) Cap() int {
	return l.blocks * l.bs
}

// Blocks returns the number of blocks currently backing the list.
// 0 means nothing is claimed, 1 means the inline block is in use.
func (l *List[T, A, P]) Blocks() int {
	return l.blocks
}

// BlockSize returns the number of slots per block.
func (l *List[T, A, P]) BlockSize() int {
	if l.bs > 0 {
		return l.bs
	}
	bs, _ := blockSizeOf[T, A]()
	return bs
}

// OnHeap reports whether the list has moved off its inline block.
func (l *List[T, A, P]) OnHeap() bool {
	return l.state == storageHeap
}

// Release destroys every element in owning mode, returns the heap region to
// the allocator and leaves the list empty and ready for reuse.
// Pointers obtained from Get become invalid.
func (l *List[T, A, P]) Release() {
	var p P
	if p.Owns() {
		s := l.slots()
		for i := range l.count {
			p.Destroy(&s[i])
		}
	}
	if l.state == storageHeap {
		l.allocator().Free(l.heap)
	}
	clear(l.inlineSlots())
	l.heap = nil
	l.count = 0
	l.blocks = 0
	l.state = storageNone
}
