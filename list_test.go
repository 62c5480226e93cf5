// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

type growBy2[T any] struct{ Trivial[T] }

func (growBy2[T]) GrowthFactor() int { return 2 }

type growBy1[T any] struct{ Trivial[T] }

func (growBy1[T]) GrowthFactor() int { return 1 }

// small is a list with 4-slot blocks so the storage transitions are cheap to reach.
type small = List[int, [4]int, Trivial[int]]

// failingAllocator refuses every request.
type failingAllocator[T any] struct{}

func (failingAllocator[T]) Alloc(int) ([]T, error)        { return nil, ErrOutOfMemory }
func (failingAllocator[T]) Realloc([]T, int) ([]T, error) { return nil, ErrOutOfMemory }
func (failingAllocator[T]) Free([]T)                      {}

func appendN[T any, A any, P Policy[T]](t *testing.T, l *List[T, A, P], from, to int, value func(int) T) {
	t.Helper()
	for i := from; i < to; i++ {
		idx, err := l.Append(value(i))
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
}

func identity(i int) int { return i }

const intSize = strconv.IntSize / 8

func TestZeroValue(t *testing.T) {
	var l Vec[int]
	require.Equal(t, 0, l.Len())
	require.True(t, l.Empty())
	require.Equal(t, 0, l.Blocks())
	require.Equal(t, 0, l.Cap())
	require.Equal(t, DefaultBlockSize, l.BlockSize())
	require.False(t, l.OnHeap())

	l.Release()
	require.True(t, l.Empty())
}

func TestAppend(t *testing.T) {
	var l Vec[uintptr]

	for i := uintptr(1); i <= 5; i++ {
		idx, err := l.Append(i)
		require.NoError(t, err)
		require.Equal(t, int(i-1), idx)
	}

	require.Equal(t, 5, l.Len())
	require.False(t, l.Empty())
	require.Equal(t, 1, l.Blocks())
	require.False(t, l.OnHeap())

	for i := 0; i < 5; i++ {
		require.Equal(t, uintptr(i+1), *l.Get(i))
		require.Equal(t, uintptr(i+1), l.At(i))
	}
	require.Equal(t, uintptr(5), *l.Back())

	*l.Get(2) = 42
	require.Equal(t, uintptr(42), l.At(2))

	l.Release()
	require.True(t, l.Empty())
	require.Equal(t, 0, l.Blocks())
}

func TestAppendAcrossInlineBoundary(t *testing.T) {
	for _, n := range []int{DefaultBlockSize - 1, DefaultBlockSize, DefaultBlockSize + 1} {
		var l Vec[int]
		appendN(t, &l, 0, n, identity)

		require.Equal(t, n, l.Len())
		require.Equal(t, n > DefaultBlockSize, l.OnHeap())
		for i := 0; i < n; i++ {
			require.Equal(t, i, l.At(i))
		}
		l.Release()
	}
}

func TestAppendMany(t *testing.T) {
	const n = 65536
	var l Vec[int]
	require.True(t, l.Empty())

	// blocks after the first append that opens them
	transitions := map[int]int{
		0:     1,
		512:   4,
		2048:  16,
		8192:  64,
		32768: 256,
	}
	for i := 0; i < n; i++ {
		idx, err := l.Append(i * 3)
		require.NoError(t, err)
		require.Equal(t, i, idx)
		if blocks, ok := transitions[i]; ok {
			require.Equal(t, blocks, l.Blocks(), "after index %d", i)
		}
	}

	require.False(t, l.Empty())
	require.Equal(t, n, l.Len())
	require.Equal(t, 256, l.Blocks())
	require.Equal(t, 256*DefaultBlockSize, l.Cap())
	for i := 0; i < n; i++ {
		require.Equal(t, i*3, l.At(i))
	}
	l.Release()
}

func TestGrowthFactor(t *testing.T) {
	l, err := New[int, [4]int, growBy2[int]]()
	require.NoError(t, err)

	appendN(t, l, 0, 4, identity)
	require.Equal(t, 1, l.Blocks())

	appendN(t, l, 4, 5, identity)
	require.Equal(t, 2, l.Blocks())
	require.True(t, l.OnHeap())

	appendN(t, l, 5, 9, identity)
	require.Equal(t, 4, l.Blocks())

	appendN(t, l, 9, 17, identity)
	require.Equal(t, 8, l.Blocks())

	for i := 0; i < 17; i++ {
		require.Equal(t, i, l.At(i))
	}
	l.Release()
}

func TestNewWithSize(t *testing.T) {
	l, err := NewWithSize[int, [DefaultBlockSize]int, Trivial[int]](14)
	require.NoError(t, err)
	require.Equal(t, 14, l.Len())
	require.False(t, l.Empty())
	require.Equal(t, 1, l.Blocks())
	require.False(t, l.OnHeap())
	for i := 0; i < 14; i++ {
		require.Zero(t, l.At(i))
	}

	idx, err := l.Append(7)
	require.NoError(t, err)
	require.Equal(t, 14, idx)
	require.Equal(t, 7, l.At(14))
	l.Release()

	l, err = NewWithSize[int, [DefaultBlockSize]int, Trivial[int]](1400)
	require.NoError(t, err)
	require.Equal(t, 1400, l.Len())
	require.False(t, l.Empty())
	require.Equal(t, 3, l.Blocks())
	require.True(t, l.OnHeap())
	require.Zero(t, l.At(1399))

	// fill the pre-sized blocks, then the next block reallocates
	appendN(t, l, 1400, 3*DefaultBlockSize, identity)
	require.Equal(t, 3, l.Blocks())
	appendN(t, l, 3*DefaultBlockSize, 3*DefaultBlockSize+1, identity)
	require.Equal(t, 12, l.Blocks())
	require.Equal(t, 3*DefaultBlockSize, l.At(3*DefaultBlockSize))
	require.Equal(t, 1400, l.At(1400))
	l.Release()
}

func TestNewWithSizeExactBlock(t *testing.T) {
	l, err := NewWithSize[int, [4]int, Trivial[int]](4)
	require.NoError(t, err)
	require.Equal(t, 2, l.Blocks())
	require.True(t, l.OnHeap())

	appendN(t, l, 4, 9, identity)
	require.Equal(t, 8, l.Blocks())
	l.Release()
}

func TestNewWithSizeEmptyAndNegative(t *testing.T) {
	l, err := NewWithSize[int, [4]int, Trivial[int]](0)
	require.NoError(t, err)
	require.True(t, l.Empty())
	require.Equal(t, 0, l.Blocks())

	_, err = NewWithSize[int, [4]int, Trivial[int]](-1)
	require.ErrorIs(t, err, ErrInvalidSize)
}

func TestNewWithSizeAllocationFailure(t *testing.T) {
	l, err := NewWithSize[int, [4]int, Trivial[int]](10, WithAllocator[int](failingAllocator[int]{}))
	require.Nil(t, l)
	require.ErrorIs(t, err, ErrOutOfMemory)

	var allocErr *AllocError
	require.True(t, errors.As(err, &allocErr))
	require.Equal(t, "alloc", allocErr.Op)
	require.Equal(t, 12*intSize, allocErr.Bytes) // 3 blocks of 4 ints

	// below one block nothing is allocated
	l, err = NewWithSize[int, [4]int, Trivial[int]](3, WithAllocator[int](failingAllocator[int]{}))
	require.NoError(t, err)
	require.Equal(t, 3, l.Len())
}

func TestNewFilled(t *testing.T) {
	l, err := NewFilled[string, [4]string, Trivial[string]](6, "x")
	require.NoError(t, err)
	require.Equal(t, 6, l.Len())
	for i := 0; i < 6; i++ {
		require.Equal(t, "x", l.At(i))
	}
	l.Release()
}

func TestInvalidLayout(t *testing.T) {
	_, err := New[int, [4]int64, Trivial[int]]()
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = New[int, [0]int, Trivial[int]]()
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = New[int, []int, Trivial[int]]()
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = New[int, [4]int, growBy1[int]]()
	require.ErrorIs(t, err, ErrInvalidLayout)

	_, err = NewWithSize[int, [4]int, growBy1[int]](2)
	require.ErrorIs(t, err, ErrInvalidLayout)

	// the zero value validates on first append
	var l List[int, [4]int, growBy1[int]]
	idx, err := l.Append(1)
	require.ErrorIs(t, err, ErrInvalidLayout)
	require.Equal(t, -1, idx)
	require.Equal(t, 0, l.Len())
	require.Equal(t, 0, l.Blocks())
}

func TestAppendOverflow(t *testing.T) {
	var l small
	appendN(t, &l, 0, 2, identity)

	l.count = MaxIndex + 1
	idx, err := l.Append(3)
	require.ErrorIs(t, err, ErrOverflow)
	require.Equal(t, -1, idx)
	require.Equal(t, MaxIndex+1, l.Len())
	require.Equal(t, 1, l.Blocks())

	l.count = 2
	require.Equal(t, 0, l.At(0))
	require.Equal(t, 1, l.At(1))
}

// huge has a block size at which a second block no longer fits in an int.
type huge = List[struct{}, [1 << (strconv.IntSize - 2)]struct{}, Trivial[struct{}]]

func TestCapacityOverflow(t *testing.T) {
	_, err := NewWithSize[struct{}, [1 << (strconv.IntSize - 2)]struct{}, Trivial[struct{}]](MaxIndex + 1)
	require.ErrorIs(t, err, ErrOverflow)
	require.NotErrorIs(t, err, ErrOutOfMemory)
	var allocErr *AllocError
	require.False(t, errors.As(err, &allocErr))

	var l huge
	_, err = l.Append(struct{}{})
	require.NoError(t, err)
	require.Equal(t, 1, l.Blocks())

	// pretend the inline block is full
	l.count = l.BlockSize()
	idx, err := l.Append(struct{}{})
	require.Equal(t, -1, idx)
	require.ErrorIs(t, err, ErrOverflow)
	require.NotErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, 1, l.Blocks())
	require.False(t, l.OnHeap())
	require.Equal(t, l.BlockSize(), l.Len())
}

func TestMigrationFailureKeepsInlineStorage(t *testing.T) {
	l, err := New[int, [4]int, Trivial[int]](WithAllocator[int](failingAllocator[int]{}))
	require.NoError(t, err)
	appendN(t, l, 0, 4, identity)

	idx, err := l.Append(4)
	require.ErrorIs(t, err, ErrOutOfMemory)
	require.Equal(t, -1, idx)
	require.Equal(t, 4, l.Len())
	require.Equal(t, 1, l.Blocks())
	require.False(t, l.OnHeap())
	for i := 0; i < 4; i++ {
		require.Equal(t, i, l.At(i))
	}

	// still usable at its current capacity
	*l.Get(3) = 30
	require.Equal(t, 30, l.At(3))
	l.Release()
}

func TestGrowthFailureKeepsCapacity(t *testing.T) {
	// 4 blocks of 4 ints fit, 16 blocks do not
	limit := NewLimitAllocator[int](nil, 16*intSize)
	l, err := New[int, [4]int, Trivial[int]](WithAllocator[int](limit))
	require.NoError(t, err)

	appendN(t, l, 0, 16, identity)
	require.Equal(t, 4, l.Blocks())
	require.Equal(t, 16*intSize, limit.Used())

	_, err = l.Append(16)
	require.ErrorIs(t, err, ErrOutOfMemory)
	var allocErr *AllocError
	require.True(t, errors.As(err, &allocErr))
	require.Equal(t, "realloc", allocErr.Op)
	require.Equal(t, 64*intSize, allocErr.Bytes)

	require.Equal(t, 16, l.Len())
	require.Equal(t, 4, l.Blocks())
	for i := 0; i < 16; i++ {
		require.Equal(t, i, l.At(i))
	}

	l.Release()
	require.Equal(t, 0, limit.Used())
}

func TestGetOutOfRange(t *testing.T) {
	if !debugChecks {
		t.Skip("assertions compiled out")
	}

	var l small
	require.PanicsWithError(t, "hybridlist: Get: index 0 out of range [0:0]", func() { l.Get(0) })
	require.Panics(t, func() { l.Back() })

	appendN(t, &l, 0, 3, identity)

	// slot 3 exists in the inline block but holds no element
	require.PanicsWithError(t, "hybridlist: Get: index 3 out of range [0:3]", func() { l.Get(3) })
	require.Panics(t, func() { l.At(-1) })

	defer func() {
		r := recover()
		cv, ok := r.(*ContractViolation)
		require.True(t, ok)
		require.Equal(t, &ContractViolation{Op: "At", Index: 10, Len: 3}, cv)
	}()
	l.At(10)
}

func TestGetPointerInvalidatedByGrowth(t *testing.T) {
	var l small
	appendN(t, &l, 0, 4, identity)

	p := l.Get(1)
	require.Equal(t, 1, *p)

	// moving off the inline block leaves p pointing at the old, cleared slot
	appendN(t, &l, 4, 5, identity)
	require.Zero(t, *p)
	*p = 100
	require.Equal(t, 1, l.At(1))
}

func TestAppendFunc(t *testing.T) {
	type pair struct{ a, b int }
	var l List[pair, [2]pair, Trivial[pair]]

	for i := 0; i < 5; i++ {
		idx, err := l.AppendFunc(func(p *pair) {
			p.a = i
			p.b = i * i
		})
		require.NoError(t, err)
		require.Equal(t, i, idx)
	}
	idx, err := l.AppendFunc(nil)
	require.NoError(t, err)
	require.Equal(t, pair{}, l.At(idx))

	require.Equal(t, pair{a: 4, b: 16}, l.At(4))
	require.Equal(t, pair{}, *l.Back())
	l.Release()
}

func TestReleaseReuse(t *testing.T) {
	limit := NewLimitAllocator[int](nil, 1<<20)
	l, err := New[int, [4]int, Trivial[int]](WithAllocator[int](limit))
	require.NoError(t, err)

	appendN(t, l, 0, 40, identity)
	require.True(t, l.OnHeap())
	require.NotZero(t, limit.Used())

	l.Release()
	require.Equal(t, 0, limit.Used())
	require.True(t, l.Empty())
	require.False(t, l.OnHeap())

	appendN(t, l, 0, 3, func(i int) int { return -i })
	require.Equal(t, 1, l.Blocks())
	require.Equal(t, -2, l.At(2))
	require.Zero(t, limit.Used())
	l.Release()
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	l, err := New[int, [4]int, Trivial[int]](WithLogger[int](logger))
	require.NoError(t, err)
	appendN(t, l, 0, 17, identity)
	l.Release()

	out := buf.String()
	require.Contains(t, out, "moved to heap storage")
	require.Contains(t, out, "grew heap storage")

	buf.Reset()
	l, err = New[int, [4]int, Trivial[int]](WithLogger[int](logger), WithAllocator[int](failingAllocator[int]{}))
	require.NoError(t, err)
	appendN(t, l, 0, 4, identity)
	_, err = l.Append(4)
	require.Error(t, err)
	require.Contains(t, buf.String(), "level=WARN")
	require.Contains(t, buf.String(), "allocation failed")
}

func BenchmarkAppend(b *testing.B) {
	for _, n := range []int{16, DefaultBlockSize, 65536} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				var l Vec[int]
				for j := 0; j < n; j++ {
					_, _ = l.Append(j)
				}
				l.Release()
			}
		})
	}
}

func BenchmarkGet(b *testing.B) {
	var l Vec[int]
	for j := 0; j < 65536; j++ {
		_, _ = l.Append(j)
	}
	b.ResetTimer()
	sum := 0
	for i := 0; i < b.N; i++ {
		sum += *l.Get(i & 65535)
	}
	_ = sum
}
