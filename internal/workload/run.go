// SPDX-License-Identifier: Apache-2.0

package workload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	hybridlist "github.com/wundergraph/go-hybridlist"
)

type list = hybridlist.Vec[int64]

// Result summarises one workload.
type Result struct {
	Name      string        `json:"name"`
	Allocator string        `json:"allocator"`
	Len       int           `json:"len"`
	Repeat    int           `json:"repeat"`
	Blocks    int           `json:"blocks"`
	Capacity  int           `json:"capacity"`
	OnHeap    bool          `json:"on_heap"`
	Duration  time.Duration `json:"duration"`

	// RecycledHits and RecycledMisses count how the recycling allocator
	// served region requests over all repeats.
	RecycledHits   int `json:"recycled_hits,omitempty"`
	RecycledMisses int `json:"recycled_misses,omitempty"`
}

// backing is the allocator a workload's lists grow into, shared by all of
// its repeats.
type backing struct {
	alloc     hybridlist.Allocator[int64]
	arena     hybridlist.Arena
	recycling *hybridlist.RecyclingAllocator[int64]
}

// reset makes the arena's memory available to the next repeat. Every list
// drawing on it must have been released.
func (b *backing) reset() {
	if b.arena != nil {
		b.arena.Reset()
	}
}

func (b *backing) release() {
	if b.arena != nil {
		b.arena.Release()
	}
}

func newBacking(name string) (*backing, error) {
	switch name {
	case AllocatorHeap:
		return &backing{alloc: hybridlist.HeapAllocator[int64]()}, nil
	case AllocatorArena:
		arena := hybridlist.NewMonotonicArena(hybridlist.WithMinBufferSize(1024 * 1024))
		a, err := hybridlist.NewArenaAllocator[int64](arena)
		if err != nil {
			return nil, err
		}
		return &backing{alloc: a, arena: arena}, nil
	case AllocatorMmap:
		m, err := hybridlist.NewMmapAllocator[int64]()
		if err != nil {
			return nil, err
		}
		return &backing{alloc: m}, nil
	case AllocatorRecycling:
		r := hybridlist.NewRecyclingAllocator[int64]()
		return &backing{alloc: r, recycling: r}, nil
	default:
		return nil, fmt.Errorf("%w: unknown allocator %q", ErrInvalidConfig, name)
	}
}

// Run executes w and checks that every element reads back what was appended.
// All repeats share one allocator, so recycled regions and arena buffers are
// reused from the second repeat on.
func Run(ctx context.Context, w Workload, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	res := Result{Name: w.Name, Allocator: w.Allocator, Repeat: w.Repeat}

	b, err := newBacking(w.Allocator)
	if err != nil {
		return res, fmt.Errorf("workload %q: %w", w.Name, err)
	}
	defer b.release()
	alloc := b.alloc
	if w.MemoryLimit > 0 {
		alloc = hybridlist.NewLimitAllocator(alloc, w.MemoryLimit)
	}

	start := time.Now()
	for r := 0; r < w.Repeat; r++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		err := runOnce(w, alloc, logger, &res)
		b.reset()
		if err != nil {
			return res, fmt.Errorf("workload %q: %w", w.Name, err)
		}
	}
	res.Duration = time.Since(start)
	if b.recycling != nil {
		stats := b.recycling.Stats()
		res.RecycledHits = stats.Hits
		res.RecycledMisses = stats.Misses
	}

	logger.Info("workload finished",
		"elements", res.Len,
		"blocks", res.Blocks,
		"repeat", res.Repeat,
		"recycled_hits", res.RecycledHits,
		"duration", res.Duration,
	)
	return res, nil
}

func runOnce(w Workload, alloc hybridlist.Allocator[int64], logger *slog.Logger, res *Result) error {
	opts := []hybridlist.Option[int64]{
		hybridlist.WithAllocator(alloc),
		hybridlist.WithLogger[int64](logger),
	}

	var (
		l   *list
		err error
	)
	if w.Presize > 0 {
		l, err = hybridlist.NewWithSize[int64, [hybridlist.DefaultBlockSize]int64, hybridlist.Trivial[int64]](w.Presize, opts...)
	} else {
		l, err = hybridlist.New[int64, [hybridlist.DefaultBlockSize]int64, hybridlist.Trivial[int64]](opts...)
	}
	if err != nil {
		return err
	}
	defer l.Release()

	for i := 0; i < w.Elements; i++ {
		if _, err := l.Append(int64(i)); err != nil {
			return fmt.Errorf("append %d: %w", i, err)
		}
	}

	for i := 0; i < w.Presize; i++ {
		if got := l.At(i); got != 0 {
			return fmt.Errorf("presized index %d holds %d", i, got)
		}
	}
	for i := 0; i < w.Elements; i++ {
		if got := l.At(w.Presize + i); got != int64(i) {
			return fmt.Errorf("index %d holds %d, want %d", w.Presize+i, got, i)
		}
	}

	res.Len = l.Len()
	res.Blocks = l.Blocks()
	res.Capacity = l.Cap()
	res.OnHeap = l.OnHeap()
	return nil
}

// RunAll runs every workload of cfg, at most cfg.Parallel at a time. Each
// workload owns its lists; only the results slice is shared, one slot per
// workload. Results are returned in configuration order.
func RunAll(ctx context.Context, cfg *Config, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	results := make([]Result, len(cfg.Workloads))

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Parallel > 0 {
		g.SetLimit(cfg.Parallel)
	}
	for i, w := range cfg.Workloads {
		g.Go(func() error {
			r, err := Run(ctx, w, logger.With("workload", w.Name))
			results[i] = r
			return err
		})
	}
	return results, g.Wait()
}
