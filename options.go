// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"log/slog"
)

type config[T any] struct {
	alloc  Allocator[T]
	logger *slog.Logger
}

// Option represents a run-time configuration option for a list.
type Option[T any] func(*config[T])

// WithAllocator replaces the heap allocator the list grows into.
// The inline block never goes through the allocator.
func WithAllocator[T any](a Allocator[T]) Option[T] {
	return func(c *config[T]) {
		c.alloc = a
	}
}

// WithLogger makes the list report storage transitions at debug level and
// allocation failures at warn level.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(c *config[T]) {
		c.logger = logger
	}
}
