// SPDX-License-Identifier: Apache-2.0

package hybridlist

const (
	// DefaultBlockSize is the number of slots in the inline block of Vec and OwnedVec.
	DefaultBlockSize = 512

	// DefaultGrowthFactor multiplies the block count each time heap storage grows.
	// A factor of 4 eats memory but reallocates rarely.
	DefaultGrowthFactor = 4
)

// Lifecycle describes how elements enter and leave a list's storage.
type Lifecycle[T any] interface {
	// Owns reports whether Destroy must run for every live element on Release.
	Owns() bool

	// Init default-initialises the slot at dst.
	Init(dst *T)

	// Place initialises the slot at dst from src.
	Place(dst, src *T)

	// Destroy tears down the element at dst.
	Destroy(dst *T)
}

// Policy is the compile-time configuration of a list besides its block size.
// Implementations are zero-size types; to change the growth factor embed
// Trivial or Owning and override GrowthFactor.
type Policy[T any] interface {
	Lifecycle[T]

	// GrowthFactor is the multiplier applied to the block count on growth.
	// It must be at least 2.
	GrowthFactor() int
}

// Trivial moves elements by plain copy and never runs hooks.
// It suits plain-data element types.
type Trivial[T any] struct{}

func (Trivial[T]) Owns() bool { return false }

func (Trivial[T]) Init(dst *T) {
	var zero T
	*dst = zero
}

func (Trivial[T]) Place(dst, src *T) { *dst = *src }

func (Trivial[T]) Destroy(*T) {}

func (Trivial[T]) GrowthFactor() int { return DefaultGrowthFactor }

// Element is implemented by pointers to element types that manage their own
// construction and teardown.
type Element[T any] interface {
	*T

	// Init constructs a default value in place.
	Init()

	// CopyFrom constructs the receiver as a copy of src.
	CopyFrom(src *T)

	// Destroy releases whatever the element holds.
	Destroy()
}

// Owning constructs elements in place through their Element hooks and
// destroys every live element when the list is released.
type Owning[T any, PT Element[T]] struct{}

func (Owning[T, PT]) Owns() bool { return true }

func (Owning[T, PT]) Init(dst *T) { PT(dst).Init() }

func (Owning[T, PT]) Place(dst, src *T) { PT(dst).CopyFrom(src) }

func (Owning[T, PT]) Destroy(dst *T) { PT(dst).Destroy() }

func (Owning[T, PT]) GrowthFactor() int { return DefaultGrowthFactor }
