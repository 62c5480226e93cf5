// SPDX-License-Identifier: Apache-2.0

package hybridlist

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfMemory is returned when an allocator cannot satisfy a request.
	ErrOutOfMemory = errors.New("hybridlist: out of memory")

	// ErrOverflow is returned by Append when the next index would pass MaxIndex.
	ErrOverflow = errors.New("hybridlist: index overflow")

	// ErrInvalidLayout is returned when the inline block type is not an array
	// of the element type or the growth factor is smaller than 2.
	ErrInvalidLayout = errors.New("hybridlist: invalid layout")

	// ErrInvalidSize is returned for negative sizes.
	ErrInvalidSize = errors.New("hybridlist: invalid size")

	// ErrPointerElements is returned by allocators that hand out memory the
	// garbage collector does not scan.
	ErrPointerElements = errors.New("hybridlist: element type contains pointers")

	// ErrUnsupported is returned when an allocator is not available on this platform.
	ErrUnsupported = errors.New("hybridlist: unsupported on this platform")
)

// AllocError describes a failed allocation or reallocation.
//
// It matches ErrOutOfMemory with errors.Is. The allocator's own error (if any)
// can be accessed via errors.Unwrap.
type AllocError struct {
	Op    string
	Bytes int
	cause error
}

func (e *AllocError) Error() string {
	if e.cause != nil && e.cause != ErrOutOfMemory {
		return fmt.Sprintf("hybridlist: %s of %d bytes failed: %v", e.Op, e.Bytes, e.cause)
	}
	return fmt.Sprintf("hybridlist: %s of %d bytes failed", e.Op, e.Bytes)
}

func (e *AllocError) Unwrap() error { return e.cause }

func (e *AllocError) Is(target error) bool { return target == ErrOutOfMemory }

// ContractViolation is the panic value raised when a caller breaks a
// precondition, such as reading past the end of a list.
type ContractViolation struct {
	Op    string
	Index int
	Len   int
}

func (c *ContractViolation) Error() string {
	return fmt.Sprintf("hybridlist: %s: index %d out of range [0:%d]", c.Op, c.Index, c.Len)
}
