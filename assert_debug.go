// SPDX-License-Identifier: Apache-2.0

//go:build !hybridlist_nodebug

package hybridlist

// debugChecks reports whether precondition assertions are compiled in.
// Build with -tags hybridlist_nodebug to drop them.
const debugChecks = true

func assertIndex(op string, i, n int) {
	if uint(i) >= uint(n) {
		panic(&ContractViolation{Op: op, Index: i, Len: n})
	}
}
