// SPDX-License-Identifier: Apache-2.0

package hybridlist

// Swap exchanges the contents of l and o.
//
// When both lists are on the heap only their metadata moves. Otherwise the
// inline blocks are exchanged as values: a heap region always leaves together
// with its allocator, and the list it leaves takes over the other's inline
// slots, so no region is ever reachable from both lists. When neither list is
// on the heap each keeps its own allocator. No element is constructed or
// destroyed. Pointers obtained from Get on either list become invalid.
func (l *List[T, A, P]) Swap(o *List[T, A, P]) {
	if l == o {
		return
	}
	if l.state != storageHeap || o.state != storageHeap {
		// a heap-backed list's inline block is zeroed, so this also covers
		// the mixed case
		l.inline, o.inline = o.inline, l.inline
	}
	if l.state == storageHeap || o.state == storageHeap {
		l.heap, o.heap = o.heap, l.heap
		l.alloc, o.alloc = o.alloc, l.alloc
	}
	l.count, o.count = o.count, l.count
	l.blocks, o.blocks = o.blocks, l.blocks
	l.state, o.state = o.state, l.state
	l.bs, o.bs = o.bs, l.bs
}
