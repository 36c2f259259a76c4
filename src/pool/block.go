// Package pool implements a hierarchical region allocator: a process-wide
// free list of blocks sized in multiples of BLOCK_MINFREE on top of the system heap, and
// a tree of bump-pointer arenas (pools) that suballocate from those blocks
// and release them all at once on clear or destroy.
package pool

import (
	"sync/atomic"
	"unsafe"
)

// alignUnion mirrors the C original's "union align": its size/alignment is
// the alignment CLICK_SZ must satisfy so that every value a pool might be
// asked to hold lands on a safely-aligned boundary.
type alignUnion struct {
	p unsafe.Pointer
	f func()
	l int64
	d float64
}

// clickSize is CLICK_SZ: the platform's strictest alignment unit.
const clickSize = unsafe.Alignof(alignUnion{})

// blockMinFree is BLOCK_MINFREE, the block-grain constant that amortizes
// the cost of the underlying heap allocation.
const blockMinFree = 2048

// block is a contiguous region obtained from the system heap. data is the
// payload; firstAvail is the bump pointer (an offset into data, not a raw
// pointer, since Go slices already give us stable, GC-safe addresses for
// sub-slices of a buffer that is never reallocated in place).
type block struct {
	data       []byte
	firstAvail int
	next       *block
}

// capacity reports the block's total payload size (not its high-water
// mark); this is what bytesInChain sums.
func (b *block) capacity() int {
	return len(b.data)
}

var (
	freeList    *block
	statMalloc  uint64
	statFreeHit uint64
)

// Debug toggles the O(n) free-list-membership assertion that runs when
// pushing a block back onto the free list. Off by default; tests that
// exercise the double-release path turn it on.
var Debug = false

// StatMalloc reports how many blocks have been obtained from the system
// heap over the process's lifetime.
func StatMalloc() uint64 { return atomic.LoadUint64(&statMalloc) }

// StatFreeHit reports how many block requests were satisfied from the
// free list instead of a fresh heap allocation.
func StatFreeHit() uint64 { return atomic.LoadUint64(&statFreeHit) }

// roundBlockMinFree rounds n up to the next multiple of blockMinFree.
func roundBlockMinFree(n int) int {
	if n <= 0 {
		return blockMinFree
	}
	return ((n + blockMinFree - 1) / blockMinFree) * blockMinFree
}

// roundClick rounds n up to the next multiple of clickSize.
func roundClick(n int) int {
	c := int(clickSize)
	return ((n + c - 1) / c) * c
}

// obtainBlock returns an empty block whose payload capacity is at least
// minSize, reusing the first adequately-sized block on the free list
// (first-fit, head to tail) or falling back to the system heap. Callers
// must hold the alarm-blocked critical section (see alarm.go).
func obtainBlock(minSize int) *block {
	minSize = roundBlockMinFree(minSize)

	var prev *block
	for b := freeList; b != nil; b = b.next {
		if minSize <= b.capacity() {
			if prev == nil {
				freeList = b.next
			} else {
				prev.next = b.next
			}
			b.next = nil
			atomic.AddUint64(&statFreeHit, 1)
			return b
		}
		prev = b
	}

	atomic.AddUint64(&statMalloc, 1)
	return &block{data: make([]byte, minSize)}
}

// releaseChain prepends an entire block chain to the free list, resetting
// each block's bump pointer to "empty". A nil chain is a no-op. Callers
// must hold the alarm-blocked critical section.
func releaseChain(head *block) {
	if head == nil {
		return
	}

	if Debug {
		assertNotOnFreeList(head)
	}

	oldHead := freeList
	for b := head; b != nil; b = b.next {
		b.firstAvail = 0
		if b.next == nil {
			b.next = oldHead
			break
		}
	}
	freeList = head
}

// assertNotOnFreeList is the debug double-release check: a block must
// never appear on both the free list and a live pool chain at once.
func assertNotOnFreeList(chain *block) {
	for c := chain; c != nil; c = c.next {
		for f := freeList; f != nil; f = f.next {
			if f == c {
				fatalf("pool: double release of block %p", c)
			}
		}
	}
}

// bytesInChain sums capacity (not high-water mark) over a block chain.
func bytesInChain(head *block) int64 {
	var total int64
	for b := head; b != nil; b = b.next {
		total += int64(b.capacity())
	}
	return total
}

// bytesInFreeList reports the total capacity currently parked on the
// process-wide free list.
func bytesInFreeList() int64 {
	return bytesInChain(freeList)
}
