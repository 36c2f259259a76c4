package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeSubPoolLinksIntoParent(t *testing.T) {
	resetFreeListForTest()

	parent := MakeSubPool(nil)
	child := MakeSubPool(parent)

	assert.Same(t, parent, child.Parent())
	assert.Same(t, child, parent.subPools)
	assert.Nil(t, child.subPrev)
	assert.Nil(t, child.subNext)

	second := MakeSubPool(parent)
	assert.Same(t, second, parent.subPools, "newest child becomes the list head")
	assert.Same(t, child, second.subNext)
	assert.Same(t, second, child.subPrev)
}

func TestPallocStraddlesBlockMinFree(t *testing.T) {
	resetFreeListForTest()

	root := MakeSubPool(nil)

	p1 := Palloc(root, 10)
	require.NotNil(t, p1)
	p1[0] = 0xAB

	before := StatMalloc()
	big := Palloc(root, blockMinFree+32)
	require.NotNil(t, big)
	assert.Greater(t, StatMalloc(), before, "a request larger than the tail block must obtain a new one")

	// p1 must still be readable/writable; the block holding it was never
	// reallocated in place, only chained to by a new block.
	assert.Equal(t, byte(0xAB), p1[0])
}

func TestPallocLargeRequestGetsGrainRoundedBlock(t *testing.T) {
	resetFreeListForTest()

	root := MakeSubPool(nil)
	buf := Palloc(root, blockMinFree*3+1)
	require.NotNil(t, buf)
	assert.Equal(t, blockMinFree*3+1, len(buf))
	assert.LessOrEqual(t, root.last.capacity(), blockMinFree*4)
}

func TestPcallocZeroesReusedMemory(t *testing.T) {
	resetFreeListForTest()

	root := MakeSubPool(nil)
	buf := Palloc(root, 16)
	for i := range buf {
		buf[i] = 0xFF
	}
	ClearPool(root)
	DestroyPool(root)

	root2 := MakeSubPool(nil)
	buf2 := Pcalloc(root2, 16)
	for _, b := range buf2 {
		assert.Equal(t, byte(0), b)
	}
}

func TestPstrdupRoundTrips(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)

	for _, s := range []string{"", "a", "hello, world", "unicode: éè"} {
		assert.Equal(t, s, PStrdup(root, s))
	}
}

func TestPstrcat(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)

	assert.Equal(t, "abc", PStrcat(root, "a", "b", "c"))
	assert.Equal(t, "", PStrcat(root))
}

func TestPdircat(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)

	assert.Equal(t, "a/b", PDircat(root, "a", "b"))
	assert.Equal(t, "a/b", PDircat(root, "a/", "/b"))
	assert.Equal(t, "/b", PDircat(root, "", "b"))
	assert.Equal(t, "a/", PDircat(root, "a", ""))
	assert.Equal(t, "/var/log/app.log", PDircat(root, "/var", "log", "", "app.log"))
}

func TestClearPoolRunsCleanupsInLIFOOrder(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)

	var order []string
	cbA := func(data any) { order = append(order, data.(string)) }
	cbB := func(data any) { order = append(order, data.(string)) }

	RegisterCleanup(root, "x", cbA, cbA)
	RegisterCleanup(root, "y", cbB, cbB)

	ClearPool(root)

	assert.Equal(t, []string{"y", "x"}, order, "most recently registered cleanup runs first")
}

func TestClearPoolInvariants(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)
	child := MakeSubPool(root)
	_ = Palloc(child, 10)
	RegisterCleanup(root, 1, func(any) {}, func(any) {})
	_ = Palloc(root, blockMinFree*2) // force a second block onto root's chain

	ClearPool(root)

	assert.Nil(t, root.cleanups)
	assert.Nil(t, root.subPools)
	assert.Same(t, root.first, root.last)
	assert.Equal(t, root.freeFirstAvail, root.first.firstAvail)
}

func TestClearPoolIsIdempotent(t *testing.T) {
	resetFreeListForTest()
	root := MakeSubPool(nil)
	_ = Palloc(root, 10)

	ClearPool(root)
	snapshot := *root.first
	ClearPool(root)

	assert.Equal(t, snapshot.firstAvail, root.first.firstAvail)
	assert.Nil(t, root.subPools)
	assert.Nil(t, root.cleanups)
}

func TestDestroySubPoolReturnsBlocksAndIsReused(t *testing.T) {
	resetFreeListForTest()

	root := MakeSubPool(nil)
	child := MakeSubPool(root)
	_ = Palloc(child, 10)
	_ = Palloc(child, blockMinFree+1) // force a second block

	freeHitBefore := StatFreeHit()
	DestroyPool(child)
	assert.Nil(t, root.subPools)
	assert.NotNil(t, freeList)

	_ = MakeSubPool(root)
	assert.Equal(t, freeHitBefore+1, StatFreeHit())
}

func TestDestroyPoolCascadesToSubPools(t *testing.T) {
	resetFreeListForTest()

	root := MakeSubPool(nil)
	a := MakeSubPool(root)
	b := MakeSubPool(a)

	var destroyed []string
	RegisterCleanup(b, "b", func(any) { destroyed = append(destroyed, "b") }, nil)
	RegisterCleanup(a, "a", func(any) { destroyed = append(destroyed, "a") }, nil)

	DestroyPool(root)

	assert.Equal(t, []string{"a", "b"}, destroyed, "a pool's own cleanups run before it destroys its children")
}
