package pool

// Pool is a bump-pointer arena: a chain of blocks, a LIFO cleanup list,
// and a position in the pool tree. Unlike the C original, where the pool
// struct is carved out of its own first block's bytes (so that destroying
// a pool invalidates the pool pointer), a Pool here is an ordinary
// heap-allocated Go value. DestroyPool leaves the struct itself readable,
// but its blocks are back on the free list and no operation checks for a
// destroyed pool, so a destroyed *Pool must not be used again.
type Pool struct {
	first          *block
	last           *block
	freeFirstAvail int

	cleanups *cleanup

	parent   *Pool
	subPools *Pool
	subNext  *Pool
	subPrev  *Pool

	destroyed bool
}

var permanentPool *Pool

// Init creates the permanent pool if it does not already exist and
// returns it. There is no corresponding explicit shutdown.
func Init() *Pool {
	if permanentPool == nil {
		permanentPool = MakeSubPool(nil)
	}
	return permanentPool
}

// Permanent returns the permanent pool, or nil if Init has not run.
func Permanent() *Pool {
	return permanentPool
}

// MakeSubPool creates a new pool as a child of parent. A nil parent
// creates a root pool with no ancestor — this is how Init creates the
// permanent pool itself.
func MakeSubPool(parent *Pool) *Pool {
	blockAlarms()
	defer unblockAlarms()

	blk := obtainBlock(0)

	p := &Pool{
		first:          blk,
		last:           blk,
		freeFirstAvail: blk.firstAvail,
	}

	if parent != nil {
		insertSubPool(parent, p)
	}

	return p
}

// Parent returns p's parent pool, or nil for a root pool.
func (p *Pool) Parent() *Pool {
	return p.parent
}

// Palloc returns reqSize bytes of pool-owned memory, bump-allocated from
// p's tail block. Pointers (slices) returned by Palloc remain valid for
// the lifetime of the pool: once a block is appended it is never
// reallocated, only ever released as a whole. A non-positive reqSize
// returns nil.
func Palloc(p *Pool, reqSize int) []byte {
	if reqSize <= 0 {
		return nil
	}

	size := roundClick(reqSize)

	blk := p.last
	if blk.firstAvail+size <= blk.capacity() {
		off := blk.firstAvail
		blk.firstAvail += size
		return blk.data[off : off+reqSize : off+size]
	}

	blockAlarms()
	defer unblockAlarms()

	nb := obtainBlock(size)
	p.last.next = nb
	p.last = nb
	nb.firstAvail = size
	return nb.data[0:reqSize:size]
}

// Pcalloc is Palloc followed by an explicit zero-fill: reused free-list
// blocks carry whatever bytes their previous occupant left behind, so
// callers that need zeroed memory must ask for it explicitly. The string
// helpers below use Palloc, since they overwrite every byte they request.
func Pcalloc(p *Pool, reqSize int) []byte {
	b := Palloc(p, reqSize)
	clear(b)
	return b
}

// PStrdup copies s into pool-owned memory and returns the copy. Go has
// no nil string, so unlike the C original PStrdup never returns an empty
// result to signal "no input" — an empty s simply yields an empty result.
func PStrdup(p *Pool, s string) string {
	if s == "" {
		return ""
	}
	buf := Palloc(p, len(s))
	copy(buf, s)
	return string(buf)
}

// PStrndup copies at most n bytes of s into pool-owned memory.
func PStrndup(p *Pool, s string, n int) string {
	if n > len(s) {
		n = len(s)
	}
	return PStrdup(p, s[:n])
}

// PStrcat concatenates parts with no separator and returns the
// pool-owned result. PStrcat(p) with no parts returns an empty string.
func PStrcat(p *Pool, parts ...string) string {
	total := 0
	for _, s := range parts {
		total += len(s)
	}
	if total == 0 {
		return ""
	}

	buf := Palloc(p, total)
	off := 0
	for _, s := range parts {
		off += copy(buf[off:], s)
	}
	return string(buf)
}

// PDircat joins parts as directory path segments: it behaves like
// PStrcat but inserts a single "/" at any seam where neither side
// supplies one, and collapses a doubled "/" where both sides do.
// PDircat(p, "a", "b") == "a/b"; PDircat(p, "a/", "/b") == "a/b";
// PDircat(p, "", "b") == "/b"; PDircat(p, "a", "") == "a/".
func PDircat(p *Pool, parts ...string) string {
	if len(parts) == 0 {
		return ""
	}

	joined := make([]byte, 0, 64)
	for i, s := range parts {
		if i > 0 {
			prevSlash := len(joined) > 0 && joined[len(joined)-1] == '/'
			nextSlash := len(s) > 0 && s[0] == '/'
			switch {
			case prevSlash && nextSlash:
				s = s[1:]
			case !prevSlash && !nextSlash:
				joined = append(joined, '/')
			}
		}
		joined = append(joined, s...)
	}

	return PStrdup(p, string(joined))
}

// ClearPool runs p's cleanups, destroys its sub-pools, and releases all
// but its first block back to the free list, restoring the first block's
// bump pointer to its snapshot from creation time. p itself remains
// valid and usable afterward. ClearPool is idempotent.
func ClearPool(p *Pool) {
	if p == nil {
		return
	}

	blockAlarms()
	defer unblockAlarms()

	runCleanups(p.cleanups)
	p.cleanups = nil

	for p.subPools != nil {
		destroyPoolLocked(p.subPools)
	}
	p.subPools = nil

	releaseChain(p.first.next)
	p.first.next = nil
	p.last = p.first
	p.first.firstAvail = p.freeFirstAvail
}

// DestroyPool unlinks p from its parent, clears it, and releases its
// remaining block to the free list. p must not be used after DestroyPool
// returns.
func DestroyPool(p *Pool) {
	if p == nil {
		return
	}

	blockAlarms()
	defer unblockAlarms()

	destroyPoolLocked(p)
}

// destroyPoolLocked is DestroyPool's body, factored out so ClearPool can
// destroy sub-pools without recursively re-acquiring the (already held)
// alarm-blocked section.
func destroyPoolLocked(p *Pool) {
	unlinkSubPool(p)

	runCleanups(p.cleanups)
	p.cleanups = nil

	for p.subPools != nil {
		destroyPoolLocked(p.subPools)
	}
	p.subPools = nil

	releaseChain(p.first)
	p.destroyed = true
}
