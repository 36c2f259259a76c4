package pool

import "reflect"

// CleanupFunc is a pool-registered destructor. It receives back whatever
// opaque value was passed to RegisterCleanup.
type CleanupFunc func(data any)

// funcPointer extracts a comparable identity for a func value. Go forbids
// `==` between two non-nil func values directly, so UnregisterCleanup
// compares the underlying code pointers instead — this is what the C
// original compares (function pointer equality) and is why callers must
// pass back the same CleanupFunc value they registered, not a freshly
// built closure with identical behavior.
func funcPointer(f CleanupFunc) uintptr {
	if f == nil {
		return 0
	}
	return reflect.ValueOf(f).Pointer()
}

// cleanup is one entry in a pool's LIFO cleanup list. Registrations push
// at the head; clear/destroy walk head to tail, which is LIFO relative
// to registration order.
type cleanup struct {
	data    any
	plainCB CleanupFunc
	childCB CleanupFunc
	next    *cleanup
}

// RegisterCleanup registers a destructor against p: plainCB runs on a
// normal clear/destroy, childCB runs instead under RunChildCleanups
// (post-fork teardown). data must be a comparable value (an fd, a
// pointer, a small struct) since UnregisterCleanup matches on it with
// ==.
func RegisterCleanup(p *Pool, data any, plainCB, childCB CleanupFunc) {
	p.cleanups = &cleanup{
		data:    data,
		plainCB: plainCB,
		childCB: childCB,
		next:    p.cleanups,
	}
}

// UnregisterCleanup removes the first registration matching (data,
// plainCB); it is a silent no-op if none matches. Matching compares
// plainCB only, so two registrations that differ only in their child
// callback are indistinguishable here.
func UnregisterCleanup(p *Pool, data any, plainCB CleanupFunc) {
	var prev *cleanup
	for c := p.cleanups; c != nil; c = c.next {
		if c.data == data && sameFunc(c.plainCB, plainCB) {
			if prev == nil {
				p.cleanups = c.next
			} else {
				prev.next = c.next
			}
			return
		}
		prev = c
	}
}

// sameFunc compares two CleanupFunc values by identity. Go forbids
// comparing func values with ==, so callers that need Unregister to find
// a registration must pass back the exact same CleanupFunc value (not a
// newly constructed closure); this module always does so by holding the
// callback in a package-level or struct-level variable and reusing it.
func sameFunc(a, b CleanupFunc) bool {
	return funcPointer(a) == funcPointer(b)
}

// runCleanups invokes the plain callback of every entry in c, head to
// tail (LIFO relative to registration order), then returns — the caller
// is responsible for nulling the list afterward.
func runCleanups(c *cleanup) {
	for ; c != nil; c = c.next {
		c.plainCB(c.data)
	}
}

// RunChildCleanups walks the pool tree rooted at root, root to leaves,
// invoking each pool's child callbacks in place of its plain ones and
// then clearing that pool's cleanup list — without touching its blocks or
// its sub-pool tree. This is the post-fork teardown path: a forked child
// inherits open descriptors that must be closed without flushing
// buffered state, but the child process does not need (and must not
// trigger) the parent's own block/arena teardown.
func RunChildCleanups(root *Pool) {
	if root == nil {
		return
	}

	for c := root.cleanups; c != nil; c = c.next {
		c.childCB(c.data)
	}
	root.cleanups = nil

	for child := root.subPools; child != nil; child = child.subNext {
		RunChildCleanups(child)
	}
}
