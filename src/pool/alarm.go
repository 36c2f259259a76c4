package pool

import (
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// alarmDepth is the nesting count for blockAlarms/unblockAlarms. Only the
// outermost block/unblock pair actually touches the signal mask, so nested
// critical sections compose correctly.
var alarmDepth int32

// blockAlarms enters an alarm-blocked critical section: while any
// mutation of the free list or the pool tree is in flight, SIGALRM must
// not be allowed to invoke a handler that calls back into the
// allocator. Calls nest; see alarmDepth.
func blockAlarms() {
	if atomic.AddInt32(&alarmDepth, 1) == 1 {
		var set unix.Sigset_t
		unix.SigaddSet(&set, int(unix.SIGALRM))
		if err := unix.PthreadSigmask(unix.SIG_BLOCK, &set, nil); err != nil {
			logger().Warn().Err(err).Msg("pool: failed to block SIGALRM")
		}
	}
}

// unblockAlarms leaves an alarm-blocked critical section. See blockAlarms.
func unblockAlarms() {
	if atomic.AddInt32(&alarmDepth, -1) == 0 {
		var set unix.Sigset_t
		unix.SigaddSet(&set, int(unix.SIGALRM))
		if err := unix.PthreadSigmask(unix.SIG_UNBLOCK, &set, nil); err != nil {
			logger().Warn().Err(err).Msg("pool: failed to unblock SIGALRM")
		}
	}
}
