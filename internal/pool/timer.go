// Package pool provides pooled timers and reusable receive buffers for the
// hot paths of the control-channel client.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// AcquireTimer returns a timer armed for duration d.
//
// Release it back to the pool with ReleaseTimer once the caller no longer
// selects on its channel.
func AcquireTimer(d time.Duration) *time.Timer {
	v := timerPool.Get()
	if v == nil {
		return time.NewTimer(d)
	}
	t := v.(*time.Timer)
	if t.Reset(d) {
		// The timer was still active; drain a pending tick so the new
		// arming cannot observe a stale expiry.
		select {
		case <-t.C:
		default:
		}
	}
	return t
}

// ReleaseTimer stops t and returns it to the pool.
//
// t must not be touched after release.
func ReleaseTimer(t *time.Timer) {
	if !t.Stop() {
		// Expired but unread; drain so the next AcquireTimer starts clean.
		select {
		case <-t.C:
		default:
		}
	}
	timerPool.Put(t)
}
