package lock

import (
	"context"
	"sync"
	"time"
)

// Semaphore is a one-shot binary handoff owned by exactly one waiter
// (spec.md §4.2). A waiter blocks in Acquire until Release is called or the
// timeout elapses; Release is idempotent against spurious or repeated
// calls, satisfying the same contract as the teacher's LockRequest.Chan
// (a buffered channel drained with a non-blocking send) but implemented as
// a once-closed channel, which is the idiomatic Go broadcast-once pattern.
type Semaphore struct {
	owner     *ThreadID
	ch        chan struct{}
	closeOnce sync.Once
}

// NewSemaphore creates a semaphore for the given waiter. owner is used only
// for identity comparisons in WaitQueue.Get.
func NewSemaphore(owner *ThreadID) *Semaphore {
	return &Semaphore{
		owner: owner,
		ch:    make(chan struct{}),
	}
}

// Owner returns the thread this semaphore was created for.
func (s *Semaphore) Owner() *ThreadID {
	return s.owner
}

// Acquire blocks until Release is called, the timeout elapses, or ctx is
// done. It returns (true, nil) on release, (false, nil) on timeout, and
// (false, ctx.Err()) if ctx was already done or became done first — the
// Go analog of spec.md's Interrupted failure on the timed path.
//
// A non-positive timeout means "do not block": return immediately whether
// or not the semaphore has been released.
func (s *Semaphore) Acquire(ctx context.Context, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if timeout <= 0 {
		select {
		case <-s.ch:
			return true, nil
		default:
			return false, nil
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-s.ch:
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	case <-timer.C:
		return false, nil
	}
}

// Release unblocks the pending Acquire. Safe to call more than once or
// without a waiter present; later calls are no-ops.
func (s *Semaphore) Release() {
	s.closeOnce.Do(func() {
		close(s.ch)
	})
}
