package lock

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	lockerr "lockcoordinator/pkg/error"
)

// effectivelyInfinite is the timeout AcquireUninterruptibly hands to the
// timed acquire path. It is not literally unbounded (spec.md calls for an
// untimed acquire that "retries until a timed acquire with an effectively
// infinite timeout succeeds") — a real duration keeps Semaphore.Acquire's
// select statement well-defined without a separate no-timeout code path.
const effectivelyInfinite = time.Duration(math.MaxInt64)

var lockCounter int64

// OrderedLock is a reentrant, FIFO-fair lock with timed acquisition and
// forced release/resume semantics (spec.md §4.4). It is the Go port of
// Eclipse's OrderedLock, generalized from a single owning LockManager
// singleton to an explicit *LockManager reference supplied at creation —
// spec.md §9's "no global mutable singletons" design note.
//
// An OrderedLock satisfies SchedulingRule: it conflicts only with itself,
// and contains only itself (see Contains/ConflictsWith below; this
// resolves an Open Question about the original source's own narrower
// `contains` implementation — see DESIGN.md).
type OrderedLock struct {
	mu    sync.Mutex
	owner *ThreadID
	depth int
	queue *WaitQueue

	manager *LockManager // weak, lookup-only back-reference (spec.md §9)
	id      int64
	debugID uuid.UUID
}

// newOrderedLock allocates a lock owned by manager. Unexported: callers go
// through LockManager.NewLock, mirroring Eclipse's package-private
// OrderedLock(LockManager) constructor.
func newOrderedLock(manager *LockManager) *OrderedLock {
	return &OrderedLock{
		queue:   NewWaitQueue(),
		manager: manager,
		id:      atomic.AddInt64(&lockCounter, 1),
		debugID: uuid.New(),
	}
}

// ID returns the monotonically assigned debug id (spec.md §3).
func (l *OrderedLock) ID() int64 {
	return l.id
}

// DebugID returns a process-wide-unique correlation id suitable for log
// lines, independent of the monotonic counter (see SPEC_FULL.md DOMAIN
// STACK: github.com/google/uuid).
func (l *OrderedLock) DebugID() string {
	return l.debugID.String()
}

func (l *OrderedLock) String() string {
	return fmt.Sprintf("OrderedLock(%d)", l.id)
}

// Depth returns the current reentrance count.
func (l *OrderedLock) Depth() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth
}

// Contains reports whether rule is already covered by this lock for the
// purpose of a nested acquisition. A lock only ever covers itself.
func (l *OrderedLock) Contains(rule SchedulingRule) bool {
	other, ok := rule.(*OrderedLock)
	return ok && other == l
}

// ConflictsWith reports whether rule is this same lock. Locks never
// conflict with anything but themselves (spec.md §4.3).
func (l *OrderedLock) ConflictsWith(rule SchedulingRule) bool {
	other, ok := rule.(*OrderedLock)
	return ok && other == l
}

// Acquire attempts to acquire the lock, blocking at most timeout (a
// non-positive timeout attempts a single immediate grant). It returns
// (true, nil) on success, (false, nil) on timeout, and (false, ctx.Err())
// if ctx was already done or became done while waiting.
//
// See spec.md §4.4 for the five-step algorithm this implements; see
// DESIGN.md Open Question 4 for the hook re-enqueue hazard this
// deliberately preserves.
func (l *OrderedLock) Acquire(ctx context.Context, owner *ThreadID, timeout time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	if l.tryGrantLocked(owner) {
		l.mu.Unlock()
		l.manager.Acquired(owner, l)
		l.manager.ResumeSuspended(owner)
		return true, nil
	}
	sem := l.queue.Get(owner)
	if sem == nil {
		sem = NewSemaphore(owner)
		l.queue.Enqueue(sem)
	}
	lockOwner := l.owner
	l.mu.Unlock()

	// Step 3: give an external scheduler a chance to service pending work
	// and grant immediately, outside both mutexes (spec.md §9 design
	// note: hooks must never run while either mutex is held).
	if l.manager.AboutToWait(lockOwner) {
		l.mu.Lock()
		l.queue.Remove(sem)
		l.depth++
		l.owner = owner
		l.mu.Unlock()
		l.manager.Acquired(owner, l)
		l.manager.ResumeSuspended(owner)
		return true, nil
	}

	// Step 4: the hook may have dequeued our semaphore as a side effect
	// while servicing other work. Re-assert it is queued — at the back if
	// it was removed, which is the documented hazard (DESIGN.md Open
	// Question 4): a newcomer can overtake a long-waiting thread under a
	// pathological hook.
	l.mu.Lock()
	if l.queue.Get(owner) == nil {
		l.queue.Enqueue(sem)
	}
	l.mu.Unlock()

	l.manager.WaitStarted(owner, l)

	ok, err := sem.Acquire(ctx, timeout)

	l.mu.Lock()
	l.queue.Remove(sem)
	if ok {
		l.depth++
		l.owner = owner
	}
	l.mu.Unlock()

	l.manager.WaitStopped(owner, l)

	if !ok {
		return false, err
	}

	l.manager.Acquired(owner, l)
	l.manager.ResumeSuspended(owner)
	return true, nil
}

// AcquireUninterruptibly blocks until the lock is granted. It never
// returns false and never surfaces cancellation — see DESIGN.md Open
// Question 1 for why it takes no context.Context at all, unlike Acquire.
func (l *OrderedLock) AcquireUninterruptibly(owner *ThreadID) {
	for {
		ok, _ := l.Acquire(context.Background(), owner, effectivelyInfinite)
		if ok {
			return
		}
	}
}

// tryGrantLocked attempts an immediate grant under l.mu. Callers must hold
// l.mu and must not call twice without releasing it first.
func (l *OrderedLock) tryGrantLocked(owner *ThreadID) bool {
	if l.owner == owner || (l.owner == nil && l.queue.IsEmpty()) {
		l.depth++
		l.owner = owner
		return true
	}
	return false
}

// Release decrements the reentrance count, handing the lock off to the
// next queued waiter once depth reaches zero. A no-op if depth is already
// zero. Panics with a *lockerr.LockError (CategoryMisuse) if called by a
// thread that is not the current owner while depth > 0 — spec.md §7
// classifies this as a programmer error, not a recoverable condition.
func (l *OrderedLock) Release(owner *ThreadID) {
	l.mu.Lock()
	if l.depth == 0 {
		l.mu.Unlock()
		return
	}
	if l.owner != owner {
		holder := l.owner
		l.mu.Unlock()
		err := lockerr.New(lockerr.CategoryMisuse, "LOCK_NOT_OWNED",
			fmt.Sprintf("thread %s released lock %d owned by %s", owner, l.id, holder))
		err.Operation = "Release"
		err.Component = "OrderedLock"
		panic(err)
	}

	l.depth--
	if l.depth > 0 {
		l.mu.Unlock()
		l.manager.Released(owner, l)
		return
	}

	next := l.queue.Peek()
	l.owner = nil
	l.mu.Unlock()

	l.manager.AboutToRelease()
	l.manager.ReleasedCompletely(owner, l)
	if next != nil {
		next.Release()
	}
}

// forceRelease suspends this lock on behalf of its current owner: it
// releases the lock as if depth were 1 regardless of its actual value,
// handing off to the next queued waiter, and returns the depth that was
// in effect so the LockManager can restore it later via setDepth. Called
// only by the LockManager's deadlock-resolution path (manager.go).
func (l *OrderedLock) forceRelease() int {
	l.mu.Lock()
	savedDepth := l.depth
	owner := l.owner
	next := l.queue.Peek()
	l.depth = 0
	l.owner = nil
	l.mu.Unlock()

	l.manager.AboutToRelease()
	l.manager.ReleasedCompletely(owner, l)
	if next != nil {
		next.Release()
	}
	return savedDepth
}

// setDepth restores the reentrance count after a victim reacquires a
// suspended lock. The caller must have just reacquired the lock (depth is
// 1 and owner is already set by that acquisition); this bumps the
// LockManager's multiplicity bookkeeping depth-1 more times so the
// wait-for graph's view of reentrance matches the lock's restored depth.
func (l *OrderedLock) setDepth(owner *ThreadID, depth int) {
	l.mu.Lock()
	l.depth = depth
	l.mu.Unlock()

	for i := 1; i < depth; i++ {
		l.manager.Acquired(owner, l)
	}
}
