package lock

import (
	"fmt"
	"sync"

	lockerr "lockcoordinator/pkg/error"
	"lockcoordinator/pkg/logging"
)

// suspendedLock records an OrderedLock force-released out from under its
// owner along with the reentrance depth it had at the moment of
// suspension, so ResumeSuspended can restore it exactly.
type suspendedLock struct {
	lock  *OrderedLock
	depth int
}

// LockManager coordinates every OrderedLock created through it: it owns
// the shared DeadlockDetector, forwards to an optional LockHook, and
// resolves deadlocks by suspending a victim's locks and resuming them once
// the victim's own wait is satisfied (spec.md §5-6). It is the Go port of
// the teacher's LockManager (manager.go), rebuilt around resource-labeled
// wait-for edges instead of page/transaction bookkeeping — see DESIGN.md.
//
// A LockManager that observes a violated internal invariant permanently
// disables its own deadlock detection rather than risk acting on a
// corrupted graph (mirrors Eclipse LockManager.handleInternalError, which
// sets its DeadlockDetector reference to nil for the rest of the process).
type LockManager struct {
	mu       sync.RWMutex
	hook     LockHook
	worker   func(*ThreadID) bool
	disabled bool

	suspMu    sync.Mutex
	suspended map[*ThreadID][]suspendedLock

	detector *DeadlockDetector
}

// NewLockManager returns a LockManager with no hook installed (AboutToWait
// always reports false, AboutToRelease is a no-op).
func NewLockManager() *LockManager {
	return &LockManager{
		hook:      noopHook{},
		suspended: make(map[*ThreadID][]suspendedLock),
		detector:  NewDeadlockDetector(),
	}
}

// NewLock creates a new OrderedLock coordinated by this manager.
func (lm *LockManager) NewLock() *OrderedLock {
	return newOrderedLock(lm)
}

// SetHook installs the LockHook that AboutToWait/AboutToRelease forward
// to. Passing nil restores the no-op hook.
func (lm *LockManager) SetHook(hook LockHook) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if hook == nil {
		hook = noopHook{}
	}
	lm.hook = hook
}

// SetWorkerPoolMembership installs a predicate used by IsLockOwner to
// recognize threads that belong to a bounded worker pool even before they
// have acquired anything (SPEC_FULL.md's SUPPLEMENTED FEATURES: Eclipse treats
// any Worker-pool thread as an implicit lock participant for scheduling
// purposes). A nil predicate (the default) means no thread is treated as
// pool membership; IsLockOwner then reflects only recorded holds and waits.
func (lm *LockManager) SetWorkerPoolMembership(fn func(*ThreadID) bool) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.worker = fn
}

// IsLockOwner reports whether thread is known to the coordinator: it
// currently holds some resource, it is currently waiting for one (spec.md
// §4.6/§6 — Eclipse's locks.contains(thread) counts waiters too), or it
// belongs to the configured worker pool.
func (lm *LockManager) IsLockOwner(thread *ThreadID) bool {
	lm.mu.RLock()
	worker := lm.worker
	lm.mu.RUnlock()

	if worker != nil && worker(thread) {
		return true
	}
	return lm.detector.hasHolds(thread) || lm.detector.isWaiting(thread)
}

// IsEmpty reports whether the manager has no recorded holds, waits, or
// suspended locks. Test- and lifecycle-introspection only.
func (lm *LockManager) IsEmpty() bool {
	lm.suspMu.Lock()
	suspended := len(lm.suspended)
	lm.suspMu.Unlock()
	return suspended == 0 && lm.detector.isEmpty()
}

// AboutToWait forwards to the installed hook's AboutToWait outside of any
// internal mutex, recovering (and logging) a panic instead of propagating
// it. lockOwner is the resource's current owner, or nil if it is free —
// callers pass whatever OrderedLock.Acquire observed at enqueue time.
func (lm *LockManager) AboutToWait(lockOwner *ThreadID) (granted bool) {
	lm.mu.RLock()
	hook := lm.hook
	lm.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			granted = false
			logging.WithComponent("lock_manager").Error("lock hook panicked in AboutToWait", "panic", fmt.Sprint(r))
		}
	}()

	return hook.AboutToWait(lockOwner)
}

// AboutToRelease forwards to the installed hook's AboutToRelease outside
// of any internal mutex, recovering (and logging) a panic.
func (lm *LockManager) AboutToRelease() {
	lm.mu.RLock()
	hook := lm.hook
	lm.mu.RUnlock()

	defer func() {
		if r := recover(); r != nil {
			logging.WithComponent("lock_manager").Error("lock hook panicked in AboutToRelease", "panic", fmt.Sprint(r))
		}
	}()

	hook.AboutToRelease()
}

// Acquired records that thread now holds resource, clearing any wait it
// had recorded (a grant always ends the wait that preceded it).
func (lm *LockManager) Acquired(thread *ThreadID, resource SchedulingRule) {
	if lm.isDisabled() {
		return
	}
	lm.detector.recordHold(thread, resource)
	lm.detector.stopWait(thread)
}

// Released records that thread gave up one level of resource, but still
// holds it at a shallower depth (a plain non-final Release call).
func (lm *LockManager) Released(thread *ThreadID, resource SchedulingRule) {
	if lm.isDisabled() {
		return
	}
	lm.detector.decrementHold(thread, resource)
}

// ReleasedCompletely records that thread no longer holds resource at all,
// regardless of the depth it had (a final Release, or a forced release).
func (lm *LockManager) ReleasedCompletely(thread *ThreadID, resource SchedulingRule) {
	if lm.isDisabled() {
		return
	}
	lm.detector.clearHold(thread, resource)
}

// WaitStarted records that thread is now blocked waiting on resource and
// checks whether doing so closed a cycle in the wait-for graph. If it did,
// WaitStarted selects a victim from the cycle and suspends its locks
// before returning, so that by the time the caller starts blocking on its
// semaphore, the cycle has already been broken (spec.md §5). If no
// candidate in the cycle holds only suspendable locks, the deadlock cannot
// be resolved by this package and WaitStarted escalates to
// handleInternalError, permanently disabling further detection (spec.md
// §4.5/§7's "unresolvable deadlock is escalated to internal error").
func (lm *LockManager) WaitStarted(thread *ThreadID, resource SchedulingRule) {
	if lm.isDisabled() {
		return
	}
	lm.detector.startWait(thread, resource)

	cycle := lm.detector.FindCycle(thread)
	if cycle == nil {
		return
	}

	victim, victimLocks, resolvable := lm.selectVictim(cycle)
	if !resolvable {
		err := lockerr.New(lockerr.CategoryDeadlock, "DEADLOCK_UNRESOLVABLE",
			fmt.Sprintf("deadlock detected with %d participants but no candidate holds only suspendable locks", len(cycleParticipants(cycle))))
		err.Operation = "WaitStart"
		err.Component = "LockManager"
		lm.handleInternalError(err)
		return
	}

	lm.suspendLocks(victim, victimLocks)
}

// WaitStopped records that thread is no longer waiting on resource,
// whether because it was granted, timed out, or was cancelled.
func (lm *LockManager) WaitStopped(thread *ThreadID, resource SchedulingRule) {
	if lm.isDisabled() {
		return
	}
	lm.detector.stopWait(thread)
}

// ResumeSuspended reacquires every lock previously suspended out from
// under thread, most-recently-suspended first, restoring each one's
// reentrance depth. Called by OrderedLock after every successful grant —
// see ordered_lock.go — so a thread that just got unblocked always gets a
// chance to recover locks it lost to deadlock resolution before doing
// anything else.
//
// This deliberately runs outside the manager's own mutex: reacquiring a
// suspended lock can itself trigger WaitStarted/AboutToWait, which must
// never be called while holding lm.mu.
func (lm *LockManager) ResumeSuspended(thread *ThreadID) {
	for {
		lm.suspMu.Lock()
		stack := lm.suspended[thread]
		if len(stack) == 0 {
			lm.suspMu.Unlock()
			return
		}
		top := stack[0]
		rest := stack[1:]
		if len(rest) == 0 {
			delete(lm.suspended, thread)
		} else {
			lm.suspended[thread] = rest
		}
		lm.suspMu.Unlock()

		top.lock.AcquireUninterruptibly(thread)
		top.lock.setDepth(thread, top.depth)
	}
}

// isDisabled reports whether an earlier internal-consistency violation
// has permanently disabled deadlock detection on this manager.
func (lm *LockManager) isDisabled() bool {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.disabled
}

// handleInternalError logs err and disables deadlock detection for the
// remaining lifetime of this manager, mirroring Eclipse's
// LockManager.handleInternalError: once the graph's own bookkeeping can no
// longer be trusted, stop acting on it rather than risk making things
// worse.
func (lm *LockManager) handleInternalError(err error) {
	logging.WithComponent("lock_manager").Error("internal invariant violated, disabling deadlock detection", "error", err)
	lm.mu.Lock()
	lm.disabled = true
	lm.mu.Unlock()
}

// victimCandidate is one thread's eligibility to be force-suspended to
// break the cycle FindCycle returned.
type victimCandidate struct {
	thread     *ThreadID
	cycleLocks []*OrderedLock
	totalHeld  int
}

// selectVictim applies the tie-break rule documented in DESIGN.md (Open
// Question 2): among threads in cycle whose cycle-blocking resources are
// all OrderedLocks (and therefore suspendable), prefer the one holding the
// fewest resources that participate in the cycle, then the fewest
// resources overall, then the lowest ThreadID sequence number. Returns
// resolvable=false if every participant holds at least one non-lock
// SchedulingRule that blocks the cycle — spec.md §5's unresolvable case.
func (lm *LockManager) selectVictim(cycle []edge) (victim *ThreadID, locks []*OrderedLock, resolvable bool) {
	var candidates []victimCandidate

	for _, p := range cycleParticipants(cycle) {
		eligible := true
		var cycleLocks []*OrderedLock
		for _, e := range cycle {
			if e.holder != p {
				continue
			}
			l, ok := e.resource.(*OrderedLock)
			if !ok {
				eligible = false
				break
			}
			cycleLocks = append(cycleLocks, l)
		}
		if !eligible {
			continue
		}
		candidates = append(candidates, victimCandidate{
			thread:     p,
			cycleLocks: cycleLocks,
			totalHeld:  lm.detector.heldCount(p),
		})
	}

	if len(candidates) == 0 {
		return nil, nil, false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if betterVictim(c, best) {
			best = c
		}
	}
	return best.thread, best.cycleLocks, true
}

func betterVictim(a, b victimCandidate) bool {
	if len(a.cycleLocks) != len(b.cycleLocks) {
		return len(a.cycleLocks) < len(b.cycleLocks)
	}
	if a.totalHeld != b.totalHeld {
		return a.totalHeld < b.totalHeld
	}
	return a.thread.Seq() < b.thread.Seq()
}

// suspendLocks force-releases every lock in locks on victim's behalf and
// pushes them onto victim's suspension stack for ResumeSuspended to
// restore later.
func (lm *LockManager) suspendLocks(victim *ThreadID, locks []*OrderedLock) {
	saved := make([]suspendedLock, 0, len(locks))

	for _, l := range locks {
		l.mu.Lock()
		actualOwner := l.owner
		l.mu.Unlock()

		if actualOwner != victim {
			err := lockerr.New(lockerr.CategoryInternal, "VICTIM_OWNER_MISMATCH",
				fmt.Sprintf("wait-for graph said %s owns lock %d, but the lock disagrees", victim, l.id))
			err.Operation = "ResolveDeadlock"
			err.Component = "LockManager"
			lm.handleInternalError(err)
			return
		}

		depth := l.forceRelease()
		saved = append(saved, suspendedLock{lock: l, depth: depth})
	}

	lm.suspMu.Lock()
	lm.suspended[victim] = append(saved, lm.suspended[victim]...)
	lm.suspMu.Unlock()

	logging.WithThread(victim.Seq()).Warn("locks force-released to resolve deadlock", "count", len(saved))
}

// heldCount reports how many distinct resources thread currently holds.
func (d *DeadlockDetector) heldCount(thread *ThreadID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.holds[thread])
}

// ResourceSnapshot describes one resource's current holders for
// introspection (cmd/graphview).
type ResourceSnapshot struct {
	ResourceID string
	HeldBy     []int64
}

// ThreadSnapshot describes one thread's current wait state for
// introspection (cmd/graphview).
type ThreadSnapshot struct {
	ThreadSeq      int64
	WaitingFor     string
	SuspendedLocks int
}

// GraphSnapshot is a point-in-time, read-only copy of the wait-for graph,
// intended purely for display (SPEC_FULL.md's DOMAIN STACK graphview
// component). It is never used to drive coordination decisions.
type GraphSnapshot struct {
	Resources []ResourceSnapshot
	Threads   []ThreadSnapshot
}

// Snapshot returns a copy of the manager's current graph state.
func (lm *LockManager) Snapshot() GraphSnapshot {
	holds, waits := lm.detector.snapshot()

	byResource := make(map[string][]int64)
	for thread, resources := range holds {
		for _, r := range resources {
			id := resourceDebugID(r)
			byResource[id] = append(byResource[id], thread.Seq())
		}
	}

	snap := GraphSnapshot{}
	for id, holders := range byResource {
		snap.Resources = append(snap.Resources, ResourceSnapshot{ResourceID: id, HeldBy: holders})
	}

	lm.suspMu.Lock()
	suspendedCount := make(map[*ThreadID]int, len(lm.suspended))
	for t, stack := range lm.suspended {
		suspendedCount[t] = len(stack)
	}
	lm.suspMu.Unlock()

	seen := make(map[*ThreadID]bool)
	addThread := func(t *ThreadID) {
		if seen[t] {
			return
		}
		seen[t] = true
		waitingFor := ""
		if r, ok := waits[t]; ok {
			waitingFor = resourceDebugID(r)
		}
		snap.Threads = append(snap.Threads, ThreadSnapshot{
			ThreadSeq:      t.Seq(),
			WaitingFor:     waitingFor,
			SuspendedLocks: suspendedCount[t],
		})
	}
	for t := range holds {
		addThread(t)
	}
	for t := range waits {
		addThread(t)
	}
	for t := range suspendedCount {
		addThread(t)
	}

	return snap
}

// resourceDebugID returns a stable label for a SchedulingRule regardless
// of whether it is an OrderedLock (which carries a debug id) or an
// arbitrary caller-supplied resource.
func resourceDebugID(r SchedulingRule) string {
	if l, ok := r.(*OrderedLock); ok {
		return l.DebugID()
	}
	return fmt.Sprintf("%v", r)
}
