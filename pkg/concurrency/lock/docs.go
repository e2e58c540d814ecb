// Package lock implements a reentrant, FIFO-fair lock with deadlock
// resolution by forced release and resume.
//
// # Overview
//
// An [OrderedLock] behaves like a reentrant mutex with two differences from
// sync.Mutex: waiters are granted strictly in arrival order (no barging),
// and the lock can be forcibly released out from under its current owner
// by a [LockManager] that has detected a deadlock, to be reacquired later
// once the owner's own wait is satisfied. Locks and arbitrary caller
// resources both participate in deadlock detection via the
// [SchedulingRule] interface.
//
// # Components
//
//   - [OrderedLock]       — the lock itself: owner, reentrance depth, and a
//     FIFO [WaitQueue] of [Semaphore] handoffs for blocked waiters.
//   - [LockManager]       — the coordination point shared by every lock it
//     creates via [LockManager.NewLock]. It owns the [DeadlockDetector],
//     forwards to an optional [LockHook], and resolves deadlocks.
//   - [DeadlockDetector]  — the dynamic (thread, resource) wait-for
//     multigraph. An edge (T, R, H) means thread T is waiting on resource R,
//     which thread H holds. A cycle reachable from a newly waiting thread
//     indicates a deadlock.
//   - [SchedulingRule]    — the resource abstraction: anything that can
//     conflict with or contain another resource can participate in the
//     graph alongside OrderedLocks.
//
// # Acquisition flow
//
// [OrderedLock.Acquire]:
//
//  1. If the lock is free, or already owned by the calling thread, grant
//     immediately and bump the reentrance depth.
//  2. Otherwise create or reuse this thread's queued [Semaphore].
//  3. Ask the [LockManager]'s hook whether it wants to grant early
//     ([LockHook.AboutToWait]); if so, grant and return.
//  4. Re-assert the semaphore is queued (the hook may have dequeued it as
//     a side effect — see DESIGN.md's hook re-enqueue hazard), tell the
//     manager the wait is starting, and block on the semaphore up to the
//     given timeout.
//  5. On success, dequeue, bump depth, and resume any locks this thread
//     had suspended earlier.
//
// # Deadlock detection and resolution
//
// [LockManager.WaitStarted] runs [DeadlockDetector.FindCycle] every time a
// thread begins waiting. If the new wait edge closes a cycle, the manager
// selects a victim from the cycle's participants (see DESIGN.md for the
// tie-break rule), force-releases that victim's locks that are part of the
// cycle, and records them to be reacquired via [LockManager.ResumeSuspended]
// once the victim's own wait completes. If every candidate holds at least
// one non-lock [SchedulingRule] blocking the cycle, the deadlock cannot be
// resolved by suspending a lock — this package does not invent a way to
// suspend a resource it cannot release — and escalates to an internal
// error, permanently disabling further detection on that [LockManager].
//
// # Failure modes
//
// Misuse (releasing a lock the calling thread does not own) panics with a
// *[error.LockError] of category Misuse rather than returning an error — it
// is a programmer error, not a recoverable condition. A violated internal
// invariant, including an unresolvable deadlock, permanently disables
// deadlock detection on the affected [LockManager] and is logged, rather
// than risk acting on a graph that can no longer be trusted.
package lock
