package lock

import (
	"context"
	"testing"
	"time"
)

func mustAcquire(t *testing.T, l *OrderedLock, owner *ThreadID) {
	t.Helper()
	ok, err := l.Acquire(context.Background(), owner, time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}
}

func mustAcquireWithin(t *testing.T, l *OrderedLock, owner *ThreadID, timeout time.Duration) {
	t.Helper()
	ok, err := l.Acquire(context.Background(), owner, timeout)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}
}

// TestLockManagerResolvesTwoLockDeadlock drives the classic AB-BA deadlock
// (spec.md §8): t1 holds A and wants B, t2 holds B and wants A. The manager
// must pick a victim, force-release its lock, and later resume it once the
// victim's own wait is satisfied — without either goroutine hanging.
func TestLockManagerResolvesTwoLockDeadlock(t *testing.T) {
	lm := NewLockManager()
	a := lm.NewLock()
	b := lm.NewLock()
	t1 := NewThreadID() // lower Seq: the deterministic victim
	t2 := NewThreadID()

	t1Done := make(chan struct{})
	t2Ready := make(chan struct{})
	release := make(chan struct{})

	go func() {
		mustAcquire(t, a, t1)
		<-t2Ready
		mustAcquireWithin(t, b, t1, 3*time.Second)
		if a.Depth() == 0 {
			t.Errorf("expected lock A to have been restored to t1 after resume")
		}
		b.Release(t1)
		a.Release(t1)
		close(t1Done)
	}()

	go func() {
		mustAcquire(t, b, t2)
		close(t2Ready)
		mustAcquireWithin(t, a, t2, 3*time.Second)
		<-release
		a.Release(t2)
		b.Release(t2)
	}()

	time.Sleep(100 * time.Millisecond) // let both sides reach their second Acquire
	close(release)

	select {
	case <-t1Done:
	case <-time.After(5 * time.Second):
		t.Fatalf("deadlock was not resolved within the deadline")
	}

	if !lm.IsEmpty() {
		t.Fatalf("expected manager bookkeeping to be clean once both threads finished")
	}
}

type earlyGrantHook struct{ grant bool }

func (h *earlyGrantHook) AboutToWait(owner *ThreadID) bool { return h.grant }
func (h *earlyGrantHook) AboutToRelease()                  {}

func TestLockManagerHookGrantsEarly(t *testing.T) {
	lm := NewLockManager()
	lm.SetHook(&earlyGrantHook{grant: true})

	l := lm.NewLock()
	owner := NewThreadID()
	waiter := NewThreadID()

	mustAcquire(t, l, owner)

	start := time.Now()
	ok, err := l.Acquire(context.Background(), waiter, 2*time.Second)
	if err != nil || !ok {
		t.Fatalf("expected the hook to grant immediately, got ok=%v err=%v", ok, err)
	}
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Fatalf("expected an early grant, took %v", elapsed)
	}
	if l.queue.Get(waiter) != nil {
		t.Fatalf("expected the early-granted waiter to not remain queued")
	}
}

type panickingHook struct{}

func (panickingHook) AboutToWait(*ThreadID) bool { panic("boom") }
func (panickingHook) AboutToRelease()             { panic("boom") }

func TestLockManagerRecoversFromPanickingHook(t *testing.T) {
	lm := NewLockManager()
	lm.SetHook(panickingHook{})

	l := lm.NewLock()
	owner := NewThreadID()
	waiter := NewThreadID()

	mustAcquire(t, l, owner)

	done := make(chan struct{})
	go func() {
		ok, err := l.Acquire(context.Background(), waiter, 200*time.Millisecond)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if ok {
			t.Errorf("expected no grant from a hook that always panics")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Acquire did not return; a panicking hook must not hang the caller")
	}

	l.Release(owner) // must not panic despite AboutToRelease panicking internally
}

func TestLockManagerIsLockOwnerReflectsHoldsAndWorkerPool(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	holder := NewThreadID()
	poolMember := NewThreadID()
	stranger := NewThreadID()

	lm.SetWorkerPoolMembership(func(thread *ThreadID) bool { return thread == poolMember })

	mustAcquire(t, l, holder)

	if !lm.IsLockOwner(holder) {
		t.Fatalf("expected a thread holding a resource to be a lock owner")
	}
	if !lm.IsLockOwner(poolMember) {
		t.Fatalf("expected a worker-pool thread to be a lock owner even without holding anything")
	}
	if lm.IsLockOwner(stranger) {
		t.Fatalf("expected an unrelated thread not to be a lock owner")
	}
}

// TestLockManagerIsLockOwnerReflectsWaiters covers spec §4.6/§6: a thread
// blocked waiting for a resource, holding nothing itself, must still count
// as a lock owner (Eclipse's locks.contains(thread) counts waiters too).
func TestLockManagerIsLockOwnerReflectsWaiters(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	holder := NewThreadID()
	waiter := NewThreadID()

	mustAcquire(t, l, holder)

	if lm.IsLockOwner(waiter) {
		t.Fatalf("expected waiter not to be a lock owner before it starts waiting")
	}

	waiterDone := make(chan struct{})
	go func() {
		l.Acquire(context.Background(), waiter, time.Second)
		close(waiterDone)
	}()
	time.Sleep(50 * time.Millisecond)

	if !lm.IsLockOwner(waiter) {
		t.Fatalf("expected a thread blocked in Acquire to be a lock owner")
	}

	l.Release(holder)
	<-waiterDone
	l.Release(waiter)
}

// TestLockManagerEscalatesUnresolvableDeadlock covers spec §4.5/§7: a cycle
// where every participant's cycle-blocking resource is a non-lock
// SchedulingRule cannot be resolved by suspending a lock, so the manager
// must escalate to an internal error and permanently disable further
// detection rather than leave the cycle silently unresolved.
func TestLockManagerEscalatesUnresolvableDeadlock(t *testing.T) {
	lm := NewLockManager()
	t1, t2 := NewThreadID(), NewThreadID()
	r1, r2 := &fakeRule{"r1"}, &fakeRule{"r2"}

	lm.Acquired(t1, r1)
	lm.Acquired(t2, r2)

	lm.WaitStarted(t1, r2) // t1 waits on r2, held by t2

	if lm.isDisabled() {
		t.Fatalf("expected detection to still be enabled before the cycle closes")
	}

	lm.WaitStarted(t2, r1) // closes the cycle; neither r1 nor r2 is suspendable

	if !lm.isDisabled() {
		t.Fatalf("expected an unresolvable deadlock to permanently disable detection")
	}
}

func TestLockManagerSnapshotReflectsHoldsAndWaits(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()
	waiter := NewThreadID()

	mustAcquire(t, l, owner)

	waiterDone := make(chan struct{})
	go func() {
		l.Acquire(context.Background(), waiter, time.Second)
		close(waiterDone)
	}()
	time.Sleep(50 * time.Millisecond)

	snap := lm.Snapshot()

	foundHeld := false
	for _, r := range snap.Resources {
		for _, seq := range r.HeldBy {
			if seq == owner.Seq() {
				foundHeld = true
			}
		}
	}
	if !foundHeld {
		t.Fatalf("expected the snapshot to report owner holding the lock")
	}

	foundWaiting := false
	for _, th := range snap.Threads {
		if th.ThreadSeq == waiter.Seq() && th.WaitingFor != "" {
			foundWaiting = true
		}
	}
	if !foundWaiting {
		t.Fatalf("expected the snapshot to report waiter as waiting")
	}

	l.Release(owner)
	<-waiterDone
	l.Release(waiter)
}
