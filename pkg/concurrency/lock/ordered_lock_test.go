package lock

import (
	"context"
	"testing"
	"time"
)

func TestOrderedLockUncontendedReentrance(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()

	for i := 0; i < 3; i++ {
		ok, err := l.Acquire(context.Background(), owner, time.Second)
		if err != nil || !ok {
			t.Fatalf("acquire %d: got ok=%v err=%v", i, ok, err)
		}
	}
	if got := l.Depth(); got != 3 {
		t.Fatalf("expected depth 3, got %d", got)
	}

	for i := 0; i < 3; i++ {
		l.Release(owner)
	}
	if got := l.Depth(); got != 0 {
		t.Fatalf("expected depth 0 after releasing every level, got %d", got)
	}
}

func TestOrderedLockReleaseBelowZeroIsNoop(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()

	l.Release(owner) // never acquired; must not panic
	if got := l.Depth(); got != 0 {
		t.Fatalf("expected depth 0, got %d", got)
	}
}

func TestOrderedLockReleaseByNonOwnerPanics(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()
	other := NewThreadID()

	if ok, err := l.Acquire(context.Background(), owner, time.Second); err != nil || !ok {
		t.Fatalf("acquire: got ok=%v err=%v", ok, err)
	}

	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Release by a non-owner to panic")
		}
	}()
	l.Release(other)
}

func TestOrderedLockFIFOHandoff(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()
	second := NewThreadID()
	third := NewThreadID()

	if ok, _ := l.Acquire(context.Background(), owner, time.Second); !ok {
		t.Fatalf("owner failed to acquire")
	}

	order := make(chan *ThreadID, 2)
	ready := make(chan struct{}, 2)

	go func() {
		ready <- struct{}{}
		if ok, _ := l.Acquire(context.Background(), second, 2*time.Second); ok {
			order <- second
		}
		l.Release(second)
	}()
	<-ready
	time.Sleep(20 * time.Millisecond) // give 'second' time to enqueue first

	go func() {
		ready <- struct{}{}
		if ok, _ := l.Acquire(context.Background(), third, 2*time.Second); ok {
			order <- third
		}
		l.Release(third)
	}()
	<-ready
	time.Sleep(20 * time.Millisecond)

	l.Release(owner)

	first := <-order
	secondGranted := <-order
	if first != second || secondGranted != third {
		t.Fatalf("expected FIFO grant order second, third; got %v, %v", first, secondGranted)
	}
}

func TestOrderedLockAcquireTimesOut(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()
	other := NewThreadID()

	if ok, _ := l.Acquire(context.Background(), owner, time.Second); !ok {
		t.Fatalf("owner failed to acquire")
	}

	ok, err := l.Acquire(context.Background(), other, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected timeout, got success")
	}
	if l.queue.Get(other) != nil {
		t.Fatalf("expected the timed-out waiter to be removed from the queue")
	}
}

func TestOrderedLockContainsAndConflictsAreSelfOnly(t *testing.T) {
	lm := NewLockManager()
	a := lm.NewLock()
	b := lm.NewLock()

	if !a.Contains(a) {
		t.Fatalf("expected a lock to contain itself")
	}
	if a.Contains(b) {
		t.Fatalf("expected a lock not to contain a different lock")
	}
	if !a.ConflictsWith(a) {
		t.Fatalf("expected a lock to conflict with itself")
	}
	if a.ConflictsWith(b) {
		t.Fatalf("expected unrelated locks not to conflict")
	}
}

func TestOrderedLockAcquireUninterruptibly(t *testing.T) {
	lm := NewLockManager()
	l := lm.NewLock()
	owner := NewThreadID()
	waiter := NewThreadID()

	l.AcquireUninterruptibly(owner)

	done := make(chan struct{})
	go func() {
		l.AcquireUninterruptibly(waiter)
		close(done)
	}()

	select {
	case <-done:
		t.Fatalf("expected waiter to block while owner holds the lock")
	case <-time.After(20 * time.Millisecond):
	}

	l.Release(owner)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected waiter to acquire after owner released")
	}
}
