package lock

import (
	"context"
	"testing"
	"time"
)

func TestSemaphoreAcquireBlocksUntilRelease(t *testing.T) {
	owner := NewThreadID()
	sem := NewSemaphore(owner)

	done := make(chan bool, 1)
	go func() {
		ok, err := sem.Acquire(context.Background(), time.Second)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	sem.Release()

	select {
	case ok := <-done:
		if !ok {
			t.Fatalf("expected Acquire to succeed after Release")
		}
	case <-time.After(time.Second):
		t.Fatalf("Acquire did not return after Release")
	}
}

func TestSemaphoreAcquireTimesOut(t *testing.T) {
	sem := NewSemaphore(NewThreadID())

	ok, err := sem.Acquire(context.Background(), 10*time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected timeout, got success")
	}
}

func TestSemaphoreAcquireNonPositiveTimeoutIsNonBlocking(t *testing.T) {
	sem := NewSemaphore(NewThreadID())

	ok, err := sem.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected immediate false on an unreleased semaphore")
	}

	sem.Release()

	ok, err = sem.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected immediate true on a released semaphore")
	}
}

func TestSemaphoreAcquireRespectsCanceledContext(t *testing.T) {
	sem := NewSemaphore(NewThreadID())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, err := sem.Acquire(ctx, time.Second)
	if ok {
		t.Fatalf("expected failure on an already-canceled context")
	}
	if err == nil {
		t.Fatalf("expected ctx.Err() to be surfaced")
	}
}

func TestSemaphoreReleaseIsIdempotent(t *testing.T) {
	sem := NewSemaphore(NewThreadID())

	sem.Release()
	sem.Release()

	ok, err := sem.Acquire(context.Background(), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatalf("expected a released semaphore to report success")
	}
}
