package lock

import "slices"

// WaitQueue is the FIFO queue of Semaphores waiting on a single
// OrderedLock (spec.md §4.1). It is generalized from the teacher's
// WaitQueue, which indexed many pages' queues behind one shared map — here
// each OrderedLock owns exactly one WaitQueue, so a plain slice suffices,
// but the identity-based removal semantics (filter a clone, put the result
// back or drop it) are carried over unchanged.
//
// Callers are responsible for external synchronization: an OrderedLock
// only ever touches its WaitQueue while holding its own mutex.
type WaitQueue struct {
	items []*Semaphore
}

// NewWaitQueue returns an empty queue.
func NewWaitQueue() *WaitQueue {
	return &WaitQueue{}
}

// Enqueue appends s to the back of the queue.
func (q *WaitQueue) Enqueue(s *Semaphore) {
	q.items = append(q.items, s)
}

// Peek returns the head of the queue without removing it, or nil if empty.
func (q *WaitQueue) Peek() *Semaphore {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Dequeue removes and returns the head of the queue, or nil if empty.
func (q *WaitQueue) Dequeue() *Semaphore {
	if len(q.items) == 0 {
		return nil
	}
	head := q.items[0]
	q.items = slices.Delete(q.items, 0, 1)
	return head
}

// Remove removes s from any position in the queue by identity. A no-op if
// s is not queued. Used on timeout and on the hook-early-grant path.
func (q *WaitQueue) Remove(s *Semaphore) {
	q.items = slices.DeleteFunc(slices.Clone(q.items), func(item *Semaphore) bool {
		return item == s
	})
}

// Get returns the queued Semaphore belonging to owner, or nil if that
// thread has no pending request on this lock. Used by OrderedLock.Acquire
// to reuse an existing queued semaphore instead of creating a duplicate —
// the teacher's enqueue/createSemaphore pattern, ported from
// OrderedLock.java's operations.get(newSemaphore).
func (q *WaitQueue) Get(owner *ThreadID) *Semaphore {
	for _, item := range q.items {
		if item.owner == owner {
			return item
		}
	}
	return nil
}

// IsEmpty reports whether the queue has no pending waiters.
func (q *WaitQueue) IsEmpty() bool {
	return len(q.items) == 0
}

// Len reports the number of queued waiters. Test- and introspection-only.
func (q *WaitQueue) Len() int {
	return len(q.items)
}
