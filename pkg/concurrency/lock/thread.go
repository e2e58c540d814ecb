package lock

import (
	"fmt"
	"sync/atomic"
)

// threadCounter assigns a monotonically increasing sequence number to every
// ThreadID created in this process, mirroring the teacher's
// transaction.TransactionID counter.
var threadCounter int64

// ThreadID is an opaque handle identifying a running agent (spec.md's
// "Thread identity (T)"). Go has no portable way to name a goroutine, so
// callers create one ThreadID per logical thread of control and pass it
// explicitly into every OrderedLock / LockManager call, the same way the
// teacher threads *transaction.TransactionID through every lock call
// instead of reading a thread-local.
//
// ThreadIDs compare by pointer identity, not by Seq: two distinct ThreadIDs
// with the same Seq never occur, but the pointer is what every map in this
// package actually keys on.
type ThreadID struct {
	seq int64
}

// NewThreadID allocates a fresh thread identity.
func NewThreadID() *ThreadID {
	return &ThreadID{seq: atomic.AddInt64(&threadCounter, 1)}
}

// Seq returns the monotonic sequence number assigned at creation. Used only
// for debugging and for the deterministic victim-selection tie-break
// (betterVictim in manager.go).
func (t *ThreadID) Seq() int64 {
	return t.seq
}

func (t *ThreadID) String() string {
	return fmt.Sprintf("Thread(%d)", t.seq)
}
