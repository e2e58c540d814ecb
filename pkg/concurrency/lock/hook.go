package lock

// LockHook lets an external scheduler observe and interpose on the
// acquisition path (spec.md §6, the Go name for Eclipse's LockListener).
// A LockManager forwards to its hook, if one is set, outside of every
// internal mutex — a hook implementation is free to call back into the
// same LockManager without risking self-deadlock.
//
// A panicking hook is recovered by the LockManager and logged; it never
// brings down the calling goroutine (DESIGN.md Open Question 4's sibling
// decision: hooks are third-party code, and a bug in one should degrade to
// "this call proceeds without early grant / notification", not corrupt the
// coordinator's own state).
type LockHook interface {
	// AboutToWait is called just before the acquiring thread would block
	// waiting on a resource it could not acquire immediately; owner is
	// that resource's current owner (nil if it has none). Returning true
	// grants the resource to the acquiring thread right away, skipping the
	// wait entirely; the hook is responsible for having made that legal
	// (e.g. by ensuring owner no longer needs the resource).
	AboutToWait(owner *ThreadID) bool

	// AboutToRelease is called just before a resource's owner changes,
	// after the outgoing owner's hold has already dropped to zero but
	// before the next waiter (if any) is signaled.
	AboutToRelease()
}

// noopHook is installed by default so LockManager never needs a nil check
// on its hot path.
type noopHook struct{}

func (noopHook) AboutToWait(*ThreadID) bool { return false }
func (noopHook) AboutToRelease()            {}
