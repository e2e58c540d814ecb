package lock

// SchedulingRule is the interface exposed to external users for
// user-defined resources that should participate in the wait-for graph the
// same way an OrderedLock does (spec.md §4.3). It is the Go name for
// Eclipse's ISchedulingRule.
//
// Implementations must be comparable (in practice: pointer types), since
// the coordinator compares resources by identity, never by value equality.
//
// Contract: r.ConflictsWith(r) == true and r.Contains(r) == true for every
// r. OrderedLock satisfies both trivially (see ordered_lock.go).
type SchedulingRule interface {
	// ConflictsWith reports whether the two rules cannot be held
	// concurrently. Must be symmetric and reflexive.
	ConflictsWith(rule SchedulingRule) bool

	// Contains reports whether rule is already covered by this one, used
	// only to decide whether a nested acquisition is redundant. Must be
	// reflexive.
	Contains(rule SchedulingRule) bool
}
