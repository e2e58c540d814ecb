package lock

import "sync"

// edge is a single (waiter, resource, holder) wait-for relationship: waiter
// is blocked waiting for resource, which holder currently holds. spec.md
// §5 models the graph over (thread, resource) pairs rather than plain
// thread-to-thread edges so that deadlock resolution can see which
// resources a candidate victim is actually holding, not just who it is
// blocking.
type edge struct {
	waiter   *ThreadID
	resource SchedulingRule
	holder   *ThreadID
}

// DeadlockDetector maintains the dynamic wait-for multigraph described in
// spec.md §5 and answers "is there a cycle reachable from this waiter"
// on demand. It is the Go port of the teacher's DependencyGraph
// (dep_graph.go), generalized from a plain thread->thread adjacency map to
// resource-labeled edges and from transaction.TransactionID to ThreadID and
// SchedulingRule.
//
// Ownership note: holds records how many times each thread currently holds
// each resource (its reentrance depth from the detector's point of view);
// waits records each thread's single outstanding wait, since a thread only
// ever blocks on one Acquire call at a time.
type DeadlockDetector struct {
	mu    sync.Mutex
	holds map[*ThreadID]map[SchedulingRule]int
	waits map[*ThreadID]SchedulingRule

	cacheValid bool
	lastCycle  []edge
}

// NewDeadlockDetector returns an empty detector.
func NewDeadlockDetector() *DeadlockDetector {
	return &DeadlockDetector{
		holds: make(map[*ThreadID]map[SchedulingRule]int),
		waits: make(map[*ThreadID]SchedulingRule),
	}
}

// recordHold increments resource's hold count for thread.
func (d *DeadlockDetector) recordHold(thread *ThreadID, resource SchedulingRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.holds[thread] == nil {
		d.holds[thread] = make(map[SchedulingRule]int)
	}
	d.holds[thread][resource]++
	d.cacheValid = false
}

// clearHold drops resource entirely from thread's held set, regardless of
// its recorded multiplicity. Used by ReleasedCompletely, which covers both a
// final Release (depth reached zero) and a forced release (multiplicity
// irrelevant).
func (d *DeadlockDetector) clearHold(thread *ThreadID, resource SchedulingRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if set, ok := d.holds[thread]; ok {
		delete(set, resource)
		if len(set) == 0 {
			delete(d.holds, thread)
		}
	}
	d.cacheValid = false
}

// decrementHold drops one level of resource's hold count for thread,
// clearing the entry once it reaches zero. Used by a plain (non-final)
// Released call while depth is still positive.
func (d *DeadlockDetector) decrementHold(thread *ThreadID, resource SchedulingRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.holds[thread]
	if !ok {
		return
	}
	set[resource]--
	if set[resource] <= 0 {
		delete(set, resource)
	}
	if len(set) == 0 {
		delete(d.holds, thread)
	}
	d.cacheValid = false
}

// startWait records that thread is now blocked waiting on resource.
func (d *DeadlockDetector) startWait(thread *ThreadID, resource SchedulingRule) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waits[thread] = resource
	d.cacheValid = false
}

// stopWait clears thread's recorded wait, regardless of which resource it
// names. Called whether the wait ended in success, timeout, or
// cancellation.
func (d *DeadlockDetector) stopWait(thread *ThreadID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.waits, thread)
	d.cacheValid = false
}

// removeThread drops every trace of thread from the graph: its holds on
// every resource and its outstanding wait. LockManager does not call it;
// per-resource removal goes through clearHold (LockManager.ReleasedCompletely).
func (d *DeadlockDetector) removeThread(thread *ThreadID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.holds, thread)
	delete(d.waits, thread)
	d.cacheValid = false
}

// holdersOf returns the threads currently holding resource.
func (d *DeadlockDetector) holdersOf(resource SchedulingRule) []*ThreadID {
	var holders []*ThreadID
	for thread, set := range d.holds {
		if _, ok := set[resource]; ok {
			holders = append(holders, thread)
		}
	}
	return holders
}

// FindCycle searches for a cycle reachable from waiter's current wait edge
// and returns the ordered sequence of edges making up the cycle, or nil if
// no cycle is reachable from waiter. The returned cycle need not pass
// through waiter itself: a cycle further along its wait chain is returned
// too. Mirrors the teacher's HasCycle, but
// returns the cycle itself (not just a bool) since deadlock resolution
// needs to know which resources and threads are involved.
//
// The result is cached per detector mutation (cacheValid), since
// WaitStarted calls FindCycle on every new wait and the graph often does
// not change between calls — the same cache-invalidate-on-write shape as
// the teacher's DependencyGraph.cacheValid.
func (d *DeadlockDetector) FindCycle(waiter *ThreadID) []edge {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cacheValid {
		return d.lastCycle
	}

	var nodePath []*ThreadID
	var edgePath []edge
	onPath := make(map[*ThreadID]int)

	var dfs func(thread *ThreadID) []edge
	dfs = func(thread *ThreadID) []edge {
		resource, waiting := d.waits[thread]
		if !waiting {
			return nil
		}
		for _, holder := range d.holdersOf(resource) {
			if holder == thread {
				continue // reentrant hold on the resource it's waiting for, not a real wait
			}
			e := edge{waiter: thread, resource: resource, holder: holder}

			if idx, onStack := onPath[holder]; onStack {
				cycle := make([]edge, 0, len(edgePath)-idx+1)
				cycle = append(cycle, edgePath[idx:]...)
				cycle = append(cycle, e)
				return cycle
			}

			nodePath = append(nodePath, thread)
			edgePath = append(edgePath, e)
			onPath[thread] = len(nodePath) - 1

			if found := dfs(holder); found != nil {
				return found
			}

			nodePath = nodePath[:len(nodePath)-1]
			edgePath = edgePath[:len(edgePath)-1]
			delete(onPath, thread)
		}
		return nil
	}

	cycle := dfs(waiter)

	d.lastCycle = cycle
	d.cacheValid = true
	return cycle
}

// hasHolds reports whether thread currently holds any resource.
func (d *DeadlockDetector) hasHolds(thread *ThreadID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	set, ok := d.holds[thread]
	return ok && len(set) > 0
}

// isWaiting reports whether thread is currently blocked waiting on any
// resource.
func (d *DeadlockDetector) isWaiting(thread *ThreadID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.waits[thread]
	return ok
}

// isEmpty reports whether the detector has no recorded holds or waits.
func (d *DeadlockDetector) isEmpty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.holds) == 0 && len(d.waits) == 0
}

// snapshot returns a point-in-time copy of every recorded hold and wait,
// for introspection only (cmd/graphview). The returned maps are safe to
// range over without further locking.
func (d *DeadlockDetector) snapshot() (holds map[*ThreadID][]SchedulingRule, waits map[*ThreadID]SchedulingRule) {
	d.mu.Lock()
	defer d.mu.Unlock()

	holds = make(map[*ThreadID][]SchedulingRule, len(d.holds))
	for thread, set := range d.holds {
		resources := make([]SchedulingRule, 0, len(set))
		for r := range set {
			resources = append(resources, r)
		}
		holds[thread] = resources
	}

	waits = make(map[*ThreadID]SchedulingRule, len(d.waits))
	for thread, r := range d.waits {
		waits[thread] = r
	}
	return holds, waits
}

// cycleParticipants returns the distinct threads appearing as a waiter or
// holder anywhere in cycle.
func cycleParticipants(cycle []edge) []*ThreadID {
	seen := make(map[*ThreadID]bool)
	var out []*ThreadID
	for _, e := range cycle {
		for _, t := range [2]*ThreadID{e.waiter, e.holder} {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}
