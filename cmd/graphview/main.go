// Command graphview renders a live view of a lock coordinator's wait-for
// graph in the terminal. It wires up a small demo workload that
// deliberately deadlocks so there is always something interesting to
// watch; a real embedder would pass in their own *lock.LockManager instead
// of demoWorkload's.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"lockcoordinator/pkg/concurrency/lock"
	"lockcoordinator/pkg/logging"
)

func main() {
	logging.InitDefault()

	manager := lock.NewLockManager()
	go demoWorkload(manager)

	if _, err := tea.NewProgram(newModel(manager)).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "graphview:", err)
		os.Exit(1)
	}
}

// demoWorkload repeatedly drives two threads into an AB-BA deadlock on two
// locks, forever, so the view always has suspended/resumed locks to show.
func demoWorkload(manager *lock.LockManager) {
	a := manager.NewLock()
	b := manager.NewLock()

	for {
		done := make(chan struct{}, 2)

		go func() {
			t := lock.NewThreadID()
			a.Acquire(context.Background(), t, 2*time.Second)
			time.Sleep(150 * time.Millisecond)
			b.Acquire(context.Background(), t, 2*time.Second)
			time.Sleep(150 * time.Millisecond)
			b.Release(t)
			a.Release(t)
			done <- struct{}{}
		}()

		go func() {
			t := lock.NewThreadID()
			b.Acquire(context.Background(), t, 2*time.Second)
			time.Sleep(150 * time.Millisecond)
			a.Acquire(context.Background(), t, 2*time.Second)
			time.Sleep(150 * time.Millisecond)
			a.Release(t)
			b.Release(t)
			done <- struct{}{}
		}()

		<-done
		<-done
		time.Sleep(500 * time.Millisecond)
	}
}
