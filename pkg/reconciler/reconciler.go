// Package reconciler implements the client-side synchronization contract: a
// change event means "something changed, re-read everything". The reconciler
// never applies an event as an incremental patch to its local view — event
// delivery is best-effort with no replay, so only a full refetch is
// trustworthy.
package reconciler

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/example/taskboard/domain/task"
)

// Lister is the read side the reconciler refetches from. It is satisfied by
// anything that can return the complete, authoritative task list.
type Lister interface {
	ListTasks(ctx context.Context) ([]task.Task, error)
}

// ListerFunc adapts a function to the Lister interface.
type ListerFunc func(ctx context.Context) ([]task.Task, error)

// ListTasks calls f.
func (f ListerFunc) ListTasks(ctx context.Context) ([]task.Task, error) {
	return f(ctx)
}

// Reconciler holds a local snapshot of the task list and replaces it wholesale
// on every change signal. Concurrent triggers coalesce into few refetches via
// singleflight, but coalescing never swallows a trigger: each fetch records the
// trigger generation it began at, and a trigger newer than the in-flight
// fetch's generation schedules one follow-up fetch. A fetch that began before
// a change committed cannot satisfy that change's event.
type Reconciler struct {
	lister Lister

	mu       sync.RWMutex
	snapshot []task.Task
	triggers uint64

	sf singleflight.Group
}

// New creates a reconciler over the given lister with an empty snapshot.
// Callers should Refresh once on connect for the initial view.
func New(lister Lister) *Reconciler {
	return &Reconciler{lister: lister}
}

// Refresh refetches the full task list and atomically replaces the snapshot.
// The fetched result is always authoritative: ids present locally but absent
// from the fetch simply vanish, and events referring to ids that were deleted
// before the refetch are satisfied by the same fetch without error.
//
// Refresh returns only once a fetch that began at or after this trigger has
// landed. Joining an already in-flight fetch is not enough: that fetch may
// have read the list before this trigger's change committed, so the loop runs
// one more fetch for every generation the in-flight one missed.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.triggers++
	want := r.triggers
	r.mu.Unlock()

	for {
		began, err, _ := r.sf.Do("refresh", func() (any, error) {
			r.mu.RLock()
			seen := r.triggers
			r.mu.RUnlock()

			tasks, err := r.lister.ListTasks(ctx)
			if err != nil {
				return seen, err
			}

			r.mu.Lock()
			r.snapshot = tasks
			r.mu.Unlock()
			return seen, nil
		})
		if err != nil {
			return err
		}
		if began.(uint64) >= want {
			return nil
		}
	}
}

// Snapshot returns a copy of the current local view.
func (r *Reconciler) Snapshot() []task.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]task.Task, len(r.snapshot))
	copy(out, r.snapshot)
	return out
}

// Len returns the number of tasks in the current view.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.snapshot)
}
