// Package tasks tracks in-flight cancellable units of work keyed by an opaque
// task id. The registry is the single source of truth for whether a task is
// still cancellable.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrDuplicateTask is returned by Fork when the task id is already registered.
var ErrDuplicateTask = errors.New("task id already registered")

// ErrTaskNotFound is returned by Await when the task id is unknown.
var ErrTaskNotFound = errors.New("task not found")

// State is the terminal state of a task.
type State int

const (
	// StateCompleted means the work returned a value.
	StateCompleted State = iota

	// StateFailed means the work returned an error.
	StateFailed

	// StateInterrupted means the work was cooperatively cancelled.
	StateInterrupted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// Outcome is the resolved result of a task.
type Outcome struct {
	State State
	Value string
	Err   error
}

// Work is a cancellable unit of work. Implementations must honor ctx at every
// suspension point so cancellation takes effect promptly.
type Work func(ctx context.Context) (string, error)

type task struct {
	cancel  context.CancelFunc
	done    chan struct{}
	outcome Outcome
}

// Registry maps task ids to running work. Insert, lookup, and remove are
// atomic with respect to each other: the completing task and a concurrent
// interrupt may race without double-removal, and Cancel after removal is a
// reported no-op.
type Registry struct {
	mu     sync.Mutex
	tasks  map[string]*task
	logger *slog.Logger
}

// NewRegistry creates an empty task registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		tasks:  make(map[string]*task),
		logger: logger.With("component", "tasks"),
	}
}

// Fork begins work as an independently scheduled goroutine registered under
// taskID. It fails with ErrDuplicateTask if the id is already in use.
func (r *Registry) Fork(ctx context.Context, taskID string, work Work) error {
	taskCtx, cancel := context.WithCancel(ctx)

	t := &task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	r.mu.Lock()
	if _, exists := r.tasks[taskID]; exists {
		r.mu.Unlock()
		cancel()
		return fmt.Errorf("%w: %s", ErrDuplicateTask, taskID)
	}
	r.tasks[taskID] = t
	r.mu.Unlock()

	go func() {
		defer cancel()
		defer close(t.done)

		defer func() {
			if p := recover(); p != nil {
				t.outcome = Outcome{
					State: StateFailed,
					Err:   fmt.Errorf("task panicked: %v", p),
				}
				r.logger.Error("task panicked", "task_id", taskID, "panic", p)
			}
		}()

		value, err := work(taskCtx)
		switch {
		case err == nil:
			t.outcome = Outcome{State: StateCompleted, Value: value}
		case errors.Is(err, context.Canceled) && taskCtx.Err() != nil:
			t.outcome = Outcome{State: StateInterrupted, Err: err}
		default:
			t.outcome = Outcome{State: StateFailed, Err: err}
		}
	}()

	return nil
}

// Cancel requests cooperative cancellation of the task if it is still
// registered. The boolean reports whether a task was found; cancelling an
// already-resolved or unknown task is a no-op.
func (r *Registry) Cancel(taskID string) bool {
	r.mu.Lock()
	t, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	t.cancel()
	return true
}

// Await blocks until the task resolves, removes it from the registry, and
// returns its outcome. The task id becomes reusable only after Await returns.
func (r *Registry) Await(taskID string) (Outcome, error) {
	r.mu.Lock()
	t, ok := r.tasks[taskID]
	r.mu.Unlock()
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}

	<-t.done

	r.mu.Lock()
	delete(r.tasks, taskID)
	r.mu.Unlock()

	return t.outcome, nil
}

// Len reports the number of in-flight tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}
