package majordome

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// TaskFunc is the body of a background task.
type TaskFunc func(ctx context.Context) error

// Task is a tracked unit of background work. By default shutdown waits for
// it to finish; see NoWait.
type Task struct {
	name    string
	module  string
	started time.Time
	ended   time.Time
	nowait  atomic.Bool
	done    chan struct{}
	err     error
}

// Go runs fn in a new goroutine and returns its task handle. A panic in fn is
// recovered and reported through Err.
func Go(ctx context.Context, name string, fn TaskFunc) *Task {
	t := &Task{
		name:    name,
		module:  "unknown",
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go t.run(ctx, fn)
	return t
}

func (t *Task) run(ctx context.Context, fn TaskFunc) {
	defer close(t.done)
	defer func() {
		t.ended = time.Now()
		if r := recover(); r != nil {
			t.err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	t.err = fn(ctx)
}

// NoWait marks the task as not awaited by shutdown.
func (t *Task) NoWait() *Task {
	t.nowait.Store(true)
	return t
}

// Waits reports whether shutdown waits for the task.
func (t *Task) Waits() bool {
	return !t.nowait.Load()
}

// Name returns the task name.
func (t *Task) Name() string {
	return t.name
}

// Module returns the display name of the module owning the task.
func (t *Task) Module() string {
	return t.module
}

// Elapsed returns the task's run time so far, or its total run time once it
// has returned.
func (t *Task) Elapsed() time.Duration {
	select {
	case <-t.done:
		return t.ended.Sub(t.started)
	default:
		return time.Since(t.started)
	}
}

// Done is closed when the task returns.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task's result. It is only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task returns or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
