package majordome

import (
	"context"
	"errors"
	"fmt"
)

// start runs the Start hooks in construction order and tracks the returned
// tasks.
func (app *App) start(ctx context.Context) error {
	for _, rt := range app.store.runtimeList() {
		s, ok := rt.module.(Startable)
		if !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return &BuildError{Phase: PhaseStart, Symbol: rt.name, Err: err}
		}

		tasks, err := s.Start(app.ctx, app)
		for _, t := range tasks {
			if t == nil {
				continue
			}
			t.module = rt.name
			app.track(t)
		}
		if err != nil {
			return &BuildError{Phase: PhaseStart, Symbol: rt.name, Err: err}
		}
		app.logger.Debug("Started module", "module", rt.name, "tasks", len(tasks))
	}
	return nil
}

// Stop shuts the application down: it fires the closing signal, runs every
// Stop hook concurrently and waits for all tracked tasks that were not
// marked NoWait. Stop may be called several times and from several
// goroutines; all calls wait for the same shutdown. It returns an error only
// when ctx ends first, in which case the shutdown continues in background.
func (app *App) Stop(ctx context.Context) error {
	app.stopOnce.Do(func() {
		app.signal.closing.fire()
		app.cancel()
		app.logger.Info("Application closing")
		app.observers.emit(ctx, EventTypeAppClosing, nil)

		for _, rt := range app.store.takeRuntimes() {
			s, ok := rt.module.(Stoppable)
			if !ok {
				continue
			}
			t := Go(ctx, "@stop", func(ctx context.Context) error {
				if err := s.Stop(ctx, app); err != nil {
					return err
				}
				app.observers.emit(ctx, EventTypeModuleStopped, map[string]any{"module": rt.name})
				return nil
			})
			t.module = rt.name
			app.track(t)
		}

		go app.drain(context.WithoutCancel(ctx))
	})

	select {
	case <-app.signal.terminated.done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrStopTimeout, ctx.Err())
	}
}

// drain awaits tracked tasks until none are left, including tasks tracked
// while draining, then marks the application terminated.
func (app *App) drain(ctx context.Context) {
	for {
		tasks := app.store.takeTasks()
		if len(tasks) == 0 {
			break
		}
		for _, t := range tasks {
			if !t.Waits() {
				app.logger.Debug("Task detached", "task", t.Name(), "module", t.Module())
				app.metrics.taskDetached()
				continue
			}
			<-t.Done()
			app.report(ctx, t)
		}
	}

	app.logger.Info("Application terminated")
	app.observers.emit(ctx, EventTypeAppTerminated, nil)
	app.signal.terminated.fire()
}

func (app *App) report(ctx context.Context, t *Task) {
	elapsed := t.Elapsed()
	err := t.Err()
	app.metrics.taskCollected(t.Module(), elapsed, err)

	if err == nil {
		app.logger.Info("Task stopped", "task", t.Name(), "module", t.Module(), "elapsed", elapsed)
		return
	}

	msg := "Task failed"
	if errors.Is(err, ErrTaskPanicked) {
		msg = "Task panicked"
	}
	app.logger.Error(msg, "task", t.Name(), "module", t.Module(), "elapsed", elapsed, "error", err)
	app.observers.emit(ctx, EventTypeTaskFailed, map[string]any{
		"task":   t.Name(),
		"module": t.Module(),
		"error":  err.Error(),
	})
}
