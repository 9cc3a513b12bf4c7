package majordome

import (
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
)

// State is the application state.
type State string

const (
	// StateRunning is the state after Build returns.
	StateRunning State = "running"

	// StateExiting is entered on an interrupt or Exit. Modules keep running;
	// top-level loops are expected to stop accepting work.
	StateExiting State = "exiting"

	// StateClosing is entered by Stop. Stop hooks run and tasks drain.
	StateClosing State = "closing"

	// StateTerminated is reached once every tracked task has completed.
	StateTerminated State = "terminated"
)

// event is a single-fire broadcast: a flag for polling plus a channel that
// is closed once for any number of waiters.
type event struct {
	fired atomic.Bool
	once  sync.Once
	ch    chan struct{}
}

func newEvent() *event {
	return &event{ch: make(chan struct{})}
}

// fire triggers the event and reports whether this call did it.
func (e *event) fire() bool {
	first := false
	e.once.Do(func() {
		e.fired.Store(true)
		close(e.ch)
		first = true
	})
	return first
}

func (e *event) isFired() bool {
	return e.fired.Load()
}

func (e *event) done() <-chan struct{} {
	return e.ch
}

// appSignal is the two-phase shutdown notifier of one application.
type appSignal struct {
	exiting    *event
	closing    *event
	terminated *event
}

func newAppSignal() *appSignal {
	return &appSignal{
		exiting:    newEvent(),
		closing:    newEvent(),
		terminated: newEvent(),
	}
}

func (s *appSignal) state() State {
	switch {
	case s.terminated.isFired():
		return StateTerminated
	case s.closing.isFired():
		return StateClosing
	case s.exiting.isFired():
		return StateExiting
	default:
		return StateRunning
	}
}

// startExitProbe turns SIGINT/SIGTERM into the exiting signal. The probe is
// released when the application starts closing, which restores the default
// signal behaviour.
func (app *App) startExitProbe() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			app.logger.Info("Exit signal received", "signal", sig)
			app.Exit()
		case <-app.signal.closing.done():
		}
	}()
}
