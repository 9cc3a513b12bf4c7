package majordome

import (
	"context"
	"sync"
	"time"

	"github.com/majordome-go/majordome/config"
)

// App is a built application: the immutable module graph plus its runtime
// state. All methods are safe for concurrent use.
type App struct {
	store     *moduleStore
	signal    *appSignal
	config    *config.Source
	logger    Logger
	observers *observers
	metrics   *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	stopOnce sync.Once
}

func newApp(b *Builder) *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		store:     b.store,
		signal:    newAppSignal(),
		config:    b.config,
		logger:    b.logger,
		observers: b.observers,
		metrics:   b.metrics,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Logger returns the application logger.
func (app *App) Logger() Logger {
	return app.logger
}

// Config returns the configuration source the modules were built from.
func (app *App) Config() *config.Source {
	return app.config
}

// Context returns the application context. It is cancelled when the
// application starts closing.
func (app *App) Context() context.Context {
	return app.ctx
}

// State returns the current application state.
func (app *App) State() State {
	return app.signal.state()
}

// IsExiting reports whether an exit was requested.
func (app *App) IsExiting() bool {
	return app.signal.exiting.isFired()
}

// IsClosing reports whether the shutdown has begun.
func (app *App) IsClosing() bool {
	return app.signal.closing.isFired()
}

// Exiting is closed once an exit is requested.
func (app *App) Exiting() <-chan struct{} {
	return app.signal.exiting.done()
}

// Closing is closed once the shutdown has begun.
func (app *App) Closing() <-chan struct{} {
	return app.signal.closing.done()
}

// Done is closed once the application has terminated.
func (app *App) Done() <-chan struct{} {
	return app.signal.terminated.done()
}

// Exit requests the application to exit, as an interrupt signal would.
// Modules keep running until Stop is called.
func (app *App) Exit() {
	if app.signal.exiting.fire() {
		app.logger.Info("Application exiting")
		app.observers.emit(app.ctx, EventTypeAppExiting, nil)
	}
}

// SleepUntil sleeps for d. Unless ignoreExit is set it wakes up early when an
// exit is requested; it always wakes up when the application starts closing
// or ctx ends. It reports whether the full duration elapsed.
func (app *App) SleepUntil(ctx context.Context, d time.Duration, ignoreExit bool) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	var exiting <-chan struct{}
	if !ignoreExit {
		exiting = app.signal.exiting.done()
	}

	select {
	case <-timer.C:
		return true
	case <-exiting:
	case <-app.signal.closing.done():
	case <-ctx.Done():
	}
	return false
}

// WaitUntil blocks until an exit is requested (unless ignoreExit is set),
// the application starts closing or ctx ends.
func (app *App) WaitUntil(ctx context.Context, ignoreExit bool) {
	var exiting <-chan struct{}
	if !ignoreExit {
		exiting = app.signal.exiting.done()
	}

	select {
	case <-exiting:
	case <-app.signal.closing.done():
	case <-ctx.Done():
	}
}

// Go runs fn as a task owned by module and tracks it until shutdown. fn
// receives the application context.
func (app *App) Go(module, name string, fn TaskFunc) *Task {
	t := Go(app.ctx, name, fn)
	t.module = module
	app.track(t)
	return t
}

func (app *App) track(t *Task) {
	app.store.registerTask(t)
	app.metrics.taskTracked()
}
