package majordome

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/majordome-go/majordome/config"
)

// logger writes to the test log. Errors are logged, not failed: several
// tests provoke them on purpose.
type logger struct {
	t *testing.T
}

func (l *logger) getCallerInfo() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown"
	}
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	relPath, err := filepath.Rel(wd, file)
	if err != nil {
		relPath = file
	}
	return fmt.Sprintf("%s:%d", relPath, line)
}

func (l *logger) Info(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Error(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] ERROR %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Warn(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] %s", l.getCallerInfo(), msg), args)
}

func (l *logger) Debug(msg string, args ...any) {
	l.t.Log(fmt.Sprintf("[%s] %s", l.getCallerInfo(), msg), args)
}

// MockLogger records log calls for assertions on task outcomes.
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Info(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Warn(msg string, args ...any) {
	m.Called(msg, args)
}

func (m *MockLogger) Error(msg string, args ...any) {
	m.Called(msg, args)
}

func newTestBuilder(t *testing.T, values map[string]string, opts ...Option) *Builder {
	t.Helper()
	base := []Option{
		WithLogger(&logger{t: t}),
		WithConfig(config.FromMap(values)),
		WithoutSignalProbe(),
	}
	return New(append(base, opts...)...)
}

// service is a plain module whose config is a label.
type service struct {
	name  string
	label string
}

func serviceDef(name string, constructs *int) *Definition[*service, string] {
	return &Definition[*service, string]{
		Name:    name,
		Version: "1.0.0",
		Configure: func(ctx context.Context, b *Builder, opts InitOptions) (string, error) {
			if label, ok := OptionConfig[string](opts); ok {
				return label, nil
			}
			return config.GetOr(b.Getter(opts, name), "label", "default"), nil
		},
		Construct: func(ctx context.Context, b *Builder, label string) (*service, error) {
			*constructs++
			return &service{name: name, label: label}, nil
		},
	}
}

// recorder collects lifecycle steps from concurrent goroutines.
type recorder struct {
	mu    sync.Mutex
	steps []string
}

func (r *recorder) add(step string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, step)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.steps...)
}

var errWorker = errors.New("worker failure")

// worker is a runtime module. Its own pointer is its config, so each test
// declares the exact instances it needs.
type worker struct {
	name string
	rec  *recorder
	deps []*Pointer[*worker]

	startErr  error
	stopErr   error
	stopPanic bool
	stopWait  <-chan struct{}
	tasks     func(ctx context.Context, app *App) []*Task

	closingAtStop atomic.Bool
}

func (w *worker) Start(ctx context.Context, app *App) ([]*Task, error) {
	w.rec.add("start:" + w.name)
	var tasks []*Task
	if w.tasks != nil {
		tasks = w.tasks(ctx, app)
	}
	return tasks, w.startErr
}

func (w *worker) Stop(ctx context.Context, app *App) error {
	w.closingAtStop.Store(app.IsClosing())
	if w.stopWait != nil {
		<-w.stopWait
	}
	if w.stopPanic {
		panic("stop exploded")
	}
	w.rec.add("stop:" + w.name)
	return w.stopErr
}

var workerDef = &Definition[*worker, *worker]{
	Name:    "worker",
	Version: "0.1.0",
	Configure: func(ctx context.Context, b *Builder, opts InitOptions) (*worker, error) {
		w, ok := OptionConfig[*worker](opts)
		if !ok {
			return nil, errors.New("worker override missing")
		}
		return w, nil
	},
	Construct: func(ctx context.Context, b *Builder, w *worker) (*worker, error) {
		for _, dep := range w.deps {
			if _, err := dep.Load(ctx, b); err != nil {
				return nil, err
			}
		}
		return w, nil
	},
}

func declareWorker(w *worker) *Pointer[*worker] {
	return Declare(w.name, workerDef, WithOverride(w))
}
