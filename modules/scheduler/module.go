// Package scheduler provides a cron scheduler module.
//
// Jobs are registered by name, typically while the module graph is built,
// and run on the application context once it starts. Running jobs are
// awaited on shutdown.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/majordome-go/majordome"
)

// ModuleName is the name of this module
const ModuleName = "scheduler"

// Module builds schedulers. Instances are shared per resolved Config.
var Module = &majordome.Definition[*Scheduler, Config]{
	Name:    ModuleName,
	Version: "1.0.0",
	Configure: func(ctx context.Context, b *majordome.Builder, opts majordome.InitOptions) (Config, error) {
		if cfg, ok := majordome.OptionConfig[Config](opts); ok {
			return cfg, nil
		}
		return loadConfig(b.Getter(opts, ModuleName)), nil
	},
	Construct: func(ctx context.Context, b *majordome.Builder, cfg Config) (*Scheduler, error) {
		return New(cfg, b.Logger())
	},
}

// Default is the scheduler configured from the SCHEDULER_* keys.
var Default = majordome.Declare(ModuleName, Module)

// New creates a scheduler outside of an application.
func New(cfg Config, logger majordome.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler location %q: %w", cfg.Location, err)
	}

	cl := cronLogger{logger}
	opts := []cron.Option{
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	}
	if cfg.Seconds {
		opts = append(opts, cron.WithSeconds())
	}

	return &Scheduler{
		cron:    cron.New(opts...),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}, nil
}

// Start starts the cron loop. Its task ends once the application closes
// and every running job has returned.
func (s *Scheduler) Start(ctx context.Context, app *majordome.App) ([]*majordome.Task, error) {
	s.mu.Lock()
	s.ctx = ctx
	s.app = app
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", "jobs", len(s.Jobs()))

	return []*majordome.Task{majordome.Go(ctx, "cron", func(ctx context.Context) error {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		s.logger.Info("Scheduler stopped")
		return nil
	})}, nil
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	logger majordome.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
