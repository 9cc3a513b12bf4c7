package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/majordome-go/majordome"
)

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

// Scheduler runs named jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	logger majordome.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	ctx     context.Context
	app     *majordome.App
}

// AddFunc registers fn under name to run on spec. Runs are skipped once the
// application is exiting.
func (s *Scheduler) AddFunc(spec, name string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	id, err := s.cron.AddFunc(spec, func() { s.run(name, fn) })
	if err != nil {
		return fmt.Errorf("%w '%s': %w", ErrInvalidSchedule, spec, err)
	}
	s.entries[name] = id
	s.logger.Debug("Registered job", "name", name, "schedule", spec)
	return nil
}

// Remove unregisters a job. A run in progress is not interrupted.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.entries[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	s.cron.Remove(id)
	delete(s.entries, name)
	return nil
}

// Jobs returns the registered job names, sorted.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Next returns the next scheduled run of a job. Before the scheduler starts
// it is computed from the schedule.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}

	entry := s.cron.Entry(id)
	if entry.Next.IsZero() && entry.Schedule != nil {
		return entry.Schedule.Next(time.Now().In(s.cron.Location())), true
	}
	return entry.Next, true
}

func (s *Scheduler) run(name string, fn JobFunc) {
	s.mu.Lock()
	ctx, app := s.ctx, s.app
	s.mu.Unlock()

	if app != nil && app.IsExiting() {
		s.logger.Debug("Skipping job, application exiting", "name", name)
		return
	}

	start := time.Now()
	if err := fn(ctx); err != nil {
		s.logger.Error("Job failed", "name", name, "elapsed", time.Since(start), "error", err)
		return
	}
	s.logger.Debug("Job completed", "name", name, "elapsed", time.Since(start))
}
