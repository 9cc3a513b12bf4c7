package scheduler

import (
	"errors"
)

// Error definitions
var (
	// ErrDuplicateJob is returned when a job name is already registered.
	ErrDuplicateJob = errors.New("job already registered")

	// ErrInvalidSchedule is returned when a schedule cannot be parsed.
	ErrInvalidSchedule = errors.New("invalid cron expression")

	// ErrJobNotFound is returned by Remove for unknown job names.
	ErrJobNotFound = errors.New("job not found")
)
