package majordome

import (
	"log/slog"
	"os"
)

// Logger defines the interface for runtime logging.
// It uses structured logging with key-value pairs:
//
//	logger.Info("Loaded target module", "module", "cache=1.0.0", "chain", "api -> cache")
//
// *slog.Logger satisfies it, as do thin adapters over logrus, zap and others.
type Logger interface {
	// Info logs normal lifecycle events such as module construction and task completion.
	Info(msg string, args ...any)

	// Error logs failures that are reported but do not abort the runtime, like a failing stop hook.
	Error(msg string, args ...any)

	// Warn logs unusual conditions, for example unparseable configuration values.
	Warn(msg string, args ...any)

	// Debug logs load chain steps and cache hits.
	Debug(msg string, args ...any)
}

func defaultLogger() Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))
}
