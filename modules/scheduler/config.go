package scheduler

import (
	"github.com/majordome-go/majordome/config"
)

// Config defines the configuration of one scheduler.
//
// Example environment variables:
//
//	SCHEDULER_LOCATION=Europe/Paris
//	SCHEDULER_SECONDS=true
type Config struct {
	// Location is the time zone schedules are evaluated in. Default: "Local".
	Location string

	// Seconds enables the optional leading seconds field in schedules.
	Seconds bool
}

func loadConfig(g *config.Getter) Config {
	return Config{
		Location: config.GetOr(g, "location", "Local"),
		Seconds:  config.GetOr(g, "seconds", false),
	}
}
