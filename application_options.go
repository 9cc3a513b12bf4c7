package majordome

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/majordome-go/majordome/config"
	"github.com/majordome-go/majordome/feeders"
)

// Option configures a Builder.
type Option func(*options)

type options struct {
	logger     Logger
	source     *config.Source
	feeders    []feeders.Feeder
	observers  []Observer
	registerer prometheus.Registerer
	noProbe    bool
}

// WithLogger sets the logger used by the builder, the application and the
// configuration source.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithConfig uses an already resolved configuration source.
func WithConfig(src *config.Source) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithFeeders resolves the configuration from feeders. Earlier feeders win.
// Ignored when WithConfig is given.
func WithFeeders(fs ...feeders.Feeder) Option {
	return func(o *options) {
		o.feeders = append(o.feeders, fs...)
	}
}

// WithObserver registers observers for runtime events.
func WithObserver(obs ...Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs...)
	}
}

// WithMetrics registers the runtime metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithoutSignalProbe disables the SIGINT/SIGTERM listener. The application
// then only starts exiting through App.Exit.
func WithoutSignalProbe() Option {
	return func(o *options) {
		o.noProbe = true
	}
}
