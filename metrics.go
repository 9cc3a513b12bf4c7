package majordome

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the runtime's Prometheus instruments. A nil *Metrics is a
// valid no-op.
type Metrics struct {
	modulesConstructed prometheus.Counter
	pointersBound      prometheus.Counter
	dedupHits          prometheus.Counter
	tasksTracked       prometheus.Gauge
	taskDuration       *prometheus.HistogramVec
}

// NewMetrics creates the runtime instruments and registers them with reg.
// Instruments already registered by an earlier application are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		modulesConstructed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "majordome",
			Name:      "modules_constructed_total",
			Help:      "Target module instances constructed.",
		}),
		pointersBound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "majordome",
			Name:      "pointers_bound_total",
			Help:      "Pointer symbols bound to a module instance.",
		}),
		dedupHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "majordome",
			Name:      "dedup_hits_total",
			Help:      "Pointer loads served by an existing instance with the same config.",
		}),
		tasksTracked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "majordome",
			Name:      "tasks_tracked",
			Help:      "Background tasks currently tracked by the application.",
		}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "majordome",
			Name:      "task_duration_seconds",
			Help:      "Lifetime of tracked tasks, observed when shutdown collects them.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"module", "outcome"}),
	}

	var err error
	m.modulesConstructed = register(reg, m.modulesConstructed, &err)
	m.pointersBound = register(reg, m.pointersBound, &err)
	m.dedupHits = register(reg, m.dedupHits, &err)
	m.tasksTracked = register(reg, m.tasksTracked, &err)
	m.taskDuration = register(reg, m.taskDuration, &err)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}
	return c
}

func (m *Metrics) moduleConstructed() {
	if m != nil {
		m.modulesConstructed.Inc()
	}
}

func (m *Metrics) pointerBound() {
	if m != nil {
		m.pointersBound.Inc()
	}
}

func (m *Metrics) dedupHit() {
	if m != nil {
		m.dedupHits.Inc()
	}
}

func (m *Metrics) taskTracked() {
	if m != nil {
		m.tasksTracked.Inc()
	}
}

func (m *Metrics) taskCollected(module string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.tasksTracked.Dec()
	m.taskDuration.WithLabelValues(module, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) taskDetached() {
	if m != nil {
		m.tasksTracked.Dec()
	}
}
