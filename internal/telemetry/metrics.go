package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics mirrors the emitter's emitted/dropped/errors/queue_depth
// counters as Prometheus gauges/counters, registered against the
// service's own registry alongside the plain-JSON /health body.
type Metrics struct {
	Emitted    prometheus.Counter
	Dropped    prometheus.Counter
	Errors     prometheus.Counter
	QueueDepth prometheus.Gauge
}

// NewMetrics builds and registers the telemetry metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Emitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moniker_resolver",
			Subsystem: "telemetry",
			Name:      "emitted_total",
			Help:      "Usage events accepted onto the telemetry queue.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moniker_resolver",
			Subsystem: "telemetry",
			Name:      "dropped_total",
			Help:      "Usage events dropped because the telemetry queue was full.",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "moniker_resolver",
			Subsystem: "telemetry",
			Name:      "errors_total",
			Help:      "Errors encountered delivering a telemetry batch to the sink.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "moniker_resolver",
			Subsystem: "telemetry",
			Name:      "queue_depth",
			Help:      "Current depth of the telemetry event queue.",
		}),
	}
	reg.MustRegister(m.Emitted, m.Dropped, m.Errors, m.QueueDepth)
	return m
}

// Sync copies an emitter's counter snapshot onto the Prometheus metrics.
// Counters only move forward, so Sync tracks the delta against the last
// observed snapshot.
type syncedStats struct {
	lastEmitted uint64
	lastDropped uint64
	lastErrors  uint64
}

func (s *syncedStats) Sync(m *Metrics, stats Stats) {
	if d := stats.Emitted - s.lastEmitted; d > 0 {
		m.Emitted.Add(float64(d))
		s.lastEmitted = stats.Emitted
	}
	if d := stats.Dropped - s.lastDropped; d > 0 {
		m.Dropped.Add(float64(d))
		s.lastDropped = stats.Dropped
	}
	if d := stats.Errors - s.lastErrors; d > 0 {
		m.Errors.Add(float64(d))
		s.lastErrors = stats.Errors
	}
	m.QueueDepth.Set(float64(stats.QueueDepth))
}

// NewStatsSyncer returns a fresh delta-tracker for Sync.
func NewStatsSyncer() *syncedStats {
	return &syncedStats{}
}
