// Package metrics exposes scheduler and cache counters to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"StockPulse/internal/cache"
)

const namespace = "stockpulse"

// Metrics is the set of collectors registered on a private registry.
type Metrics struct {
	// Scheduler cycles by outcome
	CyclesTotal *prometheus.CounterVec
	// Cycle wall time
	CycleDuration prometheus.Histogram
	// Unix time of the next scheduled wake
	NextWake prometheus.Gauge
	// Quote cache lookups by result
	CacheLookups *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers all collectors, plus the Go runtime collectors.
func New() *Metrics {
	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycles_total",
			Help:      "Scheduler cycles by outcome",
		}, []string{"outcome"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Scheduler cycle duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		NextWake: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "next_wake_timestamp_seconds",
			Help:      "Unix time of the next scheduled update",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Quote cache lookups by result",
		}, []string{"result"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.NextWake,
		m.CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle implements scheduler.Observer.
func (m *Metrics) ObserveCycle(status string, elapsed time.Duration) {
	m.CyclesTotal.WithLabelValues(status).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
}

// ObserveNextWake implements scheduler.Observer.
func (m *Metrics) ObserveNextWake(t time.Time) {
	m.NextWake.Set(float64(t.Unix()))
}

// ObserveLookup is a cache.WithLookupHook callback.
func (m *Metrics) ObserveLookup(_ string, r cache.Result) {
	m.CacheLookups.WithLabelValues(string(r)).Inc()
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
