package di

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects statistics about the objects built by a Container.
// A nil *Metrics is valid and does nothing.
type Metrics struct {
	builds        *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	singletons    prometheus.Gauge
	closeFailures prometheus.Counter
}

// NewMetrics creates the collectors and registers them in reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "di",
			Name:      "builds_total",
			Help:      "Number of object constructions by scope and result.",
		}, []string{"scope", "result"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "di",
			Name:      "build_duration_seconds",
			Help:      "Duration of object constructions, dependencies included.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"scope"}),
		singletons: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "di",
			Name:      "singletons",
			Help:      "Number of singletons in the cache.",
		}),
		closeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "di",
			Name:      "close_failures_total",
			Help:      "Number of singletons that could not be closed.",
		}),
	}

	for _, c := range []prometheus.Collector{m.builds, m.buildDuration, m.singletons, m.closeFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) observeBuild(scope Scope, err error, d time.Duration) {
	if m == nil {
		return
	}

	result := "success"
	if err != nil {
		result = "failure"
	}

	m.builds.WithLabelValues(string(scope), result).Inc()
	m.buildDuration.WithLabelValues(string(scope)).Observe(d.Seconds())
}

func (m *Metrics) setSingletons(n int) {
	if m != nil {
		m.singletons.Set(float64(n))
	}
}

func (m *Metrics) closeFailed(n int) {
	if m != nil && n > 0 {
		m.closeFailures.Add(float64(n))
	}
}
