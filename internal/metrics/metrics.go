// Package metrics records scan statistics as Prometheus metrics and writes
// them in the node-exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "leechkit"

// Manager owns the scan metrics on a private registry.
// The zero value is not usable; a nil *Manager records nothing.
type Manager struct {
	namespace      string
	latencyBuckets []float64
	trialBuckets   []float64
	registry       *prometheus.Registry

	cardsChecked    prometheus.Counter
	leechesFound    prometheus.Counter
	classifyErrors  prometheus.Counter
	scans           prometheus.Counter
	lastScanUnix    prometheus.Gauge
	trialsPerCard   prometheus.Histogram
	classifyLatency prometheus.Histogram
}

// NewManager creates a metrics manager. Without WithRegistry it registers on
// a fresh registry so Go runtime collectors stay out of the textfile.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      defaultNamespace,
		latencyBuckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50},
		trialBuckets:   prometheus.ExponentialBuckets(1, 2, 10),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
	}

	auto := promauto.With(m.registry)

	m.cardsChecked = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "cards_checked_total",
		Help:      "Total number of cards classified",
	})
	m.leechesFound = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "leeches_found_total",
		Help:      "Total number of cards classified as leeches",
	})
	m.classifyErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "classification_errors_total",
		Help:      "Total number of cards whose classification failed",
	})
	m.scans = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "scans_total",
		Help:      "Total number of completed scans",
	})
	m.lastScanUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_scan_timestamp_seconds",
		Help:      "Unix time of the last completed scan",
	})
	m.trialsPerCard = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "trials_per_card",
		Help:      "Number of trials evaluated per card",
		Buckets:   m.trialBuckets,
	})
	m.classifyLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "classification_latency_milliseconds",
		Help:      "Time spent classifying a single card in milliseconds",
		Buckets:   m.latencyBuckets,
	})

	return m
}

// RecordCard records one classified card.
func (m *Manager) RecordCard(trials int, leech bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cardsChecked.Inc()
	if leech {
		m.leechesFound.Inc()
	}
	m.trialsPerCard.Observe(float64(trials))
	m.classifyLatency.Observe(float64(elapsed.Microseconds()) / 1000)
}

// RecordError records a card whose classification failed.
func (m *Manager) RecordError() {
	if m == nil {
		return
	}
	m.classifyErrors.Inc()
}

// RecordScan records a completed scan at t.
func (m *Manager) RecordScan(t time.Time) {
	if m == nil {
		return
	}
	m.scans.Inc()
	m.lastScanUnix.Set(float64(t.Unix()))
}

// Registry returns the registry backing m.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes every metric to path in the textfile collector format.
// The file is written to a temporary name and renamed into place.
func (m *Manager) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
