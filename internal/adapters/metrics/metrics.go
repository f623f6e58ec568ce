// Package metrics exposes directory counters in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered for one server.
type Metrics struct {
	registry      *prometheus.Registry
	sourceCalls   *prometheus.CounterVec
	sourceLatency *prometheus.HistogramVec
	writeBacks    *prometheus.CounterVec
	photoFetches  *prometheus.CounterVec
	records       prometheus.Gauge
}

// New registers the directory collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sourceCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "source_calls_total",
			Help:      "Roster source calls by operation and outcome.",
		}, []string{"op", "result"}),
		sourceLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "directory",
			Name:      "source_call_seconds",
			Help:      "Roster source call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"op"}),
		writeBacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "write_backs_total",
			Help:      "Staff record writes by kind and outcome.",
		}, []string{"kind", "result"}),
		photoFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "directory",
			Name:      "photo_fetches_total",
			Help:      "Photo requests by outcome.",
		}, []string{"result"}),
		records: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "directory",
			Name:      "roster_records",
			Help:      "Records in the current roster snapshot.",
		}),
	}
	m.registry.MustRegister(
		m.sourceCalls, m.sourceLatency, m.writeBacks, m.photoFetches, m.records,
		collectors.NewGoCollector(),
	)
	return m
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSourceCall records one roster source call.
func (m *Metrics) ObserveSourceCall(op string, d time.Duration, err error) {
	m.sourceCalls.WithLabelValues(op, result(err)).Inc()
	m.sourceLatency.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveWriteBack records an update or create attempt.
func (m *Metrics) ObserveWriteBack(kind string, err error) {
	m.writeBacks.WithLabelValues(kind, result(err)).Inc()
}

// ObservePhoto records a photo request outcome such as "ok", "none", "error" or "superseded".
func (m *Metrics) ObservePhoto(outcome string) {
	m.photoFetches.WithLabelValues(outcome).Inc()
}

// SetRecords reports the size of the current snapshot.
func (m *Metrics) SetRecords(n int) {
	m.records.Set(float64(n))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
