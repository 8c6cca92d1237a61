// Package metrics defines the Prometheus collectors of the feed service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the collectors
type Metrics struct {
	feedRequests *prometheus.CounterVec
	feedDuration *prometheus.HistogramVec
	degradations *prometheus.CounterVec
	interactions *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		feedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "feed_requests_total",
			Help:      "Feed requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		feedDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "socialfeed",
			Name:      "feed_build_seconds",
			Help:      "Time to assemble a feed.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "feed_degradations_total",
			Help:      "Pipeline steps that degraded instead of failing.",
		}, []string{"kind"}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialfeed",
			Name:      "interactions_recorded_total",
			Help:      "Interactions appended to the log by kind.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.feedRequests, m.feedDuration, m.degradations, m.interactions)
	return m
}

// ObserveFeed records one feed request
func (m *Metrics) ObserveFeed(mode, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.feedRequests.WithLabelValues(mode, outcome).Inc()
	m.feedDuration.WithLabelValues(mode).Observe(took.Seconds())
}

// Degraded counts a degraded pipeline step
func (m *Metrics) Degraded(kind string) {
	if m == nil {
		return
	}
	m.degradations.WithLabelValues(kind).Inc()
}

// InteractionRecorded counts an appended interaction
func (m *Metrics) InteractionRecorded(kind string) {
	if m == nil {
		return
	}
	m.interactions.WithLabelValues(kind).Inc()
}
