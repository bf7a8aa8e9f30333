package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts field events and validation outcomes.
type Metrics struct {
	events      *prometheus.CounterVec
	validations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	mounts      prometheus.Counter
	unmounts    prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics registers the collectors on a private registry.
func NewMetrics(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Field events handled, by field kind and event type",
			},
			[]string{"kind", "event"},
		),
		validations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_status_total",
				Help:      "Field status after each event, by field kind",
			},
			[]string{"kind", "status"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_errors_total",
				Help:      "Events rejected before reaching a field",
			},
			[]string{"reason"},
		),
		mounts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_mounts_total",
				Help:      "Form instances created for a session",
			},
		),
		unmounts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "form_unmounts_total",
				Help:      "Stored form instances removed by Unmount; TTL expiry is not counted",
			},
		),
	}
	registry.MustRegister(m.events, m.validations, m.failures, m.mounts, m.unmounts)
	return m
}

// ObserveEvent records one handled event and the resulting status.
func (m *Metrics) ObserveEvent(kind, event, status string) {
	m.events.WithLabelValues(kind, event).Inc()
	m.validations.WithLabelValues(kind, status).Inc()
}

// ObserveFailure records a rejected event.
func (m *Metrics) ObserveFailure(reason string) {
	m.failures.WithLabelValues(reason).Inc()
}

// ObserveMount records a newly created form instance.
func (m *Metrics) ObserveMount() {
	m.mounts.Inc()
}

// ObserveUnmount records a stored form instance being removed.
func (m *Metrics) ObserveUnmount() {
	m.unmounts.Inc()
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collected metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
