// Package metrics holds the worker's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ordersync"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	events        *prometheus.CounterVec
	eventDuration *prometheus.HistogramVec
	items         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Queued webhook events handled by the worker.",
		}, []string{"type", "result"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time spent handling one queued event.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_items_total",
			Help:      "Per-ticket operations performed for orders and assignments.",
		}, []string{"op", "result"}),
	}
	m.registry.MustRegister(
		m.events, m.eventDuration, m.items,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvent records one handled event; result is ok, failed or dropped.
func (m *Metrics) ObserveEvent(typ, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(typ, result).Inc()
	m.eventDuration.WithLabelValues(typ).Observe(d.Seconds())
}

// ObserveItems counts per-ticket results of one operation.
func (m *Metrics) ObserveItems(op string, ok, failed int) {
	if m == nil {
		return
	}
	if ok > 0 {
		m.items.WithLabelValues(op, "ok").Add(float64(ok))
	}
	if failed > 0 {
		m.items.WithLabelValues(op, "failed").Add(float64(failed))
	}
}
