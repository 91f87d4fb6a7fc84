package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registration engine's collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Seat operations by operation (assign, unassign) and outcome
	SeatOperations *prometheus.CounterVec

	// Conditional write retries caused by a concurrent writer
	WriteRetries *prometheus.CounterVec

	// Mail enqueue results by template and result (queued, failed)
	Notifications *prometheus.CounterVec

	// Time spent enqueueing one mail message
	EnqueueLatency prometheus.Histogram
}

// New creates a Metrics instance registered on a fresh registry that also
// carries the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the collectors on reg
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		SeatOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "munreg_seat_operations_total",
			Help: "Seat allocator operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		WriteRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "munreg_conditional_write_retries_total",
			Help: "Conditional registration writes retried after a concurrent change",
		}, []string{"operation"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "munreg_notifications_total",
			Help: "Mail enqueue attempts by template and result",
		}, []string{"template", "result"}),

		EnqueueLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "munreg_mail_enqueue_duration_seconds",
			Help:    "Duration of a single mail enqueue",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveSeatOperation records the outcome of an assign or unassign call
func (m *Metrics) ObserveSeatOperation(operation, outcome string) {
	if m != nil {
		m.SeatOperations.WithLabelValues(operation, outcome).Inc()
	}
}

// IncWriteRetry records one retried conditional write
func (m *Metrics) IncWriteRetry(operation string) {
	if m != nil {
		m.WriteRetries.WithLabelValues(operation).Inc()
	}
}

// ObserveNotification records one enqueue attempt
func (m *Metrics) ObserveNotification(template, result string, d time.Duration) {
	if m != nil {
		m.Notifications.WithLabelValues(template, result).Inc()
		m.EnqueueLatency.Observe(d.Seconds())
	}
}
