package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RelayMetrics records delivery outcomes for the outbox relay worker.
type RelayMetrics struct {
	duration  *prometheus.HistogramVec
	delivered *prometheus.CounterVec
	failed    *prometheus.CounterVec
	dlq       *prometheus.CounterVec
}

// NewRelayMetrics registers the relay metrics on the provided registerer.
func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	if reg == nil {
		return &RelayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_delivery_duration_seconds",
		Help:    "Duration of outbox event deliveries in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"event_type"})
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_delivered_total",
		Help: "Outbox events delivered successfully.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Outbox delivery attempts that failed.",
	}, []string{"event_type"})
	dlq := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_dead_lettered_total",
		Help: "Outbox events moved to the dead letter queue.",
	}, []string{"event_type"})
	reg.MustRegister(duration, delivered, failed, dlq)
	return &RelayMetrics{
		duration:  duration,
		delivered: delivered,
		failed:    failed,
		dlq:       dlq,
	}
}

// ObserveDelivery records the time taken to deliver one event.
func (r *RelayMetrics) ObserveDelivery(eventType string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(eventType)).Observe(duration.Seconds())
}

// IncDelivered increments the delivered counter for the event type.
func (r *RelayMetrics) IncDelivered(eventType string) {
	if r == nil || r.delivered == nil {
		return
	}
	r.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncFailed increments the failure counter for the event type.
func (r *RelayMetrics) IncFailed(eventType string) {
	if r == nil || r.failed == nil {
		return
	}
	r.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

// IncDeadLettered increments the DLQ counter for the event type.
func (r *RelayMetrics) IncDeadLettered(eventType string) {
	if r == nil || r.dlq == nil {
		return
	}
	r.dlq.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
