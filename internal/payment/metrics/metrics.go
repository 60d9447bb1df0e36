package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the payment service collectors
type Metrics struct {
	RequestCounter  *prometheus.CounterVec
	RequestLatency  *prometheus.HistogramVec
	Transitions     *prometheus.CounterVec
	WebhookEvents   *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec
	GatewayFailures *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_service_requests_total",
				Help: "Total number of requests to payment service",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_service_request_duration_seconds",
				Help:    "Duration of payment service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_ledger_transitions_total",
				Help: "Ledger transitions by target status and outcome (applied, unchanged, error)",
			},
			[]string{"to", "outcome"},
		),
		WebhookEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_webhook_events_total",
				Help: "Webhook deliveries by event type and result",
			},
			[]string{"event", "result"},
		),
		GatewayLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "payment_gateway_request_duration_seconds",
				Help:    "Duration of payment gateway calls in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		GatewayFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "payment_gateway_failures_total",
				Help: "Failed payment gateway calls by operation",
			},
			[]string{"operation"},
		),
	}

	reg.MustRegister(
		m.RequestCounter,
		m.RequestLatency,
		m.Transitions,
		m.WebhookEvents,
		m.GatewayLatency,
		m.GatewayFailures,
	)
	return m
}

// NewNoop returns collectors registered on a throwaway registry
func NewNoop() *Metrics {
	return New(prometheus.NewRegistry())
}
