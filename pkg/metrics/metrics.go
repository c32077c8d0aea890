package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_webhook_deliveries_total",
			Help: "Webhook deliveries by final outcome",
		},
		[]string{"outcome"},
	)

	ProviderLookupDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pix_provider_lookup_duration_seconds",
			Help:    "Duration of authoritative payment lookups",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10},
		},
		[]string{"status"},
	)

	LedgerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_ledger_confirm_total",
			Help: "Ledger confirm attempts by outcome",
		},
		[]string{"outcome", "source"},
	)

	NotificationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_notification_attempts_total",
			Help: "Notification send attempts per target",
		},
		[]string{"target", "result"},
	)

	NotificationDispatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_notification_dispatches_total",
			Help: "Notification fan-outs by overall result",
		},
		[]string{"delivered"},
	)

	RateLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pix_rate_limited_requests_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"scope"},
	)
)
