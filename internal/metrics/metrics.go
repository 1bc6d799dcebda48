package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsCreated counts accepted send-email requests.
	RequestsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mailgate_requests_created_total",
			Help: "Total number of email requests created",
		},
	)

	// CallbacksProcessed counts approval callbacks by action and result.
	CallbacksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailgate_callbacks_processed_total",
			Help: "Total number of approval callbacks processed",
		},
		[]string{"action", "result"}, // result: sent, failed, declined, duplicate, not_found, not_connected
	)

	// SendDuration measures Gmail send latency.
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailgate_send_duration_seconds",
			Help:    "Gmail send duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"status"}, // status: sent, failed
	)

	// HTTPRequestDuration measures API handler latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailgate_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)
)
