package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botxrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	// Inbound pipeline
	AuthRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_auth_rejections_total",
			Help: "Inbound requests rejected by the JWT gate",
		},
		[]string{"reason"},
	)

	CommandsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_commands_classified_total",
			Help: "Inbound commands by classified action",
		},
		[]string{"action"}, // start, callback, message, chat_created, ignored, invalid
	)

	NotificationCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_notification_callbacks_total",
			Help: "Delivery callbacks received from the platform",
		},
		[]string{"status"},
	)

	// Outbound
	TokenFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_token_fetches_total",
			Help: "Bot token exchanges against the platform",
		},
		[]string{"result"},
	)

	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_messages_sent_total",
			Help: "Messages pushed to the platform",
		},
		[]string{"kind", "result"}, // kind: text, buttons
	)

	RelayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "botxrelay_relay_requests_total",
			Help: "Events forwarded to the authorization backend",
		},
		[]string{"event", "result"},
	)

	RelayLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "botxrelay_relay_latency_seconds",
			Help:    "Authorization backend request latency",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"event"},
	)
)
