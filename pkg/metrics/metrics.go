package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PaymentsInitiated tracks accepted STK push initiations
	PaymentsInitiated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_initiated_total",
			Help: "Total number of STK push initiations accepted by the gateway",
		},
	)

	// PaymentCallbacks tracks gateway callbacks by outcome
	PaymentCallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callbacks_total",
			Help: "Total number of gateway callbacks processed, by outcome",
		},
		[]string{"outcome"},
	)

	// PaymentRequests tracks money-ask lifecycle actions
	PaymentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_requests_total",
			Help: "Total number of payment request actions, by action",
		},
		[]string{"action"},
	)

	// WebsocketConnections tracks live websocket connections
	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Number of live websocket connections",
		},
	)
)
