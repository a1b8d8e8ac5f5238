// Package metrics wires the Prometheus client into the handful of
// counters and gauges this service's operators actually look at:
// terminal payment outcomes, monitoring-worker poll health, webhook
// verdicts, and live stream fan-out.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PaymentsTerminal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightning_gateway_payments_terminal_total",
		Help: "Payments that reached a terminal status, by status.",
	}, []string{"status"})

	MonitorPolls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightning_gateway_monitor_polls_total",
		Help: "Monitoring worker provider polls, by outcome.",
	}, []string{"outcome"})

	WebhookVerdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lightning_gateway_webhook_verdicts_total",
		Help: "Inbound provider webhooks, by verdict.",
	}, []string{"verdict"})

	StreamSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lightning_gateway_stream_subscribers",
		Help: "Currently connected event-stream subscribers.",
	})
)
