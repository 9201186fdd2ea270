// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "arima_bot"

var (
	Updates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "updates_total",
		Help:      "Inbound updates by kind.",
	}, []string{"kind"})

	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "requests_total",
		Help:      "Completed model requests by kind (chat, image, group).",
	}, []string{"kind"})

	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_rejections_total",
		Help:      "Requests rejected because the daily limit was reached.",
	})

	RequestLogFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "request_log_failures_total",
		Help:      "Request log inserts that failed after a successful reply.",
	})

	LLMErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_errors_total",
		Help:      "Chat and image API failures by kind.",
	}, []string{"kind"})

	BroadcastMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_messages_total",
		Help:      "Broadcast operations per recipient by action and result.",
	}, []string{"action", "result"})

	Panics = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "handler_panics_total",
		Help:      "Panics recovered at the update handler boundary.",
	})
)
