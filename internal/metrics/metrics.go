// Package metrics exposes the relay's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_events_processed_total",
		Help: "Inbound transport events handled by the relay.",
	})

	MessagesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_messages_forwarded_total",
		Help: "End-user messages forwarded to the operator.",
	})

	RepliesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_replies_sent_total",
		Help: "Operator replies delivered to end-users.",
	})

	BlockedDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_blocked_drops_total",
		Help: "Inbound events silently dropped because the sender is blocked.",
	})

	TransportErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_transport_errors_total",
		Help: "Failed sends or fetches against the messaging transport.",
	})

	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_poll_cycles_total",
		Help: "Completed long-poll cycles, including empty ones.",
	})
)
