// Package metrics holds the domain counters exported next to the HTTP metrics on
// /metrics. Collectors register with the default Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesAppended counts stored chat turns by sender
	MessagesAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botdesk",
		Name:      "messages_appended_total",
		Help:      "Chat messages appended, by sender.",
	}, []string{"sender"})

	// Activations counts key redemptions by result
	Activations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botdesk",
		Name:      "activations_total",
		Help:      "Activation key redemptions, by result.",
	}, []string{"result"})

	// Completions counts completion API calls by outcome
	Completions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botdesk",
		Name:      "completions_total",
		Help:      "Completion API calls, by outcome.",
	}, []string{"outcome"})

	// KeysIssued counts generated activation keys
	KeysIssued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botdesk",
		Name:      "keys_issued_total",
		Help:      "Activation keys issued.",
	})
)

// ObserveActivation records a redemption outcome
func ObserveActivation(granted bool, err error) {
	switch {
	case err != nil:
		Activations.WithLabelValues("rejected").Inc()
	case granted:
		Activations.WithLabelValues("granted").Inc()
	default:
		Activations.WithLabelValues("already_activated").Inc()
	}
}
