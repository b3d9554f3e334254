package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider attempts by outcome: success, transient, quota, cancelled
	ProviderAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "provider",
			Name:      "attempts_total",
			Help:      "Total number of completion attempts against provider models",
		},
		[]string{"provider", "model", "outcome"},
	)

	ProviderAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "careerai",
			Subsystem: "provider",
			Name:      "attempt_duration_seconds",
			Help:      "Completion attempt duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	// Dispatch results: success, quota, exhausted, unconfigured, cancelled
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "dispatch",
			Name:      "total",
			Help:      "Total number of dispatches by result",
		},
		[]string{"result"},
	)

	DiscoveryFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "provider",
			Name:      "discovery_failures_total",
			Help:      "Total number of failed model discovery calls",
		},
		[]string{"provider"},
	)

	// Replies by prompt strategy
	RepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "advisor",
			Name:      "replies_total",
			Help:      "Total number of replies by prompt strategy",
		},
		[]string{"strategy"},
	)

	ReplyTruncatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "advisor",
			Name:      "reply_truncated_total",
			Help:      "Total number of replies shortened to the provider cap",
		},
	)

	RoadmapOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "careerai",
			Subsystem: "roadmap",
			Name:      "operations_total",
			Help:      "Total number of roadmap store operations",
		},
		[]string{"operation", "status"},
	)
)
