// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RPCDuration observes handler latency per procedure and result code.
	RPCDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tripmatch_rpc_duration_seconds",
		Help:    "Duration of MatchService RPCs.",
		Buckets: prometheus.DefBuckets,
	}, []string{"procedure", "code"})

	CandidatesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripmatch_candidates_generated_total",
		Help: "Candidates persisted by recommendation generation.",
	})

	PricingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripmatch_pricing_failures_total",
		Help: "Pricing lookups that failed or timed out.",
	})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripmatch_status_transitions_total",
		Help: "Group status changes.",
	}, []string{"from", "to"})

	TripsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripmatch_trips_finalized_total",
		Help: "Trips created by finalize.",
	})
)
