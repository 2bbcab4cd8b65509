package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AllocationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_runs_total",
			Help: "Total number of allocation runs by outcome",
		},
		[]string{"outcome"},
	)

	AllocationPhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "allocation_phase_duration_seconds",
			Help:    "Duration of each allocation pipeline phase in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"phase"},
	)

	CandidatesPlaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_candidates_placed_total",
			Help: "Total number of candidates placed on an internship",
		},
	)

	CandidatesUnallocated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allocation_candidates_unallocated_total",
			Help: "Total number of candidates left without an internship",
		},
	)

	ValidationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allocation_validation_errors_total",
			Help: "Total number of rejected input fields by entity",
		},
		[]string{"entity"},
	)

	ScoredPairs = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allocation_scored_pairs",
			Help:    "Number of candidate-internship pairs scored per run",
			Buckets: prometheus.ExponentialBuckets(1, 10, 8),
		},
	)
)

// Outcome labels for AllocationRuns
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid_config"
	OutcomeCancelled = "cancelled"
)
