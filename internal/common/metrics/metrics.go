// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	MatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_requests_total",
			Help: "Number of ranking passes by variant",
		},
		[]string{"variant"},
	)

	CandidatesScored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_candidates_scored_total",
			Help: "Number of candidate listings scored",
		},
	)

	MatchScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_score",
			Help:    "Distribution of final compatibility scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	RankingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matching_ranking_duration_seconds",
			Help:    "Duration of one ranking pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
	)

	MatchesStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matching_matches_stored_total",
			Help: "Number of matches written to the match store",
		},
	)

	OptimizerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matching_optimizer_runs_total",
			Help: "Weight optimizer passes by outcome",
		},
		[]string{"outcome"},
	)

	FactorWeight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "matching_factor_weight",
			Help: "Current normalized weight per scoring factor",
		},
		[]string{"factor"},
	)
)
