// Package metrics exposes the bot's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "electricity_bot_queries_total",
		Help: "Balance queries by trigger (manual or scheduled).",
	}, []string{"trigger"})

	ReadingsStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "electricity_bot_readings_stored_total",
		Help: "Readings appended to history (deduplicated polls excluded).",
	})

	PredictionsComputed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "electricity_bot_predictions_computed_total",
		Help: "Depletion predictions that produced an exhaustion time.",
	})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "electricity_bot_rate_limited_total",
		Help: "Queries denied by the per-identity rate limiter.",
	})

	UpstreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "electricity_bot_upstream_failures_total",
		Help: "Failed campus API requests.",
	})

	UpstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "electricity_bot_upstream_duration_seconds",
		Help:    "Duration of campus API balance fetches.",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	ScheduledRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "electricity_bot_scheduled_runs_total",
		Help: "Scheduled notification runs by outcome.",
	}, []string{"outcome"})
)
