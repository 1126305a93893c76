package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	prefetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_prefetch_total",
			Help: "Background prefetch outcomes (started, busy, stored, failed, used, discarded).",
		},
		[]string{"result"},
	)
	sessionsStartedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_sessions_started_total",
			Help: "Sessions started by category.",
		},
		[]string{"category"},
	)
	sessionsCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "decision_sessions_completed_total",
			Help: "Completed sessions whose completion event was published.",
		},
	)
	liveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "decision_live_sessions",
			Help: "Sessions with in-process state (slot, cooldown, prefetch).",
		},
	)
	cooldownWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "decision_cooldown_wait_seconds",
			Help:    "Time spent waiting on the generation cooldown gate.",
			Buckets: []float64{0, .1, .25, .5, 1, 2, 5},
		},
	)
)
