package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_ai_requests_total",
			Help: "Total number of completion requests by provider, model and outcome.",
		},
		[]string{"provider", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decision_ai_request_duration_seconds",
			Help:    "Histogram of completion request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "decision_ai_prompt_tokens",
			Help:    "Estimated prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 200, 15),
		},
		[]string{"model"},
	)
	generationAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_generation_attempts_total",
			Help: "Generation attempts by generator and outcome.",
		},
		[]string{"generator", "outcome"},
	)
	generationResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "decision_generation_results_total",
			Help: "Final results of generate calls by generator and error kind.",
		},
		[]string{"generator", "result"},
	)
)
