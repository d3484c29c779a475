package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_turns_total",
			Help: "Total number of conversation turns answered",
		},
		[]string{"tag", "source"},
	)

	FallbackTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_fallback_total",
			Help: "Turns answered with the fallback reply because the predicted tag had no corpus record",
		},
	)

	VoiceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_voice_failures_total",
			Help: "Voice inputs that produced no transcript",
		},
		[]string{"reason"},
	)

	LogErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_log_errors_total",
			Help: "Conversation turns that could not be written to the conversation log",
		},
	)

	ClassifyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chatbot_classify_duration_seconds",
			Help:    "Time spent classifying one input",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	TrainingIterations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatbot_training_iterations",
			Help: "Optimiser iterations used by the last training run",
		},
	)
)
