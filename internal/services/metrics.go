package services

import (
	"dealflow/internal/lifecycle"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Task lifecycle metrics
	TaskTransitions *prometheus.CounterVec

	// Profile ingestion metrics
	ProfileIngestions     prometheus.Counter
	ProfileIngestionFails prometheus.Counter
	IngestionLatency      prometheus.Histogram

	// Prompt context metrics
	PromptBuilds    prometheus.Counter
	PromptCacheHits prometheus.Counter

	// Snooze wake sweep metrics
	SnoozeWakes prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics
func InitMetrics() *Metrics {
	metrics := &Metrics{
		// Transitions by action and result (counter - only goes up)
		TaskTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "dealflow_task_transitions_total",
			Help: "Total task lifecycle transitions by action and result",
		}, []string{"action", "result"}), // result: "applied", "rejected", "load_failed", "store_failed"

		ProfileIngestions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_profile_ingestions_total",
			Help: "Total completed tasks folded into seller profiles",
		}),

		ProfileIngestionFails: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_profile_ingestion_failures_total",
			Help: "Total profile ingestions that failed",
		}),

		IngestionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dealflow_profile_ingestion_duration_seconds",
			Help:    "Profile ingestion latency in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		}),

		PromptBuilds: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_prompt_builds_total",
			Help: "Total prompt context documents rendered",
		}),

		PromptCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_prompt_cache_hits_total",
			Help: "Total prompt context requests served from cache",
		}),

		SnoozeWakes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dealflow_snooze_wakes_total",
			Help: "Total snoozed tasks restored by the wake sweep",
		}),
	}

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance (nil when not initialized,
// e.g. in tests)
func GetMetrics() *Metrics {
	return globalMetrics
}

func recordTransition(action lifecycle.TaskAction, result string) {
	if globalMetrics == nil {
		return
	}
	globalMetrics.TaskTransitions.WithLabelValues(string(action), result).Inc()
}
