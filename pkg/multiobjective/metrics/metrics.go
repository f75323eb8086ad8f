// Package metrics holds the prometheus collectors exported by the optimizer.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "shading_optimizer"

var (
	// Iterations counts completed generational replacement steps.
	Iterations = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "iterations_total",
		Help:      "Number of completed NSGA-II generational replacement steps.",
	})

	// Evaluations counts individuals evaluated by the dispatcher, by mode.
	Evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "evaluations_total",
		Help:      "Number of individuals evaluated, partitioned by evaluation mode.",
	}, []string{"mode"})

	// EvaluationErrors counts failed evaluation shards, by mode.
	EvaluationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "evaluation_errors_total",
		Help:      "Number of evaluation shards that failed, partitioned by evaluation mode.",
	}, []string{"mode"})

	// BatchDuration observes how long one population evaluation barrier took.
	BatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Subsystem: subsystem,
		Name:      "evaluation_batch_duration_seconds",
		Help:      "Latency of evaluating a whole population.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	}, []string{"mode"})

	// SurrogateRefreshes counts surrogate refresh signals.
	SurrogateRefreshes = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: subsystem,
		Name:      "surrogate_refreshes_total",
		Help:      "Number of surrogate model refreshes triggered by the engine.",
	})

	// FrontSize is the size of the first front of the last combined pool.
	FrontSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "pareto_front_size",
		Help:      "Size of the first non-dominated front of the latest combined population.",
	})

	// Hypervolume reports the hypervolume of the first and last generation.
	Hypervolume = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Subsystem: subsystem,
		Name:      "hypervolume",
		Help:      "Hypervolume of the population, by generation (first or last).",
	}, []string{"generation"})
)

var registerOnce sync.Once

// Register adds all collectors to r. Only the first call has an effect.
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(
			Iterations,
			Evaluations,
			EvaluationErrors,
			BatchDuration,
			SurrogateRefreshes,
			FrontSize,
			Hypervolume,
		)
	})
}

// SinceInSeconds gets the time since the specified start in seconds.
func SinceInSeconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
