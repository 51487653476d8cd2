package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsScheduled = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jobs_scheduled_total", Help: "Jobs accepted by the scheduler"},
		[]string{"kind"},
	)
	JobsSucceeded = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jobs_succeeded_total", Help: "Jobs that completed successfully"},
		[]string{"kind"},
	)
	JobsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "jobs_failed_total", Help: "Jobs that ended in failure"},
		[]string{"kind"},
	)
	JobsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "jobs_cancelled_total", Help: "Jobs cancelled before completion"},
	)
	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_hits_total", Help: "Result cache hits"},
		[]string{"category"},
	)
	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "cache_misses_total", Help: "Result cache misses"},
		[]string{"category"},
	)
	InferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "inference_call_duration_seconds",
		Help:    "Latency of external inference calls",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	})
	InferenceRetries = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "inference_retries_total", Help: "Inference call retry attempts"},
	)
	ActiveConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "realtime_active_connections", Help: "Live realtime connections"},
	)
)

// Handler exposes /metrics with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsScheduled,
			JobsSucceeded,
			JobsFailed,
			JobsCancelled,
			CacheHits,
			CacheMisses,
			InferenceDuration,
			InferenceRetries,
			ActiveConnections,
		)
	})
	return promhttp.Handler()
}
