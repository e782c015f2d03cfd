package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	executions *prometheus.CounterVec
	retries    *prometheus.CounterVec
	cacheHits  *prometheus.CounterVec
	cacheMiss  *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	preloaded  prometheus.Gauge
	preloadAll prometheus.Gauge
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		executions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findash_task_executions_total",
				Help: "Total number of runner executions by outcome",
			},
			[]string{"runner", "outcome"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findash_task_retries_total",
				Help: "Total number of retry attempts",
			},
			[]string{"runner"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findash_cache_hits_total",
				Help: "Runner cache hits",
			},
			[]string{"runner"},
		),
		cacheMiss: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "findash_cache_misses_total",
				Help: "Runner cache misses",
			},
			[]string{"runner"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "findash_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		preloaded: f.NewGauge(prometheus.GaugeOpts{
			Name: "findash_preload_loaded",
			Help: "Loaders settled successfully in the last preload pass",
		}),
		preloadAll: f.NewGauge(prometheus.GaugeOpts{
			Name: "findash_preload_total",
			Help: "Loaders in the last preload pass",
		}),
	}
}

// RecordExecution records a finished execution ("success", "error", "cache_hit", "stale").
func (r *Recorder) RecordExecution(runner, outcome string) {
	r.executions.WithLabelValues(runner, outcome).Inc()
}

// RecordRetry records a retry attempt.
func (r *Recorder) RecordRetry(runner string) {
	r.retries.WithLabelValues(runner).Inc()
}

func (r *Recorder) RecordCacheHit(runner string) {
	r.cacheHits.WithLabelValues(runner).Inc()
}

func (r *Recorder) RecordCacheMiss(runner string) {
	r.cacheMiss.WithLabelValues(runner).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordPreloadProgress records the final counts of a preload pass.
func (r *Recorder) RecordPreloadProgress(loaded, total int) {
	r.preloaded.Set(float64(loaded))
	r.preloadAll.Set(float64(total))
}
