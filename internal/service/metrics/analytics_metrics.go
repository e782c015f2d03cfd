package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Upstream tracks latency and failures of calls to the model service.
// A nil *Upstream records nothing.
type Upstream struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

// NewUpstream registers the upstream collectors on reg.
func NewUpstream(reg prometheus.Registerer) *Upstream {
	f := promauto.With(reg)
	return &Upstream{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "findash",
				Subsystem: "analytics",
				Name:      "latency_seconds",
				Help:      "Latency of analytics endpoints",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "findash",
				Subsystem: "analytics",
				Name:      "errors_total",
				Help:      "Errors by analytics endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records one call to endpoint.
func (u *Upstream) Observe(endpoint string, took time.Duration, err error) {
	if u == nil {
		return
	}
	u.latency.WithLabelValues(endpoint).Observe(took.Seconds())
	if err != nil {
		u.errors.WithLabelValues(endpoint).Inc()
	}
}
