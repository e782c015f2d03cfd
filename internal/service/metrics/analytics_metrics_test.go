package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestUpstream_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	u := NewUpstream(reg)

	u.Observe("/predict", 20*time.Millisecond, nil)
	u.Observe("/predict", 30*time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(u.errors.WithLabelValues("/predict")))
	assert.Equal(t, 1, testutil.CollectAndCount(u.latency))
}

func TestUpstream_NilIsNoop(t *testing.T) {
	var u *Upstream
	assert.NotPanics(t, func() { u.Observe("/predict", time.Second, errors.New("x")) })
}
