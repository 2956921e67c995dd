package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegisterer(reg)

	r.RecordFetch("yahoo", 210, 0.4)
	r.RecordFit(3, 200, false, 0.05)
	r.RecordFit(3, 12, true, 0.01)
	r.RecordCache("bars", true)
	r.RecordCache("bars", false)
	r.RecordCache("bars", false)
	r.RecordError("UpstreamError")

	assert.Equal(t, 1.0, testutil.ToFloat64(r.nonConvergence))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("bars", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.cacheTotal.WithLabelValues("bars", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("UpstreamError")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.fitLatency))
}

func TestRecorderTwoRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
