package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	require.NotNil(t, r)

	assert.NotNil(t, r.FlashOperationsTotal)
	assert.NotNil(t, r.FlashOperationDuration)
	assert.NotNil(t, r.StoreSamples)
	assert.NotNil(t, r.SeriesFilledBuckets)
	assert.NotNil(t, r.SeriesInvalidRecords)
	assert.NotNil(t, r.GetPrometheusRegistry())
}

func TestDefaultRegistry(t *testing.T) {
	assert.Same(t, DefaultRegistry(), DefaultRegistry())
}

func TestRecordFlashOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordFlashOperation("write", "ok", time.Millisecond)
	r.RecordFlashOperation("write", "ok", time.Millisecond)
	r.RecordFlashOperation("write", "error", time.Millisecond)
	r.RecordFlashOperation("erase", "ok", 40*time.Millisecond)
	r.RecordFlashOperation("erase", "error", 40*time.Millisecond)

	ok, err := r.FlashOperationsTotal.GetMetricWithLabelValues("write", "ok")
	require.NoError(t, err)
	assert.Equal(t, float64(2), counterValue(t, ok))

	failed, err := r.FlashOperationsTotal.GetMetricWithLabelValues("write", "error")
	require.NoError(t, err)
	assert.Equal(t, float64(1), counterValue(t, failed))

	assert.Equal(t, float64(1), counterValue(t, r.FlashErasedSectorsTotal))
}

func TestStoreAndSeriesMetrics(t *testing.T) {
	r := NewRegistry()

	r.SetStoreSamples(1024)
	assert.Equal(t, float64(1024), counterValue(t, r.StoreSamples))

	r.SetStoreSamples(-1)
	assert.Equal(t, float64(0), counterValue(t, r.StoreSamples))

	r.SetSeriesInvalid(2)
	assert.Equal(t, float64(2), counterValue(t, r.SeriesInvalidRecords))
	r.SetSeriesInvalid(0)
	assert.Equal(t, float64(0), counterValue(t, r.SeriesInvalidRecords))

	r.SetSeriesFilled(4)
	assert.Equal(t, float64(4), counterValue(t, r.SeriesFilledBuckets))

	r.RecordCycle("ok")
	stored, err := r.CyclesTotal.GetMetricWithLabelValues("ok")
	require.NoError(t, err)
	assert.Equal(t, float64(1), counterValue(t, stored))
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordHTTPRequest("GET", "/api/store", "200", 5*time.Millisecond)
	r.SetStoreSamples(7)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "aqim_store_samples 7")
	assert.Contains(t, string(body), `aqim_http_requests_total{method="GET",route="/api/store",status="200"} 1`)
}
