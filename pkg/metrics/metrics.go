package metrics

import (
	"time"
)

// RecordFlashOperation records a flash device operation
func (r *Registry) RecordFlashOperation(op, status string, duration time.Duration) {
	r.FlashOperationsTotal.WithLabelValues(op, status).Inc()
	r.FlashOperationDuration.WithLabelValues(op).Observe(duration.Seconds())
	if op == "erase" && status == "ok" {
		r.FlashErasedSectorsTotal.Inc()
	}
}

// SetStoreSamples sets the number of samples in the store
func (r *Registry) SetStoreSamples(n int) {
	r.StoreSamples.Set(float64(max(n, 0)))
}

// SetSeriesInvalid sets the number of records failing their checksum seen by
// the last series
func (r *Registry) SetSeriesInvalid(n int) {
	r.SeriesInvalidRecords.Set(float64(max(n, 0)))
}

// SetSeriesFilled sets the number of filled buckets of the last series
func (r *Registry) SetSeriesFilled(n int) {
	r.SeriesFilledBuckets.Set(float64(n))
}

// RecordCycle records the outcome of a wake cycle
func (r *Registry) RecordCycle(result string) {
	r.CyclesTotal.WithLabelValues(result).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, route, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
