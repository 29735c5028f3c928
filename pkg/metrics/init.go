package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initFlashMetrics() {
	r.FlashOperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqim_flash_operations_total",
			Help: "Total number of flash device operations",
		},
		[]string{"op", "status"}, // erase, write, read / ok, error
	)

	r.FlashOperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aqim_flash_operation_duration_seconds",
			Help:    "Duration of flash device operations in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.05, 0.1, 0.5},
		},
		[]string{"op"},
	)

	r.FlashErasedSectorsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "aqim_flash_erased_sectors_total",
			Help: "Total number of successfully erased flash sectors",
		},
	)
}

func (r *Registry) initStoreMetrics() {
	r.StoreSamples = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aqim_store_samples",
			Help: "Number of samples held by the ring store",
		},
	)

	r.SeriesInvalidRecords = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aqim_series_invalid_records",
			Help: "Number of records failing their checksum seen by the last resampled series",
		},
	)

	r.SeriesFilledBuckets = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "aqim_series_filled_buckets",
			Help: "Number of non-empty buckets of the last resampled series",
		},
	)

	r.CyclesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqim_cycles_total",
			Help: "Total number of wake cycles",
		},
		[]string{"result"}, // ok, no_data, poll_error, store_error
	)
}

func (r *Registry) initHTTPMetrics() {
	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "aqim_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "aqim_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
}
