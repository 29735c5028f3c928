// Package monitor runs the wake cycle of the air quality monitor: poll the
// sensors, reduce their readings into one sample, append it to the flash log
// and rebuild the chart series.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/itohio/goaqim/pkg/config"
	"github.com/itohio/goaqim/pkg/metrics"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/sensor"
	"github.com/itohio/goaqim/pkg/series"
)

// Cycle results recorded in metrics.
const (
	ResultOK         = "ok"
	ResultNoData     = "no_data"
	ResultPollError  = "poll_error"
	ResultStoreError = "store_error"
)

// MaxSeriesLength bounds the number of buckets of a requested series, one
// week at one minute per bucket.
const MaxSeriesLength = 7 * 24 * 60

// Option configures a Monitor.
type Option func(*Monitor)

// WithLogger sets the monitor logger.
func WithLogger(log *slog.Logger) Option {
	return func(m *Monitor) {
		m.log = log
	}
}

// WithClock replaces the wall clock anchoring the series.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) {
		m.now = now
	}
}

// Monitor owns the sample store of one device.
type Monitor struct {
	cfg     *config.Config
	src     sensor.Source
	store   *ring.Store[sample.Record]
	metrics *metrics.Registry
	log     *slog.Logger
	now     func() time.Time

	// Serializes cycles against readers so that a Fill never observes a
	// half-recycled sector.
	mu sync.RWMutex
}

// Result is the outcome of one cycle.
type Result struct {
	Sample   sample.Sample
	Readings int
	Series   *series.Series
	Filled   int
}

// New creates a monitor. The store must already be scanned with Begin. A nil
// registry uses metrics.DefaultRegistry.
func New(cfg *config.Config, src sensor.Source, store *ring.Store[sample.Record], reg *metrics.Registry, opts ...Option) *Monitor {
	if cfg == nil {
		cfg = config.Default()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	m := &Monitor{
		cfg:     cfg,
		src:     src,
		store:   store,
		metrics: reg,
		log:     slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Cycle polls the sensors for at most the configured poll timeout, stores the
// reduced sample and refreshes the series.
func (m *Monitor) Cycle(ctx context.Context) (Result, error) {
	readings, err := m.poll(ctx)
	if err != nil {
		m.metrics.RecordCycle(ResultPollError)
		return Result{}, fmt.Errorf("failed to poll sensors: %w", err)
	}

	s, err := sample.Reduce(readings, m.reduceOptions())
	if err != nil {
		m.metrics.RecordCycle(ResultNoData)
		return Result{Readings: len(readings)}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.StoreSample(sample.Encode(s)); err != nil {
		m.metrics.RecordCycle(ResultStoreError)
		m.metrics.SetStoreSamples(m.store.Count())
		return Result{Sample: s, Readings: len(readings)}, fmt.Errorf("failed to store sample: %w", err)
	}
	m.metrics.SetStoreSamples(m.store.Count())

	chart, filled := m.fill(m.cfg.Series.Length, m.cfg.Series.Period)
	m.metrics.RecordCycle(ResultOK)

	m.log.Info("cycle complete",
		"readings", len(readings),
		"pm25", s.PM25,
		"aqi", s.AQI,
		"level", s.Level.String(),
		"samples", m.store.Count(),
		"filled", filled)

	return Result{
		Sample:   s,
		Readings: len(readings),
		Series:   chart,
		Filled:   filled,
	}, nil
}

// poll collects the readings of the configured sensors, ordered as
// configured. Without configured sensors every reporting sensor is used in
// arrival order.
func (m *Monitor) poll(ctx context.Context) ([]sensor.Reading, error) {
	if m.cfg.Sensors.PollTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Sensors.PollTimeout)
		defer cancel()
	}

	if ids := m.cfg.Sensors.IDs; len(ids) > 0 {
		return sensor.PollIDs(ctx, m.src, ids)
	}
	return sensor.Poll(ctx, m.src, 0)
}

func (m *Monitor) reduceOptions() sample.ReduceOptions {
	opts := sample.DefaultReduceOptions()
	if m.cfg.Sensors.MaxAge > 0 {
		opts.MaxAge = m.cfg.Sensors.MaxAge
	}
	if m.cfg.Sensors.MaxDiscrepancy > 0 {
		opts.MaxDiscrepancy = m.cfg.Sensors.MaxDiscrepancy
	}
	if m.cfg.Sensors.MaxAbsDiff > 0 {
		opts.MaxAbsDiff = m.cfg.Sensors.MaxAbsDiff
	}
	return opts
}

// Series resamples the stored history into length buckets of period each,
// ending now. Non-positive arguments fall back to the configured series and
// length is capped at MaxSeriesLength.
func (m *Monitor) Series(length int, period time.Duration) (*series.Series, int) {
	if length <= 0 {
		length = m.cfg.Series.Length
	}
	length = min(length, MaxSeriesLength)
	if period <= 0 {
		period = m.cfg.Series.Period
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fill(length, period)
}

func (m *Monitor) fill(length int, period time.Duration) (*series.Series, int) {
	opts := []series.Option{series.WithLogger(m.log)}
	if m.cfg.Series.SkipInvalid {
		opts = append(opts, series.WithSkipInvalid())
	}

	chart := series.New(length, period, nil, opts...)
	filled := chart.Fill(m.store, m.now())
	m.metrics.SetSeriesFilled(filled)
	m.metrics.SetSeriesInvalid(chart.Invalid())
	return chart, filled
}

// Latest returns the newest stored sample.
func (m *Monitor) Latest() (sample.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, err := m.store.ReadSample(0)
	if err != nil {
		return sample.Sample{}, err
	}
	return sample.Decode(rec), nil
}

// Samples returns up to limit stored samples, newest first. A non-positive
// limit returns all of them. Unreadable records end the listing early.
func (m *Monitor) Samples(limit int) ([]sample.Sample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.store.Count()
	if count == ring.CountUnknown {
		return nil, ring.ErrNotScanned
	}
	if limit <= 0 || limit > count {
		limit = count
	}

	samples := make([]sample.Sample, 0, limit)
	for i := range limit {
		rec, err := m.store.ReadSample(i)
		if err != nil {
			return samples, err
		}
		samples = append(samples, sample.Decode(rec))
	}
	return samples, nil
}

// Info returns the store layout and cursors.
func (m *Monitor) Info() ring.Info {
	return m.store.Info()
}
