// Package series resamples the stored samples into fixed-width time buckets
// anchored at an arbitrary instant, for charting recent history.
package series

import (
	"log/slog"
	"math"
	"time"

	"github.com/itohio/goaqim/pkg/aqi"
	"github.com/itohio/goaqim/pkg/sample"
)

const (
	// NoData marks a bucket without any sample.
	NoData int16 = math.MinInt16
	// OutOfRange is returned by Value for positions outside the series.
	OutOfRange int16 = math.MaxInt16
)

// MapFunc maps a mean PM2.5 concentration to the value stored in a bucket.
type MapFunc func(pm25 float32) int16

// Source is a store of records readable newest first.
type Source interface {
	Scanned() bool
	Empty() bool
	Count() int
	ReadSample(index int) (sample.Record, error)
}

// Option configures a Series.
type Option func(*Series)

// WithLogger sets the logger used to report unreadable records.
func WithLogger(log *slog.Logger) Option {
	return func(s *Series) {
		s.log = log
	}
}

// WithSkipInvalid drops records failing their checksum. By default they are
// used like any other record.
func WithSkipInvalid() Option {
	return func(s *Series) {
		s.skipInvalid = true
	}
}

// Series is a fixed number of buckets of one period each. Position 0 is the
// oldest bucket and Len()-1 the newest.
type Series struct {
	values      []int16
	period      time.Duration
	mapFn       MapFunc
	skipInvalid bool
	log         *slog.Logger

	min, max int16
	invalid  int
}

// New creates a series of length buckets. A nil mapFn maps concentrations to
// their AQI.
func New(length int, period time.Duration, mapFn MapFunc, opts ...Option) *Series {
	if mapFn == nil {
		mapFn = aqi.Value
	}
	s := &Series{
		values: make([]int16, max(length, 0)),
		period: period,
		mapFn:  mapFn,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for i := range s.values {
		s.values[i] = NoData
	}
	return s
}

// Fill recomputes every bucket from src. Bucket r (0 being the newest) holds
// the samples with now-(r+1)*period < timestamp <= now-r*period; their PM2.5
// concentrations are averaged before being mapped. Samples newer than now are
// ignored. Fill returns the number of non-empty buckets.
//
// Records are read once each, newest first, and reading stops at the first
// record older than the oldest bucket. Unreadable records are skipped.
func (s *Series) Fill(src Source, now time.Time) int {
	// NoData is taken, so the extremes start one step inside the int16 range.
	s.min = math.MaxInt16 - 1
	s.max = math.MinInt16 + 1
	s.invalid = 0
	for i := range s.values {
		s.values[i] = NoData
	}

	if !src.Scanned() || src.Empty() {
		s.min, s.max = 0, 0
		return 0
	}

	length := len(s.values)
	available := src.Count()
	period := int64(s.period / time.Second)
	nowSec := now.Unix()

	var (
		filled    int
		index     int
		reversed  int
		count     int
		acc       float32
		pm25      float32
		timestamp int64
	)
	loaded := -1

	for reversed < length && index < available {
		if loaded != index {
			loaded = index
			if !s.load(src, index, &pm25, &timestamp) {
				index++
				continue
			}
		}

		high := nowSec - int64(reversed)*period
		low := high - period

		switch {
		case timestamp > high:
			// Newer than the bucket: only possible before the newest bucket.
			index++
		case timestamp > low:
			acc += pm25
			count++
			index++
		default:
			if count > 0 {
				s.values[length-reversed-1] = s.mapFn(acc / float32(count))
				filled++
				acc, count = 0, 0
			}
			reversed++
		}
	}

	if count > 0 {
		s.values[length-reversed-1] = s.mapFn(acc / float32(count))
		filled++
	}

	return filled
}

// load reads and decodes the record at index, updating the extremes. It
// reports false when the record must be skipped.
func (s *Series) load(src Source, index int, pm25 *float32, timestamp *int64) bool {
	rec, err := src.ReadSample(index)
	if err != nil {
		s.log.Warn("skipping unreadable record", "index", index, "err", err)
		return false
	}

	smp := sample.Decode(rec)
	if !smp.Valid {
		s.invalid++
		if s.skipInvalid {
			s.log.Debug("skipping invalid record", "index", index)
			return false
		}
	}

	*pm25 = smp.PM25
	*timestamp = smp.Timestamp.Unix()

	v := int16(smp.PM25)
	s.min = min(s.min, v)
	s.max = max(s.max, v)
	return true
}

// Value returns the bucket at position, 0 being the oldest. It returns
// OutOfRange for positions outside the series and NoData for empty buckets.
func (s *Series) Value(position int) int16 {
	if position < 0 || position >= len(s.values) {
		return OutOfRange
	}
	return s.values[position]
}

// Values returns a copy of the buckets, oldest first.
func (s *Series) Values() []int16 {
	out := make([]int16, len(s.values))
	copy(out, s.values)
	return out
}

// Len returns the number of buckets.
func (s *Series) Len() int { return len(s.values) }

// Period returns the bucket width.
func (s *Series) Period() time.Duration { return s.period }

// Min returns the lowest PM2.5 concentration seen by the last Fill, truncated.
func (s *Series) Min() int16 { return s.min }

// Max returns the highest PM2.5 concentration seen by the last Fill, truncated.
func (s *Series) Max() int16 { return s.max }

// Invalid returns the number of records failing their checksum seen by the
// last Fill, whether they were skipped or not.
func (s *Series) Invalid() int { return s.invalid }
