package sample

import (
	"errors"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/goaqim/pkg/sensor"
)

// ErrNoPrimary is returned by Reduce when no reading passes the filters.
var ErrNoPrimary = errors.New("no primary sensor")

// ReduceOptions controls which readings Reduce accepts.
type ReduceOptions struct {
	// MaxAge discards readings whose channel A or B data is older.
	MaxAge time.Duration
	// MaxDiscrepancy and MaxAbsDiff discard readings whose channels disagree
	// by more than MaxDiscrepancy (relative to their sum) and by more than
	// MaxAbsDiff µg/m³.
	MaxDiscrepancy float32
	MaxAbsDiff     float32
}

// DefaultReduceOptions accepts data up to three missed sensor updates old and
// channels within 6%.
func DefaultReduceOptions() ReduceOptions {
	return ReduceOptions{
		MaxAge:         7 * time.Minute,
		MaxDiscrepancy: 0.06,
		MaxAbsDiff:     1.2,
	}
}

// Reduce combines the readings of several sensors into one Sample.
//
// The first accepted reading is the primary: it provides the timestamp,
// pressure, temperature and humidity. PM2.5 is the mean of both channels of
// every accepted reading and MAE their normalized mean absolute error in
// percent. PM1.0 and PM10 are not reported by the sensors and stay zero.
func Reduce(readings []sensor.Reading, opts ReduceOptions) (Sample, error) {
	primary := -1
	values := make([]float32, 0, 2*len(readings))

	for i, r := range readings {
		if r.AgeA > opts.MaxAge || r.AgeB > opts.MaxAge {
			continue
		}

		diff := math32.Abs(r.PM25A - r.PM25B)
		if diff/(r.PM25A+r.PM25B) > opts.MaxDiscrepancy && diff > opts.MaxAbsDiff {
			continue
		}

		if primary < 0 {
			primary = i
		}
		values = append(values, r.PM25A, r.PM25B)
	}

	if primary < 0 {
		return Sample{}, ErrNoPrimary
	}

	mean, nmae := MeanError(values)
	p := readings[primary]
	return New(p.Timestamp, 0, mean, 0, p.Pressure, int(p.TemperatureF), int(p.Humidity), len(values)/2, nmae*100), nil
}

// MeanError returns the mean of data and its normalized mean absolute error
// sum(|x - mean|) / sum(x). nmae is zero when data sums to zero.
func MeanError(data []float32) (mean, nmae float32) {
	if len(data) == 0 {
		return 0, 0
	}

	var sum float32
	for _, v := range data {
		sum += v
	}
	mean = sum / float32(len(data))

	if sum == 0 {
		return mean, 0
	}

	var dev float32
	for _, v := range data {
		dev += math32.Abs(v - mean)
	}
	return mean, dev / sum
}
