// Package sensor defines the raw readings produced by the third-party air
// quality sensors and the sources delivering them.
package sensor

import (
	"context"
	"errors"
	"time"
)

const (
	// MaxSensors is the size of the fixed readings table.
	MaxSensors = 8
	// DefaultBufferSize is the default size of the readings channel buffer.
	DefaultBufferSize = 64
)

var (
	ErrNotConnected     = errors.New("sensor source not connected")
	ErrAlreadyConnected = errors.New("sensor source already connected")
)

// Average indexes the trailing PM2.5 averages reported by a sensor.
type Average int

const (
	TenMinutes Average = iota
	ThirtyMinutes
	OneHour
	SixHours
	TwentyFourHours
	OneWeek
	AveragesCount
)

// Reading is one sensor report with its two independent PM2.5 channels.
type Reading struct {
	ID           uint32
	Timestamp    time.Time
	AgeA         time.Duration // Age of channel A data
	AgeB         time.Duration // Age of channel B data
	PM25A        float32       // Channel A PM2.5 (µg/m³)
	PM25B        float32       // Channel B PM2.5 (µg/m³)
	TemperatureF int16
	Humidity     int16
	Pressure     float32 // mbar
	Averages     [AveragesCount]float32
}

// Source delivers readings from a set of sensors.
type Source interface {
	Connect() error
	Close() error
	Readings() <-chan Reading
	IsConnected() bool
}

// Poll collects at most one reading per sensor from src until every expected
// sensor reported, max readings were collected or ctx is done. Later readings
// of the same sensor replace earlier ones.
func Poll(ctx context.Context, src Source, expected int) ([]Reading, error) {
	if !src.IsConnected() {
		return nil, ErrNotConnected
	}
	if expected <= 0 || expected > MaxSensors {
		expected = MaxSensors
	}

	readings := make([]Reading, 0, expected)
	index := make(map[uint32]int, expected)
	for len(readings) < expected {
		select {
		case <-ctx.Done():
			return readings, nil
		case r, ok := <-src.Readings():
			if !ok {
				return readings, nil
			}
			if i, seen := index[r.ID]; seen {
				readings[i] = r
				continue
			}
			index[r.ID] = len(readings)
			readings = append(readings, r)
		}
	}
	return readings, nil
}

// PollIDs collects the latest reading of each sensor in ids until all of them
// reported or ctx is done. Other sensors are ignored. The result follows the
// order of ids and omits sensors that did not report.
func PollIDs(ctx context.Context, src Source, ids []uint32) ([]Reading, error) {
	if !src.IsConnected() {
		return nil, ErrNotConnected
	}

	latest := make(map[uint32]Reading, len(ids))
	wanted := make(map[uint32]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

wait:
	for len(latest) < len(wanted) {
		select {
		case <-ctx.Done():
			break wait
		case r, ok := <-src.Readings():
			if !ok {
				break wait
			}
			if wanted[r.ID] {
				latest[r.ID] = r
			}
		}
	}

	readings := make([]Reading, 0, len(latest))
	for _, id := range ids {
		if r, ok := latest[id]; ok {
			readings = append(readings, r)
			delete(latest, id)
		}
	}
	return readings, nil
}

var _ Source = (*Mock)(nil)
