package sample

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goaqim/pkg/aqi"
	"github.com/itohio/goaqim/pkg/sensor"
)

func TestMeanError(t *testing.T) {
	tests := []struct {
		name     string
		data     []float32
		wantMean float32
		wantNMAE float32
	}{
		{"empty", nil, 0, 0},
		{"zeros", []float32{0, 0, 0}, 0, 0},
		{"constant", []float32{4, 4}, 4, 0},
		{"spread", []float32{1, 2, 3, 3, 3, 4, 5}, 3, 0.2857143},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mean, nmae := MeanError(tt.data)
			assert.InDelta(t, tt.wantMean, mean, 1e-6)
			assert.InDelta(t, tt.wantNMAE, nmae, 1e-6)
		})
	}
}

func TestReduce(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	reading := func(id uint32, a, b float32, age time.Duration) sensor.Reading {
		return sensor.Reading{
			ID:           id,
			Timestamp:    ts.Add(time.Duration(id) * time.Second),
			AgeA:         age,
			AgeB:         age,
			PM25A:        a,
			PM25B:        b,
			TemperatureF: int16(60 + id),
			Humidity:     int16(30 + id),
			Pressure:     1000 + float32(id),
		}
	}

	tests := []struct {
		name      string
		readings  []sensor.Reading
		wantErr   error
		wantID    uint32
		wantPM25  float32
		wantCount uint8
		wantMAE   float32
	}{
		{
			name:     "no readings",
			readings: nil,
			wantErr:  ErrNoPrimary,
		},
		{
			name: "all stale",
			readings: []sensor.Reading{
				reading(1, 10, 10, 8*time.Minute),
				reading(2, 10, 10, 30*time.Minute),
			},
			wantErr: ErrNoPrimary,
		},
		{
			name: "single sensor",
			readings: []sensor.Reading{
				reading(1, 10, 11, time.Minute),
			},
			wantID:    1,
			wantPM25:  10.5,
			wantCount: 1,
			wantMAE:   100 * 1.0 / 21,
		},
		{
			name: "stale primary is skipped",
			readings: []sensor.Reading{
				reading(1, 50, 50, 8*time.Minute),
				reading(2, 20, 20, 7*time.Minute),
				reading(3, 30, 30, 0),
			},
			wantID:    2,
			wantPM25:  25,
			wantCount: 2,
			wantMAE:   100 * 20.0 / 100,
		},
		{
			name: "inconsistent channels are skipped",
			readings: []sensor.Reading{
				reading(1, 10, 20, 0),
				reading(2, 40, 40, 0),
			},
			wantID:    2,
			wantPM25:  40,
			wantCount: 1,
		},
		{
			name: "small absolute difference is accepted",
			readings: []sensor.Reading{
				reading(1, 1, 2, 0),
			},
			wantID:    1,
			wantPM25:  1.5,
			wantCount: 1,
			wantMAE:   100 * 1.0 / 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Reduce(tt.readings, DefaultReduceOptions())
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)

			var primary sensor.Reading
			for _, r := range tt.readings {
				if r.ID == tt.wantID {
					primary = r
				}
			}
			assert.Equal(t, primary.Timestamp, s.Timestamp)
			assert.Equal(t, primary.Pressure, s.Pressure)
			assert.Equal(t, primary.TemperatureF, s.TemperatureF)
			assert.Equal(t, uint8(primary.Humidity), s.Humidity)
			assert.InDelta(t, tt.wantPM25, s.PM25, 1e-5)
			assert.Equal(t, tt.wantCount, s.Count)
			assert.InDelta(t, tt.wantMAE, s.MAE, 1e-4)
			assert.Zero(t, s.PM1)
			assert.Zero(t, s.PM10)
			assert.Equal(t, aqi.Value(s.PM25), s.AQI)
		})
	}
}
