package sample

import (
	"time"

	"github.com/itohio/goaqim/pkg/aqi"
)

// Sample represents one accepted air quality measurement.
type Sample struct {
	Timestamp    time.Time
	PM1          float32 // PM1.0 concentration (µg/m³)
	PM25         float32 // PM2.5 concentration (µg/m³)
	PM10         float32 // PM10 concentration (µg/m³)
	Pressure     float32 // Barometric pressure (mbar)
	TemperatureF int16   // Temperature (°F)
	Humidity     uint8   // Relative humidity (%), clamped to 100
	Count        uint8   // Number of sensors that contributed (1-8)
	MAE          float32 // Normalized mean absolute error between channels (%)

	// Derived from PM25, never stored.
	AQI   int16
	Level aqi.Level

	// Valid is only set by Decode when the record checksum verifies.
	Valid bool
}

// New creates a Sample and derives its AQI. Humidity is clamped to [0, 100].
func New(ts time.Time, pm1, pm25, pm10, pressure float32, temperatureF, humidity, count int, mae float32) Sample {
	s := Sample{
		Timestamp:    ts,
		PM1:          pm1,
		PM10:         pm10,
		Pressure:     pressure,
		TemperatureF: int16(temperatureF),
		Count:        uint8(count),
		MAE:          mae,
	}
	switch {
	case humidity > 100:
		s.Humidity = 100
	case humidity < 0:
		s.Humidity = 0
	default:
		s.Humidity = uint8(humidity)
	}
	s.SetPM25(pm25)
	return s
}

// SetPM25 updates the PM2.5 concentration and the derived AQI.
func (s *Sample) SetPM25(pm25 float32) {
	s.PM25 = pm25
	s.AQI, s.Level, _ = aqi.FromPM25(pm25)
}

// TemperatureC returns the temperature in degrees Celsius.
func (s Sample) TemperatureC() float32 {
	return (float32(s.TemperatureF) - 32) * 5 / 9
}
