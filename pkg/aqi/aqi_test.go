package aqi

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromPM25_OutOfRange(t *testing.T) {
	value, level, valid := FromPM25(-10.0)
	assert.False(t, valid)
	assert.Equal(t, int16(-1), value)
	assert.Equal(t, OutOfRange, level)

	value, level, valid = FromPM25(600.0)
	assert.False(t, valid)
	assert.Equal(t, int16(500), value)
	assert.Equal(t, OutOfRange, level)
}

func TestFromPM25_Conversions(t *testing.T) {
	// Reference values from https://www.airnow.gov/aqi/aqi-calculator-concentration/
	tests := []struct {
		pm    float32
		value int16
		level Level
	}{
		{0.0, 0, Good},
		{5.0, 21, Good},
		{10.0, 42, Good},
		{12.0, 50, Good},
		{12.1, 51, Moderate},
		{15.0, 57, Moderate},
		{35.4, 100, Moderate},
		{35.5, 101, USG},
		{40.0, 112, USG},
		{55.4, 150, USG},
		{55.5, 151, Unhealthy},
		{100.0, 174, Unhealthy},
		{150.4, 200, Unhealthy},
		{150.5, 201, VeryUnhealthy},
		{200.0, 250, VeryUnhealthy},
		{250.4, 300, VeryUnhealthy},
		{250.5, 301, Hazardous},
		{300.0, 350, Hazardous},
		{350.4, 400, Hazardous},
		{350.5, 401, Hazardous},
		{400.0, 434, Hazardous},
		{500.4, 500, Hazardous},
	}

	for _, tt := range tests {
		value, level, valid := FromPM25(tt.pm)
		assert.True(t, valid, "pm=%v", tt.pm)
		assert.Equal(t, tt.value, value, "pm=%v", tt.pm)
		assert.Equal(t, tt.level, level, "pm=%v", tt.pm)
	}
}

func TestValue(t *testing.T) {
	assert.Equal(t, int16(100), Value(35.4))
	assert.Equal(t, int16(-1), Value(-0.5))
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "Good", Good.String())
	assert.Equal(t, "Hazardous", Hazardous.String())
	assert.Equal(t, "Out of range", OutOfRange.String())
	assert.Equal(t, "Red", Unhealthy.Color())
	assert.Equal(t, "", OutOfRange.Color())
}
