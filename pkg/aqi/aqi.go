// Package aqi converts PM2.5 concentrations to the US EPA air quality index.
package aqi

import "github.com/chewxy/math32"

// Level is the discrete severity bracket of an AQI value.
type Level int8

const (
	OutOfRange    Level = -1
	Good          Level = 0
	Moderate      Level = 1
	USG           Level = 2 // Unhealthy for sensitive groups
	Unhealthy     Level = 3
	VeryUnhealthy Level = 4
	Hazardous     Level = 5
)

// Levels is the number of valid levels.
const Levels = 6

// MaxValue is the saturated index reported above the last breakpoint.
const MaxValue = 500

var names = [Levels]string{
	"Good", "Moderate", "Unhealthy for SG", "Unhealthy", "Very Unhealthy", "Hazardous",
}

var colors = [Levels]string{
	"Green", "Yellow", "Orange", "Red", "Purple", "Maroon",
}

// Breakpoints from page 11 of the AirNow technical assistance document (May 2016).
var (
	concentrationBreakpoints = [Levels + 2]float32{
		-0.1, 12.0, 35.4, 55.4, 150.4, 250.4, 350.4, 500.4,
	}
	indexBreakpoints = [Levels + 2]int16{
		-1, 50, 100, 150, 200, 300, 400, 500,
	}
)

// String returns the display name of the level.
func (l Level) String() string {
	if l < Good || l > Hazardous {
		return "Out of range"
	}
	return names[l]
}

// Color returns the conventional color name of the level.
func (l Level) Color() string {
	if l < Good || l > Hazardous {
		return ""
	}
	return colors[l]
}

// FromPM25 converts a PM2.5 concentration (µg/m³) to an AQI value and level.
// valid is false for negative concentrations (value -1) and for concentrations
// above the last breakpoint (value saturated to MaxValue); in both cases the
// level is OutOfRange.
func FromPM25(pm float32) (value int16, level Level, valid bool) {
	value = -1
	level = OutOfRange

	bracket := 0
	if pm >= 0 {
		for i := 1; i < len(concentrationBreakpoints); i++ {
			if pm <= concentrationBreakpoints[i] {
				bracket = i
				valid = true
				break
			}
		}
	}
	if pm > concentrationBreakpoints[len(concentrationBreakpoints)-1] {
		value = MaxValue
	}
	if !valid {
		return value, level, false
	}

	// 301-400 and 401-500 are both hazardous.
	level = Level(min(bracket-1, int(Hazardous)))
	lowI := float32(indexBreakpoints[bracket-1] + 1)
	highI := float32(indexBreakpoints[bracket])
	lowC := concentrationBreakpoints[bracket-1] + 0.1
	highC := concentrationBreakpoints[bracket]
	value = int16(math32.Round(lowI + (highI-lowI)/(highC-lowC)*(pm-lowC)))
	return value, level, true
}

// Value returns only the index of FromPM25. It is the default value mapping of
// the series resampler.
func Value(pm float32) int16 {
	v, _, _ := FromPM25(pm)
	return v
}
