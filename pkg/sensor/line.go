package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseLine parses one gateway line into a Reading.
func ParseLine(line string) (Reading, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 9 && len(parts) != 9+int(AveragesCount) {
		return Reading{}, fmt.Errorf("invalid line format: expected 9 or %d comma-separated values, got %d",
			9+int(AveragesCount), len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	id, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid sensor id: %w", err)
	}
	secs, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	ageA, err := strconv.ParseInt(parts[2], 10, 16)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid channel A age: %w", err)
	}
	ageB, err := strconv.ParseInt(parts[3], 10, 16)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid channel B age: %w", err)
	}
	pmA, err := parseFloat32(parts[4])
	if err != nil {
		return Reading{}, fmt.Errorf("invalid channel A PM2.5: %w", err)
	}
	pmB, err := parseFloat32(parts[5])
	if err != nil {
		return Reading{}, fmt.Errorf("invalid channel B PM2.5: %w", err)
	}
	temp, err := strconv.ParseInt(parts[6], 10, 16)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid temperature: %w", err)
	}
	hum, err := strconv.ParseInt(parts[7], 10, 16)
	if err != nil {
		return Reading{}, fmt.Errorf("invalid humidity: %w", err)
	}
	pressure, err := parseFloat32(parts[8])
	if err != nil {
		return Reading{}, fmt.Errorf("invalid pressure: %w", err)
	}

	r := Reading{
		ID:           uint32(id),
		Timestamp:    time.Unix(secs, 0).UTC(),
		AgeA:         time.Duration(ageA) * time.Minute,
		AgeB:         time.Duration(ageB) * time.Minute,
		PM25A:        pmA,
		PM25B:        pmB,
		TemperatureF: int16(temp),
		Humidity:     int16(hum),
		Pressure:     pressure,
	}

	for i := range AveragesCount {
		if len(parts) == 9 {
			break
		}
		v, err := parseFloat32(parts[9+int(i)])
		if err != nil {
			return Reading{}, fmt.Errorf("invalid average %d: %w", i, err)
		}
		r.Averages[i] = v
	}

	return r, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}
