package sample

import (
	"time"

	"github.com/chewxy/math32"
)

const (
	// Epoch is the origin of the compacted timestamps (2019-01-01T00:00:00Z).
	Epoch = 1546300800
	// SecondsResolution is the resolution of the compacted timestamps.
	SecondsResolution = 60
	// timestampMask keeps 22 bits, larger values wrap silently.
	timestampMask = 0x3FFFFF

	TemperatureOffsetF         = -100
	PressureOffsetPa           = 60000
	MaxRecordablePressurePa    = 125500
	ConcentrationScale         = 128
	MaxRecordableConcentration = 512

	MaxCount = 8
	MaxMAE   = 63
)

// EncodePressure encodes a pressure in mbar with 1/100 mbar resolution,
// saturating below 600 mbar and above 1255 mbar.
func EncodePressure(mbar float32) uint16 {
	switch {
	case mbar < PressureOffsetPa/100.0:
		return 0
	case mbar > MaxRecordablePressurePa/100.0:
		return MaxRecordablePressurePa - PressureOffsetPa
	default:
		return uint16(100*mbar - PressureOffsetPa)
	}
}

// DecodePressure is the inverse of EncodePressure.
func DecodePressure(code uint16) float32 {
	return float32(uint32(code)+PressureOffsetPa) / 100
}

// EncodeTemperature encodes a temperature in °F, saturating outside [-100, 155].
func EncodeTemperature(f int16) uint8 {
	switch {
	case f < TemperatureOffsetF:
		return 0
	case f > 0xFF+TemperatureOffsetF:
		return 0xFF
	default:
		return uint8(f - TemperatureOffsetF)
	}
}

// DecodeTemperature is the inverse of EncodeTemperature.
func DecodeTemperature(code uint8) int16 {
	return int16(code) + TemperatureOffsetF
}

// EncodeConcentration encodes a concentration as ×128 fixed point, saturating
// at 0 and 0xFFFF.
func EncodeConcentration(c float32) uint16 {
	switch {
	case c < 0:
		return 0
	case c >= MaxRecordableConcentration:
		return 0xFFFF
	default:
		return uint16(c * ConcentrationScale)
	}
}

// DecodeConcentration is the inverse of EncodeConcentration.
func DecodeConcentration(code uint16) float32 {
	return float32(code) / ConcentrationScale
}

// EncodeTimestamp packs t as minutes since Epoch on 22 bits, big-endian.
// Timestamps before Epoch encode as zero; bits above 22 are dropped.
func EncodeTimestamp(t time.Time) [3]byte {
	var ts uint32
	if secs := t.Unix(); secs >= Epoch {
		ts = uint32((secs-Epoch)/SecondsResolution) & timestampMask
	}
	return [3]byte{byte(ts >> 16), byte(ts >> 8), byte(ts)}
}

// DecodeTimestamp is the inverse of EncodeTimestamp.
func DecodeTimestamp(ts [3]byte) time.Time {
	v := uint32(ts[0])<<16 | uint32(ts[1])<<8 | uint32(ts[2])
	return time.Unix(int64(v)*SecondsResolution+Epoch, 0).UTC()
}

// EncodeStats packs the sensor count (top 3 bits, stored as count-1) and the
// MAE (bottom 5 bits, resolution 2) in one byte. count is clamped to 8 and mae
// to 63. count must be at least 1: zero produces a wrong code.
func EncodeStats(mae float32, count uint8) uint8 {
	if count > MaxCount {
		count = MaxCount
	}
	code := (0x0F & (count - 1)) << 5
	if mae > MaxMAE {
		mae = MaxMAE
	}
	if mae < 0 {
		mae = 0
	}
	code |= 0x1F & uint8(math32.Round((mae-0.01)/2))
	return code
}

// DecodeStats is the inverse of EncodeStats.
func DecodeStats(code uint8) (mae float32, count uint8) {
	return float32(0x1F&code) * 2, 1 + code>>5
}
