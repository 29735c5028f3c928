package sample

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sigurn/crc8"
)

// RecordSize is the size of the persisted wire record.
const RecordSize = 16

// Record is the persisted encoding of a Sample:
//
//	bytes 0-2   timestamp, minutes since Epoch on 22 bits, big-endian
//	byte  3     reserved (always 0x00)
//	bytes 4-5   PM1.0 ×128, little-endian
//	bytes 6-7   PM2.5 ×128, little-endian
//	bytes 8-9   PM10 ×128, little-endian
//	bytes 10-11 pressure, Pa - 60000, little-endian
//	byte  12    temperature, °F + 100
//	byte  13    humidity, percent
//	byte  14    (count-1)<<5 | mae/2
//	byte  15    CRC-8/MAXIM of bytes 0-14
//
// A Record never starts with four 0xFF bytes: the flash ring store uses that
// pattern to detect erased slots.
type Record [RecordSize]byte

const (
	offTimestamp   = 0
	offReserved    = 3
	offPM1         = 4
	offPM25        = 6
	offPM10        = 8
	offPressure    = 10
	offTemperature = 12
	offHumidity    = 13
	offStats       = 14
	offCRC         = 15
)

var crcTable = crc8.MakeTable(crc8.CRC8_MAXIM)

// Checksum computes the CRC-8/MAXIM (Dallas 1-Wire) of data.
func Checksum(data []byte) uint8 {
	return crc8.Checksum(data, crcTable)
}

func init() {
	// Erased flash reads as all ones. Make sure no encodable sample collides
	// with it.
	saturated := New(time.Unix(Epoch+timestampMask*SecondsResolution, 0),
		1e9, 1e9, 1e9, 1e9, 1000, 1000, MaxCount, 1e9)
	if r := Encode(saturated); r.IsErased() {
		panic(fmt.Sprintf("sample: record prefix collides with the erased flash pattern: % x", r[:4]))
	}
}

// Encode quantizes s into its wire record. Values outside their encodable
// range saturate; the timestamp wraps.
func Encode(s Sample) Record {
	var r Record
	ts := EncodeTimestamp(s.Timestamp)
	copy(r[offTimestamp:], ts[:])
	r[offReserved] = 0x00
	binary.LittleEndian.PutUint16(r[offPM1:], EncodeConcentration(s.PM1))
	binary.LittleEndian.PutUint16(r[offPM25:], EncodeConcentration(s.PM25))
	binary.LittleEndian.PutUint16(r[offPM10:], EncodeConcentration(s.PM10))
	binary.LittleEndian.PutUint16(r[offPressure:], EncodePressure(s.Pressure))
	r[offTemperature] = EncodeTemperature(s.TemperatureF)
	r[offHumidity] = s.Humidity
	r[offStats] = EncodeStats(s.MAE, s.Count)
	r[offCRC] = Checksum(r[:offCRC])
	return r
}

// Decode restores a Sample from its wire record. The AQI is recomputed from
// the decoded PM2.5. A record failing its checksum is still fully decoded,
// with Valid set to false.
func Decode(r Record) Sample {
	var ts [3]byte
	copy(ts[:], r[offTimestamp:offReserved])

	s := Sample{
		Timestamp:    DecodeTimestamp(ts),
		PM1:          DecodeConcentration(binary.LittleEndian.Uint16(r[offPM1:])),
		PM10:         DecodeConcentration(binary.LittleEndian.Uint16(r[offPM10:])),
		Pressure:     DecodePressure(binary.LittleEndian.Uint16(r[offPressure:])),
		TemperatureF: DecodeTemperature(r[offTemperature]),
		Humidity:     r[offHumidity],
	}
	s.MAE, s.Count = DecodeStats(r[offStats])
	s.SetPM25(DecodeConcentration(binary.LittleEndian.Uint16(r[offPM25:])))
	s.Valid = r[offCRC] == Checksum(r[:offCRC])
	return s
}

// IsErased reports whether the record starts with the erased flash pattern.
func (r Record) IsErased() bool {
	return r[0] == 0xFF && r[1] == 0xFF && r[2] == 0xFF && r[3] == 0xFF
}
