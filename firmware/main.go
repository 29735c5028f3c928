//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"

	"github.com/itohio/goaqim/pkg/flash"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/sensor"
	"github.com/itohio/goaqim/pkg/series"
)

var (
	uart = machine.UART0

	store *ring.Store[sample.Record]
	chart *series.Series

	// Latest reading of each sensor since the last cycle
	readings [sensor.MaxSensors]sensor.Reading
	numRead  int

	// Timing
	lastCycle time.Time

	// Serial buffer for reading lines
	lineBuffer [LINE_BUFFER]byte
	linePos    int
)

func main() {
	PIN_LED.Configure(machine.PinConfig{Mode: machine.PinOutput})

	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	store = ring.MustNew[sample.Record](flash.OnChip(), STORE_CAPACITY, STORE_OFFSET)
	if err := store.Begin(false); err != nil {
		println("flash scan failed:", err.Error())
	}
	print(store.Info().String())

	chart = series.New(SERIES_LENGTH, SERIES_PERIOD, nil)

	lastCycle = time.Now()

	for {
		now := time.Now()

		processSerial()

		if now.Sub(lastCycle) >= CYCLE_INTERVAL {
			cycle()
			lastCycle = now
		}

		time.Sleep(POLL_INTERVAL)
	}
}

// cycle reduces the collected readings into one stored sample and prints the
// refreshed chart.
func cycle() {
	defer func() { numRead = 0 }()

	s, err := sample.Reduce(readings[:numRead], sample.DefaultReduceOptions())
	if err != nil {
		println("no sample:", err.Error())
		return
	}

	PIN_LED.High()
	err = store.StoreSample(sample.Encode(s))
	PIN_LED.Low()
	if err != nil {
		println("store failed:", err.Error())
	}

	// The board has no wall clock, the sensors' timestamps anchor the chart.
	filled := chart.Fill(store, s.Timestamp)

	// Output format: "aqi,filled,min,max,v0,...,vN\n", oldest bucket first.
	print("aqi,", filled, ",", chart.Min(), ",", chart.Max())
	for _, v := range chart.Values() {
		print(",", v)
	}
	print("\n")
}

func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if linePos > 0 {
				processLine(string(lineBuffer[:linePos]))
			}
			linePos = 0
			continue
		}

		if linePos < len(lineBuffer) {
			lineBuffer[linePos] = data
			linePos++
		} else {
			// Overlong line, drop it
			linePos = 0
		}
	}
}

func processLine(line string) {
	if line[0] == '#' {
		return
	}

	r, err := sensor.ParseLine(line)
	if err != nil {
		println("bad line:", err.Error())
		return
	}

	for i := range numRead {
		if readings[i].ID == r.ID {
			readings[i] = r
			return
		}
	}
	if numRead < len(readings) {
		readings[numRead] = r
		numRead++
	}
}
