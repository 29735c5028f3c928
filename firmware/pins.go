//go:build tinygo

package main

import (
	"machine"
	"time"
)

const (
	// Cycle configuration
	CYCLE_INTERVAL = 2 * time.Minute // Interval between stored samples
	POLL_INTERVAL  = time.Millisecond

	// Storage configuration
	STORE_CAPACITY = 1024 // Samples kept in on-chip flash
	STORE_OFFSET   = 0    // Offset of the log inside the on-chip data flash

	// Chart configuration
	SERIES_LENGTH = 48
	SERIES_PERIOD = 30 * time.Minute

	// Status LED, lit while a sample is being written
	PIN_LED = machine.LED

	// Serial configuration
	// One gateway line is at most ~120 bytes with all six averages, and
	// sensors report every two minutes, so any standard rate will do.
	UART_BAUD_RATE = 115200
	LINE_BUFFER    = 160
)
