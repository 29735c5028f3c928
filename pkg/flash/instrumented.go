package flash

import (
	"log/slog"
	"time"
)

// Recorder receives the outcome of every flash operation.
type Recorder interface {
	RecordFlashOperation(op, status string, duration time.Duration)
}

// Instrumented wraps a Device, timing every operation and logging failures.
type Instrumented struct {
	dev Device
	rec Recorder
	log *slog.Logger
}

var _ Device = (*Instrumented)(nil)

// NewInstrumented wraps dev. rec may be nil; a nil log uses slog.Default.
func NewInstrumented(dev Device, rec Recorder, log *slog.Logger) *Instrumented {
	if log == nil {
		log = slog.Default()
	}
	return &Instrumented{dev: dev, rec: rec, log: log}
}

// Unwrap returns the wrapped device.
func (d *Instrumented) Unwrap() Device {
	return d.dev
}

// Geometry returns the wrapped device geometry.
func (d *Instrumented) Geometry() Geometry {
	return d.dev.Geometry()
}

func (d *Instrumented) EraseSector(sector uint32) error {
	start := time.Now()
	err := d.dev.EraseSector(sector)
	d.record("erase", start, err, "sector", sector)
	return err
}

func (d *Instrumented) Write(addr uint32, data []byte) error {
	start := time.Now()
	err := d.dev.Write(addr, data)
	d.record("write", start, err, "addr", addr, "len", len(data))
	return err
}

func (d *Instrumented) Read(addr uint32, data []byte) error {
	start := time.Now()
	err := d.dev.Read(addr, data)
	d.record("read", start, err, "addr", addr, "len", len(data))
	return err
}

func (d *Instrumented) record(op string, start time.Time, err error, args ...any) {
	status := "ok"
	if err != nil {
		status = "error"
		d.log.Error("flash operation failed", append([]any{"op", op, "err", err}, args...)...)
	}
	if d.rec != nil {
		d.rec.RecordFlashOperation(op, status, time.Since(start))
	}
}
