package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/itohio/goaqim/pkg/config"
	"github.com/itohio/goaqim/pkg/flash"
	"github.com/itohio/goaqim/pkg/metrics"
	"github.com/itohio/goaqim/pkg/monitor"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/sensor"
)

// app wires the flash image, the store and the sensors together.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	reg     *metrics.Registry
	closer  io.Closer
	store   *ring.Store[sample.Record]
	monitor *monitor.Monitor
	source  sensor.Source
}

func openApp(cfg *config.Config, log *slog.Logger, image string, erase bool) (*app, error) {
	geom := flash.Geometry{
		Base:       cfg.Flash.Base,
		Size:       cfg.Flash.Size,
		SectorSize: cfg.Flash.SectorSize,
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, reg: metrics.DefaultRegistry()}

	var raw flash.Device
	if image != "" {
		img, err := flash.OpenImage(image, geom)
		if err != nil {
			return nil, err
		}
		raw, a.closer = img, img
	} else {
		f, err := flash.OpenFile(cfg.Flash.Image, geom)
		if err != nil {
			return nil, err
		}
		raw, a.closer = f, f
	}
	dev := flash.NewInstrumented(raw, a.reg, log)

	store, err := ring.New[sample.Record](dev, cfg.Store.Capacity, cfg.Store.Offset, ring.WithLogger(log))
	if err != nil {
		a.closer.Close()
		return nil, err
	}
	a.store = store

	if err := store.Begin(erase); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to scan store: %w", err)
	}
	log.Debug("store ready", "store", store.Info())
	a.reg.SetStoreSamples(store.Count())

	if cfg.Mock.Enabled {
		a.source = sensor.NewMock(&cfg.Mock)
	} else {
		a.source = sensor.NewSerial(cfg.Serial.Port, cfg.Serial.BaudRate, sensor.DefaultBufferSize, log)
	}
	a.monitor = monitor.New(cfg, a.source, store, a.reg, monitor.WithLogger(log))
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	if a.source != nil && a.source.IsConnected() {
		errs = append(errs, a.source.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
		a.closer = nil
	}
	return errors.Join(errs...)
}

func (a *app) connect() error {
	if err := a.source.Connect(); err != nil {
		return fmt.Errorf("failed to connect sensors: %w", err)
	}
	return nil
}

func (a *app) runCycle(ctx context.Context) error {
	if err := a.connect(); err != nil {
		return err
	}
	res, err := a.monitor.Cycle(ctx)
	if err != nil {
		return err
	}
	printSample(0, res.Sample)
	return nil
}

// serve runs cycles every interval while serving the API until ctx is done.
func (a *app) serve(ctx context.Context, interval time.Duration) error {
	if interval > 0 {
		if err := a.connect(); err != nil {
			return err
		}
		go a.cycles(ctx, interval)
	}

	srv := monitor.NewServer(a.monitor, a.reg)
	return srv.ListenAndServe(ctx, a.cfg.HTTP.Listen)
}

func (a *app) cycles(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := a.monitor.Cycle(ctx); err != nil {
			a.log.Warn("cycle failed", "err", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
