package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/goaqim/pkg/config"
	"github.com/itohio/goaqim/pkg/flash"
	"github.com/itohio/goaqim/pkg/ring"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/series"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Flash.Image = filepath.Join(t.TempDir(), "aqim.flash")
	cfg.Store.Capacity = 512
	cfg.Sensors.PollTimeout = 200 * time.Millisecond
	cfg.Mock.Enabled = true
	cfg.Mock.SampleRate = 5 * time.Millisecond
	return cfg
}

func TestApp_CycleAndReopen(t *testing.T) {
	cfg := testConfig(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := openApp(cfg, log, "", false)
	require.NoError(t, err)
	require.NoError(t, a.runCycle(context.Background()))
	assert.Equal(t, 1, a.store.Count())
	require.NoError(t, a.Close())

	// The image keeps the sample across runs, like flash across wake cycles.
	a, err = openApp(cfg, log, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, a.store.Count())
	latest, err := a.monitor.Latest()
	require.NoError(t, err)
	assert.True(t, latest.Valid)
	assert.InDelta(t, cfg.Mock.BasePM25, latest.PM25, float64(cfg.Mock.BasePM25*0.25+cfg.Mock.NoiseLevel))
	require.NoError(t, a.Close())

	// A dump of the image is readable but not writable.
	ro, err := openApp(cfg, log, cfg.Flash.Image, false)
	require.NoError(t, err)
	defer ro.Close()
	assert.Equal(t, 1, ro.store.Count())
	assert.ErrorIs(t, ro.store.StoreSample(sample.Encode(latest)), flash.ErrReadOnly)
}

func TestApp_Erase(t *testing.T) {
	cfg := testConfig(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	a, err := openApp(cfg, log, "", false)
	require.NoError(t, err)
	require.NoError(t, a.runCycle(context.Background()))
	require.NoError(t, a.Close())

	a, err = openApp(cfg, log, "", true)
	require.NoError(t, err)
	defer a.Close()
	assert.True(t, a.store.Empty())
}

func TestApp_InsufficientFlash(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Offset = cfg.Flash.Size - cfg.Flash.SectorSize

	_, err := openApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), "", false)
	assert.ErrorIs(t, err, ring.ErrInsufficientFlash)
}

func TestApp_InvalidGeometry(t *testing.T) {
	cfg := testConfig(t)
	cfg.Flash.SectorSize = 0

	_, err := openApp(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), "", false)
	assert.Error(t, err)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", bar(series.NoData))
	assert.Equal(t, "", bar(0))
	assert.Equal(t, "#", bar(1))
	assert.Equal(t, "#####", bar(50))
	assert.Equal(t, "######", bar(51))
}
