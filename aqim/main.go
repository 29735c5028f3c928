package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/itohio/goaqim/pkg/config"
	"github.com/itohio/goaqim/pkg/sample"
	"github.com/itohio/goaqim/pkg/series"
)

const usage = `Usage: aqim [flags] <command>

Commands:
  cycle    run one wake cycle: poll, reduce, store, resample
  serve    run cycles periodically and serve the HTTP API
  info     print the store layout and cursors
  series   print the resampled history
  dump     print the stored samples, newest first
  config   write the effective configuration to the config file

Flags:
`

func main() {
	var (
		configFlag   = flag.String("config", "config.yaml", "Configuration file path")
		portFlag     = flag.String("p", "", "Serial port override (e.g., COM3 or /dev/ttyUSB0)")
		mockFlag     = flag.Bool("mock", false, "Use mocked sensors instead of the serial gateway")
		imageFlag    = flag.String("image", "", "Inspect a read-only flash dump instead of the flash image")
		eraseFlag    = flag.Bool("erase", false, "Erase the store before use")
		listenFlag   = flag.String("listen", "", "HTTP listen address override")
		intervalFlag = flag.Duration("interval", time.Minute, "Time between cycles when serving (0 = no cycles)")
		limitFlag    = flag.Int("limit", 20, "Number of samples to dump (0 = all)")
		verboseFlag  = flag.Bool("v", false, "Verbose logging")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
	slog.SetDefault(log)

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := flag.Arg(0)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fatal(log, "failed to load configuration", err)
	}
	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *mockFlag {
		cfg.Mock.Enabled = true
	}
	if *listenFlag != "" {
		cfg.HTTP.Listen = *listenFlag
	}

	if command == "config" {
		if err := cfg.Save(*configFlag); err != nil {
			fatal(log, "failed to save configuration", err)
		}
		log.Info("configuration written", "path", *configFlag)
		return
	}

	readOnly := command == "info" || command == "series" || command == "dump"
	if *imageFlag != "" && !readOnly {
		fatal(log, "invalid flags", fmt.Errorf("-image only works with info, series and dump"))
	}

	a, err := openApp(cfg, log, *imageFlag, *eraseFlag)
	if err != nil {
		// A store that does not fit the flash is a configuration error.
		fatal(log, "failed to open store", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch command {
	case "cycle":
		err = a.runCycle(ctx)
	case "serve":
		err = a.serve(ctx, *intervalFlag)
	case "info":
		fmt.Print(a.store.Info())
	case "series":
		printSeries(a)
	case "dump":
		err = dump(a, *limitFlag)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		a.Close()
		fatal(log, command+" failed", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	log.Error(msg, "err", err)
	os.Exit(1)
}

func printSeries(a *app) {
	chart, filled := a.monitor.Series(0, 0)
	period := chart.Period()
	fmt.Printf("%d of %d buckets of %s, PM2.5 min %d max %d\n", filled, chart.Len(), period, chart.Min(), chart.Max())

	for i, v := range chart.Values() {
		age := time.Duration(chart.Len()-i) * period
		value := "n/a"
		if v != series.NoData {
			value = fmt.Sprintf("%d", v)
		}
		fmt.Printf("-%-8s %5s %s\n", age, value, bar(v))
	}
}

func bar(v int16) string {
	if v == series.NoData || v <= 0 {
		return ""
	}
	return strings.Repeat("#", int(v+9)/10)
}

func dump(a *app, limit int) error {
	samples, err := a.monitor.Samples(limit)
	for i, s := range samples {
		printSample(i, s)
	}
	return err
}

func printSample(index int, s sample.Sample) {
	mark := ""
	if !s.Valid {
		mark = " CRC"
	}
	fmt.Printf("%4d %s PM2.5 %6.2f AQI %3d %-16s %4.0fmbar %4d°F %3d%% n=%d mae=%2.0f%%%s\n",
		index, s.Timestamp.Format(time.DateTime), s.PM25, s.AQI, s.Level, s.Pressure,
		s.TemperatureF, s.Humidity, s.Count, s.MAE, mark)
}
