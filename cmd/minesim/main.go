package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/signalsfoundry/minesim/internal/config"
	"github.com/signalsfoundry/minesim/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	worldFile := flag.String("world", "", "world file to load at start")
	images := flag.String("images", "", "image list overriding the built-in glyphs")
	width := flag.Int("width", 0, "world width in tiles")
	height := flag.Int("height", 0, "world height in tiles")
	seed := flag.Int64("seed", 0, "random seed (0 seeds from the clock)")
	step := flag.Int64("step", 0, "ticks advanced per step")
	intervalMS := flag.Int64("interval-ms", 0, "wall-clock milliseconds between steps in real-time mode")
	duration := flag.Int64("duration", 0, "ticks to run; 0 runs until interrupted")
	mode := flag.String("mode", "", "realtime paces steps by -interval-ms, accelerated runs them back to back")
	grpcAddr := flag.String("grpc-addr", "", "TCP address for the inspection gRPC server")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics")
	observerAddr := flag.String("observer-addr", "", "HTTP address for the websocket observer stream")
	journalDir := flag.String("journal-dir", "", "directory for compressed event segments")
	journalSQLite := flag.String("journal-sqlite", "", "SQLite event index path")
	logLevel := flag.String("log-level", "", "debug, info, warn or error")
	logFormat := flag.String("log-format", "", "text or json")
	view := flag.Bool("view", false, "draw the world in the terminal")
	savePath := flag.String("save", "", "write the world file here on exit")
	printSchema := flag.Bool("print-schema", false, "print the configuration JSON schema and exit")
	flag.Parse()

	if *printSchema {
		schema, err := config.Schema()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(string(schema))
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Only flags given on the command line override the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "world":
			cfg.World.File = *worldFile
		case "images":
			cfg.World.Images = *images
		case "width":
			cfg.World.Width = *width
		case "height":
			cfg.World.Height = *height
		case "seed":
			cfg.Sim.Seed = *seed
		case "step":
			cfg.Sim.Step = *step
		case "interval-ms":
			cfg.Sim.IntervalMS = *intervalMS
		case "duration":
			cfg.Sim.Duration = *duration
		case "mode":
			cfg.Sim.Mode = *mode
		case "grpc-addr":
			cfg.Servers.GRPCAddr = *grpcAddr
		case "metrics-addr":
			cfg.Servers.MetricsAddr = *metricsAddr
		case "observer-addr":
			cfg.Servers.ObserverAddr = *observerAddr
		case "journal-dir":
			cfg.Journal.Dir = *journalDir
		case "journal-sqlite":
			cfg.Journal.SQLite = *journalSQLite
		case "log-level":
			cfg.Log.Level = *logLevel
		case "log-format":
			cfg.Log.Format = *logFormat
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logCfg := logging.ConfigFromEnv(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if *view {
		// The viewer owns the terminal.
		logCfg.Output = io.Discard
	}
	log := logging.New(logCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions{View: *view, SavePath: *savePath}
	if err := run(ctx, cfg, opts, log, nil); err != nil {
		log.Error(ctx, "minesim exited", logging.Err(err))
		stop()
		os.Exit(1)
	}
}
