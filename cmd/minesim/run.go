package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"

	"github.com/signalsfoundry/minesim/core"
	"github.com/signalsfoundry/minesim/internal/config"
	"github.com/signalsfoundry/minesim/internal/imagestore"
	"github.com/signalsfoundry/minesim/internal/inspect"
	"github.com/signalsfoundry/minesim/internal/journal"
	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/observability"
	"github.com/signalsfoundry/minesim/internal/render"
	"github.com/signalsfoundry/minesim/internal/sim/runner"
	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/internal/transport/observer"
	"github.com/signalsfoundry/minesim/model"
	"github.com/signalsfoundry/minesim/timectrl"
)

type runOptions struct {
	View     bool
	SavePath string

	// Screen replaces the terminal when View is set.
	Screen tcell.Screen
}

// run wires the world and its servers and drives the simulation until ctx is
// cancelled, the configured duration elapses or the viewer quits. lis, when
// non-nil, replaces the listener for the gRPC address.
func run(ctx context.Context, cfg config.Config, opts runOptions, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracing := observability.TracingConfigFromEnv()
	tracing.World = observability.WorldResource{Width: cfg.World.Width, Height: cfg.World.Height, Seed: cfg.Sim.Seed}
	shutdownTracing, err := observability.InitTracing(ctx, tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	simMetrics, err := observability.NewSimCollector(reg)
	if err != nil {
		return fmt.Errorf("sim metrics: %w", err)
	}
	rpcMetrics, err := observability.NewInspectCollector(reg)
	if err != nil {
		return fmt.Errorf("rpc metrics: %w", err)
	}

	images, err := imagestore.LoadFile(cfg.World.Images)
	if err != nil {
		return err
	}

	start := model.Tick(cfg.Sim.StartTick)
	world := state.NewWorldState(cfg.World.Width, cfg.World.Height, log,
		state.WithMetricsRecorder(simMetrics),
		state.WithStartTick(start),
	)

	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	engine := core.NewEngine(world, world, images,
		core.WithTuning(cfg.EngineTuning()),
		core.WithRand(rand.New(rand.NewSource(seed))),
		core.WithLogger(log),
		core.WithMetricsRecorder(simMetrics),
	)

	if cfg.World.File != "" {
		if err := loadWorldFile(ctx, world, engine, cfg.World.File); err != nil {
			return err
		}
	}
	world.LogSummary(ctx)

	driver := runner.New(engine, runner.WithLogger(log), runner.WithStepRecorder(simMetrics))

	var writers []journal.Writer
	if cfg.Journal.Dir != "" {
		writers = append(writers, journal.NewSegmentWriter(cfg.Journal.Dir, cfg.Journal.SegmentTicks))
	}
	if cfg.Journal.SQLite != "" {
		idx, err := journal.OpenSQLite(cfg.Journal.SQLite)
		if err != nil {
			return fmt.Errorf("open journal index: %w", err)
		}
		writers = append(writers, idx)
	}
	if len(writers) > 0 {
		j := journal.New(log, writers...)
		defer func() {
			if err := j.Close(); err != nil {
				log.Warn(context.Background(), "journal close failed", logging.Err(err))
			}
		}()
		defer world.Subscribe(j.Observe)()
		driver.AddSink(j)
	}

	var httpServers []*http.Server
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range httpServers {
			_ = srv.Shutdown(shutdownCtx)
		}
	}()

	if cfg.Servers.ObserverAddr != "" {
		obs := observer.NewServer(world, log)
		defer world.Subscribe(obs.Observe)()
		driver.AddSink(obs)
		httpServers = append(httpServers, serveHTTP(ctx, "observer", cfg.Servers.ObserverAddr, obs.Mux(), log))
	}
	if cfg.Servers.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", observability.HandlerFor(reg))
		httpServers = append(httpServers, serveHTTP(ctx, "metrics", cfg.Servers.MetricsAddr, mux, log))
	}

	if lis == nil && cfg.Servers.GRPCAddr != "" {
		lis, err = net.Listen("tcp", cfg.Servers.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Servers.GRPCAddr, err)
		}
	}
	if lis != nil {
		server := grpc.NewServer(
			grpc.StatsHandler(otelgrpc.NewServerHandler()),
			grpc.ChainUnaryInterceptor(
				inspect.RequestIDUnaryServerInterceptor(log),
				inspect.TracingUnaryServerInterceptor(world),
				rpcMetrics.UnaryServerInterceptor(),
			),
		)
		inspect.RegisterWorldServiceServer(server, inspect.NewWorldService(world, log))
		log.Info(ctx, "starting inspection gRPC server", logging.String("addr", lis.Addr().String()))
		go func() {
			if err := server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Error(ctx, "gRPC server exited", logging.Err(err))
			}
		}()
		defer server.GracefulStop()
	}

	tc := timectrl.NewTimeController(start, model.Tick(cfg.Sim.Step), cfg.Interval(), cfg.TimeMode())

	if opts.View {
		screen := opts.Screen
		if screen == nil {
			if screen, err = tcell.NewScreen(); err != nil {
				return fmt.Errorf("open terminal: %w", err)
			}
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("init terminal: %w", err)
		}
		defer screen.Fini()

		renderer := render.NewRenderer(screen, world, images)
		driver.AddSink(renderer)
		onClick := func(ctx context.Context, pt model.Point) error {
			return world.Mutate(func(now model.Tick) error {
				_, err := engine.SpawnVein(ctx, fmt.Sprintf("%d.%d", pt.X, pt.Y), pt, now)
				return err
			})
		}
		viewer := render.NewViewer(screen, renderer, onClick, log)
		go func() {
			_ = viewer.Run(ctx)
			cancel()
		}()
	}

	err = driver.Run(ctx, tc, model.Tick(cfg.Sim.Duration))
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	world.LogSummary(context.Background())

	if opts.SavePath != "" {
		if serr := saveWorldFile(world, opts.SavePath); serr != nil {
			return serr
		}
		log.Info(context.Background(), "world saved", logging.String("path", opts.SavePath))
	}
	return err
}

func loadWorldFile(ctx context.Context, world *state.WorldState, engine *core.Engine, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open world: %w", err)
	}
	defer f.Close()
	return world.Mutate(func(now model.Tick) error {
		if _, err := engine.LoadWorld(ctx, f, now); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		return nil
	})
}

func saveWorldFile(world *state.WorldState, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save world: %w", err)
	}
	if err := world.ExportWorld(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("save world: %w", err)
	}
	return f.Close()
}

func serveHTTP(ctx context.Context, name, addr string, handler http.Handler, log logging.Logger) *http.Server {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(ctx, name+" server exited", logging.Err(err))
		}
	}()
	log.Info(ctx, "serving "+name, logging.String("addr", addr))
	return srv
}
