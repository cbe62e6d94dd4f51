// Package runner drives the engine from a tick clock and fans each step's
// dirty tiles out to sinks.
package runner

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/minesim/core"
	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/observability"
	"github.com/signalsfoundry/minesim/model"
	"github.com/signalsfoundry/minesim/timectrl"
)

// Sink receives the tiles dirtied by each completed step.
type Sink interface {
	TickCompleted(tick model.Tick, dirty []model.Point)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tick model.Tick, dirty []model.Point)

func (f SinkFunc) TickCompleted(tick model.Tick, dirty []model.Point) { f(tick, dirty) }

// StepRecorder receives per-step timing.
type StepRecorder interface {
	ObserveStep(d time.Duration, dirty int)
}

// Runner steps an engine once per clock tick.
type Runner struct {
	engine  *core.Engine
	log     logging.Logger
	metrics StepRecorder
	tracer  trace.Tracer

	mu    sync.Mutex
	sinks []Sink
	steps int
}

// Option configures a Runner.
type Option func(*Runner)

// WithSinks appends sinks called after every step, in order.
func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// WithStepRecorder records step durations and dirty tile counts.
func WithStepRecorder(m StepRecorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// WithLogger sets the runner logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTracer overrides the tracer used for step spans.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runner) {
		if t != nil {
			r.tracer = t
		}
	}
}

// New returns a runner for engine.
func New(engine *core.Engine, opts ...Option) *Runner {
	r := &Runner{
		engine: engine,
		log:    logging.Noop(),
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddSink registers another sink.
func (r *Runner) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Steps returns how many steps have run.
func (r *Runner) Steps() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.steps
}

// Step fires everything due at tick and notifies the sinks. It returns the
// number of actions fired and the dirtied tiles in firing order.
func (r *Runner) Step(ctx context.Context, tick model.Tick) (int, []model.Point) {
	ctx, span := r.tracer.Start(ctx, "sim.step", trace.WithAttributes(observability.AttrTick.Int64(int64(tick))))
	defer span.End()

	start := time.Now()
	dirty, fired := r.engine.Step(ctx, tick)
	elapsed := time.Since(start)

	span.SetAttributes(
		observability.AttrFired.Int(fired),
		observability.AttrDirtyTiles.Int(len(dirty)),
	)
	if r.metrics != nil {
		r.metrics.ObserveStep(elapsed, len(dirty))
	}

	r.mu.Lock()
	r.steps++
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.Unlock()
	for _, s := range sinks {
		s.TickCompleted(tick, dirty)
	}
	return fired, dirty
}

// Run attaches the runner to tc and runs the clock for duration ticks, or
// until ctx is cancelled when duration is zero.
func (r *Runner) Run(ctx context.Context, tc *timectrl.TimeController, duration model.Tick) error {
	tc.AddListener(func(tick model.Tick) { r.Step(ctx, tick) })

	r.log.Info(ctx, "simulation started",
		logging.Int64("start_tick", int64(tc.Now())),
		logging.Int64("step", int64(tc.Step)),
		logging.String("mode", tc.Mode.String()),
		logging.Duration("interval", tc.Interval),
	)
	err := tc.Run(ctx, duration)
	r.log.Info(ctx, "simulation stopped",
		logging.Int64("tick", int64(tc.Now())),
		logging.Int("steps", r.Steps()),
		logging.Bool("finished", err == nil),
	)
	return err
}
