package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/minesim/model"
)

// SimCollector exposes simulation metrics. It satisfies the engine's and the
// world state's metrics recorder interfaces.
type SimCollector struct {
	gatherer prometheus.Gatherer

	Ticks          prometheus.Counter
	ActionsFired   *prometheus.CounterVec
	Transforms     *prometheus.CounterVec
	DirtyTiles     prometheus.Counter
	DrainDuration  prometheus.Histogram
	PendingActions prometheus.Gauge
	Entities       *prometheus.GaugeVec
}

// NewSimCollector registers simulation metrics against the provided registerer.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Number of simulation steps driven.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}

	fired, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_actions_fired_total",
		Help: "Actions fired by the engine, labeled by action kind.",
	}, []string{"kind"}), "sim_actions_fired_total")
	if err != nil {
		return nil, err
	}

	transforms, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_transforms_total",
		Help: "Entity transformations, labeled by source and target kind.",
	}, []string{"from", "to"}), "sim_transforms_total")
	if err != nil {
		return nil, err
	}

	dirty, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_dirty_tiles_total",
		Help: "Tiles reported dirty by fired actions.",
	}), "sim_dirty_tiles_total")
	if err != nil {
		return nil, err
	}

	drain, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_drain_duration_seconds",
		Help:    "Wall-clock duration of one simulation step.",
		Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}), "sim_drain_duration_seconds")
	if err != nil {
		return nil, err
	}

	pending, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_pending_actions",
		Help: "Live actions held by the scheduler.",
	}), "sim_pending_actions")
	if err != nil {
		return nil, err
	}

	entities, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_entities",
		Help: "Entities in the world, labeled by kind.",
	}, []string{"kind"}), "sim_entities")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:       gatherer,
		Ticks:          ticks,
		ActionsFired:   fired,
		Transforms:     transforms,
		DirtyTiles:     dirty,
		DrainDuration:  drain,
		PendingActions: pending,
		Entities:       entities,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SimCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ActionFired counts one fired action.
func (c *SimCollector) ActionFired(kind string) {
	if c == nil || c.ActionsFired == nil {
		return
	}
	c.ActionsFired.WithLabelValues(kind).Inc()
}

// Transformed counts one entity transformation.
func (c *SimCollector) Transformed(from, to string) {
	if c == nil || c.Transforms == nil {
		return
	}
	c.Transforms.WithLabelValues(from, to).Inc()
}

// ObserveStep records one simulation step.
func (c *SimCollector) ObserveStep(d time.Duration, dirty int) {
	if c == nil {
		return
	}
	if c.Ticks != nil {
		c.Ticks.Inc()
	}
	if c.DirtyTiles != nil {
		c.DirtyTiles.Add(float64(dirty))
	}
	if c.DrainDuration != nil {
		c.DrainDuration.Observe(d.Seconds())
	}
}

// SetWorldCounts updates the entity and pending-action gauges. Every kind is
// written so that kinds which vanish drop to zero.
func (c *SimCollector) SetWorldCounts(entities map[model.Kind]int, pendingActions int) {
	if c == nil {
		return
	}
	if c.Entities != nil {
		for _, kind := range model.Kinds {
			c.Entities.WithLabelValues(kind.String()).Set(float64(entities[kind]))
		}
	}
	if c.PendingActions != nil {
		c.PendingActions.Set(float64(pendingActions))
	}
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
