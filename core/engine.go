package core

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/model"
)

// MetricsRecorder receives per-action and per-transform notifications.
type MetricsRecorder interface {
	ActionFired(kind string)
	Transformed(from, to string)
}

// Engine interprets actions. Each Action names a behavior step and the
// occupant it belongs to; Fire runs that step against the World and returns
// the tiles it dirtied.
//
// An Engine is not safe for concurrent use. Callers serialize every Step and
// factory call, normally by holding the world's write lock.
type Engine struct {
	world  World
	queue  Queue
	images ImageStore
	tuning Tuning
	rng    *rand.Rand

	log     logging.Logger
	metrics MetricsRecorder
}

// EngineOption customises Engine construction.
type EngineOption func(*Engine)

// WithTuning overrides DefaultTuning.
func WithTuning(t Tuning) EngineOption {
	return func(e *Engine) {
		e.tuning = t
	}
}

// WithRand injects the random source used for spawned rates.
func WithRand(r *rand.Rand) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.rng = r
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetricsRecorder attaches an optional metrics recorder.
func WithMetricsRecorder(m MetricsRecorder) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// NewEngine builds an engine over world, draining actions from queue and
// resolving spawned entities' frames through images.
func NewEngine(world World, queue Queue, images ImageStore, opts ...EngineOption) *Engine {
	e := &Engine{
		world:  world,
		queue:  queue,
		images: images,
		tuning: DefaultTuning(),
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		log:    logging.Noop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tuning returns the constants in effect.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Step fires every action due at or before now and returns the dirtied tiles
// in firing order along with the number of actions fired.
func (e *Engine) Step(ctx context.Context, now model.Tick) ([]model.Point, int) {
	var dirty []model.Point
	fired := e.queue.Drain(now, func(a *model.Action) {
		dirty = append(dirty, e.Fire(ctx, a, now)...)
	})
	return dirty, fired
}

// Fire runs one action. The action is first dropped from its owner's pending
// set; an action its owner does not hold is a defect and panics.
func (e *Engine) Fire(ctx context.Context, a *model.Action, now model.Tick) []model.Point {
	if a == nil || a.Target == nil {
		panic("core: fired action has no target")
	}
	if !a.Target.RemovePendingAction(a) {
		panic(fmt.Sprintf("core: %s action fired for %s %q which does not hold it", a.Kind, a.Target.Kind(), a.Target.Name()))
	}
	if e.metrics != nil {
		e.metrics.ActionFired(a.Kind.String())
	}

	switch a.Kind {
	case model.ActionKindAnimate:
		return e.animate(a, now)
	case model.ActionKindDeath:
		pt := a.Target.Position()
		e.mustRemove(a.Target)
		return []model.Point{pt}
	case model.ActionKindOreTransform:
		return e.oreTransform(ctx, mustBe[*model.Ore](a), now)
	case model.ActionKindMinerCycle:
		switch m := a.Target.(type) {
		case *model.MinerNotFull:
			return e.minerNotFullCycle(ctx, m, now)
		case *model.MinerFull:
			return e.minerFullCycle(ctx, m, now)
		}
		panic(fmt.Sprintf("core: miner cycle on %s %q", a.Target.Kind(), a.Target.Name()))
	case model.ActionKindVeinCycle:
		return e.veinCycle(ctx, mustBe[*model.Vein](a), now)
	case model.ActionKindBlobCycle:
		return e.blobCycle(ctx, mustBe[*model.OreBlob](a), now)
	default:
		panic(fmt.Sprintf("core: unknown action kind %d", a.Kind))
	}
}

func mustBe[T model.Occupant](a *model.Action) T {
	t, ok := a.Target.(T)
	if !ok {
		panic(fmt.Sprintf("core: %s action on %s %q", a.Kind, a.Target.Kind(), a.Target.Name()))
	}
	return t
}

// Schedule records a in its owner's pending set and hands it to the world
// scheduler to fire at the given tick.
func (e *Engine) Schedule(a *model.Action, at model.Tick) {
	a.Target.AddPendingAction(a)
	e.world.ScheduleAction(a, at)
}

// ScheduleAnimation starts an animation run of repeat frames (0 runs
// forever) with the first frame at now + the entity's animation rate.
func (e *Engine) ScheduleAnimation(ent model.Animated, repeat int, now model.Tick) {
	a := model.NewAction(model.ActionKindAnimate, ent)
	a.Repeat = repeat
	e.Schedule(a, now+ent.AnimationRate())
}

// RemoveEntity cancels every pending action of item, clears its pending set
// and takes it off the grid.
func (e *Engine) RemoveEntity(item model.GridItem) error {
	if occ, ok := item.(model.Occupant); ok {
		for _, a := range occ.PendingActions() {
			e.world.UnscheduleAction(a)
		}
		occ.ClearPendingActions()
	}
	return e.world.RemoveEntity(item)
}

func (e *Engine) mustRemove(item model.GridItem) {
	if err := e.RemoveEntity(item); err != nil {
		panic(fmt.Sprintf("core: remove %s %q: %v", item.Kind(), item.Name(), err))
	}
}

func (e *Engine) mustAdd(item model.GridItem) {
	if err := e.world.AddEntity(item); err != nil {
		panic(fmt.Sprintf("core: add %s %q: %v", item.Kind(), item.Name(), err))
	}
}

func (e *Engine) mustMove(item model.GridItem, pt model.Point) []model.Point {
	dirty, err := e.world.MoveEntity(item, pt)
	if err != nil {
		panic(fmt.Sprintf("core: move %s %q: %v", item.Kind(), item.Name(), err))
	}
	return dirty
}

// replace swaps old for its transformed successor on the same tile. Every
// action still pending on old is cancelled; nothing may reference old after
// this returns.
func (e *Engine) replace(ctx context.Context, old, next model.Occupant) {
	e.mustRemove(old)
	e.mustAdd(next)
	if e.metrics != nil {
		e.metrics.Transformed(old.Kind().String(), next.Kind().String())
	}
	e.log.Debug(ctx, "entity transformed",
		logging.String("name", next.Name()),
		logging.String("from", old.Kind().String()),
		logging.String("to", next.Kind().String()),
		logging.Int("x", next.Position().X),
		logging.Int("y", next.Position().Y),
	)
}

func (e *Engine) animate(a *model.Action, now model.Tick) []model.Point {
	ent, ok := a.Target.(model.Animated)
	if !ok {
		panic(fmt.Sprintf("core: animate action on %s %q", a.Target.Kind(), a.Target.Name()))
	}
	ent.NextImage()
	if a.Repeat != 1 {
		e.ScheduleAnimation(ent, max(a.Repeat-1, 0), now)
	}
	return []model.Point{ent.Position()}
}

// randRange draws uniformly from [lo, hi].
func (e *Engine) randRange(lo, hi int64) int64 {
	if hi <= lo {
		return lo
	}
	return lo + e.rng.Int63n(hi-lo+1)
}
