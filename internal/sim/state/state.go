// internal/sim/state/state.go
package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/signalsfoundry/minesim/core"
	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/schedule"
	"github.com/signalsfoundry/minesim/kb"
	"github.com/signalsfoundry/minesim/model"
)

// Re-export store sentinel errors so callers can depend on state.*
// instead of kb.* directly if they want to.
var (
	// ErrOutOfBounds indicates a tile outside the grid.
	ErrOutOfBounds = kb.ErrOutOfBounds
	// ErrOccupied indicates a tile already holds another item.
	ErrOccupied = kb.ErrOccupied
	// ErrEntityNotFound indicates a requested entity was not found.
	ErrEntityNotFound = errors.New("entity not found")
)

// WorldState owns the occupancy store and the scheduler and serializes every
// mutation of either. It implements core.World and core.Queue.
//
// The World methods do not lock: the engine only calls them from inside
// Drain or Mutate, which hold the write lock for their whole run.
type WorldState struct {
	// mu is the coarse world-level lock. Take this before touching the store
	// or the scheduler to keep the lock order WorldState -> kb/schedule.
	mu sync.RWMutex

	store *kb.Store
	sched *schedule.Scheduler
	tick  model.Tick

	// buffered store events, flushed with the tick they happened on
	evMu    sync.Mutex
	pending []Event

	subMu sync.Mutex
	subs  []func([]Event)

	log     logging.Logger
	metrics WorldMetricsRecorder
}

// Event is a store change stamped with the tick it happened on.
type Event struct {
	Tick model.Tick
	Type kb.EventType
	Kind model.Kind
	Name string
	From model.Point
	To   model.Point
}

// WorldMetricsRecorder receives entity counts and the number of pending
// actions after every drain or mutation.
type WorldMetricsRecorder interface {
	SetWorldCounts(entities map[model.Kind]int, pendingActions int)
}

// WorldStateOption customises WorldState construction.
type WorldStateOption func(*WorldState)

// WithMetricsRecorder attaches an optional metrics recorder for entity counts.
func WithMetricsRecorder(m WorldMetricsRecorder) WorldStateOption {
	return func(s *WorldState) {
		s.metrics = m
	}
}

// WithStartTick positions the state at a tick other than zero.
func WithStartTick(t model.Tick) WorldStateOption {
	return func(s *WorldState) {
		s.tick = t
	}
}

// NewWorldState builds an empty width x height world.
func NewWorldState(width, height int, log logging.Logger, opts ...WorldStateOption) *WorldState {
	if log == nil {
		log = logging.Noop()
	}
	s := &WorldState{
		store: kb.NewStore(width, height),
		sched: schedule.New(),
		log:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.store.Subscribe(s.bufferEvent)
	return s
}

// Store exposes the occupancy store. Callers that mutate it directly bypass
// the world lock.
func (s *WorldState) Store() *kb.Store { return s.store }

// Tick returns the tick of the last drain.
func (s *WorldState) Tick() model.Tick {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tick
}

// PendingActions returns the number of live scheduled actions.
func (s *WorldState) PendingActions() int {
	return s.sched.Len()
}

// NextTick returns the tick of the earliest scheduled action.
func (s *WorldState) NextTick() (model.Tick, bool) {
	return s.sched.NextTick()
}

// Drain fires every action due at or before now under the write lock and
// then delivers the resulting events to subscribers.
func (s *WorldState) Drain(now model.Tick, fire func(*model.Action)) int {
	n, events := s.drainLocked(now, fire)
	s.notify(events)
	return n
}

func (s *WorldState) drainLocked(now model.Tick, fire func(*model.Action)) (int, []Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now > s.tick {
		s.tick = now
	}
	n := s.sched.Drain(now, fire)
	s.updateMetricsLocked()
	return n, s.takeEventsLocked()
}

// Mutate runs fn under the write lock. Use it for setup such as loading a
// world or spawning entities from outside the drive loop.
func (s *WorldState) Mutate(fn func(now model.Tick) error) error {
	events, err := s.mutateLocked(fn)
	s.notify(events)
	return err
}

func (s *WorldState) mutateLocked(fn func(now model.Tick) error) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn(s.tick)
	s.updateMetricsLocked()
	return s.takeEventsLocked(), err
}

// WithReadLock runs fn while holding the world read lock.
func (s *WorldState) WithReadLock(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn()
}

// Subscribe registers fn to receive each batch of events produced by a
// drain or mutation. Batches are delivered after the world lock is
// released, in order. It returns an unsubscribe function.
func (s *WorldState) Subscribe(fn func([]Event)) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if idx >= 0 && idx < len(s.subs) {
			s.subs[idx] = nil
			idx = -1
		}
	}
}

func (s *WorldState) bufferEvent(ev kb.Event) {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	s.pending = append(s.pending, Event{
		Tick: s.tick,
		Type: ev.Type,
		Kind: ev.Kind,
		Name: ev.Name,
		From: ev.From,
		To:   ev.To,
	})
}

func (s *WorldState) takeEventsLocked() []Event {
	s.evMu.Lock()
	defer s.evMu.Unlock()
	events := s.pending
	s.pending = nil
	return events
}

func (s *WorldState) notify(events []Event) {
	if len(events) == 0 {
		return
	}
	s.subMu.Lock()
	subs := append([]func([]Event){}, s.subs...)
	s.subMu.Unlock()
	for _, fn := range subs {
		if fn != nil {
			fn(events)
		}
	}
}

func (s *WorldState) updateMetricsLocked() {
	if s.metrics == nil {
		return
	}
	s.metrics.SetWorldCounts(s.store.Counts(), s.sched.Len())
}

// World methods. These run under the lock taken by Drain or Mutate.

func (s *WorldState) WithinBounds(pt model.Point) bool { return s.store.WithinBounds(pt) }

func (s *WorldState) IsOccupied(pt model.Point) bool { return s.store.IsOccupied(pt) }

func (s *WorldState) TileOccupant(pt model.Point) model.GridItem { return s.store.Occupant(pt) }

func (s *WorldState) AddEntity(e model.GridItem) error { return s.store.Add(e) }

func (s *WorldState) RemoveEntity(e model.GridItem) error { return s.store.Remove(e) }

func (s *WorldState) MoveEntity(e model.GridItem, pt model.Point) ([]model.Point, error) {
	return s.store.Move(e, pt)
}

func (s *WorldState) FindNearest(pt model.Point, kind model.Kind) model.GridItem {
	return s.store.FindNearest(pt, kind)
}

func (s *WorldState) ScheduleAction(a *model.Action, at model.Tick) { s.sched.Schedule(a, at) }

func (s *WorldState) UnscheduleAction(a *model.Action) { s.sched.Unschedule(a) }

func (s *WorldState) SetBackground(pt model.Point, bg *model.Background) error {
	return s.store.SetBackground(pt, bg)
}

// ExportWorld writes the current world in world-file form.
func (s *WorldState) ExportWorld(w io.Writer) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	width, height := s.store.Size()
	var backgrounds []core.BackgroundTile
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pt := model.Pt(x, y)
			if bg := s.store.Background(pt); bg != nil {
				backgrounds = append(backgrounds, core.BackgroundTile{Pt: pt, Background: bg})
			}
		}
	}
	if err := core.SaveWorld(w, backgrounds, s.store.Entities()); err != nil {
		return fmt.Errorf("export world: %w", err)
	}
	return nil
}

// LogSummary writes the current entity counts at info level.
func (s *WorldState) LogSummary(ctx context.Context) {
	s.mu.RLock()
	counts := s.store.Counts()
	tick := s.tick
	s.mu.RUnlock()

	fields := []logging.Field{logging.Int64("tick", int64(tick)), logging.Int("pending_actions", s.sched.Len())}
	for _, kind := range model.Kinds {
		if n := counts[kind]; n > 0 {
			fields = append(fields, logging.Int(kind.String(), n))
		}
	}
	s.log.Info(ctx, "world summary", fields...)
}
