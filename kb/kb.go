package kb

import (
	"errors"
	"fmt"
	"sync"

	"github.com/signalsfoundry/minesim/model"
)

var (
	// ErrOutOfBounds indicates a tile outside the grid.
	ErrOutOfBounds = errors.New("tile out of bounds")
	// ErrOccupied indicates a tile already holds another item.
	ErrOccupied = errors.New("tile occupied")
	// ErrEntityExists indicates the item is already in the store.
	ErrEntityExists = errors.New("entity already in world")
	// ErrEntityNotFound indicates the item is not in the store.
	ErrEntityNotFound = errors.New("entity not in world")
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventAdded EventType = iota + 1
	EventRemoved
	EventMoved
)

func (t EventType) String() string {
	switch t {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventMoved:
		return "moved"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers after the store changes.
type Event struct {
	Type EventType
	Kind model.Kind
	Name string
	From model.Point // previous tile for EventMoved
	To   model.Point // current tile (the removed tile for EventRemoved)
}

// Store is the occupancy grid: the single source of truth for what occupies
// each tile. It also keeps every item in insertion order so that nearest
// queries break ties deterministically.
type Store struct {
	mu sync.RWMutex

	width  int
	height int

	cells       []model.GridItem
	backgrounds []*model.Background
	entities    []model.GridItem

	subs []func(Event)
}

// NewStore constructs an empty width x height grid.
func NewStore(width, height int) *Store {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Store{
		width:       width,
		height:      height,
		cells:       make([]model.GridItem, width*height),
		backgrounds: make([]*model.Background, width*height),
	}
}

// Size returns the grid dimensions.
func (s *Store) Size() (width, height int) {
	return s.width, s.height
}

// WithinBounds reports whether pt lies on the grid.
func (s *Store) WithinBounds(pt model.Point) bool {
	return pt.X >= 0 && pt.X < s.width && pt.Y >= 0 && pt.Y < s.height
}

func (s *Store) cell(pt model.Point) int {
	return pt.Y*s.width + pt.X
}

// IsOccupied reports whether an item sits on pt. Tiles outside the grid are
// never occupied.
func (s *Store) IsOccupied(pt model.Point) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.WithinBounds(pt) && s.cells[s.cell(pt)] != nil
}

// Occupant returns the item on pt, or nil.
func (s *Store) Occupant(pt model.Point) model.GridItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.WithinBounds(pt) {
		return nil
	}
	return s.cells[s.cell(pt)]
}

// Add places e on its own position.
func (s *Store) Add(e model.GridItem) error {
	if e == nil {
		return fmt.Errorf("add entity: nil item")
	}
	pt := e.Position()

	s.mu.Lock()
	if !s.WithinBounds(pt) {
		s.mu.Unlock()
		return fmt.Errorf("add %s %q at %v: %w", e.Kind(), e.Name(), pt, ErrOutOfBounds)
	}
	if s.indexOfLocked(e) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("add %s %q: %w", e.Kind(), e.Name(), ErrEntityExists)
	}
	if other := s.cells[s.cell(pt)]; other != nil {
		s.mu.Unlock()
		return fmt.Errorf("add %s %q at %v held by %q: %w", e.Kind(), e.Name(), pt, other.Name(), ErrOccupied)
	}
	s.cells[s.cell(pt)] = e
	s.entities = append(s.entities, e)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Event{Type: EventAdded, Kind: e.Kind(), Name: e.Name(), To: pt})
	return nil
}

// Remove takes e off the grid.
func (s *Store) Remove(e model.GridItem) error {
	if e == nil {
		return fmt.Errorf("remove entity: nil item")
	}

	s.mu.Lock()
	idx := s.indexOfLocked(e)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("remove %s %q: %w", e.Kind(), e.Name(), ErrEntityNotFound)
	}
	pt := e.Position()
	if s.WithinBounds(pt) && s.cells[s.cell(pt)] == e {
		s.cells[s.cell(pt)] = nil
	}
	s.entities = append(s.entities[:idx], s.entities[idx+1:]...)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Event{Type: EventRemoved, Kind: e.Kind(), Name: e.Name(), To: pt})
	return nil
}

// Move relocates e to pt and returns the dirtied tiles: the old tile and the
// new one, or just the one tile when pt is where e already is.
func (s *Store) Move(e model.GridItem, pt model.Point) ([]model.Point, error) {
	s.mu.Lock()
	if s.indexOfLocked(e) < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("move %s %q: %w", e.Kind(), e.Name(), ErrEntityNotFound)
	}
	if !s.WithinBounds(pt) {
		s.mu.Unlock()
		return nil, fmt.Errorf("move %s %q to %v: %w", e.Kind(), e.Name(), pt, ErrOutOfBounds)
	}
	old := e.Position()
	if old == pt {
		s.mu.Unlock()
		return []model.Point{old}, nil
	}
	if other := s.cells[s.cell(pt)]; other != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("move %s %q to %v held by %q: %w", e.Kind(), e.Name(), pt, other.Name(), ErrOccupied)
	}
	s.cells[s.cell(old)] = nil
	s.cells[s.cell(pt)] = e
	e.SetPosition(pt)
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, Event{Type: EventMoved, Kind: e.Kind(), Name: e.Name(), From: old, To: pt})
	return []model.Point{old, pt}, nil
}

// FindNearest returns the item of the given kind closest to pt by squared
// Euclidean distance, or nil if there is none. Ties go to the item added
// first.
func (s *Store) FindNearest(pt model.Point, kind model.Kind) model.GridItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best model.GridItem
	bestDist := 0
	for _, e := range s.entities {
		if e.Kind() != kind {
			continue
		}
		d := pt.DistanceSq(e.Position())
		if best == nil || d < bestDist {
			best, bestDist = e, d
		}
	}
	return best
}

// Find returns the first item with the given name.
func (s *Store) Find(name string) model.GridItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entities {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// Entities returns a snapshot slice of every item in insertion order.
func (s *Store) Entities() []model.GridItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.GridItem(nil), s.entities...)
}

// Counts returns the number of items of each kind.
func (s *Store) Counts() map[model.Kind]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[model.Kind]int)
	for _, e := range s.entities {
		counts[e.Kind()]++
	}
	return counts
}

// SetBackground sets the background drawn under pt.
func (s *Store) SetBackground(pt model.Point, bg *model.Background) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.WithinBounds(pt) {
		return fmt.Errorf("background at %v: %w", pt, ErrOutOfBounds)
	}
	s.backgrounds[s.cell(pt)] = bg
	return nil
}

// Background returns the background at pt, or nil.
func (s *Store) Background(pt model.Point) *model.Background {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.WithinBounds(pt) {
		return nil
	}
	return s.backgrounds[s.cell(pt)]
}

// Subscribe registers a callback for store events. Callbacks run after the
// store lock is released. It returns an unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		// Leave a hole so the indices held by other unsubscribers stay valid.
		s.subs[idx] = nil
		idx = -1
	}
}

func (s *Store) indexOfLocked(e model.GridItem) int {
	for i, other := range s.entities {
		if other == e {
			return i
		}
	}
	return -1
}

func (s *Store) subscribersLocked() []func(Event) {
	if len(s.subs) == 0 {
		return nil
	}
	return append([]func(Event){}, s.subs...)
}

func notify(subs []func(Event), ev Event) {
	for _, sub := range subs {
		if sub != nil {
			sub(ev)
		}
	}
}
