// Package journal persists the per-tick history of a running world: every
// completed step becomes one Record holding the dirtied tiles and the store
// events that led to them.
package journal

import (
	"sync"

	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/kb"
	"github.com/signalsfoundry/minesim/model"
)

// Tile is a JSON-friendly grid position.
type Tile struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Event is one store change in wire form.
type Event struct {
	Tick int64  `json:"tick"`
	Type string `json:"type"`
	Kind string `json:"kind"`
	Name string `json:"name"`
	From *Tile  `json:"from,omitempty"`
	To   Tile   `json:"to"`
}

// Record is everything that happened up to and including one tick.
type Record struct {
	Tick   int64   `json:"tick"`
	Dirty  []Tile  `json:"dirty"`
	Events []Event `json:"events"`
}

// EventFromState converts a world event to its wire form.
func EventFromState(ev state.Event) Event {
	out := Event{
		Tick: int64(ev.Tick),
		Type: ev.Type.String(),
		Kind: ev.Kind.String(),
		Name: ev.Name,
		To:   tileOf(ev.To),
	}
	if ev.Type == kb.EventMoved {
		from := tileOf(ev.From)
		out.From = &from
	}
	return out
}

func tileOf(pt model.Point) Tile { return Tile{X: pt.X, Y: pt.Y} }

// Batcher buffers world events between tick completions. Subscribe Observe to
// a WorldState and call Take once per completed tick.
type Batcher struct {
	mu      sync.Mutex
	pending []Event
}

// Observe appends a batch of world events.
func (b *Batcher) Observe(events []state.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range events {
		b.pending = append(b.pending, EventFromState(ev))
	}
}

// Take returns the record for tick and resets the buffer.
func (b *Batcher) Take(tick model.Tick, dirty []model.Point) Record {
	b.mu.Lock()
	events := b.pending
	b.pending = nil
	b.mu.Unlock()

	rec := Record{Tick: int64(tick), Dirty: make([]Tile, 0, len(dirty)), Events: events}
	if rec.Events == nil {
		rec.Events = []Event{}
	}
	for _, pt := range dirty {
		rec.Dirty = append(rec.Dirty, tileOf(pt))
	}
	return rec
}
