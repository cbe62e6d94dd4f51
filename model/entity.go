package model

import "fmt"

// Tick is the simulated time unit. One tick is one millisecond of game time.
type Tick int64

// DefaultImageTag names the frames used when a tag has no images of its own.
const DefaultImageTag = "background_default"

// ImageHandle is an opaque reference to one animation frame. The core never
// looks inside it; the image store resolves it for rendering.
type ImageHandle struct {
	Tag   string
	Frame int
}

// Entity is the capability shared by everything drawn on the grid: a name and
// a cyclic set of animation frames.
type Entity interface {
	Name() string
	Kind() Kind
	Images() []ImageHandle
	Image() ImageHandle
	Frame() int
	NextImage()
}

// GridItem is an Entity placed on a tile. The occupancy store owns the
// mapping from tile to item; Position is the item's own record of it.
type GridItem interface {
	Entity
	Position() Point
	SetPosition(Point)
}

// Occupant is a GridItem that takes part in scheduling. Every action the
// scheduler holds on behalf of an occupant is also in its pending set.
type Occupant interface {
	GridItem
	AddPendingAction(*Action)
	RemovePendingAction(*Action) bool
	PendingActions() []*Action
	ClearPendingActions()
}

// Animated is implemented by occupants that run an animation cycle.
type Animated interface {
	Occupant
	AnimationRate() Tick
}

type sprite struct {
	name   string
	images []ImageHandle
	frame  int
}

func newSprite(name string, images []ImageHandle) sprite {
	if len(images) == 0 {
		panic(fmt.Sprintf("model: entity %q has no images", name))
	}
	return sprite{name: name, images: images}
}

func (s *sprite) Name() string { return s.name }

// Images returns the frame set. Callers must treat it as read-only.
func (s *sprite) Images() []ImageHandle { return s.images }

func (s *sprite) Image() ImageHandle { return s.images[s.frame] }

func (s *sprite) Frame() int { return s.frame }

func (s *sprite) NextImage() {
	s.frame = (s.frame + 1) % len(s.images)
}

type placed struct {
	sprite
	pos Point
}

func (p *placed) Position() Point { return p.pos }

func (p *placed) SetPosition(pt Point) { p.pos = pt }

type occupant struct {
	placed
	pending []*Action
}

func (o *occupant) AddPendingAction(a *Action) {
	o.pending = append(o.pending, a)
}

// RemovePendingAction drops a from the pending set, keeping insertion order
// of the rest. It reports false when a was not pending.
func (o *occupant) RemovePendingAction(a *Action) bool {
	for i, p := range o.pending {
		if p == a {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return true
		}
	}
	return false
}

// PendingActions returns a copy of the pending set in insertion order.
func (o *occupant) PendingActions() []*Action {
	return append([]*Action(nil), o.pending...)
}

func (o *occupant) ClearPendingActions() { o.pending = nil }

type animated struct {
	animationRate Tick
}

func (a *animated) AnimationRate() Tick { return a.animationRate }
