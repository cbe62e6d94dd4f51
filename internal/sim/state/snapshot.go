package state

import (
	"fmt"

	"github.com/signalsfoundry/minesim/model"
)

// EntityView is a read-only copy of one entity's observable state.
type EntityView struct {
	Name     string
	Kind     model.Kind
	Position model.Point
	Image    model.ImageHandle
	Pending  int

	Rate             model.Tick
	AnimationRate    model.Tick
	ResourceCount    int
	ResourceLimit    int
	ResourceDistance int
}

// TileView describes one tile: its background and its occupant, if any.
type TileView struct {
	Pt         model.Point
	Background *model.ImageHandle
	Occupant   *EntityView
}

// WorldSnapshot captures a consistent view of the world at one tick.
type WorldSnapshot struct {
	Tick           model.Tick
	Width          int
	Height         int
	PendingActions int
	Counts         map[model.Kind]int
	Entities       []EntityView
	Backgrounds    map[model.Point]model.ImageHandle
}

// Snapshot copies the world under the read lock.
func (s *WorldState) Snapshot() *WorldSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	width, height := s.store.Size()
	snap := &WorldSnapshot{
		Tick:           s.tick,
		Width:          width,
		Height:         height,
		PendingActions: s.sched.Len(),
		Counts:         s.store.Counts(),
		Backgrounds:    make(map[model.Point]model.ImageHandle),
	}
	for _, e := range s.store.Entities() {
		snap.Entities = append(snap.Entities, viewOf(e))
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pt := model.Pt(x, y)
			if bg := s.store.Background(pt); bg != nil {
				snap.Backgrounds[pt] = bg.Image()
			}
		}
	}
	return snap
}

// Entity looks up an entity by name.
func (s *WorldState) Entity(name string) (EntityView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e := s.store.Find(name)
	if e == nil {
		return EntityView{}, fmt.Errorf("%w: %q", ErrEntityNotFound, name)
	}
	return viewOf(e), nil
}

// Tile describes the tile at pt.
func (s *WorldState) Tile(pt model.Point) (TileView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.store.WithinBounds(pt) {
		return TileView{}, fmt.Errorf("tile %v: %w", pt, ErrOutOfBounds)
	}
	tv := TileView{Pt: pt}
	if bg := s.store.Background(pt); bg != nil {
		img := bg.Image()
		tv.Background = &img
	}
	if occ := s.store.Occupant(pt); occ != nil {
		v := viewOf(occ)
		tv.Occupant = &v
	}
	return tv, nil
}

func viewOf(e model.GridItem) EntityView {
	v := EntityView{
		Name:     e.Name(),
		Kind:     e.Kind(),
		Position: e.Position(),
		Image:    e.Image(),
	}
	if occ, ok := e.(model.Occupant); ok {
		v.Pending = len(occ.PendingActions())
	}
	if a, ok := e.(model.Animated); ok {
		v.AnimationRate = a.AnimationRate()
	}
	switch x := e.(type) {
	case *model.MinerNotFull:
		v.Rate, v.ResourceCount, v.ResourceLimit = x.Rate, x.ResourceCount, x.ResourceLimit
	case *model.MinerFull:
		v.Rate, v.ResourceCount, v.ResourceLimit = x.Rate, x.ResourceCount, x.ResourceLimit
	case *model.Vein:
		v.Rate, v.ResourceDistance = x.Rate, x.ResourceDistance
	case *model.Ore:
		v.Rate = x.Rate
	case *model.OreBlob:
		v.Rate = x.Rate
	case *model.Blacksmith:
		v.Rate, v.ResourceCount, v.ResourceLimit, v.ResourceDistance = x.Rate, x.ResourceCount, x.ResourceLimit, x.ResourceDistance
	}
	return v
}
