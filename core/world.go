package core

import (
	"github.com/signalsfoundry/minesim/model"
)

// World is everything the engine needs from the surrounding world: the
// occupancy grid and the scheduler. All calls happen from inside a drain and
// must not block.
type World interface {
	Occupancy

	// AddEntity places e on its own position.
	AddEntity(e model.GridItem) error
	// RemoveEntity takes e off the grid. It does not touch e's pending actions.
	RemoveEntity(e model.GridItem) error
	// MoveEntity relocates e and returns the tiles dirtied by the move.
	MoveEntity(e model.GridItem, pt model.Point) ([]model.Point, error)
	// FindNearest returns the nearest item of the given kind, or nil.
	FindNearest(pt model.Point, kind model.Kind) model.GridItem

	ScheduleAction(a *model.Action, at model.Tick)
	UnscheduleAction(a *model.Action)
}

// Occupancy is the read-only tile view used by the movement heuristics.
type Occupancy interface {
	WithinBounds(pt model.Point) bool
	IsOccupied(pt model.Point) bool
	// TileOccupant returns the item on pt, or nil.
	TileOccupant(pt model.Point) model.GridItem
}

// Queue hands back due actions. Drain calls fire for every action due at or
// before now, in firing order, and returns how many fired. Actions scheduled
// while draining wait for the next call.
type Queue interface {
	Drain(now model.Tick, fire func(*model.Action)) int
}

// ImageStore resolves an image tag to its frames.
type ImageStore interface {
	Images(tag string) []model.ImageHandle
}
