package core

import "github.com/signalsfoundry/minesim/model"

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

// NextPosition picks one step from cur toward dest: horizontal first, then
// vertical, else stay put. A step is blocked when its tile is occupied.
func NextPosition(w Occupancy, cur, dest model.Point) model.Point {
	return step(cur, dest, w.IsOccupied)
}

// BlobNextPosition is NextPosition for blobs: tiles holding ore count as
// open, since a blob eats the ore it steps on.
func BlobNextPosition(w Occupancy, cur, dest model.Point) model.Point {
	return step(cur, dest, func(pt model.Point) bool {
		if !w.IsOccupied(pt) {
			return false
		}
		occ := w.TileOccupant(pt)
		return occ == nil || occ.Kind() != model.KindOre
	})
}

func step(cur, dest model.Point, blocked func(model.Point) bool) model.Point {
	if dx := sign(dest.X - cur.X); dx != 0 {
		if next := cur.Add(dx, 0); !blocked(next) {
			return next
		}
	}
	if dy := sign(dest.Y - cur.Y); dy != 0 {
		if next := cur.Add(0, dy); !blocked(next) {
			return next
		}
	}
	return cur
}

// FindOpenAround scans the square of the given radius around pt row by row
// and returns the first in-bounds, unoccupied tile.
func FindOpenAround(w Occupancy, pt model.Point, distance int) (model.Point, bool) {
	for dy := -distance; dy <= distance; dy++ {
		for dx := -distance; dx <= distance; dx++ {
			next := pt.Add(dx, dy)
			if w.WithinBounds(next) && !w.IsOccupied(next) {
				return next, true
			}
		}
	}
	return model.Point{}, false
}
