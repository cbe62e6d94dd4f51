// Package render draws the world on a terminal with tcell. The first row is a
// status line; the world grid starts on the row below it.
package render

import (
	"fmt"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/minesim/internal/imagestore"
	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/model"
)

const statusRows = 1

var statusStyle = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorSilver)

// Renderer paints world tiles onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
	world  *state.WorldState
	images *imagestore.Store

	mu     sync.Mutex
	frames uint64
}

// NewRenderer returns a renderer for world drawing glyphs from images.
func NewRenderer(screen tcell.Screen, world *state.WorldState, images *imagestore.Store) *Renderer {
	return &Renderer{screen: screen, world: world, images: images}
}

// Paint clears the screen and draws every tile from a fresh snapshot.
func (r *Renderer) Paint() {
	snap := r.world.Snapshot()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.screen.Clear()
	for y := 0; y < snap.Height; y++ {
		for x := 0; x < snap.Width; x++ {
			pt := model.Pt(x, y)
			if bg, ok := snap.Backgrounds[pt]; ok {
				r.drawLocked(pt, bg)
			} else {
				r.drawLocked(pt, r.images.Images(model.DefaultImageTag)[0])
			}
		}
	}
	for _, e := range snap.Entities {
		r.drawLocked(e.Position, e.Image)
	}
	r.statusLocked(snap.Tick, len(snap.Entities), snap.PendingActions)
	r.frames++
	r.screen.Show()
}

// Repaint redraws only the given tiles. Tiles outside the world are skipped.
func (r *Renderer) Repaint(tick model.Tick, dirty []model.Point) {
	tiles := make([]state.TileView, 0, len(dirty))
	for _, pt := range dirty {
		tv, err := r.world.Tile(pt)
		if err != nil {
			continue
		}
		tiles = append(tiles, tv)
	}
	pending := r.world.PendingActions()

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tv := range tiles {
		switch {
		case tv.Occupant != nil:
			r.drawLocked(tv.Pt, tv.Occupant.Image)
		case tv.Background != nil:
			r.drawLocked(tv.Pt, *tv.Background)
		default:
			r.drawLocked(tv.Pt, r.images.Images(model.DefaultImageTag)[0])
		}
	}
	r.statusLocked(tick, -1, pending)
	r.frames++
	r.screen.Show()
}

// TickCompleted repaints the tiles dirtied by one simulation step.
func (r *Renderer) TickCompleted(tick model.Tick, dirty []model.Point) {
	r.Repaint(tick, dirty)
}

// TileAt converts a screen cell to a world point.
func (r *Renderer) TileAt(sx, sy int) (model.Point, bool) {
	pt := model.Pt(sx, sy-statusRows)
	if sy < statusRows || !r.world.WithinBounds(pt) {
		return model.Point{}, false
	}
	return pt, true
}

// Frames reports how many times the screen has been shown.
func (r *Renderer) Frames() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

func (r *Renderer) drawLocked(pt model.Point, img model.ImageHandle) {
	g := r.images.Glyph(img)
	r.screen.SetContent(pt.X, pt.Y+statusRows, g.Rune, nil, g.Style)
}

// statusLocked rewrites the status line. A negative entity count leaves the
// count out, which is the case for incremental repaints.
func (r *Renderer) statusLocked(tick model.Tick, entities, pending int) {
	line := fmt.Sprintf(" tick %d  pending %d", tick, pending)
	if entities >= 0 {
		line += fmt.Sprintf("  entities %d", entities)
	}
	line += "  [q] quit  [click] spawn vein"

	width, _ := r.screen.Size()
	col := 0
	for _, ch := range line {
		if col >= width {
			break
		}
		r.screen.SetContent(col, 0, ch, nil, statusStyle)
		col++
	}
	for ; col < width; col++ {
		r.screen.SetContent(col, 0, ' ', nil, statusStyle)
	}
}
