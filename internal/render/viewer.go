package render

import (
	"context"

	"github.com/gdamore/tcell/v2"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/model"
)

// ClickFunc handles a left click on a world tile.
type ClickFunc func(ctx context.Context, pt model.Point) error

// Viewer runs the terminal input loop around a Renderer.
type Viewer struct {
	screen   tcell.Screen
	renderer *Renderer
	onClick  ClickFunc
	log      logging.Logger
}

// NewViewer wires screen input to renderer. onClick may be nil.
func NewViewer(screen tcell.Screen, renderer *Renderer, onClick ClickFunc, log logging.Logger) *Viewer {
	if log == nil {
		log = logging.Noop()
	}
	return &Viewer{screen: screen, renderer: renderer, onClick: onClick, log: log}
}

// Run paints the world and processes input until the user quits or ctx is
// cancelled. It returns nil in both cases.
func (v *Viewer) Run(ctx context.Context) error {
	v.screen.EnableMouse()
	v.renderer.Paint()

	events := make(chan tcell.Event, 64)
	quit := make(chan struct{})
	defer close(quit)
	go v.screen.ChannelEvents(events, quit)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !v.handle(ctx, ev) {
				return nil
			}
		}
	}
}

// handle processes one event and reports whether the loop should continue.
func (v *Viewer) handle(ctx context.Context, ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape, ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRune && (ev.Rune() == 'q' || ev.Rune() == 'Q'):
			return false
		}
	case *tcell.EventResize:
		v.screen.Sync()
		v.renderer.Paint()
	case *tcell.EventMouse:
		if ev.Buttons()&tcell.Button1 == 0 || v.onClick == nil {
			return true
		}
		pt, ok := v.renderer.TileAt(ev.Position())
		if !ok {
			return true
		}
		if err := v.onClick(ctx, pt); err != nil {
			v.log.Debug(ctx, "click ignored",
				logging.Int("x", pt.X),
				logging.Int("y", pt.Y),
				logging.Err(err),
			)
			return true
		}
		v.renderer.Repaint(v.renderer.world.Tick(), []model.Point{pt})
	}
	return true
}
