package core

import (
	"context"
	"math/rand"
	"testing"

	"github.com/signalsfoundry/minesim/internal/schedule"
	"github.com/signalsfoundry/minesim/kb"
	"github.com/signalsfoundry/minesim/model"
)

// testWorld adapts a kb.Store and a Scheduler to World and Queue without
// any locking.
type testWorld struct {
	*kb.Store
	sched *schedule.Scheduler
}

func newTestWorld(width, height int) *testWorld {
	return &testWorld{Store: kb.NewStore(width, height), sched: schedule.New()}
}

func (w *testWorld) TileOccupant(pt model.Point) model.GridItem { return w.Occupant(pt) }
func (w *testWorld) AddEntity(e model.GridItem) error           { return w.Add(e) }
func (w *testWorld) RemoveEntity(e model.GridItem) error        { return w.Remove(e) }
func (w *testWorld) MoveEntity(e model.GridItem, pt model.Point) ([]model.Point, error) {
	return w.Move(e, pt)
}
func (w *testWorld) ScheduleAction(a *model.Action, at model.Tick) { w.sched.Schedule(a, at) }
func (w *testWorld) UnscheduleAction(a *model.Action)              { w.sched.Unschedule(a) }
func (w *testWorld) Drain(now model.Tick, fire func(*model.Action)) int {
	return w.sched.Drain(now, fire)
}

// tagImages returns two frames for every tag.
type tagImages struct{}

func (tagImages) Images(tag string) []model.ImageHandle {
	return []model.ImageHandle{{Tag: tag, Frame: 0}, {Tag: tag, Frame: 1}}
}

type recordingMetrics struct {
	fired      map[string]int
	transforms []string
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{fired: make(map[string]int)}
}

func (r *recordingMetrics) ActionFired(kind string) { r.fired[kind]++ }
func (r *recordingMetrics) Transformed(from, to string) {
	r.transforms = append(r.transforms, from+"->"+to)
}

func newTestEngine(w *testWorld, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithRand(rand.New(rand.NewSource(1)))}, opts...)
	return NewEngine(w, w, tagImages{}, opts...)
}

var testImages = tagImages{}.Images("test")

// place adds item to the world and starts it at tick 0.
func place(t *testing.T, w *testWorld, e *Engine, item model.GridItem) {
	t.Helper()
	if err := w.AddEntity(item); err != nil {
		t.Fatalf("AddEntity(%s) error: %v", item.Name(), err)
	}
	if occ, ok := item.(model.Occupant); ok {
		e.StartEntity(occ, 0)
	}
}

func runTo(e *Engine, now model.Tick) ([]model.Point, int) {
	return e.Step(context.Background(), now)
}

func pendingOf(occ model.Occupant, kind model.ActionKind) *model.Action {
	for _, a := range occ.PendingActions() {
		if a.Kind == kind {
			return a
		}
	}
	return nil
}

func assertUnscheduled(t *testing.T, w *testWorld, actions []*model.Action) {
	t.Helper()
	for _, a := range actions {
		if at, ok := w.sched.Scheduled(a); ok {
			t.Fatalf("%s action still scheduled at %d", a.Kind, at)
		}
	}
}
