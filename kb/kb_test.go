package kb

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/minesim/model"
)

var testImages = []model.ImageHandle{{Tag: "test"}}

func obstacle(name string, x, y int) *model.Obstacle {
	return model.NewObstacle(name, model.Pt(x, y), testImages)
}

func ore(name string, x, y int) *model.Ore {
	return model.NewOre(name, model.Pt(x, y), testImages, 100)
}

func TestAddAndOccupancy(t *testing.T) {
	store := NewStore(4, 3)
	o := obstacle("rock", 1, 2)
	if err := store.Add(o); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if !store.IsOccupied(model.Pt(1, 2)) {
		t.Fatalf("tile (1,2) should be occupied")
	}
	if got := store.Occupant(model.Pt(1, 2)); got != o {
		t.Fatalf("Occupant = %v, want rock", got)
	}
	if store.IsOccupied(model.Pt(0, 0)) {
		t.Fatalf("tile (0,0) should be free")
	}
	if store.IsOccupied(model.Pt(-1, 0)) || store.IsOccupied(model.Pt(4, 0)) {
		t.Fatalf("out-of-bounds tiles must report unoccupied")
	}
}

func TestAddErrors(t *testing.T) {
	store := NewStore(2, 2)
	if err := store.Add(obstacle("far", 2, 0)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Add out of bounds err = %v, want ErrOutOfBounds", err)
	}

	a := obstacle("a", 0, 0)
	if err := store.Add(a); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := store.Add(obstacle("b", 0, 0)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("Add on occupied tile err = %v, want ErrOccupied", err)
	}
	if err := store.Add(a); !errors.Is(err, ErrEntityExists) {
		t.Fatalf("Add twice err = %v, want ErrEntityExists", err)
	}
}

func TestRemove(t *testing.T) {
	store := NewStore(3, 3)
	o := ore("ore", 1, 1)
	if err := store.Add(o); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if err := store.Remove(o); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if store.IsOccupied(model.Pt(1, 1)) {
		t.Fatalf("tile should be free after Remove")
	}
	if len(store.Entities()) != 0 {
		t.Fatalf("entity list should be empty after Remove")
	}
	if err := store.Remove(o); !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("second Remove err = %v, want ErrEntityNotFound", err)
	}
}

func TestMove(t *testing.T) {
	store := NewStore(5, 5)
	o := ore("ore", 1, 1)
	if err := store.Add(o); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	dirty, err := store.Move(o, model.Pt(2, 1))
	if err != nil {
		t.Fatalf("Move error: %v", err)
	}
	if len(dirty) != 2 || dirty[0] != model.Pt(1, 1) || dirty[1] != model.Pt(2, 1) {
		t.Fatalf("Move dirty = %v, want [(1,1) (2,1)]", dirty)
	}
	if o.Position() != model.Pt(2, 1) {
		t.Fatalf("position = %v, want (2,1)", o.Position())
	}
	if store.IsOccupied(model.Pt(1, 1)) || store.Occupant(model.Pt(2, 1)) != o {
		t.Fatalf("occupancy not updated after Move")
	}

	dirty, err = store.Move(o, model.Pt(2, 1))
	if err != nil {
		t.Fatalf("Move in place error: %v", err)
	}
	if len(dirty) != 1 || dirty[0] != model.Pt(2, 1) {
		t.Fatalf("Move in place dirty = %v, want [(2,1)]", dirty)
	}

	if err := store.Add(obstacle("rock", 3, 1)); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	if _, err := store.Move(o, model.Pt(3, 1)); !errors.Is(err, ErrOccupied) {
		t.Fatalf("Move onto rock err = %v, want ErrOccupied", err)
	}
	if _, err := store.Move(o, model.Pt(5, 1)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("Move off grid err = %v, want ErrOutOfBounds", err)
	}
}

func TestFindNearest(t *testing.T) {
	store := NewStore(10, 10)
	if got := store.FindNearest(model.Pt(0, 0), model.KindOre); got != nil {
		t.Fatalf("FindNearest on empty store = %v, want nil", got)
	}

	first := ore("first", 2, 0)
	second := ore("second", 0, 2)
	far := ore("far", 9, 9)
	for _, o := range []*model.Ore{far, first, second} {
		if err := store.Add(o); err != nil {
			t.Fatalf("Add error: %v", err)
		}
	}
	if err := store.Add(obstacle("rock", 1, 0)); err != nil {
		t.Fatalf("Add error: %v", err)
	}

	// first and second are equidistant; first was added first.
	if got := store.FindNearest(model.Pt(0, 0), model.KindOre); got != first {
		t.Fatalf("FindNearest = %v, want first", got.Name())
	}
	if got := store.FindNearest(model.Pt(8, 8), model.KindOre); got != far {
		t.Fatalf("FindNearest = %v, want far", got.Name())
	}
	if got := store.FindNearest(model.Pt(0, 0), model.KindVein); got != nil {
		t.Fatalf("FindNearest vein = %v, want nil", got)
	}
}

func TestCountsAndBackground(t *testing.T) {
	store := NewStore(3, 3)
	_ = store.Add(ore("o1", 0, 0))
	_ = store.Add(ore("o2", 1, 0))
	_ = store.Add(obstacle("r", 2, 0))

	counts := store.Counts()
	if counts[model.KindOre] != 2 || counts[model.KindObstacle] != 1 {
		t.Fatalf("Counts = %v", counts)
	}

	bg := model.NewBackground("grass", testImages)
	if err := store.SetBackground(model.Pt(1, 1), bg); err != nil {
		t.Fatalf("SetBackground error: %v", err)
	}
	if got := store.Background(model.Pt(1, 1)); got != bg {
		t.Fatalf("Background = %v, want grass", got)
	}
	if got := store.Background(model.Pt(0, 1)); got != nil {
		t.Fatalf("unset Background = %v, want nil", got)
	}
	if err := store.SetBackground(model.Pt(3, 3), bg); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("SetBackground off grid err = %v, want ErrOutOfBounds", err)
	}
}

func TestSubscribe(t *testing.T) {
	store := NewStore(3, 3)
	var got []Event
	unsubscribe := store.Subscribe(func(e Event) {
		got = append(got, e)
	})

	o := ore("ore", 0, 0)
	_ = store.Add(o)
	_, _ = store.Move(o, model.Pt(1, 0))
	_ = store.Remove(o)

	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	if got[0].Type != EventAdded || got[1].Type != EventMoved || got[2].Type != EventRemoved {
		t.Fatalf("event types = %v %v %v", got[0].Type, got[1].Type, got[2].Type)
	}
	if got[1].From != model.Pt(0, 0) || got[1].To != model.Pt(1, 0) {
		t.Fatalf("move event = %+v", got[1])
	}

	unsubscribe()
	_ = store.Add(o)
	if len(got) != 3 {
		t.Fatalf("unsubscribed callback still called")
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore(20, 20)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Add(ore(fmt.Sprintf("ore-%d", i), i, i))
		}()
		go func() {
			defer wg.Done()
			_ = store.FindNearest(model.Pt(0, 0), model.KindOre)
			_ = store.Entities()
		}()
	}
	wg.Wait()

	if got := store.Counts()[model.KindOre]; got != 10 {
		t.Fatalf("ore count = %d, want 10", got)
	}
}
