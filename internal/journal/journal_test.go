package journal

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/model"
)

type recordingWriter struct {
	records  []Record
	writeErr error
	closeErr error
	closed   bool
}

func (w *recordingWriter) WriteRecord(rec Record) error {
	w.records = append(w.records, rec)
	return w.writeErr
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return w.closeErr
}

func TestJournalBatchesWorldEventsPerTick(t *testing.T) {
	s := state.NewWorldState(4, 4, logging.Noop())
	w := &recordingWriter{}
	j := New(nil, w)
	defer s.Subscribe(j.Observe)()

	rock := model.NewObstacle("rock", model.Pt(1, 1), []model.ImageHandle{{Tag: "obstacle"}})
	err := s.Mutate(func(model.Tick) error {
		if err := s.AddEntity(rock); err != nil {
			return err
		}
		_, err := s.MoveEntity(rock, model.Pt(2, 1))
		return err
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}

	j.TickCompleted(10, []model.Point{model.Pt(1, 1), model.Pt(2, 1)})
	j.TickCompleted(20, nil)

	if len(w.records) != 1 {
		t.Fatalf("records = %d, want 1 (empty ticks are skipped)", len(w.records))
	}
	rec := w.records[0]
	if rec.Tick != 10 || len(rec.Dirty) != 2 || rec.Dirty[1] != (Tile{X: 2, Y: 1}) {
		t.Fatalf("record = %+v", rec)
	}
	if len(rec.Events) != 2 {
		t.Fatalf("events = %+v, want added then moved", rec.Events)
	}
	added, moved := rec.Events[0], rec.Events[1]
	if added.Type != "added" || added.Kind != "obstacle" || added.From != nil || added.To != (Tile{X: 1, Y: 1}) {
		t.Fatalf("added = %+v", added)
	}
	if moved.Type != "moved" || moved.From == nil || *moved.From != (Tile{X: 1, Y: 1}) || moved.To != (Tile{X: 2, Y: 1}) {
		t.Fatalf("moved = %+v", moved)
	}
}

func TestJournalKeepsWritingAfterAFailure(t *testing.T) {
	bad := &recordingWriter{writeErr: errors.New("disk full"), closeErr: errors.New("close failed")}
	good := &recordingWriter{}
	j := New(logging.Noop(), bad, good)

	j.TickCompleted(1, []model.Point{model.Pt(0, 0)})
	if len(good.records) != 1 {
		t.Fatalf("good writer got %d records", len(good.records))
	}
	if err := j.Close(); err == nil {
		t.Fatalf("Close should report the failing writer")
	}
	if !bad.closed || !good.closed {
		t.Fatalf("every writer should be closed")
	}
}

func TestSegmentWriterRotatesByTick(t *testing.T) {
	dir := t.TempDir()
	w := NewSegmentWriter(dir, 10)
	for _, tick := range []int64{1, 5, 12, 31} {
		if err := w.WriteRecord(Record{Tick: tick, Dirty: []Tile{{X: int(tick), Y: 0}}, Events: []Event{}}); err != nil {
			t.Fatalf("WriteRecord(%d): %v", tick, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("segments = %d, want 3", len(entries))
	}

	first, err := ReadSegment(w.Path(0))
	if err != nil {
		t.Fatalf("ReadSegment: %v", err)
	}
	if len(first) != 2 || first[0].Tick != 1 || first[1].Tick != 5 {
		t.Fatalf("segment 0 = %+v", first)
	}
	if _, err := os.Stat(filepath.Join(dir, "events-00000003.jsonl.zst")); err != nil {
		t.Fatalf("segment 3 missing: %v", err)
	}
}

func TestSegmentWriterAppendsToExistingSegment(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []int64{2, 4} {
		w := NewSegmentWriter(dir, 100)
		if err := w.WriteRecord(Record{Tick: tick, Dirty: []Tile{}, Events: []Event{}}); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
	recs, err := ReadSegment(NewSegmentWriter(dir, 100).Path(0))
	if err != nil {
		t.Fatalf("ReadSegment: %v", err)
	}
	if len(recs) != 2 || recs[1].Tick != 4 {
		t.Fatalf("records = %+v", recs)
	}
}

func TestSQLiteIndexStoresTicksAndEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	from := Tile{X: 1, Y: 1}
	recs := []Record{
		{Tick: 10, Dirty: []Tile{{X: 1, Y: 1}}, Events: []Event{
			{Tick: 10, Type: "added", Kind: "ore", Name: "o1", To: Tile{X: 1, Y: 1}},
		}},
		{Tick: 20, Dirty: []Tile{{X: 1, Y: 1}, {X: 2, Y: 1}}, Events: []Event{
			{Tick: 20, Type: "moved", Kind: "miner_not_full", Name: "m", From: &from, To: Tile{X: 2, Y: 1}},
			{Tick: 20, Type: "removed", Kind: "ore", Name: "o1", To: Tile{X: 1, Y: 1}},
		}},
	}
	for _, rec := range recs {
		if err := idx.WriteRecord(rec); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if idx.Dropped() != 0 {
		t.Fatalf("dropped = %d", idx.Dropped())
	}
	if err := idx.WriteRecord(recs[0]); err != nil {
		t.Fatalf("WriteRecord after close: %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()

	var ticks, events int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks`).Scan(&ticks); err != nil {
		t.Fatalf("count ticks: %v", err)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&events); err != nil {
		t.Fatalf("count events: %v", err)
	}
	if ticks != 2 || events != 3 {
		t.Fatalf("ticks=%d events=%d, want 2 and 3", ticks, events)
	}

	var dirty, n int
	if err := db.QueryRow(`SELECT dirty, events FROM ticks WHERE tick=20`).Scan(&dirty, &n); err != nil {
		t.Fatalf("tick 20: %v", err)
	}
	if dirty != 2 || n != 2 {
		t.Fatalf("tick 20 dirty=%d events=%d", dirty, n)
	}

	var (
		name         string
		fromX, fromY sql.NullInt64
	)
	row := db.QueryRow(`SELECT name, from_x, from_y FROM events WHERE tick=20 AND seq=0`)
	if err := row.Scan(&name, &fromX, &fromY); err != nil {
		t.Fatalf("event row: %v", err)
	}
	if name != "m" || !fromX.Valid || fromX.Int64 != 1 || fromY.Int64 != 1 {
		t.Fatalf("moved row name=%q from=(%v,%v)", name, fromX, fromY)
	}
	row = db.QueryRow(`SELECT from_x FROM events WHERE tick=10 AND seq=0`)
	if err := row.Scan(&fromX); err != nil || fromX.Valid {
		t.Fatalf("added row from_x = %v, err %v; want NULL", fromX, err)
	}
}
