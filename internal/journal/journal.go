package journal

import (
	"context"
	"errors"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/internal/sim/state"
	"github.com/signalsfoundry/minesim/model"
)

// Writer stores records.
type Writer interface {
	WriteRecord(rec Record) error
	Close() error
}

// Journal turns completed ticks into records and hands them to every writer.
type Journal struct {
	batcher Batcher
	writers []Writer
	log     logging.Logger
}

// New returns a journal fanning out to writers.
func New(log logging.Logger, writers ...Writer) *Journal {
	if log == nil {
		log = logging.Noop()
	}
	return &Journal{writers: writers, log: log}
}

// Observe buffers world events until the next completed tick. It has the
// signature expected by state.WorldState.Subscribe.
func (j *Journal) Observe(events []state.Event) { j.batcher.Observe(events) }

// TickCompleted writes the record for tick. Write errors are logged; one
// failing writer does not stop the others.
func (j *Journal) TickCompleted(tick model.Tick, dirty []model.Point) {
	rec := j.batcher.Take(tick, dirty)
	if len(rec.Dirty) == 0 && len(rec.Events) == 0 {
		return
	}
	for _, w := range j.writers {
		if err := w.WriteRecord(rec); err != nil {
			j.log.Warn(context.Background(), "journal write failed",
				logging.Int64("tick", rec.Tick),
				logging.Err(err),
			)
		}
	}
}

// Close closes every writer.
func (j *Journal) Close() error {
	var errs []error
	for _, w := range j.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
