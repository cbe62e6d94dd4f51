// Package schedule holds the time-ordered queue of pending actions.
package schedule

import (
	"container/heap"
	"fmt"
	"sync"

	"github.com/signalsfoundry/minesim/model"
)

// Scheduler orders actions by the tick they are due at. Actions due at the
// same tick fire in the order they were scheduled, so a replay with the same
// inputs fires the same sequence.
//
// The engine drives it with Drain once per tick. Actions scheduled while a
// drain is running never fire in that same drain, even if they are due: they
// wait for the next one. This keeps a zero-delay action from recursing within
// a single tick.
type Scheduler struct {
	mu      sync.Mutex
	counter uint64
	now     model.Tick
	queue   entryHeap
	index   map[*model.Action]*entry
}

// entry is one scheduled action. Cancelled entries stay in the heap until
// they reach the top; Drain skips them.
type entry struct {
	action    *model.Action
	at        model.Tick
	seq       uint64
	cancelled bool
}

// New returns an empty scheduler positioned at tick 0.
func New() *Scheduler {
	return &Scheduler{index: make(map[*model.Action]*entry)}
}

// Schedule registers a to fire at the absolute tick at. Scheduling an action
// that is already pending, or scheduling into a tick that has already been
// drained, is a programming error and panics.
func (s *Scheduler) Schedule(a *model.Action, at model.Tick) {
	if a == nil {
		panic("schedule: nil action")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[a]; exists {
		panic(fmt.Sprintf("schedule: %s action for %q scheduled twice", a.Kind, targetName(a)))
	}
	if at < s.now {
		panic(fmt.Sprintf("schedule: %s action for %q at tick %d, before current tick %d", a.Kind, targetName(a), at, s.now))
	}

	s.counter++
	ev := &entry{action: a, at: at, seq: s.counter}
	heap.Push(&s.queue, ev)
	s.index[a] = ev
}

// Unschedule cancels a. It is a no-op if a already fired or was never
// scheduled.
func (s *Scheduler) Unschedule(a *model.Action) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[a]
	if !ok {
		return
	}
	ev.cancelled = true
	delete(s.index, a)
}

// Scheduled reports the tick a is due at, if it is still pending.
func (s *Scheduler) Scheduled(a *model.Action) (model.Tick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.index[a]
	if !ok {
		return 0, false
	}
	return ev.at, true
}

// Len returns the number of live (not cancelled, not fired) actions.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.index)
}

// Now returns the tick of the most recent drain.
func (s *Scheduler) Now() model.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// NextTick returns the tick of the earliest live action.
func (s *Scheduler) NextTick() (model.Tick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.queue.Len() > 0 {
		ev := s.queue[0]
		if ev.cancelled {
			heap.Pop(&s.queue)
			continue
		}
		return ev.at, true
	}
	return 0, false
}

// PopDue removes and returns, in firing order, every action due at or before
// now.
func (s *Scheduler) PopDue(now model.Tick) []*model.Action {
	var due []*model.Action
	s.Drain(now, func(a *model.Action) {
		due = append(due, a)
	})
	return due
}

// Drain fires every action due at or before now, one at a time and in
// firing order, and returns how many fired. fire runs without the scheduler
// lock held so it may schedule and unschedule freely; an action cancelled by
// an earlier fire in the same drain does not fire.
func (s *Scheduler) Drain(now model.Tick, fire func(*model.Action)) int {
	s.mu.Lock()
	if now < s.now {
		s.mu.Unlock()
		panic(fmt.Sprintf("schedule: drain at tick %d after tick %d", now, s.now))
	}
	s.now = now
	barrier := s.counter
	s.mu.Unlock()

	var deferred []*entry
	fired := 0
	for {
		s.mu.Lock()
		ev := s.popNextLocked(now, barrier, &deferred)
		s.mu.Unlock()
		if ev == nil {
			break
		}

		// Execute outside the lock; actions reschedule themselves.
		if fire != nil {
			fire(ev.action)
		}
		fired++
	}

	if len(deferred) > 0 {
		s.mu.Lock()
		for _, ev := range deferred {
			heap.Push(&s.queue, ev)
		}
		s.mu.Unlock()
	}
	return fired
}

// popNextLocked removes and returns the next due entry that was scheduled
// before the drain started. Entries scheduled during the drain are set aside
// in deferred. Caller must hold s.mu.
func (s *Scheduler) popNextLocked(now model.Tick, barrier uint64, deferred *[]*entry) *entry {
	for s.queue.Len() > 0 {
		ev := s.queue[0]
		if ev.cancelled {
			heap.Pop(&s.queue)
			continue
		}
		if ev.at > now {
			return nil
		}
		heap.Pop(&s.queue)
		if ev.seq > barrier {
			*deferred = append(*deferred, ev)
			continue
		}
		delete(s.index, ev.action)
		return ev
	}
	return nil
}

func targetName(a *model.Action) string {
	if a.Target == nil {
		return ""
	}
	return a.Target.Name()
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x interface{}) {
	*h = append(*h, x.(*entry))
}

func (h *entryHeap) Pop() (v interface{}) {
	old := *h
	last := len(old) - 1
	v, *h = old[last], old[:last]
	return v
}
