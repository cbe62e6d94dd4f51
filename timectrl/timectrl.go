package timectrl

import (
	"context"
	"sync"
	"time"

	"github.com/signalsfoundry/minesim/model"
)

// Mode describes how the TimeController advances simulated time.
type Mode int

const (
	// RealTime advances Step ticks every Interval of wall-clock time.
	RealTime Mode = iota
	// Accelerated advances as quickly as the listeners allow.
	Accelerated
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// ParseMode maps a mode name back to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "realtime", "":
		return RealTime, true
	case "accelerated":
		return Accelerated, true
	default:
		return RealTime, false
	}
}

// TimeController drives simulated time and notifies registered listeners
// with the new tick after every advance.
type TimeController struct {
	mu       sync.RWMutex
	Start    model.Tick
	Step     model.Tick
	Interval time.Duration
	Mode     Mode

	current   model.Tick
	listeners []func(model.Tick)
}

// NewTimeController constructs a controller positioned at start.
func NewTimeController(start, step model.Tick, interval time.Duration, mode Mode) *TimeController {
	if step <= 0 {
		step = 1
	}
	return &TimeController{
		Start:    start,
		Step:     step,
		Interval: interval,
		Mode:     mode,
		current:  start,
	}
}

// Now returns the current tick.
func (tc *TimeController) Now() model.Tick {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.current
}

// AddListener registers a callback invoked after every advance.
func (tc *TimeController) AddListener(fn func(model.Tick)) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.listeners = append(tc.listeners, fn)
}

// Advance moves time forward by one Step and notifies listeners
// synchronously. It returns the new tick.
func (tc *TimeController) Advance() model.Tick {
	tc.mu.Lock()
	tc.current += tc.Step
	now := tc.current
	listeners := append([]func(model.Tick){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
	return now
}

// Run advances time until duration ticks have elapsed (forever when duration
// is not positive) or ctx is cancelled. It returns ctx.Err() on
// cancellation and nil when the duration is reached.
func (tc *TimeController) Run(ctx context.Context, duration model.Tick) error {
	start := tc.Now()

	var tick <-chan time.Time
	if tc.Mode == RealTime && tc.Interval > 0 {
		ticker := time.NewTicker(tc.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if duration > 0 && tc.Now()-start >= duration {
			return nil
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
		tc.Advance()
	}
}
