package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/signalsfoundry/minesim/model"
)

func TestSimCollectorRecordsActionsAndTransforms(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	c.ActionFired("miner_cycle")
	c.ActionFired("miner_cycle")
	c.ActionFired("animate")
	c.Transformed("ore", "ore_blob")

	if got := testutil.ToFloat64(c.ActionsFired.WithLabelValues("miner_cycle")); got != 2 {
		t.Fatalf("sim_actions_fired_total{kind=miner_cycle} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.Transforms.WithLabelValues("ore", "ore_blob")); got != 1 {
		t.Fatalf("sim_transforms_total{ore->ore_blob} = %v, want 1", got)
	}
}

func TestSimCollectorStepAndCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewSimCollector(reg)
	if err != nil {
		t.Fatalf("NewSimCollector: %v", err)
	}

	c.ObserveStep(2*time.Millisecond, 3)
	c.ObserveStep(time.Millisecond, 2)
	if got := testutil.ToFloat64(c.Ticks); got != 2 {
		t.Fatalf("sim_ticks_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.DirtyTiles); got != 5 {
		t.Fatalf("sim_dirty_tiles_total = %v, want 5", got)
	}
	if count := histogramSampleCount(t, reg, "sim_drain_duration_seconds", nil); count != 2 {
		t.Fatalf("sim_drain_duration_seconds sample_count = %d, want 2", count)
	}

	c.SetWorldCounts(map[model.Kind]int{model.KindOre: 4}, 9)
	c.SetWorldCounts(map[model.Kind]int{model.KindOreBlob: 1}, 2)
	if got := testutil.ToFloat64(c.Entities.WithLabelValues("ore")); got != 0 {
		t.Fatalf("sim_entities{kind=ore} = %v, want 0 after ore vanished", got)
	}
	if got := testutil.ToFloat64(c.Entities.WithLabelValues("ore_blob")); got != 1 {
		t.Fatalf("sim_entities{kind=ore_blob} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.PendingActions); got != 2 {
		t.Fatalf("sim_pending_actions = %v, want 2", got)
	}
}

func TestNilSimCollectorIsSafe(t *testing.T) {
	var c *SimCollector
	c.ActionFired("animate")
	c.Transformed("a", "b")
	c.ObserveStep(time.Second, 1)
	c.SetWorldCounts(nil, 0)
}
