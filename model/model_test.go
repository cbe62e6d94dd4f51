package model

import "testing"

func frames(tag string, n int) []ImageHandle {
	out := make([]ImageHandle, n)
	for i := range out {
		out[i] = ImageHandle{Tag: tag, Frame: i}
	}
	return out
}

func TestPointAdjacent(t *testing.T) {
	origin := Pt(5, 5)
	cases := []struct {
		other Point
		want  bool
	}{
		{Pt(5, 5), false},
		{Pt(6, 5), true},
		{Pt(4, 4), true},
		{Pt(6, 6), true},
		{Pt(5, 7), false},
		{Pt(7, 6), false},
	}
	for _, tc := range cases {
		if got := origin.Adjacent(tc.other); got != tc.want {
			t.Fatalf("%v.Adjacent(%v) = %v, want %v", origin, tc.other, got, tc.want)
		}
	}
}

func TestNextImageCycles(t *testing.T) {
	ore := NewOre("o", Pt(0, 0), frames("ore", 3), 10)
	for i := 0; i < 4; i++ {
		ore.NextImage()
	}
	if ore.Frame() != 1 {
		t.Fatalf("frame = %d, want 1", ore.Frame())
	}
	if ore.Image() != (ImageHandle{Tag: "ore", Frame: 1}) {
		t.Fatalf("image = %+v", ore.Image())
	}
}

func TestNewEntityWithoutImagesPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for empty frame set")
		}
	}()
	NewObstacle("rock", Pt(0, 0), nil)
}

func TestPendingActionSet(t *testing.T) {
	vein := NewVein("v", Pt(1, 1), frames("vein", 1), 100, 1)
	a := NewAction(ActionKindVeinCycle, vein)
	b := NewAction(ActionKindVeinCycle, vein)
	vein.AddPendingAction(a)
	vein.AddPendingAction(b)

	if !vein.RemovePendingAction(a) {
		t.Fatalf("expected a to be pending")
	}
	if vein.RemovePendingAction(a) {
		t.Fatalf("a removed twice")
	}
	pending := vein.PendingActions()
	if len(pending) != 1 || pending[0] != b {
		t.Fatalf("pending = %v, want [b]", pending)
	}

	pending[0] = nil
	if vein.PendingActions()[0] != b {
		t.Fatalf("PendingActions must return a copy")
	}

	vein.ClearPendingActions()
	if len(vein.PendingActions()) != 0 {
		t.Fatalf("pending not cleared")
	}
}

func TestMinerTransformsPreserveSharedFields(t *testing.T) {
	notFull := NewMinerNotFull("m", Pt(3, 4), frames("miner", 2), 700, 2, 90)
	notFull.ResourceCount = 2
	notFull.AddPendingAction(NewAction(ActionKindAnimate, notFull))

	full := notFull.Full()
	if full.Name() != "m" || full.Position() != Pt(3, 4) || full.Rate != 700 || full.AnimationRate() != 90 {
		t.Fatalf("full miner lost shared fields: %+v", full)
	}
	if full.ResourceCount != full.ResourceLimit {
		t.Fatalf("full miner count = %d, want limit %d", full.ResourceCount, full.ResourceLimit)
	}
	if len(full.PendingActions()) != 0 {
		t.Fatalf("transformed miner must start with no pending actions")
	}

	back := full.NotFull()
	if back.ResourceCount != 0 || back.ResourceLimit != 2 || back.Position() != Pt(3, 4) {
		t.Fatalf("not-full miner = %+v", back)
	}
	if back.Kind() != KindMinerNotFull || full.Kind() != KindMinerFull {
		t.Fatalf("unexpected kinds %v / %v", back.Kind(), full.Kind())
	}
}

func TestEncode(t *testing.T) {
	cases := []struct {
		item GridItem
		want string
		ok   bool
	}{
		{NewMinerNotFull("bob", Pt(1, 2), frames("miner", 1), 500, 4, 100), "miner bob 1 2 4 500 100", true},
		{NewMinerFull("bob", Pt(1, 2), frames("miner", 1), 500, 4, 100), "miner bob 1 2 4 500 100", true},
		{NewVein("v1", Pt(3, 3), frames("vein", 1), 9000, 2), "vein v1 3 3 9000 2", true},
		{NewOre("o1", Pt(0, 7), frames("ore", 1), 25000), "ore o1 0 7 25000", true},
		{NewBlacksmith("smith", Pt(9, 9), frames("blacksmith", 1), 10, 1000, 1), "blacksmith smith 9 9 10 1000 1", true},
		{NewObstacle("rock", Pt(2, 0), frames("obstacle", 1)), "obstacle rock 2 0", true},
		{NewOreBlob("blob", Pt(2, 0), frames("blob", 1), 10, 50), "", false},
		{NewQuake("quake", Pt(2, 0), frames("quake", 1), 100), "", false},
	}
	for _, tc := range cases {
		got, ok := Encode(tc.item)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("Encode(%s) = %q, %v; want %q, %v", tc.item.Kind(), got, ok, tc.want, tc.ok)
		}
	}

	bg := NewBackground("grass", frames("grass", 1))
	if got := EncodeBackground(bg, Pt(4, 5)); got != "background grass 4 5" {
		t.Fatalf("EncodeBackground = %q", got)
	}
}
