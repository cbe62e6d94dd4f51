package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/model"
)

// minerNotFullCycle walks toward the nearest ore and collects it once
// adjacent. A miner that reaches its limit is replaced by a MinerFull.
func (e *Engine) minerNotFullCycle(ctx context.Context, m *model.MinerNotFull, now model.Tick) []model.Point {
	pos := m.Position()

	var tiles []model.Point
	found := false
	switch ore := e.world.FindNearest(pos, model.KindOre); {
	case ore == nil:
		tiles = []model.Point{pos}
	case pos.Adjacent(ore.Position()):
		m.ResourceCount++
		tiles = []model.Point{ore.Position()}
		e.mustRemove(ore)
		found = true
	default:
		tiles = e.mustMove(m, NextPosition(e.world, pos, ore.Position()))
	}

	var next model.Occupant = m
	if found && m.ResourceCount >= m.ResourceLimit {
		full := m.Full()
		e.replace(ctx, m, full)
		e.ScheduleAnimation(full, 0, now)
		next = full
	}
	e.Schedule(model.NewAction(model.ActionKindMinerCycle, next), now+m.Rate)
	return tiles
}

// minerFullCycle walks toward the nearest blacksmith and unloads once
// adjacent, after which the miner reverts to a MinerNotFull.
func (e *Engine) minerFullCycle(ctx context.Context, m *model.MinerFull, now model.Tick) []model.Point {
	pos := m.Position()

	var tiles []model.Point
	found := false
	switch smith := e.world.FindNearest(pos, model.KindBlacksmith); {
	case smith == nil:
		tiles = []model.Point{pos}
	case pos.Adjacent(smith.Position()):
		if b, ok := smith.(*model.Blacksmith); ok {
			b.ResourceCount += m.ResourceCount
		}
		m.ResourceCount = 0
		found = true
	default:
		tiles = e.mustMove(m, NextPosition(e.world, pos, smith.Position()))
	}

	var next model.Occupant = m
	if found {
		empty := m.NotFull()
		e.replace(ctx, m, empty)
		e.ScheduleAnimation(empty, 0, now)
		next = empty
	}
	e.Schedule(model.NewAction(model.ActionKindMinerCycle, next), now+m.Rate)
	return tiles
}

// veinCycle spawns one ore on the first open tile around the vein.
func (e *Engine) veinCycle(ctx context.Context, v *model.Vein, now model.Tick) []model.Point {
	var tiles []model.Point
	if pt, ok := FindOpenAround(e.world, v.Position(), v.ResourceDistance); ok {
		ore := e.CreateOre(fmt.Sprintf("ore-%s-%d", v.Name(), now), pt, now)
		e.mustAdd(ore)
		tiles = []model.Point{pt}
		e.log.Debug(ctx, "ore spawned",
			logging.String("name", ore.Name()),
			logging.String("vein", v.Name()),
			logging.Int("x", pt.X),
			logging.Int("y", pt.Y),
		)
	}
	e.Schedule(model.NewAction(model.ActionKindVeinCycle, v), now+v.Rate)
	return tiles
}

// oreTransform replaces a corrupted ore with a blob on the same tile.
func (e *Engine) oreTransform(ctx context.Context, o *model.Ore, now model.Tick) []model.Point {
	scale := e.tuning.BlobRateScale
	if scale <= 0 {
		scale = 1
	}
	pos := o.Position()
	blob := e.CreateBlob(o.Name()+"-blob", pos, o.Rate/scale, now)
	e.replace(ctx, o, blob)
	return []model.Point{pos}
}

// blobCycle hunts the nearest vein, eating ore on the way. Consuming a vein
// leaves a quake behind and doubles the wait before the next cycle.
func (e *Engine) blobCycle(ctx context.Context, b *model.OreBlob, now model.Tick) []model.Point {
	pos := b.Position()

	var tiles []model.Point
	found := false
	switch vein := e.world.FindNearest(pos, model.KindVein); {
	case vein == nil:
		tiles = []model.Point{pos}
	case pos.Adjacent(vein.Position()):
		tiles = []model.Point{vein.Position()}
		e.mustRemove(vein)
		found = true
	default:
		dest := BlobNextPosition(e.world, pos, vein.Position())
		if occ := e.world.TileOccupant(dest); occ != nil && occ.Kind() == model.KindOre {
			e.mustRemove(occ)
		}
		tiles = e.mustMove(b, dest)
	}

	next := now + b.Rate
	if found {
		quake := e.CreateQuake(tiles[0], now)
		e.mustAdd(quake)
		next = now + b.Rate*2
		e.log.Debug(ctx, "vein consumed",
			logging.String("blob", b.Name()),
			logging.Int("x", tiles[0].X),
			logging.Int("y", tiles[0].Y),
		)
	}
	e.Schedule(model.NewAction(model.ActionKindBlobCycle, b), next)
	return tiles
}
