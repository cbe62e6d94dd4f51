package core

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/minesim/internal/logging"
	"github.com/signalsfoundry/minesim/model"
)

func (e *Engine) imagesFor(kind model.Kind) []model.ImageHandle {
	return e.images.Images(kind.ImageTag())
}

// CreateOre builds an ore with a random corruption timer and schedules its
// transform. The caller adds it to the world.
func (e *Engine) CreateOre(name string, pt model.Point, now model.Tick) *model.Ore {
	rate := model.Tick(e.randRange(int64(e.tuning.OreCorruptMin), int64(e.tuning.OreCorruptMax)))
	ore := model.NewOre(name, pt, e.imagesFor(model.KindOre), rate)
	e.StartEntity(ore, now)
	return ore
}

// CreateBlob builds a blob with a random animation rate and schedules its
// cycle and animation. The caller adds it to the world.
func (e *Engine) CreateBlob(name string, pt model.Point, rate, now model.Tick) *model.OreBlob {
	steps := e.randRange(int64(e.tuning.BlobAnimationMin), int64(e.tuning.BlobAnimationMax))
	blob := model.NewOreBlob(name, pt, e.imagesFor(model.KindOreBlob), rate, model.Tick(steps)*e.tuning.BlobAnimationRateScale)
	e.StartEntity(blob, now)
	return blob
}

// CreateQuake builds a quake and schedules its bounded animation and its
// death. The caller adds it to the world.
func (e *Engine) CreateQuake(pt model.Point, now model.Tick) *model.Quake {
	quake := model.NewQuake("quake", pt, e.imagesFor(model.KindQuake), e.tuning.QuakeAnimationRate)
	e.StartEntity(quake, now)
	return quake
}

// CreateVein builds a vein with a random spawn rate and a resource distance
// of one, and schedules its cycle. The caller adds it to the world.
func (e *Engine) CreateVein(name string, pt model.Point, now model.Tick) *model.Vein {
	rate := model.Tick(e.randRange(int64(e.tuning.VeinRateMin), int64(e.tuning.VeinRateMax)))
	vein := model.NewVein("vein"+name, pt, e.imagesFor(model.KindVein), rate, 1)
	e.StartEntity(vein, now)
	return vein
}

// SpawnVein creates a vein on pt and adds it to the world.
func (e *Engine) SpawnVein(ctx context.Context, name string, pt model.Point, now model.Tick) (*model.Vein, error) {
	if !e.world.WithinBounds(pt) {
		return nil, fmt.Errorf("spawn vein at %v: out of bounds", pt)
	}
	if e.world.IsOccupied(pt) {
		return nil, fmt.Errorf("spawn vein at %v: tile occupied", pt)
	}
	vein := e.CreateVein(name, pt, now)
	if err := e.world.AddEntity(vein); err != nil {
		for _, a := range vein.PendingActions() {
			e.world.UnscheduleAction(a)
		}
		vein.ClearPendingActions()
		return nil, err
	}
	e.log.Debug(ctx, "vein spawned",
		logging.String("name", vein.Name()),
		logging.Int("x", pt.X),
		logging.Int("y", pt.Y),
	)
	return vein, nil
}

// StartEntity schedules the first actions of ent relative to now: the
// behavior cycle for miners, veins and blobs, the corruption timer for ore,
// animations for animated variants and the burst plus death for quakes.
// Passive variants are left alone.
func (e *Engine) StartEntity(ent model.Occupant, now model.Tick) {
	switch v := ent.(type) {
	case *model.MinerNotFull:
		e.Schedule(model.NewAction(model.ActionKindMinerCycle, v), now+v.Rate)
		e.ScheduleAnimation(v, 0, now)
	case *model.MinerFull:
		e.Schedule(model.NewAction(model.ActionKindMinerCycle, v), now+v.Rate)
		e.ScheduleAnimation(v, 0, now)
	case *model.Vein:
		e.Schedule(model.NewAction(model.ActionKindVeinCycle, v), now+v.Rate)
	case *model.Ore:
		e.Schedule(model.NewAction(model.ActionKindOreTransform, v), now+v.Rate)
	case *model.OreBlob:
		e.Schedule(model.NewAction(model.ActionKindBlobCycle, v), now+v.Rate)
		e.ScheduleAnimation(v, 0, now)
	case *model.Quake:
		e.ScheduleAnimation(v, e.tuning.QuakeSteps, now)
		e.Schedule(model.NewAction(model.ActionKindDeath, v), now+e.tuning.QuakeDuration)
	}
}
