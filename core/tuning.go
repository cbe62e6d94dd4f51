package core

import "github.com/signalsfoundry/minesim/model"

// Tuning holds the constants that shape spawned entities. Ranges are
// inclusive.
type Tuning struct {
	BlobRateScale          model.Tick
	BlobAnimationRateScale model.Tick
	BlobAnimationMin       int
	BlobAnimationMax       int

	OreCorruptMin model.Tick
	OreCorruptMax model.Tick

	QuakeSteps         int
	QuakeDuration      model.Tick
	QuakeAnimationRate model.Tick

	VeinRateMin model.Tick
	VeinRateMax model.Tick
}

// DefaultTuning returns the stock game constants.
func DefaultTuning() Tuning {
	return Tuning{
		BlobRateScale:          4,
		BlobAnimationRateScale: 50,
		BlobAnimationMin:       1,
		BlobAnimationMax:       3,
		OreCorruptMin:          20000,
		OreCorruptMax:          30000,
		QuakeSteps:             10,
		QuakeDuration:          1100,
		QuakeAnimationRate:     100,
		VeinRateMin:            8000,
		VeinRateMax:            17000,
	}
}
