package model

// Background is a static tile decoration. It is not a GridItem; the store
// keeps backgrounds in their own layer keyed by tile.
type Background struct {
	sprite
}

func NewBackground(name string, images []ImageHandle) *Background {
	return &Background{sprite: newSprite(name, images)}
}

func (*Background) Kind() Kind { return KindBackground }

// Obstacle blocks a tile and never acts.
type Obstacle struct {
	placed
}

func NewObstacle(name string, pos Point, images []ImageHandle) *Obstacle {
	return &Obstacle{placed: placed{sprite: newSprite(name, images), pos: pos}}
}

func (*Obstacle) Kind() Kind { return KindObstacle }

func newOccupant(name string, pos Point, images []ImageHandle) occupant {
	return occupant{placed: placed{sprite: newSprite(name, images), pos: pos}}
}

// MinerNotFull walks to the nearest ore and collects it until ResourceCount
// reaches ResourceLimit.
type MinerNotFull struct {
	occupant
	animated
	Rate          Tick
	ResourceLimit int
	ResourceCount int
}

func NewMinerNotFull(name string, pos Point, images []ImageHandle, rate Tick, limit int, animationRate Tick) *MinerNotFull {
	return &MinerNotFull{
		occupant:      newOccupant(name, pos, images),
		animated:      animated{animationRate: animationRate},
		Rate:          rate,
		ResourceLimit: limit,
	}
}

func (*MinerNotFull) Kind() Kind { return KindMinerNotFull }

// Full builds the MinerFull that replaces m once it is carrying its limit.
// The new miner shares name, position, images and rates but none of m's
// pending actions.
func (m *MinerNotFull) Full() *MinerFull {
	return NewMinerFull(m.name, m.pos, m.images, m.Rate, m.ResourceLimit, m.animationRate)
}

// MinerFull walks to the nearest blacksmith to deposit its load.
type MinerFull struct {
	occupant
	animated
	Rate          Tick
	ResourceLimit int
	ResourceCount int
}

// NewMinerFull returns a miner carrying exactly limit resources.
func NewMinerFull(name string, pos Point, images []ImageHandle, rate Tick, limit int, animationRate Tick) *MinerFull {
	return &MinerFull{
		occupant:      newOccupant(name, pos, images),
		animated:      animated{animationRate: animationRate},
		Rate:          rate,
		ResourceLimit: limit,
		ResourceCount: limit,
	}
}

func (*MinerFull) Kind() Kind { return KindMinerFull }

// NotFull builds the empty MinerNotFull that replaces m after a deposit.
func (m *MinerFull) NotFull() *MinerNotFull {
	return NewMinerNotFull(m.name, m.pos, m.images, m.Rate, m.ResourceLimit, m.animationRate)
}

// Vein periodically spawns ore on an open tile within ResourceDistance.
type Vein struct {
	occupant
	Rate             Tick
	ResourceDistance int
}

func NewVein(name string, pos Point, images []ImageHandle, rate Tick, distance int) *Vein {
	return &Vein{
		occupant:         newOccupant(name, pos, images),
		Rate:             rate,
		ResourceDistance: distance,
	}
}

func (*Vein) Kind() Kind { return KindVein }

// Ore turns into an OreBlob Rate ticks after it is scheduled.
type Ore struct {
	occupant
	Rate Tick
}

func NewOre(name string, pos Point, images []ImageHandle, rate Tick) *Ore {
	return &Ore{occupant: newOccupant(name, pos, images), Rate: rate}
}

func (*Ore) Kind() Kind { return KindOre }

// OreBlob hunts veins, eating any ore in its way.
type OreBlob struct {
	occupant
	animated
	Rate Tick
}

func NewOreBlob(name string, pos Point, images []ImageHandle, rate, animationRate Tick) *OreBlob {
	return &OreBlob{
		occupant: newOccupant(name, pos, images),
		animated: animated{animationRate: animationRate},
		Rate:     rate,
	}
}

func (*OreBlob) Kind() Kind { return KindOreBlob }

// Blacksmith accumulates whatever full miners bring it.
type Blacksmith struct {
	occupant
	Rate             Tick
	ResourceLimit    int
	ResourceCount    int
	ResourceDistance int
}

func NewBlacksmith(name string, pos Point, images []ImageHandle, limit int, rate Tick, distance int) *Blacksmith {
	return &Blacksmith{
		occupant:         newOccupant(name, pos, images),
		Rate:             rate,
		ResourceLimit:    limit,
		ResourceDistance: distance,
	}
}

func (*Blacksmith) Kind() Kind { return KindBlacksmith }

// Quake is left behind when a blob consumes a vein. It animates for a fixed
// number of steps and then removes itself.
type Quake struct {
	occupant
	animated
}

func NewQuake(name string, pos Point, images []ImageHandle, animationRate Tick) *Quake {
	return &Quake{
		occupant: newOccupant(name, pos, images),
		animated: animated{animationRate: animationRate},
	}
}

func (*Quake) Kind() Kind { return KindQuake }
