package model

import (
	"fmt"
	"strings"
)

// World file keywords.
const (
	KeyBackground = "background"
	KeyMiner      = "miner"
	KeyObstacle   = "obstacle"
	KeyOre        = "ore"
	KeyBlacksmith = "blacksmith"
	KeyVein       = "vein"
)

// Encode renders e as one world-file line. Transient variants (blobs and
// quakes) have no encoding and report false. Full miners are written as plain
// miners; their load is not persisted.
func Encode(e GridItem) (string, bool) {
	pos := e.Position()
	var fields []string
	switch v := e.(type) {
	case *MinerNotFull:
		fields = []string{KeyMiner, v.Name(), itoa(pos.X), itoa(pos.Y), itoa(v.ResourceLimit), itoa64(v.Rate), itoa64(v.AnimationRate())}
	case *MinerFull:
		fields = []string{KeyMiner, v.Name(), itoa(pos.X), itoa(pos.Y), itoa(v.ResourceLimit), itoa64(v.Rate), itoa64(v.AnimationRate())}
	case *Vein:
		fields = []string{KeyVein, v.Name(), itoa(pos.X), itoa(pos.Y), itoa64(v.Rate), itoa(v.ResourceDistance)}
	case *Ore:
		fields = []string{KeyOre, v.Name(), itoa(pos.X), itoa(pos.Y), itoa64(v.Rate)}
	case *Blacksmith:
		fields = []string{KeyBlacksmith, v.Name(), itoa(pos.X), itoa(pos.Y), itoa(v.ResourceLimit), itoa64(v.Rate), itoa(v.ResourceDistance)}
	case *Obstacle:
		fields = []string{KeyObstacle, v.Name(), itoa(pos.X), itoa(pos.Y)}
	default:
		return "", false
	}
	return strings.Join(fields, " "), true
}

// EncodeBackground renders a background tile as a world-file line.
func EncodeBackground(b *Background, pos Point) string {
	return strings.Join([]string{KeyBackground, b.Name(), itoa(pos.X), itoa(pos.Y)}, " ")
}

func itoa(v int) string    { return fmt.Sprint(v) }
func itoa64(v Tick) string { return fmt.Sprint(int64(v)) }
