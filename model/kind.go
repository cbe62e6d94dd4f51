package model

// Kind tags the concrete variant of an entity. Behavior is selected by
// switching on the concrete type; Kind is the comparable form of that tag used
// by queries, metrics and the world file.
type Kind int

const (
	KindUnknown Kind = iota
	KindBackground
	KindObstacle
	KindMinerNotFull
	KindMinerFull
	KindVein
	KindOre
	KindOreBlob
	KindBlacksmith
	KindQuake
)

// Kinds lists every concrete variant, in declaration order.
var Kinds = []Kind{
	KindBackground,
	KindObstacle,
	KindMinerNotFull,
	KindMinerFull,
	KindVein,
	KindOre,
	KindOreBlob,
	KindBlacksmith,
	KindQuake,
}

func (k Kind) String() string {
	switch k {
	case KindBackground:
		return "background"
	case KindObstacle:
		return "obstacle"
	case KindMinerNotFull:
		return "miner_not_full"
	case KindMinerFull:
		return "miner_full"
	case KindVein:
		return "vein"
	case KindOre:
		return "ore"
	case KindOreBlob:
		return "ore_blob"
	case KindBlacksmith:
		return "blacksmith"
	case KindQuake:
		return "quake"
	default:
		return "unknown"
	}
}

// ImageTag is the image store key used for entities of this kind. Both miner
// variants share the "miner" frames.
func (k Kind) ImageTag() string {
	switch k {
	case KindMinerNotFull, KindMinerFull:
		return "miner"
	case KindOreBlob:
		return "blob"
	case KindBackground:
		return DefaultImageTag
	default:
		return k.String()
	}
}

// IsMiner reports whether k is either miner variant.
func (k Kind) IsMiner() bool {
	return k == KindMinerNotFull || k == KindMinerFull
}
