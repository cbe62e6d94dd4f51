package model

// ActionKind selects the behavior step an Action performs when it fires.
type ActionKind int

const (
	ActionKindUnknown ActionKind = iota
	ActionKindAnimate
	ActionKindDeath
	ActionKindOreTransform
	ActionKindMinerCycle
	ActionKindVeinCycle
	ActionKindBlobCycle
)

func (k ActionKind) String() string {
	switch k {
	case ActionKindAnimate:
		return "animate"
	case ActionKindDeath:
		return "death"
	case ActionKindOreTransform:
		return "ore_transform"
	case ActionKindMinerCycle:
		return "miner_cycle"
	case ActionKindVeinCycle:
		return "vein_cycle"
	case ActionKindBlobCycle:
		return "blob_cycle"
	default:
		return "unknown"
	}
}

// Action is a single-shot deferred behavior step bound to one occupant. It is
// plain data: the engine interprets it when the scheduler hands it back. The
// pointer is the handle shared by the scheduler and the owner's pending set,
// so two actions are never equal by value.
type Action struct {
	Kind   ActionKind
	Target Occupant

	// Repeat counts the animation steps left, including this one.
	// Zero repeats forever.
	Repeat int
}

// NewAction binds a behavior step to target.
func NewAction(kind ActionKind, target Occupant) *Action {
	return &Action{Kind: kind, Target: target}
}
