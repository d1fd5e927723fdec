package state

// FlowStep is the current step of a guided shoot flow.
type FlowStep string

const (
	FlowSelectTarget FlowStep = "SELECT_TARGET"
	FlowSelectWeapon FlowStep = "SELECT_WEAPON"
	FlowWeaponLocked FlowStep = "WEAPON_LOCKED"
	FlowRolling      FlowStep = "ROLLING"
)

// FlowState tracks the guided target/weapon selection that precedes a ranged
// attack. It is nil when no flow is in progress.
type FlowState struct {
	Player      PlayerID
	OperativeID string
	TargetID    string
	WeaponName  string
	Step        FlowStep
}
