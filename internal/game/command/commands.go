// Package command provides the command vocabulary: the discriminated
// {type, payload} Command, the registry of command definitions with their
// required payload fields, and a text parser for the same vocabulary.
package command

// Type discriminates a command.
type Type string

// Phase and turn commands.
const (
	StartGame          Type = "START_GAME"
	ReadyAllOperatives Type = "READY_ALL_OPERATIVES"
	SetInitiative      Type = "SET_INITIATIVE"
	GainCP             Type = "GAIN_CP"
	UseStrategicPloy   Type = "USE_STRATEGIC_PLOY"
	PassStrategy       Type = "PASS_STRATEGY"
	EndStrategyPhase   Type = "END_STRATEGY_PHASE"
	TurningPointEnd    Type = "TURNING_POINT_END"
)

// Activation commands.
const (
	SetActiveOperative Type = "SET_ACTIVE_OPERATIVE"
	SetOrder           Type = "SET_ORDER"
	ActionUse          Type = "ACTION_USE"
	EndActivation      Type = "END_ACTIVATION"
	Counteract         Type = "COUNTERACT"
	SkipActivation     Type = "SKIP_ACTIVATION"
)

// Combat commands.
const (
	StartRangedAttack   Type = "START_RANGED_ATTACK"
	StartMeleeAttack    Type = "START_MELEE_ATTACK"
	SetSecondaryTargets Type = "SET_SECONDARY_TARGETS"
	SetAttackRoll       Type = "SET_ATTACK_ROLL"
	LockAttackRoll      Type = "LOCK_ATTACK_ROLL"
	SetDefenseRoll      Type = "SET_DEFENSE_ROLL"
	LockDefenseRoll     Type = "LOCK_DEFENSE_ROLL"
	SetBlocksResult     Type = "SET_BLOCKS_RESULT"
	ResolveCombat       Type = "RESOLVE_COMBAT"
	ApplyDamage         Type = "APPLY_DAMAGE"
	AdvanceAttackQueue  Type = "ADVANCE_ATTACK_QUEUE"
	ClearCombatState    Type = "CLEAR_COMBAT_STATE"
	SetDefenderOption   Type = "SET_DEFENDER_OPTION"
	SetVantage          Type = "SET_VANTAGE"
	WeaponRuleClick     Type = "WEAPON_RULE_CLICK"
	ResolveEffect       Type = "RESOLVE_EFFECT"
)

// Flow commands.
const (
	FlowStartShoot    Type = "FLOW_START_SHOOT"
	FlowSetTarget     Type = "FLOW_SET_TARGET"
	FlowSetWeapon     Type = "FLOW_SET_WEAPON"
	FlowLockWeapon    Type = "FLOW_LOCK_WEAPON"
	FlowRollDice      Type = "FLOW_ROLL_DICE"
	FlowResolveAction Type = "FLOW_RESOLVE_ACTION"
	FlowCancel        Type = "FLOW_CANCEL"
)

// Categories for organizing commands.
const (
	CategoryPhase      = "phase"
	CategoryActivation = "activation"
	CategoryCombat     = "combat"
	CategoryFlow       = "flow"
)

// Payload field names.
const (
	FieldPlayer           = "player"
	FieldPloyID           = "ployId"
	FieldOperativeID      = "operativeId"
	FieldOrder            = "order"
	FieldAction           = "action"
	FieldAttackerID       = "attackerId"
	FieldDefenderID       = "defenderId"
	FieldWeaponName       = "weaponName"
	FieldTargetID         = "targetId"
	FieldTargetIDs        = "targetIds"
	FieldDice             = "dice"
	FieldAccurate         = "accurate"
	FieldCritSavesOnCrits = "critSavesOnCrits"
	FieldCritSavesOnHits  = "critSavesOnHits"
	FieldSavesOnHits      = "savesOnHits"
	FieldSavePairsOnCrits = "savePairsOnCrits"
	FieldOption           = "option"
	FieldEnabled          = "enabled"
	FieldDistance         = "distance"
	FieldRule             = "rule"
	FieldRerollIndexes    = "rerollIndexes"
	FieldRerollValues     = "rerollValues"
	FieldEffect           = "effect"
	FieldRoll             = "roll"
	FieldSide             = "side"
	FieldCover            = "cover"
	FieldObscured         = "obscured"
)

// Definition describes one command type.
type Definition struct {
	// Name is the canonical command type.
	Name Type
	// Aliases are alternate lowercase spellings accepted by the parser.
	Aliases []string
	// Help is the short help text.
	Help string
	// Category groups the command.
	Category string
	// Required lists the payload fields that must be present.
	Required []string
}

// BuiltinCommands returns every command definition.
func BuiltinCommands() []Definition {
	return []Definition{
		// Phase commands
		{Name: StartGame, Aliases: []string{"start"}, Help: "Leave setup and begin turning point 1", Category: CategoryPhase},
		{Name: ReadyAllOperatives, Aliases: []string{"ready"}, Help: "Ready every living operative", Category: CategoryPhase},
		{Name: SetInitiative, Aliases: []string{"initiative"}, Help: "Assign initiative", Category: CategoryPhase, Required: []string{FieldPlayer}},
		{Name: GainCP, Aliases: []string{"cp"}, Help: "Grant command points", Category: CategoryPhase},
		{Name: UseStrategicPloy, Aliases: []string{"ploy"}, Help: "Spend command points on a strategic ploy", Category: CategoryPhase, Required: []string{FieldPlayer, FieldPloyID}},
		{Name: PassStrategy, Aliases: []string{"pass"}, Help: "Pass on further strategic options", Category: CategoryPhase, Required: []string{FieldPlayer}},
		{Name: EndStrategyPhase, Aliases: []string{"end-strategy"}, Help: "Begin the firefight phase", Category: CategoryPhase},
		{Name: TurningPointEnd, Aliases: []string{"end-tp"}, Help: "End the turning point", Category: CategoryPhase},

		// Activation commands
		{Name: SetActiveOperative, Aliases: []string{"activate"}, Help: "Select the operative to activate", Category: CategoryActivation, Required: []string{FieldPlayer, FieldOperativeID}},
		{Name: SetOrder, Aliases: []string{"order"}, Help: "Choose conceal or engage", Category: CategoryActivation, Required: []string{FieldOperativeID, FieldOrder}},
		{Name: ActionUse, Aliases: []string{"act"}, Help: "Perform an action", Category: CategoryActivation, Required: []string{FieldOperativeID, FieldAction}},
		{Name: EndActivation, Aliases: []string{"end"}, Help: "End the current activation", Category: CategoryActivation, Required: []string{FieldOperativeID}},
		{Name: Counteract, Aliases: []string{"cx"}, Help: "Counteract with an expended engaged operative", Category: CategoryActivation, Required: []string{FieldPlayer, FieldOperativeID}},
		{Name: SkipActivation, Aliases: []string{"skip"}, Help: "Decline to activate", Category: CategoryActivation, Required: []string{FieldPlayer}},

		// Combat commands
		{Name: StartRangedAttack, Aliases: []string{"shoot"}, Help: "Declare a ranged attack", Category: CategoryCombat, Required: []string{FieldAttackerID, FieldDefenderID, FieldWeaponName}},
		{Name: StartMeleeAttack, Aliases: []string{"fight"}, Help: "Declare a melee attack", Category: CategoryCombat, Required: []string{FieldAttackerID, FieldDefenderID, FieldWeaponName}},
		{Name: SetSecondaryTargets, Aliases: []string{"targets"}, Help: "Choose blast or torrent secondary targets", Category: CategoryCombat, Required: []string{FieldTargetIDs}},
		{Name: SetAttackRoll, Aliases: []string{"attack-roll"}, Help: "Record the attack dice", Category: CategoryCombat, Required: []string{FieldDice}},
		{Name: LockAttackRoll, Aliases: []string{"lock-attack"}, Help: "Lock the attack dice", Category: CategoryCombat},
		{Name: SetDefenseRoll, Aliases: []string{"defense-roll"}, Help: "Record the defence dice", Category: CategoryCombat, Required: []string{FieldDice}},
		{Name: LockDefenseRoll, Aliases: []string{"lock-defense"}, Help: "Lock the defence dice", Category: CategoryCombat},
		{Name: SetBlocksResult, Aliases: []string{"blocks"}, Help: "Override the proposed blocks", Category: CategoryCombat,
			Required: []string{FieldCritSavesOnCrits, FieldCritSavesOnHits, FieldSavesOnHits, FieldSavePairsOnCrits}},
		{Name: ResolveCombat, Aliases: []string{"resolve"}, Help: "Allocate, apply damage, and clear the attack", Category: CategoryCombat},
		{Name: ApplyDamage, Aliases: []string{"damage"}, Help: "Apply the resolved damage", Category: CategoryCombat},
		{Name: AdvanceAttackQueue, Aliases: []string{"next-target"}, Help: "Attack the next queued target", Category: CategoryCombat},
		{Name: ClearCombatState, Aliases: []string{"clear"}, Help: "Discard the finished attack", Category: CategoryCombat},
		{Name: SetDefenderOption, Aliases: []string{"option"}, Help: "Set the defender's cover or obscured option", Category: CategoryCombat, Required: []string{FieldOption, FieldEnabled}},
		{Name: SetVantage, Aliases: []string{"vantage"}, Help: "Select a vantage distance", Category: CategoryCombat, Required: []string{FieldDistance}},
		{Name: WeaponRuleClick, Aliases: []string{"rule"}, Help: "Apply a weapon rule", Category: CategoryCombat, Required: []string{FieldRule}},
		{Name: ResolveEffect, Aliases: []string{"resolve-effect"}, Help: "Resolve a pending effect roll", Category: CategoryCombat, Required: []string{FieldOperativeID, FieldEffect, FieldRoll}},

		// Flow commands
		{Name: FlowStartShoot, Aliases: []string{"flow-shoot"}, Help: "Begin the guided shoot flow", Category: CategoryFlow, Required: []string{FieldPlayer, FieldOperativeID}},
		{Name: FlowSetTarget, Aliases: []string{"flow-target"}, Help: "Choose the target", Category: CategoryFlow, Required: []string{FieldTargetID}},
		{Name: FlowSetWeapon, Aliases: []string{"flow-weapon"}, Help: "Choose the weapon", Category: CategoryFlow, Required: []string{FieldWeaponName}},
		{Name: FlowLockWeapon, Aliases: []string{"flow-lock"}, Help: "Lock the weapon and start the attack", Category: CategoryFlow},
		{Name: FlowRollDice, Aliases: []string{"flow-roll"}, Help: "Record and lock one side's dice", Category: CategoryFlow, Required: []string{FieldSide, FieldDice}},
		{Name: FlowResolveAction, Aliases: []string{"flow-resolve"}, Help: "Resolve the attack and finish the flow", Category: CategoryFlow},
		{Name: FlowCancel, Aliases: []string{"flow-cancel"}, Help: "Abandon the flow", Category: CategoryFlow},
	}
}
