package engine

// EventType names a domain event.
type EventType string

const (
	EventGameStarted         EventType = "GAME_STARTED"
	EventOperativesReadied   EventType = "OPERATIVES_READIED"
	EventInitiativeSet       EventType = "INITIATIVE_SET"
	EventCPGained            EventType = "CP_GAINED"
	EventPloyUsed            EventType = "PLOY_USED"
	EventStrategyPassed      EventType = "STRATEGY_PASSED"
	EventFirefightStarted    EventType = "FIREFIGHT_STARTED"
	EventFirefightEnded      EventType = "FIREFIGHT_ENDED"
	EventTurningPointStarted EventType = "TURNING_POINT_STARTED"
	EventGameOver            EventType = "GAME_OVER"

	EventOperativeActivated EventType = "OPERATIVE_ACTIVATED"
	EventOrderSet           EventType = "ORDER_SET"
	EventActionTaken        EventType = "ACTION_TAKEN"
	EventActivationEnded    EventType = "ACTIVATION_ENDED"
	EventPriorityPassed     EventType = "PRIORITY_PASSED"
	EventCounteracted       EventType = "COUNTERACTED"
	EventActivationSkipped  EventType = "ACTIVATION_SKIPPED"

	EventAttackDeclared      EventType = "ATTACK_DECLARED"
	EventSecondaryTargetsSet EventType = "SECONDARY_TARGETS_SET"
	EventAttackRolled        EventType = "ATTACK_ROLLED"
	EventAttackLocked        EventType = "ATTACK_LOCKED"
	EventDefenseRolled       EventType = "DEFENSE_ROLLED"
	EventDefenseLocked       EventType = "DEFENSE_LOCKED"
	EventBlocksProposed      EventType = "BLOCKS_PROPOSED"
	EventBlocksSet           EventType = "BLOCKS_SET"
	EventDamageApplied       EventType = "DAMAGE_APPLIED"
	EventIncapacitated       EventType = "OPERATIVE_INCAPACITATED"
	EventQueueAdvanced       EventType = "ATTACK_QUEUE_ADVANCED"
	EventCombatCleared       EventType = "COMBAT_CLEARED"
	EventDefenderOptionSet   EventType = "DEFENDER_OPTION_SET"
	EventVantageSet          EventType = "VANTAGE_SET"
	EventRuleApplied         EventType = "RULE_APPLIED"
	EventDieRerolled         EventType = "DIE_REROLLED"
	EventEffectAttached      EventType = "EFFECT_ATTACHED"
	EventEffectExpired       EventType = "EFFECT_EXPIRED"
	EventEffectResolved      EventType = "EFFECT_RESOLVED"

	EventFlowStarted      EventType = "FLOW_STARTED"
	EventFlowTargetSet    EventType = "FLOW_TARGET_SET"
	EventFlowWeaponSet    EventType = "FLOW_WEAPON_SET"
	EventFlowWeaponLocked EventType = "FLOW_WEAPON_LOCKED"
	EventFlowCompleted    EventType = "FLOW_COMPLETED"
	EventFlowCancelled    EventType = "FLOW_CANCELLED"
)

// Event is one domain event caused by an accepted command. Summary is the
// human-readable line shown in the game log; Data carries structured details.
type Event struct {
	Type    EventType      `json:"type"`
	Summary string         `json:"summary"`
	Data    map[string]any `json:"data,omitempty"`
}
