package state

import (
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// Stage is the step a single attack has reached.
type Stage string

const (
	StageAttackRolling        Stage = "ATTACK_ROLLING"
	StageAttackLocked         Stage = "ATTACK_LOCKED"
	StageDefenseRolling       Stage = "DEFENSE_ROLLING"
	StageDefenseLocked        Stage = "DEFENSE_LOCKED"
	StageBlocksResolving      Stage = "BLOCKS_RESOLVING"
	StageReadyToResolveDamage Stage = "READY_TO_RESOLVE_DAMAGE"
	StageDone                 Stage = "DONE"
)

var stageRank = map[Stage]int{
	StageAttackRolling:        0,
	StageAttackLocked:         1,
	StageDefenseRolling:       2,
	StageDefenseLocked:        3,
	StageBlocksResolving:      4,
	StageReadyToResolveDamage: 5,
	StageDone:                 6,
}

// AtLeast reports whether s is o or later in the attack sequence.
func (s Stage) AtLeast(o Stage) bool { return stageRank[s] >= stageRank[o] }

// DefenseDiceCount is the number of defence dice collected before modifiers.
const DefenseDiceCount = 3

// TargetModifiers are the per-target positional modifiers carried by an
// attack queue entry.
type TargetModifiers struct {
	Cover    bool
	Obscured bool
	// IgnoreConceal is set on secondary blast targets, which may be attacked
	// regardless of their order.
	IgnoreConceal bool
	Inherited     bool
}

// QueueEntry is one target of a (possibly multi-target) attack.
type QueueEntry struct {
	TargetID  string
	Modifiers TargetModifiers
}

// CombatInputs collects player inputs made during an attack.
type CombatInputs struct {
	AccurateSpend  int
	BlastTargets   []string
	TorrentTargets []string
	BalancedUsed   bool
	CeaselessUsed  bool
	RelentlessUsed bool
}

// CombatState is the persisted record of the attack in progress.
type CombatState struct {
	AttackerID    string
	DefenderID    string
	WeaponName    string
	Mode          roster.Mode
	Stage         Stage
	AttackDice    dice.Pool
	DefenseDice   dice.Pool
	AttackLocked  bool
	DefenseLocked bool
	Queue         []QueueEntry
	QueueIndex    int
	Inputs        CombatInputs
	// Blocks is the allocation in force once defence is locked: the optimal
	// proposal, or the player's override.
	Blocks           *dice.Allocation
	BlocksOverridden bool
	DamageDealt      int
	DamageApplied    bool
	Context          *Context
}

// Current returns the queue entry under attack.
func (c *CombatState) Current() QueueEntry {
	if c.QueueIndex < 0 || c.QueueIndex >= len(c.Queue) {
		return QueueEntry{TargetID: c.DefenderID}
	}
	return c.Queue[c.QueueIndex]
}

// HasNext reports whether another queued target follows the current one.
func (c *CombatState) HasNext() bool { return c.QueueIndex+1 < len(c.Queue) }

// Clone returns an independent copy of c.
func (c *CombatState) Clone() *CombatState {
	if c == nil {
		return nil
	}
	out := *c
	out.AttackDice = c.AttackDice.Clone()
	out.DefenseDice = c.DefenseDice.Clone()
	out.Queue = append([]QueueEntry(nil), c.Queue...)
	out.Inputs.BlastTargets = append([]string(nil), c.Inputs.BlastTargets...)
	out.Inputs.TorrentTargets = append([]string(nil), c.Inputs.TorrentTargets...)
	if c.Blocks != nil {
		b := *c.Blocks
		out.Blocks = &b
	}
	out.Context = c.Context.Clone()
	return &out
}

// Tag is a provenance marker on a die.
type Tag uint8

const (
	TagRetained Tag = 1 << iota
	TagRerolled
	// TagAccurate marks a success retained without rolling.
	TagAccurate
	// TagModified marks a die whose outcome a rule changed.
	TagModified
	// TagDiscarded marks a die removed from play by a rule.
	TagDiscarded
)

// Die is one classified die.
type Die struct {
	Value   int
	Outcome dice.Outcome
	Tags    Tag
}

// Has reports whether d carries t.
func (d Die) Has(t Tag) bool { return d.Tags&t != 0 }

// Participant is the snapshot of an operative taken when the attack is built.
type Participant struct {
	ID        string
	Name      string
	Owner     PlayerID
	Order     Order
	Save      int
	Wounds    int
	WoundsMax int
}

// SnapshotOf returns the participant snapshot of op.
func SnapshotOf(op *Operative) Participant {
	return Participant{
		ID:        op.ID,
		Name:      op.Name,
		Owner:     op.Owner,
		Order:     op.Order,
		Save:      op.Save,
		Wounds:    op.Wounds,
		WoundsMax: op.WoundsMax,
	}
}

// Modifiers is the modifiers bag of a combat context.
type Modifiers struct {
	Hit           int
	CritThreshold int
	Cover         bool
	Obscured      bool
	// CoverDisabled is set by rules that deny cover (Saturate, Seek).
	CoverDisabled bool
	Vantage       int
	// CoverBeforeVantage is the cover value restored when vantage is cleared.
	CoverBeforeVantage bool
	Piercing           int
	CritOnlyBlocks     bool
	DevastatingDamage  int
	IgnoreConceal      bool
}

// Thresholds returns the attack classification thresholds.
func (m Modifiers) Thresholds() dice.Thresholds {
	return dice.Thresholds{Hit: m.Hit, Crit: m.CritThreshold}
}

// CoverActive reports whether the defender retains a cover save.
func (m Modifiers) CoverActive() bool {
	return m.Cover && !m.CoverDisabled
}

// UI is the player-facing bag of a combat context.
type UI struct {
	Prompts         []string
	Notes           []string
	AppliedRules    []weaponrule.ID
	DisabledOptions map[string]bool
}

// Context is the working record the rule engine threads through one attack.
type Context struct {
	Weapon      Weapon
	Rules       weaponrule.Set
	Attacker    Participant
	Defender    Participant
	AttackDice  []Die
	DefenseDice []Die
	Modifiers   Modifiers
	Effects     effect.Ledger
	UI          UI
}

// Applied reports whether rule id has been applied to this context.
func (c *Context) Applied(id weaponrule.ID) bool {
	for _, a := range c.UI.AppliedRules {
		if a == id {
			return true
		}
	}
	return false
}

// Retained counts retained attack successes by outcome.
func (c *Context) Retained() (hits, crits int) {
	for _, d := range c.AttackDice {
		if d.Has(TagDiscarded) {
			continue
		}
		switch d.Outcome {
		case dice.Hit:
			hits++
		case dice.Crit:
			crits++
		}
	}
	return hits, crits
}

// Misses counts attack dice that failed.
func (c *Context) Misses() int {
	n := 0
	for _, d := range c.AttackDice {
		if d.Outcome == dice.Miss && !d.Has(TagDiscarded) {
			n++
		}
	}
	return n
}

// Saves counts defence successes, including the cover save when active.
func (c *Context) Saves() (saves, critSaves int) {
	for _, d := range c.DefenseDice {
		if d.Has(TagDiscarded) {
			continue
		}
		switch d.Outcome {
		case dice.Hit:
			saves++
		case dice.Crit:
			critSaves++
		}
	}
	if c.Modifiers.CoverActive() {
		saves++
	}
	return saves, critSaves
}

// DefenseDiceAllowed is the number of defence dice the defender rolls.
func (c *Context) DefenseDiceAllowed() int {
	n := DefenseDiceCount - c.Modifiers.Piercing
	if c.Modifiers.CoverActive() {
		n--
	}
	return max(0, n)
}

// AttackDiceAllowed is the number of attack dice the attacker rolls.
func (c *Context) AttackDiceAllowed(accurateSpend int) int {
	return max(0, c.Weapon.Attacks-accurateSpend)
}

// Clone returns an independent copy of c.
func (c *Context) Clone() *Context {
	if c == nil {
		return nil
	}
	out := *c
	out.Weapon = c.Weapon.Clone()
	out.Rules = c.Rules.Clone()
	out.AttackDice = append([]Die(nil), c.AttackDice...)
	out.DefenseDice = append([]Die(nil), c.DefenseDice...)
	out.Effects = c.Effects.Clone()
	out.UI = UI{
		Prompts:         append([]string(nil), c.UI.Prompts...),
		Notes:           append([]string(nil), c.UI.Notes...),
		AppliedRules:    append([]weaponrule.ID(nil), c.UI.AppliedRules...),
		DisabledOptions: cloneMap(c.UI.DisabledOptions),
	}
	return &out
}
