package intent

import (
	"strings"

	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// stagesFor lists the combat stages in which each stage-bound command is legal.
var stagesFor = map[command.Type][]state.Stage{
	command.SetSecondaryTargets: {state.StageAttackRolling},
	command.SetAttackRoll:       {state.StageAttackRolling},
	command.LockAttackRoll:      {state.StageAttackRolling},
	command.SetDefenseRoll:      {state.StageAttackLocked, state.StageDefenseRolling},
	command.LockDefenseRoll:     {state.StageAttackLocked, state.StageDefenseRolling},
	command.SetBlocksResult:     {state.StageBlocksResolving},
	command.ApplyDamage:         {state.StageReadyToResolveDamage},
	command.ResolveCombat: {state.StageDefenseLocked, state.StageBlocksResolving,
		state.StageReadyToResolveDamage, state.StageDone},
	command.AdvanceAttackQueue: {state.StageDone},
	command.ClearCombatState:   {state.StageDone},
	command.SetDefenderOption:  {state.StageAttackRolling},
	command.SetVantage:         {state.StageAttackRolling},
}

func (c *check) combat() {
	s := c.s
	switch c.t {
	case command.StartRangedAttack, command.StartMeleeAttack:
		c.requirePhase(state.PhaseFirefight)
		if !c.ok() {
			return
		}
		mode := roster.ModeRanged
		if c.t == command.StartMeleeAttack {
			mode = roster.ModeMelee
		}
		c.startAttack(mode)
		return
	case command.ResolveEffect:
		c.resolveEffect()
		return
	}

	cs := s.Combat
	if cs == nil {
		c.add(CodeNoCombat, "no attack is in progress")
		return
	}
	switch c.t {
	case command.LockAttackRoll:
		if cs.AttackLocked {
			c.add(CodeAlreadyLocked, "attack roll is already locked")
			return
		}
	case command.LockDefenseRoll:
		if cs.DefenseLocked {
			c.add(CodeAlreadyLocked, "defense roll is already locked")
			return
		}
	}
	if stages, bound := stagesFor[c.t]; bound && !inStage(cs.Stage, stages) {
		c.add(CodeStageMismatch, "%s is not allowed in stage %s", c.t, cs.Stage)
		return
	}
	ctx := cs.Context
	switch c.t {
	case command.SetSecondaryTargets:
		c.secondaryTargets(cs)
	case command.SetAttackRoll:
		pool, ok := c.p.Ints(command.FieldDice)
		if !ok {
			c.add(CodeBadField, "dice must be a list of integers")
			return
		}
		accurate := 0
		if c.p.Has(command.FieldAccurate) {
			if accurate, ok = c.integer(command.FieldAccurate); !ok {
				return
			}
		}
		if accurate < 0 || accurate > combat.AccurateLimit(ctx) {
			c.add(CodeAccurateExceeded, "at most %d dice can be retained with Accurate", combat.AccurateLimit(ctx))
			return
		}
		if allowed := ctx.AttackDiceAllowed(accurate); len(pool) > allowed {
			c.add(CodeTooManyDice, "%d attack dice rolled, %d allowed", len(pool), allowed)
		}
	case command.SetDefenseRoll:
		if _, ok := c.p.Ints(command.FieldDice); !ok {
			c.add(CodeBadField, "dice must be a list of integers")
		}
	case command.SetBlocksResult:
		for _, f := range []string{command.FieldCritSavesOnCrits, command.FieldCritSavesOnHits, command.FieldSavesOnHits, command.FieldSavePairsOnCrits} {
			if n, ok := c.integer(f); ok && n < 0 {
				c.add(CodeBadField, "%s must not be negative", f)
			}
		}
	case command.AdvanceAttackQueue:
		if !cs.HasNext() {
			c.add(CodeQueueExhausted, "no further targets are queued")
		}
	case command.SetDefenderOption:
		opt, _ := c.p.Text(command.FieldOption)
		if opt != combat.OptionCover && opt != combat.OptionObscured {
			c.add(CodeBadField, "option must be %q or %q", combat.OptionCover, combat.OptionObscured)
		}
		if _, ok := c.p.Bool(command.FieldEnabled); !ok {
			c.add(CodeBadField, "enabled must be a boolean")
		}
		if cs.Mode == roster.ModeMelee {
			c.add(CodeMeleeOnly, "defender options do not apply to melee attacks")
		}
	case command.SetVantage:
		if d, ok := c.integer(command.FieldDistance); ok && d != 0 && d != 2 && d != 4 {
			c.add(CodeBadField, "distance must be 0, 2 or 4")
		}
		if cs.Mode == roster.ModeMelee {
			c.add(CodeMeleeOnly, "vantage does not apply to melee attacks")
		}
	case command.WeaponRuleClick:
		key, _ := c.p.Text(command.FieldRule)
		if _, ok := weaponrule.ParseID(key); !ok {
			c.add(CodeUnknownRule, "unknown rule %q", key)
		}
		idx, hasIdx := c.p.Ints(command.FieldRerollIndexes)
		vals, hasVals := c.p.Ints(command.FieldRerollValues)
		if hasIdx != hasVals || len(idx) != len(vals) {
			c.add(CodeBadField, "%s and %s must be integer lists of equal length", command.FieldRerollIndexes, command.FieldRerollValues)
		}
	}
}

func inStage(s state.Stage, stages []state.Stage) bool {
	for _, x := range stages {
		if s == x {
			return true
		}
	}
	return false
}

func (c *check) startAttack(mode roster.Mode) {
	s := c.s
	if s.Combat != nil {
		c.add(CodeCombatInProgress, "an attack is already in progress")
		return
	}
	attacker := c.operative(command.FieldAttackerID)
	defender := c.operative(command.FieldDefenderID)
	if attacker == nil || defender == nil {
		return
	}
	if attacker.ID != s.Firefight.ActiveOperativeID {
		c.add(CodeNotActiveOperative, "%s is not the active operative", attacker.Name)
		return
	}
	if attacker.Owner == defender.Owner {
		c.add(CodeBadTarget, "%s cannot attack a friendly operative", attacker.Name)
	}
	a := s.Firefight.Activation
	if a == nil || a.AttackActions() <= a.AttacksDeclared {
		c.add(CodeActionRequired, "%s has no unspent shoot or fight action", attacker.Name)
	}
	name, _ := c.p.Text(command.FieldWeaponName)
	c.weapon(attacker, name, mode)
}

// weapon checks that op may attack with the named weapon in mode.
func (c *check) weapon(op *state.Operative, name string, mode roster.Mode) {
	w, ok := op.Weapon(name)
	if !ok {
		c.add(CodeUnknownWeapon, "%s has no weapon %q", op.Name, name)
		return
	}
	if w.Mode != mode {
		c.add(CodeWrongWeaponMode, "%s is a %s weapon", w.Name, w.Mode)
		return
	}
	if c.s.WeaponExhausted(op.ID, w) {
		c.add(CodeWeaponExhausted, "%s has no uses left", w.Name)
	}
	if mode != roster.ModeRanged {
		return
	}
	if op.Order == state.OrderConceal && !w.Rules.Has(weaponrule.Silent) {
		c.add(CodeConcealedShooter, "%s is concealed and %s is not Silent", op.Name, w.Name)
	}
	if a := c.s.Firefight.Activation; a != nil && heavyBlocksShot(w, a) {
		c.add(CodeHeavyMoved, "%s cannot shoot %s after moving", op.Name, w.Name)
	}
}

func dashOnly(r weaponrule.Rule) bool {
	return strings.Contains(strings.ToLower(r.Qualifier), "dash")
}

// heavyBlocksShot reports whether w's Heavy rule forbids shooting after the
// movement already taken in a.
func heavyBlocksShot(w state.Weapon, a *state.Activation) bool {
	r, ok := w.Rules.Get(weaponrule.Heavy)
	if !ok {
		return false
	}
	for _, x := range a.Actions {
		if !x.Moves() || (dashOnly(r) && x == state.ActionDash) {
			continue
		}
		return true
	}
	return false
}

// heavyForbids reports whether w's Heavy rule forbids move after a shot in a.
func heavyForbids(w state.Weapon, a *state.Activation, move state.Action) bool {
	r, ok := w.Rules.Get(weaponrule.Heavy)
	if !ok || !a.Took(state.ActionShoot) {
		return false
	}
	return !(dashOnly(r) && move == state.ActionDash)
}

func (c *check) secondaryTargets(cs *state.CombatState) {
	ctx := cs.Context
	if !ctx.Rules.Has(weaponrule.Blast) && !ctx.Rules.Has(weaponrule.Torrent) {
		c.add(CodeNoMultiTarget, "%s has neither Blast nor Torrent", ctx.Weapon.Name)
		return
	}
	if len(cs.Queue) > 1 || cs.QueueIndex > 0 || cs.AttackLocked {
		c.add(CodeAlreadyDone, "secondary targets are already set")
		return
	}
	ids, ok := c.p.Strings(command.FieldTargetIDs)
	if !ok {
		c.add(CodeBadField, "targetIds must be a list of operative ids")
		return
	}
	seen := map[string]bool{cs.DefenderID: true}
	for _, id := range ids {
		op := c.s.Operative(id)
		switch {
		case op == nil:
			c.add(CodeUnknownOperative, "no operative %q", id)
		case !op.Alive():
			c.add(CodeOperativeDown, "%s is incapacitated", op.Name)
		case seen[id]:
			c.add(CodeBadTarget, "%s is already targeted", op.Name)
		case op.ID == cs.AttackerID:
			c.add(CodeBadTarget, "the attacker cannot target itself")
		default:
			seen[id] = true
		}
	}
}

func (c *check) resolveEffect() {
	op := c.operative(command.FieldOperativeID)
	key, _ := c.p.Text(command.FieldEffect)
	id, ok := weaponrule.ParseID(key)
	if !ok {
		c.add(CodeUnknownRule, "unknown effect %q", key)
	}
	roll, rollOK := c.integer(command.FieldRoll)
	if rollOK && (roll < 1 || roll > 6) {
		c.add(CodeBadField, "roll must be between 1 and 6")
	}
	if op == nil || !ok {
		return
	}
	e, found := op.Effects.Get(effect.SideAttacker, id)
	if !found || e.Kind != effect.KindSelfDamageRoll {
		c.add(CodeNoPendingEffect, "%s has no pending %s roll", op.Name, key)
	}
}
