package engine

import (
	"github.com/cory-johannsen/skirmish/internal/game/combat"
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/dice"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/intent"
	"github.com/cory-johannsen/skirmish/internal/game/state"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

func (t *txn) startAttackCommand() error {
	p := t.cmd.Payload
	attacker := t.operative(command.FieldAttackerID)
	defender := t.operative(command.FieldDefenderID)
	name, _ := p.Text(command.FieldWeaponName)
	w, _ := attacker.Weapon(name)
	var mods state.TargetModifiers
	mods.Cover, _ = p.Bool(command.FieldCover)
	mods.Obscured, _ = p.Bool(command.FieldObscured)
	t.startAttack(attacker, defender, w, mods)
	return nil
}

// startAttack declares an attack and builds its combat context. It counts one
// use of w and one declared attack against the activation's attack actions.
func (t *txn) startAttack(attacker, defender *state.Operative, w state.Weapon, mods state.TargetModifiers) {
	s := t.s
	s.WeaponUsage[state.UsageKey{OperativeID: attacker.ID, Weapon: w.Name}]++
	if a := s.Firefight.Activation; a != nil {
		a.AttacksDeclared++
	}
	attacker.SelectedWeapon = w.Name
	ctx := combat.NewContext(attacker, defender, w, mods)
	s.Combat = &state.CombatState{
		AttackerID: attacker.ID,
		DefenderID: defender.ID,
		WeaponName: w.Name,
		Mode:       w.Mode,
		Stage:      state.StageAttackRolling,
		Queue:      []state.QueueEntry{{TargetID: defender.ID, Modifiers: mods}},
		Context:    ctx,
	}
	s.AttackingOperativeID = attacker.ID
	s.DefendingOperativeID = defender.ID
	t.emit(EventAttackDeclared, map[string]any{
		"attackerId": attacker.ID, "defenderId": defender.ID, "weapon": w.Name, "mode": w.Mode,
	}, "%s attacks %s with %s", attacker.Name, defender.Name, w.Name)
	t.rulesApplied(ctx, ctx.UI.AppliedRules)
}

func (t *txn) rulesApplied(ctx *state.Context, ids []weaponrule.ID) {
	for _, id := range ids {
		r, _ := ctx.Rules.Get(id)
		t.emit(EventRuleApplied, map[string]any{"rule": id.String()}, "%s applied", r.Label())
	}
}

// setSecondaryTargets queues the additional targets of a Blast or Torrent
// weapon. Blast targets inherit the primary target's modifiers and ignore
// their own order; Torrent targets start with none.
func (t *txn) setSecondaryTargets() error {
	cs := t.s.Combat
	ids, _ := t.cmd.Payload.Strings(command.FieldTargetIDs)
	blast := cs.Context.Rules.Has(weaponrule.Blast)
	for _, id := range ids {
		entry := state.QueueEntry{TargetID: id}
		if blast {
			entry.Modifiers = cs.Queue[0].Modifiers
			entry.Modifiers.IgnoreConceal = true
			entry.Modifiers.Inherited = true
		}
		cs.Queue = append(cs.Queue, entry)
	}
	if blast {
		cs.Inputs.BlastTargets = append(cs.Inputs.BlastTargets, ids...)
	} else {
		cs.Inputs.TorrentTargets = append(cs.Inputs.TorrentTargets, ids...)
	}
	t.emit(EventSecondaryTargetsSet, map[string]any{"targetIds": ids}, "%d secondary targets queued", len(ids))
	return nil
}

func (t *txn) setAttackRoll(p command.Payload) error {
	cs := t.s.Combat
	pool, _ := p.Ints(command.FieldDice)
	accurate, _ := p.Int(command.FieldAccurate)
	if limit := combat.AccurateLimit(cs.Context); accurate < 0 || accurate > limit {
		return refuse(intent.CodeAccurateExceeded, "at most %d dice can be retained with Accurate", limit)
	}
	if allowed := cs.Context.AttackDiceAllowed(accurate); len(pool) > allowed {
		return refuse(intent.CodeTooManyDice, "%d attack dice rolled, %d allowed", len(pool), allowed)
	}
	cs.AttackDice = dice.Pool(pool)
	cs.Inputs.AccurateSpend = accurate
	combat.ClassifyAttack(cs.Context, cs.AttackDice, accurate)
	hits, crits := cs.Context.Retained()
	t.emit(EventAttackRolled, map[string]any{"dice": pool, "accurate": accurate, "hits": hits, "crits": crits},
		"Attack roll %s: %d hits, %d crits", cs.AttackDice, hits, crits)
	return nil
}

// lockAttackRoll applies obscurement and the automatic roll-phase rules, then
// locks the attack roll.
func (t *txn) lockAttackRoll() error {
	cs := t.s.Combat
	ctx := cs.Context
	combat.ApplyObscured(ctx)
	applied := combat.ApplyAuto(ctx, cs.Stage, weaponrule.Roll)
	if err := combat.LockAttack(cs); err != nil {
		return err
	}
	t.rulesApplied(ctx, applied)
	hits, crits := ctx.Retained()
	t.emit(EventAttackLocked, map[string]any{"hits": hits, "crits": crits, "defenseDice": ctx.DefenseDiceAllowed()},
		"Attack locked: %d hits, %d crits; %s rolls %d defence dice", hits, crits, ctx.Defender.Name, ctx.DefenseDiceAllowed())
	return nil
}

func (t *txn) setDefenseRoll(p command.Payload) error {
	cs := t.s.Combat
	pool, _ := p.Ints(command.FieldDice)
	combat.ClassifyDefense(cs.Context, dice.Pool(pool))
	cs.DefenseDice = dice.Pool(pool[:len(cs.Context.DefenseDice)]).Clone()
	if cs.Stage == state.StageAttackLocked {
		if err := combat.Transition(cs, state.StageDefenseRolling); err != nil {
			return err
		}
	}
	saves, critSaves := cs.Context.Saves()
	t.emit(EventDefenseRolled, map[string]any{"dice": []int(cs.DefenseDice), "saves": saves, "critSaves": critSaves},
		"Defence roll %s: %d saves, %d crit saves", cs.DefenseDice, saves, critSaves)
	return nil
}

// lockDefenseRoll locks the defence, applies the automatic post-roll rules,
// and proposes the damage-minimising block allocation.
func (t *txn) lockDefenseRoll() error {
	cs := t.s.Combat
	if err := combat.LockDefense(cs); err != nil {
		return err
	}
	t.emit(EventDefenseLocked, nil, "Defence locked")
	t.rulesApplied(cs.Context, combat.ApplyAuto(cs.Context, cs.Stage, weaponrule.PostRoll))
	return t.proposeBlocks()
}

func (t *txn) proposeBlocks() error {
	cs := t.s.Combat
	alloc := combat.ProposeBlocks(cs.Context)
	cs.Blocks = &alloc
	cs.BlocksOverridden = false
	if err := combat.Transition(cs, state.StageBlocksResolving); err != nil {
		return err
	}
	t.emit(EventBlocksProposed, blockData(alloc), "Blocks proposed: %d hits and %d crits unblocked", alloc.RemainingHits, alloc.RemainingCrits)
	return nil
}

func blockData(a dice.Allocation) map[string]any {
	return map[string]any{
		"remainingHits":    a.RemainingHits,
		"remainingCrits":   a.RemainingCrits,
		"critSavesOnCrits": a.CritSavesOnCrits,
		"critSavesOnHits":  a.CritSavesOnHits,
		"savesOnHits":      a.SavesOnHits,
		"savePairsOnCrits": a.SavePairsOnCrits,
	}
}

func (t *txn) setBlocksResult() error {
	cs := t.s.Combat
	p := t.cmd.Payload
	var b dice.Breakdown
	b.CritSavesOnCrits, _ = p.Int(command.FieldCritSavesOnCrits)
	b.CritSavesOnHits, _ = p.Int(command.FieldCritSavesOnHits)
	b.SavesOnHits, _ = p.Int(command.FieldSavesOnHits)
	b.SavePairsOnCrits, _ = p.Int(command.FieldSavePairsOnCrits)
	atk, _ := combat.Pools(cs.Context)
	alloc := dice.Allocation{
		RemainingHits:  atk.Hits - b.SavesOnHits - b.CritSavesOnHits,
		RemainingCrits: atk.Crits - b.CritSavesOnCrits - b.SavePairsOnCrits,
		Breakdown:      b,
	}
	if err := combat.ValidateBlocks(cs.Context, alloc); err != nil {
		return err
	}
	cs.Blocks = &alloc
	cs.BlocksOverridden = true
	if err := combat.Transition(cs, state.StageReadyToResolveDamage); err != nil {
		return err
	}
	t.emit(EventBlocksSet, blockData(alloc), "Blocks set: %d hits and %d crits unblocked", alloc.RemainingHits, alloc.RemainingCrits)
	return nil
}

// applyDamage inflicts the unblocked damage on the current target and moves
// the attack's persistent effects onto the participants.
func (t *txn) applyDamage() error {
	s := t.s
	cs := s.Combat
	ctx := cs.Context
	attacker := s.Operative(cs.AttackerID)
	defender := s.Operative(cs.DefenderID)
	var alloc dice.Allocation
	if cs.Blocks != nil {
		alloc = *cs.Blocks
	}
	dmg := combat.Damage(ctx, alloc)
	defender.TakeDamage(dmg)
	cs.DamageDealt = dmg
	cs.DamageApplied = true
	t.emit(EventDamageApplied, map[string]any{"defenderId": defender.ID, "damage": dmg, "wounds": defender.Wounds},
		"%s takes %d damage (%d/%d wounds)", defender.Name, dmg, defender.Wounds, defender.WoundsMax)
	for _, e := range combat.CommitEffects(ctx, attacker, defender) {
		bearer := attacker
		if e.Side == effect.SideDefender {
			bearer = defender
		}
		t.emit(EventEffectAttached, map[string]any{"operativeId": bearer.ID, "effect": e.ID.String()},
			"%s: %s", bearer.Name, e.Note)
	}
	if !defender.Alive() {
		t.incapacitated(defender)
	}
	return combat.Transition(cs, state.StageDone)
}

func (t *txn) incapacitated(op *state.Operative) {
	t.emit(EventIncapacitated, map[string]any{"operativeId": op.ID}, "%s is incapacitated", op.Name)
}

// resolveCombat runs the remaining stages of the current attack in one step.
// Once the queue is exhausted the combat is cleared.
func (t *txn) resolveCombat() error {
	cs := t.s.Combat
	for cs.Stage != state.StageDone {
		var err error
		switch cs.Stage {
		case state.StageDefenseLocked:
			err = t.proposeBlocks()
		case state.StageBlocksResolving:
			err = combat.Transition(cs, state.StageReadyToResolveDamage)
		case state.StageReadyToResolveDamage:
			err = t.applyDamage()
		default:
			err = combat.RequireStage(cs, state.StageDefenseLocked, state.StageBlocksResolving, state.StageReadyToResolveDamage)
		}
		if err != nil {
			return err
		}
	}
	if !t.nextTarget() {
		t.clearCombat()
	}
	return nil
}

func (t *txn) advanceQueue() error {
	if !t.nextTarget() {
		t.clearCombat()
	}
	return nil
}

// nextTarget moves the attack to the next living queued target and rebuilds
// its context. It reports false when no such target remains.
func (t *txn) nextTarget() bool {
	s := t.s
	cs := s.Combat
	attacker := s.Operative(cs.AttackerID)
	for cs.HasNext() {
		cs.QueueIndex++
		entry := cs.Current()
		target := s.Operative(entry.TargetID)
		if target == nil || !target.Alive() {
			continue
		}
		w, _ := attacker.Weapon(cs.WeaponName)
		cs.Stage = state.StageAttackRolling
		cs.DefenderID = target.ID
		cs.AttackDice = nil
		cs.DefenseDice = nil
		cs.AttackLocked = false
		cs.DefenseLocked = false
		cs.Blocks = nil
		cs.BlocksOverridden = false
		cs.DamageDealt = 0
		cs.DamageApplied = false
		cs.Inputs.AccurateSpend = 0
		cs.Inputs.BalancedUsed = false
		cs.Inputs.CeaselessUsed = false
		cs.Inputs.RelentlessUsed = false
		cs.Context = combat.NewContext(attacker, target, w, entry.Modifiers)
		s.DefendingOperativeID = target.ID
		t.emit(EventQueueAdvanced, map[string]any{"defenderId": target.ID, "index": cs.QueueIndex},
			"%s now attacks %s", attacker.Name, target.Name)
		t.rulesApplied(cs.Context, cs.Context.UI.AppliedRules)
		return true
	}
	return false
}

// clearCombat discards the attack and its combat-scoped effects.
func (t *txn) clearCombat() {
	s := t.s
	if s.Combat != nil && s.Combat.Context != nil {
		s.Combat.Context.Effects.Expire(effect.TriggerCombatCleared)
	}
	s.Combat = nil
	s.AttackingOperativeID = ""
	s.DefendingOperativeID = ""
	t.emit(EventCombatCleared, nil, "Combat cleared")
}

func (t *txn) setDefenderOption() error {
	cs := t.s.Combat
	opt, _ := t.cmd.Payload.Text(command.FieldOption)
	enabled, _ := t.cmd.Payload.Bool(command.FieldEnabled)
	if err := combat.SetDefenderOption(cs.Context, opt, enabled); err != nil {
		return err
	}
	// Queued blast targets share the primary target's position.
	for i := range cs.Queue {
		if i != cs.QueueIndex && !(cs.QueueIndex == 0 && cs.Queue[i].Modifiers.Inherited) {
			continue
		}
		switch opt {
		case combat.OptionCover:
			cs.Queue[i].Modifiers.Cover = enabled
		case combat.OptionObscured:
			cs.Queue[i].Modifiers.Obscured = enabled
		}
	}
	t.emit(EventDefenderOptionSet, map[string]any{"option": opt, "enabled": enabled}, "%s %s: %t", cs.Context.Defender.Name, opt, enabled)
	return nil
}

func (t *txn) setVantage() error {
	cs := t.s.Combat
	distance, _ := t.cmd.Payload.Int(command.FieldDistance)
	if err := combat.SetVantage(cs.Context, distance); err != nil {
		return err
	}
	v := cs.Context.Modifiers.Vantage
	t.emit(EventVantageSet, map[string]any{"distance": v, "accurate": combat.AccurateLimit(cs.Context)},
		"Vantage %d\" (accurate %d)", v, combat.AccurateLimit(cs.Context))
	return nil
}

// weaponRuleClick applies a player-driven rule and any rerolls it carries.
func (t *txn) weaponRuleClick() error {
	cs := t.s.Combat
	ctx := cs.Context
	p := t.cmd.Payload
	key, _ := p.Text(command.FieldRule)
	id, _ := weaponrule.ParseID(key)
	if err := combat.Click(ctx, cs.Stage, id); err != nil {
		return err
	}
	idx, _ := p.Ints(command.FieldRerollIndexes)
	vals, _ := p.Ints(command.FieldRerollValues)
	if err := t.checkRerolls(id, idx); err != nil {
		return err
	}
	r, _ := ctx.Rules.Get(id)
	t.emit(EventRuleApplied, map[string]any{"rule": key}, "%s applied", r.Label())
	for i, index := range idx {
		before := ctx.AttackDice[index].Value
		if err := combat.Reroll(ctx, index, vals[i]); err != nil {
			return err
		}
		if raw := index - cs.Inputs.AccurateSpend; raw >= 0 && raw < len(cs.AttackDice) {
			cs.AttackDice[raw] = vals[i]
		}
		t.emit(EventDieRerolled, map[string]any{"index": index, "before": before, "after": vals[i]},
			"Die %d re-rolled: %d -> %d", index, before, vals[i])
	}
	switch id {
	case weaponrule.Balanced:
		cs.Inputs.BalancedUsed = true
	case weaponrule.Ceaseless:
		cs.Inputs.CeaselessUsed = true
	case weaponrule.Relentless:
		cs.Inputs.RelentlessUsed = true
	}
	return nil
}

// checkRerolls enforces each reroll rule's reach: Balanced one die, Ceaseless
// only dice sharing one result, Relentless any dice. Other rules reroll nothing.
func (t *txn) checkRerolls(id weaponrule.ID, idx []int) error {
	ctx := t.s.Combat.Context
	for _, i := range idx {
		if i < 0 || i >= len(ctx.AttackDice) {
			return refuse(intent.CodeBadDieIndex, "die index %d out of range", i)
		}
	}
	switch id {
	case weaponrule.Balanced:
		if len(idx) > 1 {
			return refuse(intent.CodeTooManyRerolls, "Balanced re-rolls one die")
		}
	case weaponrule.Ceaseless:
		for _, i := range idx {
			if ctx.AttackDice[i].Value != ctx.AttackDice[idx[0]].Value {
				return refuse(intent.CodeTooManyRerolls, "Ceaseless re-rolls dice showing one result")
			}
		}
	case weaponrule.Relentless:
	default:
		if len(idx) > 0 {
			return refuse(intent.CodeTooManyRerolls, "%s does not re-roll dice", id)
		}
	}
	return nil
}

// resolveEffect resolves a pending self-damage roll. An active operative
// taken out by its own weapon ends its activation.
func (t *txn) resolveEffect() error {
	s := t.s
	op := t.operative(command.FieldOperativeID)
	key, _ := t.cmd.Payload.Text(command.FieldEffect)
	id, _ := weaponrule.ParseID(key)
	roll, _ := t.cmd.Payload.Int(command.FieldRoll)
	e, _ := op.Effects.Get(effect.SideAttacker, id)
	dmg := combat.ResolveSelfDamage(op, e, roll)
	t.emit(EventEffectResolved, map[string]any{"operativeId": op.ID, "effect": key, "roll": roll, "damage": dmg},
		"%s rolls %d for %s: %d damage", op.Name, roll, id.Definition().Name, dmg)
	if op.Alive() {
		return nil
	}
	t.incapacitated(op)
	if s.Firefight.ActiveOperativeID == op.ID && s.Combat == nil {
		s.Flow = nil
		op.Readiness = state.Expended
		s.Firefight.ClearActive()
		t.passPriority(op.Owner)
	}
	return nil
}
