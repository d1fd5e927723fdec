package engine

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func (t *txn) player() state.PlayerID {
	raw, _ := t.cmd.Payload.Text(command.FieldPlayer)
	return state.PlayerID(raw)
}

func (t *txn) startGame() error {
	s := t.s
	s.Phase = state.PhaseStrategy
	s.TurningPoint = 1
	s.ResetStrategy()
	t.emit(EventGameStarted, map[string]any{"turningPoint": 1}, "The game begins: turning point 1")
	return nil
}

func (t *txn) readyAll() error {
	s := t.s
	n := 0
	for _, op := range s.Operatives {
		if op.Alive() {
			op.Readiness = state.Ready
			n++
		}
	}
	s.Strategy.OperativesReadiedThisTP = true
	t.emit(EventOperativesReadied, map[string]any{"count": n}, "%d operatives readied", n)
	return nil
}

func (t *txn) setInitiative() error {
	p := t.player()
	t.s.Initiative = p
	t.s.Strategy.InitiativeSetThisTP = true
	t.emit(EventInitiativeSet, map[string]any{"player": p}, "%s has the initiative", p)
	return nil
}

// gainCP grants command points: one each in the first turning point, then one
// to the initiative holder and two to the other player.
func (t *txn) gainCP() error {
	s := t.s
	grant := map[state.PlayerID]int{state.P1: 1, state.P2: 1}
	if s.TurningPoint > 1 {
		grant[s.Initiative] = 1
		grant[s.Initiative.Opponent()] = 2
	}
	for _, p := range state.Players {
		s.CP[p] += grant[p]
	}
	s.Strategy.CPGrantedThisTP = true
	t.emit(EventCPGained, map[string]any{"p1": grant[state.P1], "p2": grant[state.P2]},
		"Command points gained: p1 +%d (%d), p2 +%d (%d)", grant[state.P1], s.CP[state.P1], grant[state.P2], s.CP[state.P2])
	return nil
}

func (t *txn) useStrategicPloy() error {
	s := t.s
	p := t.player()
	id, _ := t.cmd.Payload.Text(command.FieldPloyID)
	ploy, _ := s.Ploy(p, id)
	s.CP[p] -= ploy.Cost
	s.Strategy.PloysUsed[p] = append(s.Strategy.PloysUsed[p], id)
	t.emit(EventPloyUsed, map[string]any{"player": p, "ploy": id, "cost": ploy.Cost}, "%s uses %s (%d CP)", p, ploy.Name, ploy.Cost)
	return nil
}

func (t *txn) passStrategy() error {
	p := t.player()
	t.s.Strategy.Passed[p] = true
	t.emit(EventStrategyPassed, map[string]any{"player": p}, "%s passes", p)
	return nil
}

func (t *txn) endStrategyPhase() error {
	s := t.s
	s.Phase = state.PhaseFirefight
	s.Firefight = state.FirefightState{ActivePlayer: s.Initiative}
	t.emit(EventFirefightStarted, map[string]any{"turningPoint": s.TurningPoint, "activePlayer": s.Initiative},
		"Firefight begins; %s activates first", s.Initiative)
	return nil
}

// endTurningPoint closes the current turning point: open work is abandoned,
// every operative is expended, turning-point effects expire, and either the
// next strategy phase begins or the game ends.
func (t *txn) endTurningPoint() {
	s := t.s
	if s.Combat != nil {
		t.clearCombat()
	}
	s.Flow = nil
	s.Firefight.ClearActive()
	s.Phase = state.PhaseTurningPointEnd
	t.emit(EventFirefightEnded, map[string]any{"turningPoint": s.TurningPoint}, "Turning point %d ends", s.TurningPoint)
	for _, op := range s.Operatives {
		if op.Alive() {
			op.Readiness = state.Expended
		}
		op.HasCounteractedThisTP = false
		t.expire(op, effect.TriggerTurningPointEnd)
	}
	if s.TurningPoint >= s.MaxTurningPoints {
		s.Phase = state.PhaseGameOver
		t.emit(EventGameOver, map[string]any{"turningPoints": s.TurningPoint}, "Game over after %d turning points", s.TurningPoint)
		return
	}
	s.TurningPoint++
	s.Phase = state.PhaseStrategy
	s.ResetStrategy()
	s.Firefight = state.FirefightState{}
	t.emit(EventTurningPointStarted, map[string]any{"turningPoint": s.TurningPoint}, "Turning point %d begins", s.TurningPoint)
}

func (t *txn) expire(op *state.Operative, trigger effect.Trigger) {
	for _, e := range op.Effects.Expire(trigger) {
		t.emit(EventEffectExpired, map[string]any{"operativeId": op.ID, "effect": e.ID.String()},
			"%s: %s wears off", op.Name, e.ID.Definition().Name)
	}
}
