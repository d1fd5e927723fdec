package intent

import (
	"github.com/cory-johannsen/skirmish/internal/game/command"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

func (c *check) phase() {
	s := c.s
	switch c.t {
	case command.StartGame:
		c.requirePhase(state.PhaseSetup)
	case command.ReadyAllOperatives:
		if c.requirePhase(state.PhaseStrategy) && s.Strategy.OperativesReadiedThisTP {
			c.add(CodeAlreadyDone, "operatives were already readied this turning point")
		}
	case command.SetInitiative:
		if !c.requirePhase(state.PhaseStrategy) {
			return
		}
		c.player()
		if s.Strategy.InitiativeSetThisTP {
			c.add(CodeAlreadyDone, "initiative was already assigned this turning point")
		}
	case command.GainCP:
		if !c.requirePhase(state.PhaseStrategy) {
			return
		}
		if s.Strategy.CPGrantedThisTP {
			c.add(CodeAlreadyDone, "command points were already granted this turning point")
		}
		if s.TurningPoint > 1 && !s.Strategy.InitiativeSetThisTP {
			c.add(CodeStrategyIncomplete, "initiative must be assigned before command points are granted")
		}
	case command.UseStrategicPloy:
		if !c.requirePhase(state.PhaseStrategy) {
			return
		}
		p, ok := c.player()
		if !ok {
			return
		}
		if s.Strategy.Passed[p] {
			c.add(CodeAlreadyPassed, "%s has passed", p)
		}
		id, ok := c.text(command.FieldPloyID)
		if !ok {
			return
		}
		ploy, found := s.Ploy(p, id)
		if !found || ploy.Kind != roster.PloyStrategic {
			c.add(CodeUnknownPloy, "%s has no strategic ploy %q", p, id)
			return
		}
		for _, used := range s.Strategy.PloysUsed[p] {
			if used == id {
				c.add(CodeAlreadyDone, "%s was already used this turning point", ploy.Name)
			}
		}
		if s.CP[p] < ploy.Cost {
			c.add(CodeInsufficientCP, "%s costs %d CP, %s has %d", ploy.Name, ploy.Cost, p, s.CP[p])
		}
	case command.PassStrategy:
		if !c.requirePhase(state.PhaseStrategy) {
			return
		}
		if p, ok := c.player(); ok && s.Strategy.Passed[p] {
			c.add(CodeAlreadyPassed, "%s has already passed", p)
		}
	case command.EndStrategyPhase:
		if !c.requirePhase(state.PhaseStrategy) {
			return
		}
		if !s.Strategy.CPGrantedThisTP {
			c.add(CodeStrategyIncomplete, "command points have not been granted")
		}
		if !s.Strategy.OperativesReadiedThisTP {
			c.add(CodeStrategyIncomplete, "operatives have not been readied")
		}
		if !s.Strategy.InitiativeSetThisTP {
			c.add(CodeStrategyIncomplete, "initiative has not been assigned")
		}
		for _, p := range state.Players {
			if !s.Strategy.Passed[p] {
				c.add(CodeStrategyIncomplete, "%s has not passed", p)
			}
		}
	case command.TurningPointEnd:
		c.requirePhase(state.PhaseFirefight, state.PhaseTurningPointEnd)
	}
}
