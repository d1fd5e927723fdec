// Package state holds the game data model: the GameState container, operatives,
// activation and combat records, and the read-only selectors consumers use to
// query them. Every mutation happens in the engine on a Clone.
package state

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/roster"
)

// PlayerID identifies one of the two players.
type PlayerID string

const (
	P1 PlayerID = "p1"
	P2 PlayerID = "p2"
)

// Players lists both players in seat order.
var Players = [2]PlayerID{P1, P2}

// Valid reports whether p is P1 or P2.
func (p PlayerID) Valid() bool { return p == P1 || p == P2 }

// Opponent returns the other player.
func (p PlayerID) Opponent() PlayerID {
	if p == P1 {
		return P2
	}
	return P1
}

// Phase is the top-level game phase.
type Phase string

const (
	PhaseSetup            Phase = "SETUP"
	PhaseStrategy         Phase = "STRATEGY"
	PhaseFirefight        Phase = "FIREFIGHT"
	PhaseTurningPointEnd  Phase = "TURNING_POINT_END"
	PhaseGameOver         Phase = "GAME_OVER"
	DefaultTurningPoints        = 4
	StartingCommandPoints       = 2
)

// StrategyState tracks the once-per-turning-point gates of the strategy phase.
type StrategyState struct {
	CPGrantedThisTP         bool
	OperativesReadiedThisTP bool
	InitiativeSetThisTP     bool
	Passed                  map[PlayerID]bool
	PloysUsed               map[PlayerID][]string
}

// UsageKey identifies a weapon on a specific operative for limited-use tracking.
type UsageKey struct {
	OperativeID string
	Weapon      string
}

// GameState is the whole state of one game.
//
// Invariant: at most one operative is active; Firefight.OrderChosen is false
// until the active operative's order is set.
type GameState struct {
	Phase            Phase
	TurningPoint     int
	MaxTurningPoints int
	CP               map[PlayerID]int
	Initiative       PlayerID
	Teams            map[PlayerID]string
	Ploys            map[PlayerID][]roster.PloyDef
	Operatives       []*Operative
	Strategy         StrategyState
	Firefight        FirefightState
	Combat           *CombatState
	// AttackingOperativeID and DefendingOperativeID are empty when no attack is in progress.
	AttackingOperativeID string
	DefendingOperativeID string
	Flow                 *FlowState
	WeaponUsage          map[UsageKey]int
}

// New builds a SETUP-phase game from one team per player.
//
// Precondition: teams must hold a validated TeamDef for both P1 and P2.
// Postcondition: Returns a GameState in PhaseSetup at turning point 1, or an error.
func New(teams map[PlayerID]*roster.TeamDef, maxTurningPoints int) (*GameState, error) {
	if maxTurningPoints <= 0 {
		maxTurningPoints = DefaultTurningPoints
	}
	s := &GameState{
		Phase:            PhaseSetup,
		TurningPoint:     1,
		MaxTurningPoints: maxTurningPoints,
		CP:               make(map[PlayerID]int, 2),
		Teams:            make(map[PlayerID]string, 2),
		Ploys:            make(map[PlayerID][]roster.PloyDef, 2),
		Strategy:         newStrategyState(),
		WeaponUsage:      make(map[UsageKey]int),
	}
	for _, p := range Players {
		team, ok := teams[p]
		if !ok || team == nil {
			return nil, fmt.Errorf("no team for player %s", p)
		}
		s.Teams[p] = team.ID
		s.CP[p] = StartingCommandPoints
		s.Ploys[p] = append([]roster.PloyDef(nil), team.Ploys...)
		for _, def := range team.Operatives {
			op, err := NewOperative(def, p, team.ID)
			if err != nil {
				return nil, err
			}
			s.Operatives = append(s.Operatives, op)
		}
	}
	return s, nil
}

func newStrategyState() StrategyState {
	return StrategyState{
		Passed:    make(map[PlayerID]bool, 2),
		PloysUsed: make(map[PlayerID][]string, 2),
	}
}

// ResetStrategy clears the per-turning-point strategy gates.
func (s *GameState) ResetStrategy() {
	s.Strategy = newStrategyState()
}

// Ploy returns player p's ploy with id.
func (s *GameState) Ploy(p PlayerID, id string) (roster.PloyDef, bool) {
	for _, pl := range s.Ploys[p] {
		if pl.ID == id {
			return pl, true
		}
	}
	return roster.PloyDef{}, false
}

// Clone returns a deep copy of s. Snapshots taken with Clone are never
// affected by later mutation of s.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := *s
	out.CP = cloneMap(s.CP)
	out.Teams = cloneMap(s.Teams)
	out.Ploys = make(map[PlayerID][]roster.PloyDef, len(s.Ploys))
	for k, v := range s.Ploys {
		out.Ploys[k] = append([]roster.PloyDef(nil), v...)
	}
	out.Operatives = make([]*Operative, len(s.Operatives))
	for i, op := range s.Operatives {
		out.Operatives[i] = op.Clone()
	}
	out.Strategy = StrategyState{
		CPGrantedThisTP:         s.Strategy.CPGrantedThisTP,
		OperativesReadiedThisTP: s.Strategy.OperativesReadiedThisTP,
		InitiativeSetThisTP:     s.Strategy.InitiativeSetThisTP,
		Passed:                  cloneMap(s.Strategy.Passed),
		PloysUsed:               make(map[PlayerID][]string, len(s.Strategy.PloysUsed)),
	}
	for k, v := range s.Strategy.PloysUsed {
		out.Strategy.PloysUsed[k] = append([]string(nil), v...)
	}
	out.Firefight = s.Firefight.Clone()
	out.Combat = s.Combat.Clone()
	if s.Flow != nil {
		f := *s.Flow
		out.Flow = &f
	}
	out.WeaponUsage = cloneMap(s.WeaponUsage)
	return &out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
