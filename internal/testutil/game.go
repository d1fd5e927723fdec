// Package testutil provides shared fixtures: two seated test teams and a
// disposable PostgreSQL container.
package testutil

import (
	"testing"

	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/state"
)

// Operative ids of the fixture teams.
const (
	Leader  = "p1/leader"
	Gunner  = "p1/gunner"
	Burner  = "p1/burner"
	Boss    = "p2/boss"
	Trooper = "p2/trooper"
)

// Teams returns two small fixture teams that between them carry most of the
// weapon rule catalogue. Alpha is seated as P1 and bravo as P2.
func Teams() map[state.PlayerID]*roster.TeamDef {
	alpha := &roster.TeamDef{
		ID:   "alpha",
		Name: "Alpha",
		Operatives: []roster.OperativeDef{
			{ID: "leader", Name: "Leader", APL: 3, Move: 6, Save: 3, Wounds: 10, Weapons: []roster.WeaponDef{
				{Name: "rifle", Mode: roster.ModeRanged, Attacks: 4, Hit: 3, Damage: "3/4", Rules: []string{"Piercing Crits 1"}},
				{Name: "blade", Mode: roster.ModeMelee, Attacks: 4, Hit: 3, Damage: "4/5", Rules: []string{"Shock"}},
			}},
			{ID: "gunner", Name: "Gunner", APL: 2, Move: 5, Save: 4, Wounds: 8, Weapons: []roster.WeaponDef{
				{Name: "cannon", Mode: roster.ModeRanged, Attacks: 4, Hit: 4, Damage: "4/5", Rules: []string{"Heavy", "Limited 1", "Piercing 1", `Blast 2"`}},
				{Name: "fists", Mode: roster.ModeMelee, Attacks: 3, Hit: 4, Damage: "2/3"},
			}},
			{ID: "burner", Name: "Burner", APL: 2, Move: 6, Save: 4, Wounds: 8, Weapons: []roster.WeaponDef{
				{Name: "flamer", Mode: roster.ModeRanged, Attacks: 5, Hit: 2, Damage: "3/3", Rules: []string{`Torrent 2"`, "Saturate", "Hot"}},
			}},
		},
		Ploys: []roster.PloyDef{
			{ID: "focus", Name: "Focus", Kind: roster.PloyStrategic, Cost: 1},
		},
	}
	bravo := &roster.TeamDef{
		ID:   "bravo",
		Name: "Bravo",
		Operatives: []roster.OperativeDef{
			{ID: "boss", Name: "Boss", APL: 3, Move: 6, Save: 3, Wounds: 12, Weapons: []roster.WeaponDef{
				{Name: "pistol", Mode: roster.ModeRanged, Attacks: 4, Hit: 3, Damage: "3/4", Rules: []string{"Rending", "Punishing", "Severe"}},
				{Name: "claw", Mode: roster.ModeMelee, Attacks: 4, Hit: 3, Damage: "4/6", Rules: []string{"Brutal", "Stun"}},
			}},
			{ID: "trooper", Name: "Trooper", APL: 2, Move: 6, Save: 5, Wounds: 7, Weapons: []roster.WeaponDef{
				{Name: "carbine", Mode: roster.ModeRanged, Attacks: 4, Hit: 4, Damage: "2/3", Rules: []string{"Lethal 5+", "Accurate 1", "Silent", "Devastating 2"}},
			}},
		},
		Ploys: []roster.PloyDef{
			{ID: "rush", Name: "Rush", Kind: roster.PloyStrategic, Cost: 1},
			{ID: "brace", Name: "Brace", Kind: roster.PloyFirefight, Cost: 1},
		},
	}
	return map[state.PlayerID]*roster.TeamDef{state.P1: alpha, state.P2: bravo}
}

// NewGame returns a SETUP-phase game built from Teams.
//
// Postcondition: Returns a valid GameState or fails the test.
func NewGame(t testing.TB) *state.GameState {
	t.Helper()
	s, err := state.New(Teams(), state.DefaultTurningPoints)
	if err != nil {
		t.Fatalf("building fixture game: %v", err)
	}
	return s
}
