// Package weaponrule defines the closed catalogue of weapon special rules:
// their identifiers, resolution phases, responsibility classes, and the parser
// that normalises static weapon data into typed Rule values.
//
// Adding a rule means adding an ID constant and a catalogue entry; every
// switch over ID in the engine is exhaustive, so the compiler-visible list is
// the single source of truth.
package weaponrule

import "fmt"

// ID identifies one weapon special rule.
type ID int

const (
	Unknown ID = iota
	Accurate
	Balanced
	Blast
	Brutal
	Ceaseless
	Devastating
	Heavy
	Hot
	Lethal
	Limited
	Piercing
	PiercingCrits
	Punishing
	Range
	Relentless
	Rending
	Saturate
	Seek
	SeekLight
	Severe
	Shock
	Silent
	Stun
	Torrent
	numIDs
)

// Phase is the point in the attack at which a rule resolves.
type Phase int

const (
	// PreRoll rules resolve before any dice are rolled.
	PreRoll Phase = iota
	// Roll rules resolve immediately after rolling, before the roll is locked.
	Roll
	// PostRoll rules resolve after defense is locked and before damage.
	PostRoll
)

// String returns "PRE_ROLL", "ROLL", or "POST_ROLL".
func (p Phase) String() string {
	switch p {
	case PreRoll:
		return "PRE_ROLL"
	case Roll:
		return "ROLL"
	case PostRoll:
		return "POST_ROLL"
	default:
		return "UNKNOWN"
	}
}

// Class is the responsibility class of a rule: who performs it.
type Class int

const (
	// Auto rules are applied by the engine with no player click.
	Auto Class = iota
	// Semi rules are armed by a click and create a tracked effect resolved later.
	Semi
	// Player rules are recorded on click; the player performs them at the table.
	Player
)

// String returns "AUTO", "SEMI", or "PLAYER".
func (c Class) String() string {
	switch c {
	case Auto:
		return "AUTO"
	case Semi:
		return "SEMI"
	case Player:
		return "PLAYER"
	default:
		return "UNKNOWN"
	}
}

// Definition is the static catalogue entry for one rule.
type Definition struct {
	ID    ID
	Key   string
	Name  string
	Phase Phase
	Class Class
	// Valued rules carry a numeric parameter (Piercing 1, Lethal 5+).
	Valued bool
	// MeleeOnly rules never apply to ranged attacks.
	MeleeOnly bool
	Summary   string
}

var catalogue = [numIDs]Definition{
	Unknown:       {ID: Unknown, Key: "unknown", Name: "Unknown"},
	Accurate:      {ID: Accurate, Key: "accurate", Name: "Accurate", Phase: PreRoll, Class: Player, Valued: true, Summary: "Retain up to x attack dice as normal successes without rolling them."},
	Balanced:      {ID: Balanced, Key: "balanced", Name: "Balanced", Phase: Roll, Class: Player, Summary: "Re-roll one attack die."},
	Blast:         {ID: Blast, Key: "blast", Name: "Blast", Phase: PreRoll, Class: Semi, Valued: true, Summary: "Make an attack against each other operative within x of the target."},
	Brutal:        {ID: Brutal, Key: "brutal", Name: "Brutal", Phase: PostRoll, Class: Auto, Summary: "The defender can only block with critical successes."},
	Ceaseless:     {ID: Ceaseless, Key: "ceaseless", Name: "Ceaseless", Phase: Roll, Class: Player, Summary: "Re-roll any attack dice showing one chosen result."},
	Devastating:   {ID: Devastating, Key: "devastating", Name: "Devastating", Phase: Roll, Class: Auto, Valued: true, Summary: "Each retained critical success inflicts x damage immediately."},
	Heavy:         {ID: Heavy, Key: "heavy", Name: "Heavy", Phase: PreRoll, Class: Auto, Summary: "Cannot shoot in an activation in which the operative moved, or move after shooting."},
	Hot:           {ID: Hot, Key: "hot", Name: "Hot", Phase: PostRoll, Class: Semi, Summary: "After shooting, roll one die; below the hit stat inflicts twice the result on the shooter."},
	Lethal:        {ID: Lethal, Key: "lethal", Name: "Lethal", Phase: PreRoll, Class: Player, Valued: true, Summary: "Successes of x+ are critical."},
	Limited:       {ID: Limited, Key: "limited", Name: "Limited", Phase: PreRoll, Class: Auto, Valued: true, Summary: "Can be selected x times per battle."},
	Piercing:      {ID: Piercing, Key: "piercing", Name: "Piercing", Phase: PreRoll, Class: Auto, Valued: true, Summary: "The defender collects x fewer defence dice."},
	PiercingCrits: {ID: PiercingCrits, Key: "piercing_crits", Name: "Piercing Crits", Phase: Roll, Class: Auto, Valued: true, Summary: "Piercing x if any critical success is retained."},
	Punishing:     {ID: Punishing, Key: "punishing", Name: "Punishing", Phase: Roll, Class: Auto, Summary: "If a critical success is retained, retain one fail as a normal success."},
	Range:         {ID: Range, Key: "range", Name: "Range", Phase: PreRoll, Class: Player, Valued: true, Summary: "Only targets within x can be selected."},
	Relentless:    {ID: Relentless, Key: "relentless", Name: "Relentless", Phase: Roll, Class: Player, Summary: "Re-roll any attack dice."},
	Rending:       {ID: Rending, Key: "rending", Name: "Rending", Phase: Roll, Class: Auto, Summary: "If a critical success is retained, retain one normal success as critical."},
	Saturate:      {ID: Saturate, Key: "saturate", Name: "Saturate", Phase: PreRoll, Class: Auto, Summary: "The defender cannot retain cover saves."},
	Seek:          {ID: Seek, Key: "seek", Name: "Seek", Phase: PreRoll, Class: Auto, Summary: "Targets cannot use terrain for cover."},
	SeekLight:     {ID: SeekLight, Key: "seek_light", Name: "Seek Light", Phase: PreRoll, Class: Auto, Summary: "Targets cannot use light terrain for cover."},
	Severe:        {ID: Severe, Key: "severe", Name: "Severe", Phase: Roll, Class: Auto, Summary: "If no critical success is retained, change one normal success to critical."},
	Shock:         {ID: Shock, Key: "shock", Name: "Shock", Phase: PostRoll, Class: Auto, MeleeOnly: true, Summary: "The first critical strike discards one of the opponent's normal successes."},
	Silent:        {ID: Silent, Key: "silent", Name: "Silent", Phase: PreRoll, Class: Player, Summary: "Can shoot while on a conceal order."},
	Stun:          {ID: Stun, Key: "stun", Name: "Stun", Phase: PostRoll, Class: Semi, Summary: "If a critical success is retained, subtract 1 APL from the target until the end of its next activation."},
	Torrent:       {ID: Torrent, Key: "torrent", Name: "Torrent", Phase: PreRoll, Class: Semi, Valued: true, Summary: "Make an attack against each other valid target within x of the primary target."},
}

var byKey = func() map[string]ID {
	m := make(map[string]ID, numIDs)
	for id := Unknown + 1; id < numIDs; id++ {
		m[catalogue[id].Key] = id
	}
	return m
}()

// Lookup returns the catalogue entry for id.
//
// Postcondition: ok is false iff id is Unknown or out of range.
func Lookup(id ID) (Definition, bool) {
	if id <= Unknown || id >= numIDs {
		return catalogue[Unknown], false
	}
	return catalogue[id], true
}

// ParseID resolves a rule key such as "piercing_crits".
func ParseID(key string) (ID, bool) {
	id, ok := byKey[key]
	return id, ok
}

// All returns every known rule definition ordered by ID.
func All() []Definition {
	out := make([]Definition, 0, numIDs-1)
	for id := Unknown + 1; id < numIDs; id++ {
		out = append(out, catalogue[id])
	}
	return out
}

// ByPhase returns the definitions resolving in phase p, ordered by ID.
func ByPhase(p Phase) []Definition {
	var out []Definition
	for _, d := range All() {
		if d.Phase == p {
			out = append(out, d)
		}
	}
	return out
}

// String returns the rule key.
func (id ID) String() string {
	if id < 0 || id >= numIDs {
		return fmt.Sprintf("rule(%d)", int(id))
	}
	return catalogue[id].Key
}

// MarshalText encodes the rule key.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a rule key.
func (id *ID) UnmarshalText(b []byte) error {
	v, ok := ParseID(string(b))
	if !ok {
		return fmt.Errorf("weaponrule: unknown rule %q", string(b))
	}
	*id = v
	return nil
}
