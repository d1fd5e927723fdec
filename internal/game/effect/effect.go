// Package effect provides the typed effects ledger used by combat contexts and
// operatives: entries keyed by (side, rule) with an explicit expiry policy.
package effect

import (
	"sort"

	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// Side is the participant an effect is attached to within an attack.
type Side int

const (
	SideAttacker Side = iota
	SideDefender
)

// String returns "attacker" or "defender".
func (s Side) String() string {
	if s == SideDefender {
		return "defender"
	}
	return "attacker"
}

// Kind is the variant of an Effect.
type Kind int

const (
	// KindAPLModifier adjusts the operative's action point limit by Value.
	KindAPLModifier Kind = iota
	// KindSelfDamageRoll is a deferred roll: a result below Threshold inflicts
	// Value times the result as damage on the bearer.
	KindSelfDamageRoll
	// KindNote is informational only.
	KindNote
)

// Expiry is the policy deciding when an effect is discarded.
type Expiry int

const (
	// UntilCombatCleared effects live only inside one combat context.
	UntilCombatCleared Expiry = iota
	// EndOfNextActivation effects expire when the bearer's next activation
	// ends, counteracts included. Turning point boundaries do not expire them.
	EndOfNextActivation
	// EndOfTurningPoint effects expire when the turning point ends.
	EndOfTurningPoint
	// UntilResolved effects persist until explicitly resolved.
	UntilResolved
)

// Trigger is a game moment that may expire effects.
type Trigger int

const (
	TriggerCombatCleared Trigger = iota
	TriggerActivationEnd
	TriggerTurningPointEnd
)

// Effect is one tracked effect.
type Effect struct {
	ID        weaponrule.ID
	Side      Side
	Kind      Kind
	Value     int
	Threshold int
	Expiry    Expiry
	Note      string
}

// Key returns the ledger key of e.
func (e Effect) Key() Key { return Key{Side: e.Side, ID: e.ID} }

// ExpiresOn reports whether trigger t discards e.
func (e Effect) ExpiresOn(t Trigger) bool {
	switch e.Expiry {
	case UntilCombatCleared:
		return t == TriggerCombatCleared
	case EndOfNextActivation:
		return t == TriggerActivationEnd
	case EndOfTurningPoint:
		return t == TriggerTurningPointEnd
	default:
		return false
	}
}

// Key identifies a ledger entry.
type Key struct {
	Side Side
	ID   weaponrule.ID
}

// Ledger holds at most one Effect per Key. The zero value is ready to use.
// It is not safe for concurrent use; the caller must serialise access.
type Ledger struct {
	entries map[Key]Effect
}

// Upsert adds e, replacing any entry with the same key.
//
// Postcondition: Get(e.Side, e.ID) == e; Len() grows by at most one.
// Returns true when an existing entry was replaced.
func (l *Ledger) Upsert(e Effect) bool {
	if l.entries == nil {
		l.entries = make(map[Key]Effect)
	}
	_, existed := l.entries[e.Key()]
	l.entries[e.Key()] = e
	return existed
}

// Remove deletes the entry for (side, id). Removing an absent entry is a no-op.
func (l *Ledger) Remove(side Side, id weaponrule.ID) {
	delete(l.entries, Key{Side: side, ID: id})
}

// Get returns the entry for (side, id).
func (l *Ledger) Get(side Side, id weaponrule.ID) (Effect, bool) {
	e, ok := l.entries[Key{Side: side, ID: id}]
	return e, ok
}

// Has reports whether an entry exists for (side, id).
func (l *Ledger) Has(side Side, id weaponrule.ID) bool {
	_, ok := l.Get(side, id)
	return ok
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// All returns every entry ordered by side then rule.
func (l *Ledger) All() []Effect {
	out := make([]Effect, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Side != out[j].Side {
			return out[i].Side < out[j].Side
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// BySide returns the entries attached to side, ordered by rule.
func (l *Ledger) BySide(side Side) []Effect {
	var out []Effect
	for _, e := range l.All() {
		if e.Side == side {
			out = append(out, e)
		}
	}
	return out
}

// Expire removes every entry that t discards and returns them.
//
// Postcondition: no remaining entry satisfies ExpiresOn(t).
func (l *Ledger) Expire(t Trigger) []Effect {
	var expired []Effect
	for _, e := range l.All() {
		if e.ExpiresOn(t) {
			expired = append(expired, e)
			delete(l.entries, e.Key())
		}
	}
	return expired
}

// APLModifier sums the values of every KindAPLModifier entry.
func (l *Ledger) APLModifier() int {
	total := 0
	for _, e := range l.entries {
		if e.Kind == KindAPLModifier {
			total += e.Value
		}
	}
	return total
}

// Clone returns an independent copy of l.
func (l Ledger) Clone() Ledger {
	if l.entries == nil {
		return Ledger{}
	}
	out := Ledger{entries: make(map[Key]Effect, len(l.entries))}
	for k, v := range l.entries {
		out.entries[k] = v
	}
	return out
}
