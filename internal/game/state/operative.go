package state

import (
	"fmt"

	"github.com/cory-johannsen/skirmish/internal/game/effect"
	"github.com/cory-johannsen/skirmish/internal/game/roster"
	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// Order is the stance an operative takes at activation start.
type Order string

const (
	OrderConceal Order = "conceal"
	OrderEngage  Order = "engage"
)

// Valid reports whether o is conceal or engage.
func (o Order) Valid() bool { return o == OrderConceal || o == OrderEngage }

// Readiness is whether an operative can still activate this turning point.
type Readiness string

const (
	Ready    Readiness = "READY"
	Expended Readiness = "EXPENDED"
)

// Weapon is a normalised weapon profile.
type Weapon struct {
	Name    string
	Mode    roster.Mode
	Attacks int
	Hit     int
	Normal  int
	Crit    int
	Rules   weaponrule.Set
}

// NewWeapon normalises a static weapon profile.
//
// Postcondition: Returns a Weapon with parsed damage and rules, or an error.
func NewWeapon(def roster.WeaponDef) (Weapon, error) {
	normal, crit, err := def.DamagePair()
	if err != nil {
		return Weapon{}, fmt.Errorf("weapon %q: %w", def.Name, err)
	}
	rules, err := def.ParsedRules()
	if err != nil {
		return Weapon{}, fmt.Errorf("weapon %q: %w", def.Name, err)
	}
	return Weapon{
		Name:    def.Name,
		Mode:    def.Mode,
		Attacks: def.Attacks,
		Hit:     def.Hit,
		Normal:  normal,
		Crit:    crit,
		Rules:   rules,
	}, nil
}

// Clone returns an independent copy of w.
func (w Weapon) Clone() Weapon {
	w.Rules = w.Rules.Clone()
	return w
}

// Operative is one model on the board.
//
// Invariant: 0 <= Wounds <= WoundsMax. An operative at 0 wounds is inert.
type Operative struct {
	ID        string
	Name      string
	Owner     PlayerID
	Team      string
	APL       int
	Move      int
	Save      int
	WoundsMax int
	Weapons   []Weapon

	Wounds                int
	Order                 Order
	Readiness             Readiness
	AP                    int
	Effects               effect.Ledger
	HasCounteractedThisTP bool
	SelectedWeapon        string
}

// NewOperative builds a fresh operative from its datacard. The ID is
// namespaced by owner so mirror matches never collide.
func NewOperative(def roster.OperativeDef, owner PlayerID, team string) (*Operative, error) {
	op := &Operative{
		ID:        string(owner) + "/" + def.ID,
		Name:      def.Name,
		Owner:     owner,
		Team:      team,
		APL:       def.APL,
		Move:      def.Move,
		Save:      def.Save,
		WoundsMax: def.Wounds,
		Wounds:    def.Wounds,
		Order:     OrderConceal,
		Readiness: Ready,
	}
	for _, wd := range def.Weapons {
		w, err := NewWeapon(wd)
		if err != nil {
			return nil, fmt.Errorf("operative %q: %w", def.ID, err)
		}
		op.Weapons = append(op.Weapons, w)
	}
	return op, nil
}

// Alive reports whether the operative has wounds remaining.
func (o *Operative) Alive() bool { return o.Wounds > 0 }

// Weapon returns the weapon called name.
func (o *Operative) Weapon(name string) (Weapon, bool) {
	for _, w := range o.Weapons {
		if w.Name == name {
			return w, true
		}
	}
	return Weapon{}, false
}

// StartingAP returns the action points the operative activates with: its APL
// adjusted by active effects, never negative.
func (o *Operative) StartingAP() int {
	return max(0, o.APL+o.Effects.APLModifier())
}

// TakeDamage reduces Wounds by n, flooring at zero.
//
// Postcondition: 0 <= Wounds <= WoundsMax.
func (o *Operative) TakeDamage(n int) {
	if n <= 0 {
		return
	}
	o.Wounds = max(0, o.Wounds-n)
}

// Clone returns an independent copy of o.
func (o *Operative) Clone() *Operative {
	if o == nil {
		return nil
	}
	out := *o
	out.Weapons = make([]Weapon, len(o.Weapons))
	for i, w := range o.Weapons {
		out.Weapons[i] = w.Clone()
	}
	out.Effects = o.Effects.Clone()
	return &out
}
