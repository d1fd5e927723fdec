package weaponrule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Source records where a rule instance came from.
type Source string

const (
	// SourceWeapon rules are printed on the weapon profile.
	SourceWeapon Source = "weapon"
	// SourceVantage rules are injected by a vantage position.
	SourceVantage Source = "vantage"
)

// Rule is one normalised rule instance on a weapon.
type Rule struct {
	ID        ID     `json:"id" yaml:"id"`
	Value     int    `json:"value,omitempty" yaml:"value,omitempty"`
	Qualifier string `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	Source    Source `json:"source" yaml:"source"`
}

// Definition returns the catalogue entry for r.
func (r Rule) Definition() Definition {
	d, _ := Lookup(r.ID)
	return d
}

// Label renders the rule the way it is printed on a profile.
func (r Rule) Label() string {
	d := r.Definition()
	switch {
	case r.ID == Lethal:
		return fmt.Sprintf("%s %d+", d.Name, r.Value)
	case d.Valued && r.Value > 0:
		label := fmt.Sprintf("%s %d", d.Name, r.Value)
		if r.ID == Blast || r.ID == Torrent || r.ID == Range {
			label += "\""
		}
		return label
	case r.Qualifier != "":
		return fmt.Sprintf("%s (%s)", d.Name, r.Qualifier)
	default:
		return d.Name
	}
}

// Set is the normalised rule list of one weapon.
type Set []Rule

// Has reports whether the set contains a rule with id.
func (s Set) Has(id ID) bool {
	_, ok := s.Get(id)
	return ok
}

// Get returns the first rule with id.
func (s Set) Get(id ID) (Rule, bool) {
	for _, r := range s {
		if r.ID == id {
			return r, true
		}
	}
	return Rule{}, false
}

// Value returns the parameter of the first rule with id, or 0.
func (s Set) Value(id ID) int {
	r, _ := s.Get(id)
	return r.Value
}

// Without returns a copy of s without rules matching id and source.
func (s Set) Without(id ID, src Source) Set {
	out := make(Set, 0, len(s))
	for _, r := range s {
		if r.ID == id && r.Source == src {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Clone returns an independent copy of s.
func (s Set) Clone() Set {
	if s == nil {
		return nil
	}
	out := make(Set, len(s))
	copy(out, s)
	return out
}

var ruleRe = regexp.MustCompile(`^([a-z][a-z ]*?)\s*(?:(\d+)\s*(\+|"|”|in)?)?\s*(?:\(([^)]*)\))?$`)

// Parse normalises one printed rule such as `Piercing Crits 1`, `Lethal 5+`,
// `Blast 2"`, or `Heavy (Dash only)`.
//
// Postcondition: Returns a Rule with Source == SourceWeapon, or an error naming the input.
func Parse(text string) (Rule, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	m := ruleRe.FindStringSubmatch(s)
	if m == nil {
		return Rule{}, fmt.Errorf("weaponrule: cannot parse %q", text)
	}
	key := strings.ReplaceAll(strings.TrimSpace(m[1]), " ", "_")
	id, ok := ParseID(key)
	if !ok {
		return Rule{}, fmt.Errorf("weaponrule: unknown rule %q", text)
	}
	r := Rule{ID: id, Source: SourceWeapon, Qualifier: strings.TrimSpace(m[4])}
	if m[2] != "" {
		v, err := strconv.Atoi(m[2])
		if err != nil {
			return Rule{}, fmt.Errorf("weaponrule: bad value in %q: %w", text, err)
		}
		r.Value = v
	}
	if id.Definition().Valued && r.Value == 0 {
		return Rule{}, fmt.Errorf("weaponrule: %s requires a value in %q", id, text)
	}
	return r, nil
}

// ParseAll normalises a printed rule list. Unparseable entries are returned
// separately so static data errors can be reported without dropping the weapon.
func ParseAll(texts []string) (Set, []error) {
	var (
		out  Set
		errs []error
	)
	for _, t := range texts {
		r, err := Parse(t)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, r)
	}
	return out, errs
}

// Definition returns the catalogue entry for id.
func (id ID) Definition() Definition {
	d, _ := Lookup(id)
	return d
}
