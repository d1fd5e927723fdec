// Package roster provides the read-only static data for teams, operatives,
// weapons, and ploys, loaded from YAML at setup time.
package roster

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/skirmish/internal/game/weaponrule"
)

// Mode is a weapon's attack mode.
type Mode string

const (
	ModeRanged Mode = "ranged"
	ModeMelee  Mode = "melee"
)

// PloyKind distinguishes strategy-phase ploys from firefight ploys.
type PloyKind string

const (
	PloyStrategic PloyKind = "strategic"
	PloyFirefight PloyKind = "firefight"
)

// WeaponDef is a weapon profile as printed on a datacard.
type WeaponDef struct {
	Name    string   `yaml:"name"`
	Mode    Mode     `yaml:"mode"`
	Attacks int      `yaml:"attacks"`
	Hit     int      `yaml:"hit"`
	Damage  string   `yaml:"damage"` // "normal/crit", e.g. "3/4"
	Rules   []string `yaml:"rules"`
}

// DamagePair parses Damage into its normal and critical values.
//
// Postcondition: on success normal >= 0 and crit >= 0.
func (w WeaponDef) DamagePair() (normal, crit int, err error) {
	parts := strings.Split(strings.TrimSpace(w.Damage), "/")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("damage %q must be \"normal/crit\"", w.Damage)
	}
	normal, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || normal < 0 {
		return 0, 0, fmt.Errorf("damage %q: bad normal value", w.Damage)
	}
	crit, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || crit < 0 {
		return 0, 0, fmt.Errorf("damage %q: bad crit value", w.Damage)
	}
	return normal, crit, nil
}

// ParsedRules normalises the printed rule list.
func (w WeaponDef) ParsedRules() (weaponrule.Set, error) {
	set, errs := weaponrule.ParseAll(w.Rules)
	return set, errors.Join(errs...)
}

// Validate checks that the WeaponDef satisfies its invariants.
//
// Postcondition: returns nil iff all fields are valid.
func (w WeaponDef) Validate() error {
	var errs []error
	if w.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if w.Mode != ModeRanged && w.Mode != ModeMelee {
		errs = append(errs, fmt.Errorf("mode must be ranged or melee, got %q", w.Mode))
	}
	if w.Attacks < 0 {
		errs = append(errs, errors.New("attacks must be >= 0"))
	}
	if w.Hit < 2 || w.Hit > 6 {
		errs = append(errs, fmt.Errorf("hit must be 2-6, got %d", w.Hit))
	}
	if _, _, err := w.DamagePair(); err != nil {
		errs = append(errs, err)
	}
	if _, err := w.ParsedRules(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("weapon %q: %w", w.Name, errors.Join(errs...))
	}
	return nil
}

// OperativeDef is one operative datacard.
type OperativeDef struct {
	ID      string      `yaml:"id"`
	Name    string      `yaml:"name"`
	APL     int         `yaml:"apl"`
	Move    int         `yaml:"move"`
	Save    int         `yaml:"save"`
	Wounds  int         `yaml:"wounds"`
	Weapons []WeaponDef `yaml:"weapons"`
}

// Validate checks the operative and each of its weapons.
func (o OperativeDef) Validate() error {
	var errs []error
	if o.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if o.APL < 1 {
		errs = append(errs, fmt.Errorf("apl must be >= 1, got %d", o.APL))
	}
	if o.Save < 2 || o.Save > 6 {
		errs = append(errs, fmt.Errorf("save must be 2-6, got %d", o.Save))
	}
	if o.Wounds < 1 {
		errs = append(errs, fmt.Errorf("wounds must be >= 1, got %d", o.Wounds))
	}
	seen := make(map[string]bool, len(o.Weapons))
	for _, w := range o.Weapons {
		if seen[w.Name] {
			errs = append(errs, fmt.Errorf("duplicate weapon %q", w.Name))
		}
		seen[w.Name] = true
		if err := w.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("operative %q: %w", o.ID, errors.Join(errs...))
	}
	return nil
}

// PloyDef is a ploy purchasable with command points.
type PloyDef struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Kind        PloyKind `yaml:"kind"`
	Cost        int      `yaml:"cost"`
	Description string   `yaml:"description"`
}

// TeamDef is a full team definition.
type TeamDef struct {
	ID         string         `yaml:"id"`
	Name       string         `yaml:"name"`
	Operatives []OperativeDef `yaml:"operatives"`
	Ploys      []PloyDef      `yaml:"ploys"`
}

// Validate checks the team, its operatives, and its ploys.
func (t *TeamDef) Validate() error {
	var errs []error
	if t.ID == "" {
		errs = append(errs, errors.New("id must not be empty"))
	}
	if len(t.Operatives) == 0 {
		errs = append(errs, errors.New("at least one operative is required"))
	}
	ids := make(map[string]bool)
	for _, o := range t.Operatives {
		if ids[o.ID] {
			errs = append(errs, fmt.Errorf("duplicate operative %q", o.ID))
		}
		ids[o.ID] = true
		if err := o.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range t.Ploys {
		if p.ID == "" {
			errs = append(errs, errors.New("ploy id must not be empty"))
		}
		if p.Kind != PloyStrategic && p.Kind != PloyFirefight {
			errs = append(errs, fmt.Errorf("ploy %q: kind must be strategic or firefight", p.ID))
		}
		if p.Cost < 0 {
			errs = append(errs, fmt.Errorf("ploy %q: cost must be >= 0", p.ID))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("team %q: %w", t.ID, errors.Join(errs...))
	}
	return nil
}

// Ploy returns the ploy with id.
func (t *TeamDef) Ploy(id string) (PloyDef, bool) {
	for _, p := range t.Ploys {
		if p.ID == id {
			return p, true
		}
	}
	return PloyDef{}, false
}

// ParseTeam decodes and validates one team document. Unknown fields are rejected.
//
// Postcondition: Returns a valid TeamDef or a non-nil error.
func ParseTeam(data []byte) (*TeamDef, error) {
	var t TeamDef
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("decoding team: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// LoadTeam reads and parses one team file.
func LoadTeam(path string) (*TeamDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}
	t, err := ParseTeam(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return t, nil
}

// Registry holds all known teams keyed by ID.
type Registry struct {
	teams map[string]*TeamDef
}

// NewRegistry builds a Registry, rejecting duplicate team IDs.
func NewRegistry(teams []*TeamDef) (*Registry, error) {
	r := &Registry{teams: make(map[string]*TeamDef, len(teams))}
	for _, t := range teams {
		if _, exists := r.teams[t.ID]; exists {
			return nil, fmt.Errorf("duplicate team id %q", t.ID)
		}
		r.teams[t.ID] = t
	}
	return r, nil
}

// Get returns the team with id.
func (r *Registry) Get(id string) (*TeamDef, bool) {
	t, ok := r.teams[id]
	return t, ok
}

// IDs returns every team ID in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.teams))
	for id := range r.teams {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LoadDirectory reads every *.yaml file in dir as a TeamDef.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns a populated Registry, or an error if any file fails to parse.
func LoadDirectory(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading team dir %q: %w", dir, err)
	}
	var teams []*TeamDef
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		t, err := LoadTeam(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return NewRegistry(teams)
}
