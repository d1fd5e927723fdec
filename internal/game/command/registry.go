package command

import (
	"fmt"
	"sort"
	"strings"
)

// Registry maps command types and aliases to Definitions.
type Registry struct {
	commands map[Type]*Definition // canonical type → definition
	aliases  map[string]Type      // alias → canonical type
}

// NewRegistry creates a Registry populated with the given definitions.
//
// Precondition: No two definitions may share a canonical name or alias.
// Postcondition: Returns a Registry or an error on name/alias collisions.
func NewRegistry(defs []Definition) (*Registry, error) {
	r := &Registry{
		commands: make(map[Type]*Definition, len(defs)),
		aliases:  make(map[string]Type),
	}

	for i := range defs {
		def := &defs[i]
		if _, exists := r.commands[def.Name]; exists {
			return nil, fmt.Errorf("duplicate command name: %q", def.Name)
		}
		if owner, exists := r.aliases[strings.ToLower(string(def.Name))]; exists {
			return nil, fmt.Errorf("command name %q conflicts with an alias of %q", def.Name, owner)
		}
		r.commands[def.Name] = def

		for _, alias := range def.Aliases {
			key := strings.ToLower(alias)
			if _, exists := r.commands[Type(strings.ToUpper(alias))]; exists {
				return nil, fmt.Errorf("alias %q conflicts with command name", alias)
			}
			if existing, exists := r.aliases[key]; exists {
				return nil, fmt.Errorf("duplicate alias %q: used by %q and %q", alias, existing, def.Name)
			}
			r.aliases[key] = def.Name
		}
	}

	return r, nil
}

// DefaultRegistry creates a Registry with all built-in commands.
//
// Postcondition: Returns a Registry with all built-in commands registered.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(BuiltinCommands())
	if err != nil {
		panic(fmt.Sprintf("building default registry: %v", err))
	}
	return r
}

// Resolve looks up a definition by canonical type (case-insensitive) or alias.
//
// Postcondition: Returns (definition, true) if found, or (nil, false).
func (r *Registry) Resolve(input string) (*Definition, bool) {
	if def, ok := r.commands[Type(strings.ToUpper(input))]; ok {
		return def, true
	}
	if canonical, ok := r.aliases[strings.ToLower(input)]; ok {
		return r.commands[canonical], true
	}
	return nil, false
}

// Known reports whether t is a registered command type.
func (r *Registry) Known(t Type) bool {
	_, ok := r.commands[t]
	return ok
}

// Missing returns the required payload fields absent from cmd, in
// definition order. An unknown command type reports no missing fields.
func (r *Registry) Missing(cmd Command) []string {
	def, ok := r.commands[cmd.Type]
	if !ok {
		return nil
	}
	var missing []string
	for _, f := range def.Required {
		if !cmd.Payload.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Definitions returns all registered definitions ordered by name.
func (r *Registry) Definitions() []*Definition {
	result := make([]*Definition, 0, len(r.commands))
	for _, def := range r.commands {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// DefinitionsByCategory returns definitions grouped by category.
func (r *Registry) DefinitionsByCategory() map[string][]*Definition {
	categories := make(map[string][]*Definition)
	for _, def := range r.Definitions() {
		categories[def.Category] = append(categories[def.Category], def)
	}
	return categories
}
