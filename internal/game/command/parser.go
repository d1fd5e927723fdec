package command

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse reads a one-line text command of the form
//
//	TYPE key=value key=value ...
//
// where TYPE is a command type or alias. Values are decoded as integers,
// booleans, comma-separated lists of integers or strings, or plain strings.
//
// Precondition: r must be non-nil.
// Postcondition: Returns a Command with a non-nil Payload, or an error.
func Parse(r *Registry, line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("empty command")
	}
	def, ok := r.Resolve(fields[0])
	if !ok {
		return Command{}, fmt.Errorf("unknown command %q", fields[0])
	}
	cmd := Command{Type: def.Name, Payload: make(Payload, len(fields)-1)}
	for _, f := range fields[1:] {
		key, raw, ok := strings.Cut(f, "=")
		if !ok || key == "" {
			return Command{}, fmt.Errorf("argument %q must be key=value", f)
		}
		cmd.Payload[key] = parseValue(raw)
	}
	return cmd, nil
}

func parseValue(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if b, err := strconv.ParseBool(raw); err == nil && (raw == "true" || raw == "false") {
		return b
	}
	if !strings.Contains(raw, ",") {
		return raw
	}
	parts := strings.Split(raw, ",")
	ints := make([]any, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			strs := make([]any, 0, len(parts))
			for _, s := range parts {
				strs = append(strs, strings.TrimSpace(s))
			}
			return strs
		}
		ints = append(ints, n)
	}
	return ints
}
