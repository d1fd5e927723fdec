package command

import (
	"encoding/json"
	"fmt"
	"math"
)

// Command is one state-changing request: a type plus its payload.
type Command struct {
	Type    Type    `json:"type" yaml:"type"`
	Payload Payload `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// New returns a Command of type t with the given key/value pairs.
//
// Precondition: kv must have even length with string keys.
func New(t Type, kv ...any) Command {
	if len(kv)%2 != 0 {
		panic("command: New called with odd key/value list")
	}
	p := make(Payload, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		p[kv[i].(string)] = kv[i+1]
	}
	return Command{Type: t, Payload: p}
}

// Clone returns a copy of c whose payload map may be modified independently.
func (c Command) Clone() Command {
	out := Command{Type: c.Type, Payload: make(Payload, len(c.Payload))}
	for k, v := range c.Payload {
		out.Payload[k] = v
	}
	return out
}

// Payload is the loosely typed body of a command as decoded from JSON or
// YAML. The accessors normalise the numeric representations of both.
type Payload map[string]any

// Has reports whether key is present and non-nil.
func (p Payload) Has(key string) bool {
	v, ok := p[key]
	return ok && v != nil
}

// Text returns the string value at key.
func (p Payload) Text(key string) (string, bool) {
	s, ok := p[key].(string)
	return s, ok
}

// Int returns the integral value at key.
func (p Payload) Int(key string) (int, bool) {
	return toInt(p[key])
}

// Bool returns the boolean value at key.
func (p Payload) Bool(key string) (bool, bool) {
	b, ok := p[key].(bool)
	return b, ok
}

// Ints returns the list of integers at key. Every element must be integral.
// A lone integer is a one-element list and an empty string an empty one.
func (p Payload) Ints(key string) ([]int, bool) {
	switch v := p[key].(type) {
	case string:
		if v == "" {
			return []int{}, true
		}
	case int, float64, int64:
		n, ok := toInt(v)
		if !ok {
			return nil, false
		}
		return []int{n}, true
	case []int:
		return append([]int(nil), v...), true
	case []any:
		out := make([]int, 0, len(v))
		for _, e := range v {
			n, ok := toInt(e)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	}
	return nil, false
}

// Strings returns the list of strings at key. A lone string is a
// one-element list.
func (p Payload) Strings(key string) ([]string, bool) {
	switch v := p[key].(type) {
	case string:
		return []string{v}, true
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	}
	return 0, false
}

// Decode parses a JSON {type, payload} object.
//
// Postcondition: Returns a Command with a non-nil Payload, or an error.
func Decode(data []byte) (Command, error) {
	var c Command
	if err := json.Unmarshal(data, &c); err != nil {
		return Command{}, fmt.Errorf("decoding command: %w", err)
	}
	if c.Type == "" {
		return Command{}, fmt.Errorf("decoding command: missing type")
	}
	if c.Payload == nil {
		c.Payload = Payload{}
	}
	return c, nil
}
