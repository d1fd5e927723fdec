// Package dice provides the randomness abstraction, D6 pool rolling, roll
// classification, and defense allocation for the skirmish combat engine.
package dice

import (
	"fmt"
	"strings"
)

// Sides is the face count of every die used by the engine.
const Sides = 6

// Source is the randomness provider for dice rolls.
//
// Implementations MUST be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
}

// Pool is an ordered set of rolled D6 values.
type Pool []int

// Clone returns an independent copy of p.
//
// Postcondition: mutating the result never affects p.
func (p Pool) Clone() Pool {
	if p == nil {
		return nil
	}
	out := make(Pool, len(p))
	copy(out, p)
	return out
}

// String renders the pool as "[6 4 1]".
func (p Pool) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Valid reports whether every value in p is a legal D6 face.
func (p Pool) Valid() bool {
	for _, v := range p {
		if v < 1 || v > Sides {
			return false
		}
	}
	return true
}
