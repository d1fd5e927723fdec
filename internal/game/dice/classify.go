package dice

// DefaultCritThreshold is the face at or above which an attack die is critical
// when no lethal override applies.
const DefaultCritThreshold = 6

// Outcome classifies one rolled die.
type Outcome int

const (
	Miss Outcome = iota
	Hit
	Crit
)

// String returns "miss", "hit", or "crit".
func (o Outcome) String() string {
	switch o {
	case Hit:
		return "hit"
	case Crit:
		return "crit"
	default:
		return "miss"
	}
}

// Thresholds holds the success thresholds used to classify a roll.
// A zero Crit means DefaultCritThreshold.
type Thresholds struct {
	Hit  int
	Crit int
}

// CritAt returns the effective crit threshold.
func (t Thresholds) CritAt() int {
	if t.Crit <= 0 {
		return DefaultCritThreshold
	}
	return t.Crit
}

// Classify returns the outcome of a single die value.
// Values outside [1, 6] are never successes; a 1 always misses.
//
// Postcondition: Crit iff 2 <= value <= 6 and value >= CritAt();
// Hit iff not Crit and value >= t.Hit; Miss otherwise.
func Classify(value int, t Thresholds) Outcome {
	if value < 2 || value > Sides {
		return Miss
	}
	if value >= t.CritAt() {
		return Crit
	}
	if t.Hit > 0 && value >= t.Hit {
		return Hit
	}
	return Miss
}

// Tally classifies every value in p and counts successes.
//
// Postcondition: hits + crits <= len(p).
func Tally(p Pool, t Thresholds) (hits, crits int) {
	for _, v := range p {
		switch Classify(v, t) {
		case Hit:
			hits++
		case Crit:
			crits++
		}
	}
	return hits, crits
}
