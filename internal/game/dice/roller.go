package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged D6 pool rolls.
// Every pool is logged at debug level with its size and values.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each pool to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll rolls n D6 and returns them in roll order.
//
// Precondition: n >= 0.
// Postcondition: len(result) == n and result.Valid().
func (r *Roller) Roll(n int) Pool {
	pool := RollPool(n, r.src)
	r.logger.Debug("dice roll",
		zap.Int("count", n),
		zap.Ints("dice", pool),
	)
	return pool
}

// Reroll replaces the values at the given indexes with fresh rolls.
// Out-of-range indexes are ignored.
//
// Postcondition: the returned pool has the same length as p; p is not mutated.
func (r *Roller) Reroll(p Pool, indexes ...int) Pool {
	out := p.Clone()
	for _, i := range indexes {
		if i < 0 || i >= len(out) {
			continue
		}
		out[i] = r.src.Intn(Sides) + 1
	}
	r.logger.Debug("dice reroll",
		zap.Ints("indexes", indexes),
		zap.Ints("before", p),
		zap.Ints("after", out),
	)
	return out
}

// RollPool rolls n D6 using src.
//
// Precondition: n >= 0; src must be non-nil.
// Postcondition: len(result) == n; every value is in [1, 6].
func RollPool(n int, src Source) Pool {
	if n < 0 {
		n = 0
	}
	pool := make(Pool, n)
	for i := range pool {
		pool[i] = src.Intn(Sides) + 1
	}
	return pool
}
