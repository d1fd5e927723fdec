package dice

// Attack is the attacker's retained successes entering defense allocation.
type Attack struct {
	Hits  int
	Crits int
}

// Defense is the defender's retained saves entering defense allocation.
type Defense struct {
	Saves     int
	CritSaves int
}

// Weights are the damage values of one unblocked hit and one unblocked crit.
type Weights struct {
	Normal int
	Crit   int
}

// Breakdown counts how each block relation consumed defender saves.
type Breakdown struct {
	// CritSavesOnCrits is the number of crits blocked by one crit save each.
	CritSavesOnCrits int
	// CritSavesOnHits is the number of hits blocked by one crit save each.
	CritSavesOnHits int
	// SavesOnHits is the number of hits blocked by one normal save each.
	SavesOnHits int
	// SavePairsOnCrits is the number of crits blocked by two normal saves each.
	SavePairsOnCrits int
}

// Allocation is the result of assigning defense saves against attack successes.
//
// Invariant: RemainingHits + SavesOnHits + CritSavesOnHits == original hits and
// RemainingCrits + CritSavesOnCrits + SavePairsOnCrits == original crits.
type Allocation struct {
	RemainingHits  int
	RemainingCrits int
	Breakdown
}

// Damage returns the damage the unblocked successes inflict under w.
func (a Allocation) Damage(w Weights) int {
	return a.RemainingHits*w.Normal + a.RemainingCrits*w.Crit
}

// Allocate assigns defense saves against attack successes. When w is non-nil
// the optimal search is used; otherwise the fixed-priority greedy policy is.
//
// Postcondition: the Allocation invariant holds.
func Allocate(a Attack, d Defense, w *Weights) Allocation {
	if w == nil {
		return AllocateGreedy(a, d)
	}
	return AllocateOptimal(a, d, *w)
}

// AllocateGreedy applies the block relations in a fixed priority order:
// crit saves against crits, paired saves against crits, saves against hits,
// then leftover crit saves against hits. With one crit and one hit against two
// saves, this order spends the pair on the crit and lets the hit through.
//
// Postcondition: the Allocation invariant holds and no further block is possible.
func AllocateGreedy(a Attack, d Defense) Allocation {
	h, c, s, cs := clampNonNeg(a.Hits), clampNonNeg(a.Crits), clampNonNeg(d.Saves), clampNonNeg(d.CritSaves)
	var b Breakdown

	n := min(cs, c)
	b.CritSavesOnCrits, cs, c = n, cs-n, c-n

	n = min(s/2, c)
	b.SavePairsOnCrits, s, c = n, s-2*n, c-n

	n = min(s, h)
	b.SavesOnHits, s, h = n, s-n, h-n

	n = min(cs, h)
	b.CritSavesOnHits, h = n, h-n

	return Allocation{RemainingHits: h, RemainingCrits: c, Breakdown: b}
}

type allocKey struct {
	hits, crits, saves, critSaves int
}

type blockMove int

const (
	moveNone blockMove = iota
	moveCritSaveOnCrit
	moveCritSaveOnHit
	moveSaveOnHit
	moveSavePairOnCrit
)

// moveOrder fixes the evaluation order; on equal damage the earlier move wins.
var moveOrder = [...]blockMove{moveCritSaveOnCrit, moveCritSaveOnHit, moveSaveOnHit, moveSavePairOnCrit}

func (m blockMove) apply(k allocKey) (allocKey, bool) {
	switch m {
	case moveCritSaveOnCrit:
		if k.critSaves > 0 && k.crits > 0 {
			k.critSaves--
			k.crits--
			return k, true
		}
	case moveCritSaveOnHit:
		if k.critSaves > 0 && k.hits > 0 {
			k.critSaves--
			k.hits--
			return k, true
		}
	case moveSaveOnHit:
		if k.saves > 0 && k.hits > 0 {
			k.saves--
			k.hits--
			return k, true
		}
	case moveSavePairOnCrit:
		if k.saves > 1 && k.crits > 0 {
			k.saves -= 2
			k.crits--
			return k, true
		}
	}
	return k, false
}

type allocNode struct {
	damage int
	move   blockMove
	next   allocKey
}

// AllocateOptimal searches every sequence of block relations and returns the
// allocation minimising remaining damage under w. The search is memoised on
// (hits, crits, saves, critSaves), so its cost is polynomial in the counts.
//
// Postcondition: the Allocation invariant holds, and
// result.Damage(w) <= AllocateGreedy(a, d).Damage(w).
func AllocateOptimal(a Attack, d Defense, w Weights) Allocation {
	memo := make(map[allocKey]allocNode)

	var solve func(k allocKey) int
	solve = func(k allocKey) int {
		if n, ok := memo[k]; ok {
			return n.damage
		}
		best := allocNode{damage: k.hits*w.Normal + k.crits*w.Crit, move: moveNone}
		found := false
		for _, m := range moveOrder {
			next, ok := m.apply(k)
			if !ok {
				continue
			}
			dmg := solve(next)
			if !found || dmg < best.damage {
				best = allocNode{damage: dmg, move: m, next: next}
				found = true
			}
		}
		memo[k] = best
		return best.damage
	}

	k := allocKey{
		hits:      clampNonNeg(a.Hits),
		crits:     clampNonNeg(a.Crits),
		saves:     clampNonNeg(d.Saves),
		critSaves: clampNonNeg(d.CritSaves),
	}
	solve(k)

	var b Breakdown
	for {
		n := memo[k]
		if n.move == moveNone {
			break
		}
		switch n.move {
		case moveCritSaveOnCrit:
			b.CritSavesOnCrits++
		case moveCritSaveOnHit:
			b.CritSavesOnHits++
		case moveSaveOnHit:
			b.SavesOnHits++
		case moveSavePairOnCrit:
			b.SavePairsOnCrits++
		}
		k = n.next
	}
	return Allocation{RemainingHits: k.hits, RemainingCrits: k.crits, Breakdown: b}
}

func clampNonNeg(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
