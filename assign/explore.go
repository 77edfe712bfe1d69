package assign

import (
	"math"
	"time"
)

// Lookahead depth by remaining time. Deeper evaluation is quadratically more
// expensive, so it is only afforded while plenty of budget remains.
const (
	shortTimeLeft  = 30 * time.Second
	mediumTimeLeft = 180 * time.Second
)

func depthForTimeLeft(left time.Duration) int {
	switch {
	case left < shortTimeLeft:
		return 0
	case left < mediumTimeLeft:
		return 1
	default:
		return 2
	}
}

// sampleKeys picks the catalogue subset the explorer evaluates this round.
// Below the threshold the whole catalogue is used. Above it, the sample is
// capped at 3*(10+sqrt(n)) keys, preferring priority keys, then keys with a
// target of at least half the priority slack, then seeded-random unmoved
// keys.
func (srch *Search) sampleKeys() []saKey {
	st := srch.state
	all := st.sortedPendingKeys()
	if len(all) <= srch.opts.SampleThreshold {
		return all
	}

	limit := 3 * (10 + int(math.Sqrt(float64(len(all)))))
	sample := make([]saKey, 0, limit)
	seen := map[saKey]struct{}{}
	add := func(k saKey) bool {
		if len(sample) >= limit {
			return false
		}
		if _, dup := seen[k]; dup {
			return true
		}
		seen[k] = struct{}{}
		sample = append(sample, k)
		return true
	}

	for _, k := range all {
		if _, ok := st.priority[k]; !ok {
			continue
		}
		if !add(k) {
			return sample
		}
	}

	halfRoom := st.enoughRoom / 2
	for _, k := range all {
		roomy := false
		for _, g := range st.pending[k] {
			if st.roster.limits[g].Max-st.counts[g] >= halfRoom {
				roomy = true
				break
			}
		}
		if !roomy {
			continue
		}
		if !add(k) {
			return sample
		}
	}

	// Random fill is a bounded number of draws, not a loop to fullness: with
	// most keys already moved the draws may all miss.
	for i := len(sample); i < limit; i++ {
		k := all[srch.rng.Intn(len(all))]
		if _, moved := st.movesMade[k]; moved {
			continue
		}
		add(k)
	}
	return sample
}

// evaluate scores the single move k->to. At depth 0 the move must pass
// moveOK, and after applying it the whole state must pass stateOK (unless
// allowInfeasible); the returned score is the post-move total. At deeper
// levels the move is applied and the best score reachable by one further
// move drawn from sample is returned. The state is always restored before
// returning. movesMade must be a throwaway copy owned by this call.
func (srch *Search) evaluate(k saKey, to GroupID, movesMade map[saKey]struct{},
	sample []saKey, allowInfeasible bool, depth int) (int, bool) {
	st := srch.state
	srch.stats.Evaluations++
	from := st.recs[k].cur
	if from == to {
		return 0, false
	}

	if depth == 0 {
		if !st.moveOK(k.student, from, to) {
			return 0, false
		}
		m := st.applyMove(k.student, k.activity, to)
		if !allowInfeasible && !st.stateOK() {
			st.undoMove(m)
			return 0, false
		}
		score := st.Evaluate(srch.opts).Total()
		st.undoMove(m)
		return score, true
	}

	m := st.applyMove(k.student, k.activity, to)
	movesMade[k] = struct{}{}
	best, found := 0, false
	for _, k2 := range sample {
		if srch.expired() {
			break
		}
		if _, done := movesMade[k2]; done {
			continue
		}
		queue := append([]GroupID(nil), st.pending[k2]...)
		for _, to2 := range queue {
			if st.counts[to2] >= st.roster.limits[to2].Max {
				continue
			}
			score, ok := srch.evaluate(k2, to2, copyKeySet(movesMade), sample, allowInfeasible, depth-1)
			if ok && (!found || score > best) {
				best, found = score, true
			}
		}
	}
	st.undoMove(m)
	return best, found
}

func copyKeySet(set map[saKey]struct{}) map[saKey]struct{} {
	c := make(map[saKey]struct{}, len(set))
	for k := range set {
		c[k] = struct{}{}
	}
	return c
}

// explore runs when neither pass improved: it looks for the single pending
// move with the best depth-limited evaluation and commits it if it beats the
// incumbent. If nothing does, the backtracking retry revisits already-moved
// pairs that still have alternatives, with relaxed feasibility and one extra
// level of lookahead.
func (srch *Search) explore() bool {
	st := srch.state
	depth := depthForTimeLeft(time.Until(srch.deadline))
	sample := srch.sampleKeys()
	incumbent := st.Evaluate(srch.opts).Total()

	var (
		best      int
		bestKey   saKey
		bestGroup GroupID
		found     bool
	)
	record := func(k saKey, to GroupID, score int) {
		if !found || score > best {
			best, bestKey, bestGroup, found = score, k, to, true
		}
	}

	for _, k := range sample {
		if srch.expired() {
			break
		}
		if _, moved := st.movesMade[k]; moved {
			continue
		}
		queue := append([]GroupID(nil), st.pending[k]...)
		for _, to := range queue {
			if st.counts[to] >= st.roster.limits[to].Max {
				continue
			}
			score, ok := srch.evaluate(k, to, copyKeySet(st.movesMade), sample, false, depth)
			if !ok {
				continue
			}
			record(k, to, score)
		}
	}

	if found && best > incumbent {
		return srch.commit(bestKey, bestGroup, false)
	}

	// Backtracking retry: already-moved pairs whose catalogue entry survived
	// still hold alternatives worth revisiting.
	retryDepth := depth + 1
	retried := make([]saKey, 0, len(st.movesMade))
	for k := range st.movesMade {
		retried = append(retried, k)
	}
	sortSAKeys(retried)
	for _, k := range retried {
		if srch.expired() {
			break
		}
		if _, ok := st.pending[k]; !ok {
			continue
		}
		queue := append([]GroupID(nil), st.pending[k]...)
		for _, to := range queue {
			score, ok := srch.evaluate(k, to, map[saKey]struct{}{}, sample, true, retryDepth)
			if !ok {
				continue
			}
			record(k, to, score)
		}
	}
	if found && best > incumbent {
		return srch.commit(bestKey, bestGroup, true)
	}
	return false
}

// commit applies the explorer's chosen move for real. moveOK is re-checked
// at commit time: lookahead and relaxed-feasibility evaluation may nominate
// a move whose immediate application would break a hard bound, and committed
// states must always stay within [min, max].
func (srch *Search) commit(k saKey, to GroupID, backtrack bool) bool {
	st := srch.state
	from := st.recs[k].cur
	if !st.moveOK(k.student, from, to) {
		return false
	}
	st.applyMove(k.student, k.activity, to)
	st.movesMade[k] = struct{}{}
	if backtrack {
		srch.stats.BacktrackMoves++
	} else {
		srch.stats.ExplorerMoves++
	}
	return true
}
