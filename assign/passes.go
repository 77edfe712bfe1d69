package assign

import "sort"

// validPass sweeps the classifier's valid category and keeps every single
// move that strictly improves the total score. The first sweep skips
// already-moved pairs; if it accepts nothing, a second sweep revisits exactly
// those pairs so a student can be moved again.
func (srch *Search) validPass(cls classification) bool {
	accepted := srch.validSweep(cls, false)
	if !accepted {
		accepted = srch.validSweep(cls, true)
	}
	return accepted
}

func (srch *Search) validSweep(cls classification, revisitMoved bool) bool {
	st := srch.state
	accepted := false
	for _, s := range sortedStudents(cls.valid) {
		for _, to := range sortedTargets(cls.valid[s]) {
			if srch.expired() {
				return accepted
			}
			a := cls.valid[s][to]
			k := saKey{s, a}
			if _, moved := st.movesMade[k]; moved != revisitMoved {
				continue
			}
			// The snapshot may be stale by now: earlier acceptances shift
			// counts and groups, so everything is re-checked.
			if !st.hasPending(k, to) {
				continue
			}
			from := st.recs[k].cur
			if from == to || !st.moveOK(s, from, to) {
				continue
			}
			before := st.Evaluate(srch.opts).Total()
			m := st.applyMove(s, a, to)
			srch.stats.Evaluations++
			if st.Evaluate(srch.opts).Total() > before {
				st.movesMade[k] = struct{}{}
				srch.stats.ValidMoves++
				accepted = true
			} else {
				st.undoMove(m)
			}
		}
	}
	return accepted
}

// swapPass trades places between two students of the same activity whose
// requests point at each other's groups. It considers students blocked on
// capacity (maxed or mined targets, not in collision) and keeps a swap only
// if the combined score strictly improves.
func (srch *Search) swapPass(cls classification) bool {
	st := srch.state
	accepted := false

	blocked := map[StudentID]map[GroupID]ActivityID{}
	for s, byGroup := range cls.maxed {
		for g, a := range byGroup {
			put(blocked, s, g, a)
		}
	}
	for s, byGroup := range cls.mined {
		for g, a := range byGroup {
			put(blocked, s, g, a)
		}
	}

	inCategory := func(m map[StudentID]map[GroupID]ActivityID, s StudentID, g GroupID) bool {
		_, ok := m[s][g]
		return ok
	}

	for _, s1 := range sortedStudents(blocked) {
		for _, to := range sortedTargets(blocked[s1]) {
			if srch.expired() {
				return accepted
			}
			if inCategory(cls.collision, s1, to) {
				continue
			}
			a := blocked[s1][to]
			k1 := saKey{s1, a}
			if !st.hasPending(k1, to) {
				continue
			}
			from := st.recs[k1].cur
			if from == to {
				continue
			}
			partners := make([]StudentID, 0, len(st.studentsByActivity[a]))
			for s2 := range st.studentsByActivity[a] {
				partners = append(partners, s2)
			}
			sort.Slice(partners, func(i, j int) bool { return partners[i] < partners[j] })
			for _, s2 := range partners {
				if srch.expired() {
					return accepted
				}
				if s2 == s1 {
					continue
				}
				// The counterpart must hold the mirror request to->from for
				// this same activity, itself blocked on capacity.
				if act, ok := st.requestsByStudent[s2][groupPair{to, from}]; !ok || act != a {
					continue
				}
				if !inCategory(cls.maxed, s2, from) && !inCategory(cls.mined, s2, from) {
					continue
				}
				if inCategory(cls.collision, s2, from) {
					continue
				}
				k2 := saKey{s2, a}
				if !st.hasPending(k2, from) {
					continue
				}
				if !st.swapOK(s1, from, to) || !st.swapOK(s2, to, from) {
					continue
				}
				before := st.Evaluate(srch.opts).Total()
				m1 := st.applyMove(s1, a, to)
				m2 := st.applyMove(s2, a, from)
				srch.stats.Evaluations++
				if st.Evaluate(srch.opts).Total() > before {
					st.movesMade[k1] = struct{}{}
					st.movesMade[k2] = struct{}{}
					srch.stats.SwapMoves++
					accepted = true
					break
				}
				st.undoMove(m2)
				st.undoMove(m1)
			}
		}
	}
	return accepted
}
