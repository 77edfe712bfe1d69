package assign

import (
	"github.com/grailbio/base/log"
)

// reqEdit records one mutation of requestsByStudent so undoMove can restore
// the map to its exact prior content, including entries clobbered by
// re-keying.
type reqEdit struct {
	key    groupPair
	had    bool
	before ActivityID
}

// moveRecord journals everything applyMove changed. undoMove consumes it to
// restore the state bit-for-bit; records must be undone in LIFO order.
type moveRecord struct {
	key      saKey
	from, to GroupID

	reqEdits []reqEdit

	// queueIdx is where `to` sat in the pending queue; dropped and
	// wasPriority record whether consuming it removed the catalogue entry.
	queueIdx    int
	dropped     bool
	wasPriority bool
}

func (st *State) editRequest(edits []reqEdit, s StudentID, key groupPair, set bool, act ActivityID) []reqEdit {
	rmap := st.requestsByStudent[s]
	before, had := rmap[key]
	edits = append(edits, reqEdit{key: key, had: had, before: before})
	if set {
		rmap[key] = act
	} else {
		delete(rmap, key)
	}
	return edits
}

// applyMove moves student s to group `to` for activity a and updates every
// index. The target must be pending for (s, a) and moveOK (or swapOK, for
// swap halves) must have been checked by the caller. The returned record is
// the undo token.
func (st *State) applyMove(s StudentID, a ActivityID, to GroupID) moveRecord {
	k := saKey{s, a}
	rec, ok := st.recs[k]
	if !ok {
		log.Panicf("applyMove: no record for student %d activity %d", s, a)
	}
	from := rec.cur
	if from == to {
		log.Panicf("applyMove: student %d already in group %d", s, to)
	}
	m := moveRecord{key: k, from: from, to: to}

	st.counts[from]--
	st.counts[to]++

	// The chosen request is consumed; every other request recorded as leaving
	// `from` follows the student to `to`.
	rmap := st.requestsByStudent[s]
	m.reqEdits = st.editRequest(m.reqEdits, s, groupPair{from, to}, false, 0)
	var rekeyed []groupPair
	for pair := range rmap {
		if pair.g1 == from {
			rekeyed = append(rekeyed, pair)
		}
	}
	for _, pair := range rekeyed {
		act := rmap[pair]
		m.reqEdits = st.editRequest(m.reqEdits, s, pair, false, 0)
		m.reqEdits = st.editRequest(m.reqEdits, s, groupPair{to, pair.g2}, true, act)
	}

	q := st.pending[k]
	m.queueIdx = -1
	for i, g := range q {
		if g == to {
			m.queueIdx = i
			break
		}
	}
	if m.queueIdx < 0 {
		log.Panicf("applyMove: group %d not pending for student %d activity %d", to, s, a)
	}
	if len(q) == 1 {
		m.dropped = true
		_, m.wasPriority = st.priority[k]
		delete(st.pending, k)
		delete(st.priority, k)
	} else {
		st.pending[k] = append(q[:m.queueIdx], q[m.queueIdx+1:]...)
	}

	rec.cur = to
	st.dropMembership(s, from)
	st.addMembership(s, a, to)
	return m
}

// undoMove is the exact inverse of the applyMove that produced m. Records
// must be undone in reverse order of application.
func (st *State) undoMove(m moveRecord) {
	k := m.key
	rec := st.recs[k]
	if rec.cur != m.to {
		log.Panicf("undoMove: student %d activity %d is in group %d, not %d",
			k.student, k.activity, rec.cur, m.to)
	}

	st.counts[m.to]--
	st.counts[m.from]++

	rmap := st.requestsByStudent[k.student]
	for i := len(m.reqEdits) - 1; i >= 0; i-- {
		e := m.reqEdits[i]
		if e.had {
			rmap[e.key] = e.before
		} else {
			delete(rmap, e.key)
		}
	}

	if m.dropped {
		st.pending[k] = []GroupID{m.to}
		if m.wasPriority {
			st.priority[k] = struct{}{}
		}
	} else {
		q := st.pending[k]
		q = append(q, 0)
		copy(q[m.queueIdx+1:], q[m.queueIdx:])
		q[m.queueIdx] = m.to
		st.pending[k] = q
	}

	rec.cur = m.from
	st.dropMembership(k.student, m.to)
	st.addMembership(k.student, k.activity, m.from)
}
