package assign

import (
	"encoding/binary"
	"sort"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/regroup/encoding/rostercsv"
)

// assignment is the primary record for one student-activity pair. cur is the
// only field that mutates during search.
type assignment struct {
	student  StudentID
	activity ActivityID
	weight   int
	orig     GroupID
	cur      GroupID
}

// moved reports whether the record currently sits outside its original group.
func (rec *assignment) moved() bool { return rec.cur != rec.orig }

// State owns the mutable assignment and every derived index. All mutation
// goes through applyMove/undoMove so that the indexes stay consistent with
// the primary records.
type State struct {
	roster *Roster

	// recs is the primary table; order preserves the input row order for
	// output.
	recs  map[saKey]*assignment
	order []saKey

	// counts[g] is the current occupancy of group g.
	counts []int

	// groupsByStudent[s][g] counts the activities through which s currently
	// occupies g. Membership is refcount > 0; zero entries are deleted.
	groupsByStudent map[StudentID]map[GroupID]int
	// studentsByGroup is the transpose of groupsByStudent.
	studentsByGroup map[GroupID]map[StudentID]int
	// studentsByActivity[a] is the set of students enrolled in activity a.
	studentsByActivity map[ActivityID]map[StudentID]struct{}

	// requestsByStudent[s][(from,to)] is the activity of the student's pending
	// request from->to. The from side tracks the student's current group and
	// is re-keyed when the student moves.
	requestsByStudent map[StudentID]map[groupPair]ActivityID

	// pending[k] is the FIFO queue of unsatisfied target groups for k.
	pending map[saKey][]GroupID
	// priority marks pending keys with a roomy target (slack >= enoughRoom).
	priority map[saKey]struct{}
	// movesMade marks keys moved at least once in the current run.
	movesMade map[saKey]struct{}

	// enoughRoom is the spare-capacity cutoff for priority moves, computed
	// once after loading.
	enoughRoom int
}

func newState(roster *Roster) *State {
	return &State{
		roster:             roster,
		recs:               map[saKey]*assignment{},
		counts:             make([]int, len(roster.limits)),
		groupsByStudent:    map[StudentID]map[GroupID]int{},
		studentsByGroup:    map[GroupID]map[StudentID]int{},
		studentsByActivity: map[ActivityID]map[StudentID]struct{}{},
		requestsByStudent:  map[StudentID]map[groupPair]ActivityID{},
		pending:            map[saKey][]GroupID{},
		priority:           map[saKey]struct{}{},
		movesMade:          map[saKey]struct{}{},
	}
}

// Roster returns the per-run constants this state was loaded with.
func (st *State) Roster() *Roster { return st.roster }

// Count returns the current occupancy of group g.
func (st *State) Count(g GroupID) int { return st.counts[g] }

// CurrentGroup returns the student's current group for the given activity, or
// invalidGroup if the pair is not enrolled.
func (st *State) CurrentGroup(s StudentID, a ActivityID) GroupID {
	rec, ok := st.recs[saKey{s, a}]
	if !ok {
		return invalidGroup
	}
	return rec.cur
}

// PendingMoves returns the number of student-activity pairs with at least one
// unsatisfied request.
func (st *State) PendingMoves() int { return len(st.pending) }

func (st *State) addMembership(s StudentID, a ActivityID, g GroupID) {
	if st.groupsByStudent[s] == nil {
		st.groupsByStudent[s] = map[GroupID]int{}
	}
	st.groupsByStudent[s][g]++
	if st.studentsByGroup[g] == nil {
		st.studentsByGroup[g] = map[StudentID]int{}
	}
	st.studentsByGroup[g][s]++
	if a != invalidActivity {
		if st.studentsByActivity[a] == nil {
			st.studentsByActivity[a] = map[StudentID]struct{}{}
		}
		st.studentsByActivity[a][s] = struct{}{}
	}
}

func (st *State) dropMembership(s StudentID, g GroupID) {
	if st.groupsByStudent[s][g]--; st.groupsByStudent[s][g] == 0 {
		delete(st.groupsByStudent[s], g)
	}
	if st.studentsByGroup[g][s]--; st.studentsByGroup[g][s] == 0 {
		delete(st.studentsByGroup[g], s)
		if len(st.studentsByGroup[g]) == 0 {
			delete(st.studentsByGroup, g)
		}
	}
}

// inGroup reports whether the student currently occupies g through any
// activity.
func (st *State) inGroup(s StudentID, g GroupID) bool {
	return st.groupsByStudent[s][g] > 0
}

// hasPending reports whether target g is still queued for k.
func (st *State) hasPending(k saKey, g GroupID) bool {
	for _, q := range st.pending[k] {
		if q == g {
			return true
		}
	}
	return false
}

// sortedPendingKeys returns the pending keys in ascending (student, activity)
// order. Pass and explorer iteration use it so a run is a deterministic
// function of the input and the sampler seed.
func (st *State) sortedPendingKeys() []saKey {
	keys := make([]saKey, 0, len(st.pending))
	for k := range st.pending {
		keys = append(keys, k)
	}
	sortSAKeys(keys)
	return keys
}

func sortSAKeys(keys []saKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].student != keys[j].student {
			return keys[i].student < keys[j].student
		}
		return keys[i].activity < keys[j].activity
	})
}

// Rows converts the current assignment back to output rows, one per
// student-activity pair in input order. NewGroupID is "0" when the student
// currently sits in the original group.
func (st *State) Rows() []rostercsv.Student {
	rows := make([]rostercsv.Student, 0, len(st.order))
	for _, k := range st.order {
		rec := st.recs[k]
		newGroup := "0"
		if rec.moved() {
			newGroup = st.roster.GroupName(rec.cur)
		}
		rows = append(rows, rostercsv.Student{
			StudentID:  st.roster.StudentName(rec.student),
			ActivityID: st.roster.ActivityName(rec.activity),
			SwapWeight: rec.weight,
			GroupID:    st.roster.GroupName(rec.orig),
			NewGroupID: newGroup,
		})
	}
	return rows
}

// Checksum returns a seahash fingerprint over every primary and derived
// structure, serialized in a canonical order. Two states have equal checksums
// iff their full contents match, so apply/undo round-trips can be verified
// bit-for-bit.
func (st *State) Checksum() uint64 {
	h := seahash.New()
	var buf [8]byte
	w32 := func(v int32) {
		binary.LittleEndian.PutUint32(buf[:4], uint32(v))
		h.Write(buf[:4])
	}
	wint := func(v int) {
		binary.LittleEndian.PutUint64(buf[:], uint64(v))
		h.Write(buf[:])
	}
	mark := func(section byte) {
		h.Write([]byte{0xfe, section})
	}

	mark(1)
	keys := make([]saKey, 0, len(st.recs))
	for k := range st.recs {
		keys = append(keys, k)
	}
	sortSAKeys(keys)
	for _, k := range keys {
		rec := st.recs[k]
		w32(int32(rec.student))
		w32(int32(rec.activity))
		wint(rec.weight)
		w32(int32(rec.orig))
		w32(int32(rec.cur))
	}

	mark(2)
	for _, c := range st.counts {
		wint(c)
	}

	mark(3)
	students := make([]StudentID, 0, len(st.groupsByStudent))
	for s := range st.groupsByStudent {
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i] < students[j] })
	for _, s := range students {
		w32(int32(s))
		groups := make([]GroupID, 0, len(st.groupsByStudent[s]))
		for g := range st.groupsByStudent[s] {
			groups = append(groups, g)
		}
		sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
		for _, g := range groups {
			w32(int32(g))
			wint(st.groupsByStudent[s][g])
		}
	}

	mark(4)
	groups := make([]GroupID, 0, len(st.studentsByGroup))
	for g := range st.studentsByGroup {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	for _, g := range groups {
		w32(int32(g))
		members := make([]StudentID, 0, len(st.studentsByGroup[g]))
		for s := range st.studentsByGroup[g] {
			members = append(members, s)
		}
		sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
		for _, s := range members {
			w32(int32(s))
			wint(st.studentsByGroup[g][s])
		}
	}

	mark(5)
	students = students[:0]
	for s := range st.requestsByStudent {
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i] < students[j] })
	for _, s := range students {
		w32(int32(s))
		pairs := make([]groupPair, 0, len(st.requestsByStudent[s]))
		for p := range st.requestsByStudent[s] {
			pairs = append(pairs, p)
		}
		sort.Slice(pairs, func(i, j int) bool {
			if pairs[i].g1 != pairs[j].g1 {
				return pairs[i].g1 < pairs[j].g1
			}
			return pairs[i].g2 < pairs[j].g2
		})
		for _, p := range pairs {
			w32(int32(p.g1))
			w32(int32(p.g2))
			w32(int32(st.requestsByStudent[s][p]))
		}
	}

	mark(6)
	keys = keys[:0]
	for k := range st.pending {
		keys = append(keys, k)
	}
	sortSAKeys(keys)
	for _, k := range keys {
		w32(int32(k.student))
		w32(int32(k.activity))
		for _, g := range st.pending[k] {
			w32(int32(g))
		}
	}

	mark(7)
	keys = keys[:0]
	for k := range st.priority {
		keys = append(keys, k)
	}
	sortSAKeys(keys)
	for _, k := range keys {
		w32(int32(k.student))
		w32(int32(k.activity))
	}

	mark(8)
	keys = keys[:0]
	for k := range st.movesMade {
		keys = append(keys, k)
	}
	sortSAKeys(keys)
	for _, k := range keys {
		w32(int32(k.student))
		w32(int32(k.activity))
	}

	return h.Sum64()
}
