package assign

import "sort"

// classification partitions every pending target into one of four per-student
// maps (target group -> activity). A target lands in exactly one category;
// the order below is the priority order.
type classification struct {
	// maxed: the target group is at its hard maximum.
	maxed map[StudentID]map[GroupID]ActivityID
	// mined: the origin group is at its hard minimum.
	mined map[StudentID]map[GroupID]ActivityID
	// collision: the target clashes with another group the student occupies.
	collision map[StudentID]map[GroupID]ActivityID
	// valid: the move is applicable right now.
	valid map[StudentID]map[GroupID]ActivityID
}

func put(m map[StudentID]map[GroupID]ActivityID, s StudentID, g GroupID, a ActivityID) {
	byGroup, ok := m[s]
	if !ok {
		byGroup = map[GroupID]ActivityID{}
		m[s] = byGroup
	}
	if _, dup := byGroup[g]; !dup {
		byGroup[g] = a
	}
}

// classify is a pure function of the current state: it walks the pending
// catalogue and buckets every target by why it is or is not applicable.
func (st *State) classify() classification {
	cls := classification{
		maxed:     map[StudentID]map[GroupID]ActivityID{},
		mined:     map[StudentID]map[GroupID]ActivityID{},
		collision: map[StudentID]map[GroupID]ActivityID{},
		valid:     map[StudentID]map[GroupID]ActivityID{},
	}
	for _, k := range st.sortedPendingKeys() {
		rec := st.recs[k]
		from := rec.cur
		for _, to := range st.pending[k] {
			switch {
			case st.counts[to] >= st.roster.limits[to].Max:
				put(cls.maxed, k.student, to, k.activity)
			case st.counts[from] <= st.roster.limits[from].Min:
				put(cls.mined, k.student, to, k.activity)
			case st.overlapBlocked(k.student, from, to):
				put(cls.collision, k.student, to, k.activity)
			default:
				put(cls.valid, k.student, to, k.activity)
			}
		}
	}
	return cls
}

// sortedStudents returns the student keys of m in ascending ID order.
func sortedStudents(m map[StudentID]map[GroupID]ActivityID) []StudentID {
	students := make([]StudentID, 0, len(m))
	for s := range m {
		students = append(students, s)
	}
	sort.Slice(students, func(i, j int) bool { return students[i] < students[j] })
	return students
}

// sortedTargets returns the group keys of m in ascending ID order.
func sortedTargets(m map[GroupID]ActivityID) []GroupID {
	groups := make([]GroupID, 0, len(m))
	for g := range m {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i] < groups[j] })
	return groups
}
