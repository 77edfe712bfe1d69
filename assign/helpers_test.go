package assign

import (
	"testing"

	"github.com/grailbio/regroup/encoding/rostercsv"
	"github.com/grailbio/testutil/assert"
)

func testOpts() Opts {
	opts := DefaultOpts
	opts.AwardActivity = []int{1, 2, 4}
	opts.AwardStudent = 5
	opts.MinMaxPenalty = 1
	opts.Seed = 1
	return opts
}

// lim builds a limits row. Note the argument order is ascending by bound
// (min, minPref, maxPref, max), as in GroupLimits, not the CSV column order.
func lim(g string, count, min, minPref, maxPref, max int) rostercsv.Limit {
	return rostercsv.Limit{GroupID: g, Count: count, Min: min, MinPreferred: minPref,
		MaxPreferred: maxPref, Max: max}
}

func stu(s, a string, w int, g, newG string) rostercsv.Student {
	return rostercsv.Student{StudentID: s, ActivityID: a, SwapWeight: w, GroupID: g, NewGroupID: newG}
}

func req(s, a, g string) rostercsv.Request {
	return rostercsv.Request{StudentID: s, ActivityID: a, GroupID: g}
}

func ovl(g1, g2 string) rostercsv.Overlap {
	return rostercsv.Overlap{Group1ID: g1, Group2ID: g2}
}

func mustLoad(t *testing.T, limits []rostercsv.Limit, students []rostercsv.Student,
	requests []rostercsv.Request, overlaps []rostercsv.Overlap) *State {
	st, err := Load(limits, students, requests, overlaps)
	assert.NoError(t, err)
	verifyInvariants(t, st)
	return st
}

func (st *State) key(t *testing.T, student, activity string) saKey {
	s := st.roster.studentID(student)
	a := st.roster.activityID(activity)
	if s == invalidStudent || a == invalidActivity {
		t.Fatalf("unknown student-activity %s/%s", student, activity)
	}
	return saKey{s, a}
}

func (st *State) group(t *testing.T, name string) GroupID {
	g := st.roster.groupID(name)
	if g == invalidGroup {
		t.Fatalf("unknown group %s", name)
	}
	return g
}

// currentGroupName looks up the current group of a student-activity pair by
// names.
func currentGroupName(t *testing.T, st *State, student, activity string) string {
	k := st.key(t, student, activity)
	return st.roster.GroupName(st.recs[k].cur)
}

// verifyInvariants recomputes every derived index from the primary records
// and fails the test on any disagreement.
func verifyInvariants(t *testing.T, st *State) {
	t.Helper()

	counts := make([]int, len(st.counts))
	byStudent := map[StudentID]map[GroupID]int{}
	for _, rec := range st.recs {
		counts[rec.cur]++
		if byStudent[rec.student] == nil {
			byStudent[rec.student] = map[GroupID]int{}
		}
		byStudent[rec.student][rec.cur]++
	}
	// The limits table may count seats for students missing from the students
	// table. Every group is compared exactly, so fixtures must keep the
	// limits counts in agreement with the student rows.
	for g := 1; g < len(st.counts); g++ {
		if counts[g] != st.counts[g] {
			t.Errorf("group %s: count %d, records say %d",
				st.roster.GroupName(GroupID(g)), st.counts[g], counts[g])
		}
	}

	for s, groups := range byStudent {
		for g, n := range groups {
			if st.groupsByStudent[s][g] != n {
				t.Errorf("student %s group %s: index refcount %d, records say %d",
					st.roster.StudentName(s), st.roster.GroupName(g), st.groupsByStudent[s][g], n)
			}
			if st.studentsByGroup[g][s] != n {
				t.Errorf("group %s student %s: transpose refcount %d, records say %d",
					st.roster.GroupName(g), st.roster.StudentName(s), st.studentsByGroup[g][s], n)
			}
		}
	}
	for s, groups := range st.groupsByStudent {
		for g, n := range groups {
			if n != byStudent[s][g] {
				t.Errorf("student %s group %s: stale index entry", st.roster.StudentName(s), st.roster.GroupName(g))
			}
		}
	}

	for s, groups := range st.groupsByStudent {
		for g1, n1 := range groups {
			for g2, n2 := range groups {
				if g1 == g2 || n1 == 0 || n2 == 0 {
					continue
				}
				if st.roster.Overlaps(g1, g2) && !st.roster.Grandfathered(s, g1, g2) {
					t.Errorf("student %s sits in overlapping groups %s and %s",
						st.roster.StudentName(s), st.roster.GroupName(g1), st.roster.GroupName(g2))
				}
			}
		}
	}
}
