package assign

import (
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/regroup/encoding/rostercsv"
)

// Load builds the roster and the initial state from the four parsed input
// tables. The tables must be passed in full; cross-references are resolved
// here.
//
// Input quirks honoured (matching the production data):
//   - A students row with NewGroupID "0" means no change.
//   - A request whose student-activity pair is absent from the students table
//     is silently dropped, as is a request for a group absent from the limits
//     table. A request already satisfied by the current assignment still
//     counts toward the objective but yields no candidate move.
//   - For each overlap pair, every student already in both groups gets the
//     pair recorded (in both orderings) as a grandfathered exception.
func Load(limits []rostercsv.Limit, students []rostercsv.Student,
	requests []rostercsv.Request, overlaps []rostercsv.Overlap) (*State, error) {
	roster := newRoster()
	st := newState(roster)

	for _, row := range limits {
		g := roster.internGroup(row.GroupID)
		if int(g) < len(st.counts) {
			return nil, errors.E("load limits: duplicate group", row.GroupID)
		}
		if row.Min > row.MinPreferred || row.MinPreferred > row.MaxPreferred || row.MaxPreferred > row.Max {
			return nil, errors.E("load limits: bounds not ordered for group", row.GroupID)
		}
		roster.limits[g] = GroupLimits{
			Min:          row.Min,
			MinPreferred: row.MinPreferred,
			MaxPreferred: row.MaxPreferred,
			Max:          row.Max,
		}
		st.counts = append(st.counts, row.Count)
	}

	for _, row := range students {
		s := roster.internStudent(row.StudentID)
		a := roster.internActivity(row.ActivityID)
		orig := roster.groupID(row.GroupID)
		if orig == invalidGroup {
			return nil, errors.E("load students: group not in limits table", row.GroupID)
		}
		cur := orig
		if row.NewGroupID != "0" {
			if cur = roster.groupID(row.NewGroupID); cur == invalidGroup {
				return nil, errors.E("load students: group not in limits table", row.NewGroupID)
			}
		}
		k := saKey{s, a}
		if _, dup := st.recs[k]; dup {
			return nil, errors.E("load students: duplicate student-activity row",
				row.StudentID, row.ActivityID)
		}
		st.recs[k] = &assignment{student: s, activity: a, weight: row.SwapWeight, orig: orig, cur: cur}
		st.order = append(st.order, k)
		st.addMembership(s, a, cur)
		// The limits table counts students in their original groups; a row
		// that arrives already moved shifts one seat.
		if cur != orig {
			st.counts[cur]++
			st.counts[orig]--
		}
	}

	for _, row := range requests {
		s := roster.studentID(row.StudentID)
		a := roster.activityID(row.ActivityID)
		if s == invalidStudent || a == invalidActivity {
			continue
		}
		k := saKey{s, a}
		rec, ok := st.recs[k]
		if !ok {
			continue
		}
		g := roster.groupID(row.GroupID)
		if g == invalidGroup {
			continue
		}
		if !roster.addRequest(s, a, g) {
			continue // duplicate row
		}
		// An already-satisfied request still scores, but is not a move.
		if g == rec.cur {
			continue
		}
		st.pending[k] = append(st.pending[k], g)
		if st.requestsByStudent[s] == nil {
			st.requestsByStudent[s] = map[groupPair]ActivityID{}
		}
		st.requestsByStudent[s][groupPair{rec.cur, g}] = a
	}

	for _, row := range overlaps {
		g1 := roster.groupID(row.Group1ID)
		g2 := roster.groupID(row.Group2ID)
		if g1 == invalidGroup || g2 == invalidGroup {
			continue
		}
		roster.addOverlap(g1, g2)
		for s, n := range st.studentsByGroup[g1] {
			if n > 0 && st.groupsByStudent[s][g2] > 0 {
				roster.addGrandfathered(s, g1, g2)
			}
		}
	}

	st.enoughRoom = enoughRoom(st)
	for k, q := range st.pending {
		for _, g := range q {
			if roster.limits[g].Max-st.counts[g] >= st.enoughRoom {
				st.priority[k] = struct{}{}
				break
			}
		}
	}
	return st, nil
}

// enoughRoom derives the spare-capacity cutoff for priority moves from the
// total free capacity left after loading.
func enoughRoom(st *State) int {
	n := st.roster.NumGroups()
	if n == 0 {
		return 2
	}
	free := 0
	for g := 1; g < len(st.counts); g++ {
		free += st.roster.limits[g].Max - st.counts[g]
	}
	if free < 0 {
		free = 0
	}
	return int(2 + 2*math.Sqrt(float64(free)/float64(n)))
}
