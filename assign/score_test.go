package assign

import (
	"testing"

	"github.com/grailbio/regroup/encoding/rostercsv"
	"github.com/grailbio/testutil/expect"
)

// scoreFixture: two students, two activities, generous limits. S1 has
// requests in two activities, S2 in one.
func scoreFixture(t *testing.T) *State {
	return mustLoad(t,
		[]rostercsv.Limit{
			lim("G1", 2, 0, 0, 9, 9),
			lim("G2", 1, 0, 0, 9, 9),
			lim("G3", 0, 0, 0, 9, 9),
			lim("G4", 0, 0, 0, 9, 9),
		},
		[]rostercsv.Student{
			stu("S1", "A1", 3, "G1", "0"),
			stu("S1", "A2", 2, "G2", "0"),
			stu("S2", "A1", 4, "G1", "0"),
		},
		[]rostercsv.Request{
			req("S1", "A1", "G3"),
			req("S1", "A2", "G4"),
			req("S2", "A1", "G4"),
		},
		nil)
}

func TestScoreStartsAtZero(t *testing.T) {
	st := scoreFixture(t)
	expect.EQ(t, st.Evaluate(testOpts()), Score{})
}

func TestScoreSatisfiedRequests(t *testing.T) {
	st := scoreFixture(t)
	opts := testOpts()

	// S1 satisfies A1 only: A += 3, one moved activity awards 1, student not
	// fully satisfied.
	st.applyMove(st.roster.studentID("S1"), st.roster.activityID("A1"), st.group(t, "G3"))
	verifyInvariants(t, st)
	expect.EQ(t, st.Evaluate(opts), Score{A: 3, B: 1})

	// S1 satisfies both activities: two moved activities award 2, and the
	// fully satisfied student adds AwardStudent.
	st.applyMove(st.roster.studentID("S1"), st.roster.activityID("A2"), st.group(t, "G4"))
	verifyInvariants(t, st)
	expect.EQ(t, st.Evaluate(opts), Score{A: 5, B: 2, C: 5})

	// S2 follows: second fully satisfied student.
	st.applyMove(st.roster.studentID("S2"), st.roster.activityID("A1"), st.group(t, "G4"))
	verifyInvariants(t, st)
	expect.EQ(t, st.Evaluate(opts), Score{A: 9, B: 3, C: 10})
}

func TestScoreActivityAwardClamped(t *testing.T) {
	st := scoreFixture(t)
	opts := testOpts()
	opts.AwardActivity = []int{10} // one entry covers any number of moves

	st.applyMove(st.roster.studentID("S1"), st.roster.activityID("A1"), st.group(t, "G3"))
	st.applyMove(st.roster.studentID("S1"), st.roster.activityID("A2"), st.group(t, "G4"))
	sc := st.Evaluate(opts)
	expect.EQ(t, sc.B, 10)
}

func TestScoreMoveWithoutRequestEarnsNoA(t *testing.T) {
	// Moving into a group nobody asked for earns the activity award B but no
	// swap weight and no full-satisfaction award.
	st := mustLoad(t,
		[]rostercsv.Limit{lim("G1", 1, 0, 0, 9, 9), lim("G2", 0, 0, 0, 9, 9), lim("G3", 0, 0, 0, 9, 9)},
		[]rostercsv.Student{stu("S1", "A1", 3, "G1", "G3")},
		[]rostercsv.Request{req("S1", "A1", "G2")},
		nil)
	expect.EQ(t, st.Evaluate(testOpts()), Score{B: 1})
}

func TestScorePreferredBandPenalties(t *testing.T) {
	// G1 wants at least 3 students but has 1 (D = 2); G2 prefers at most 1
	// but has 3 (E = 2).
	st := mustLoad(t,
		[]rostercsv.Limit{
			lim("G1", 1, 0, 3, 9, 9),
			lim("G2", 3, 0, 0, 1, 9),
		},
		[]rostercsv.Student{
			stu("S1", "A1", 1, "G1", "0"),
			stu("S2", "A1", 1, "G2", "0"),
			stu("S3", "A1", 1, "G2", "0"),
			stu("S4", "A1", 1, "G2", "0"),
		},
		nil, nil)
	opts := testOpts()
	expect.EQ(t, st.Evaluate(opts), Score{D: 2, E: 2})
	expect.EQ(t, st.Evaluate(opts).Total(), -4)

	opts.MinMaxPenalty = 3
	expect.EQ(t, st.Evaluate(opts), Score{D: 6, E: 6})
}
