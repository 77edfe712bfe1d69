package assign

// StudentID is a dense sequence number (1, 2, 3, ...) assigned to a student
// identifier string. IDs are valid only within one process invocation.
type StudentID int32

// GroupID is a dense sequence number assigned to a group identifier string.
type GroupID int32

// ActivityID is a dense sequence number assigned to an activity identifier
// string.
type ActivityID int32

const (
	invalidStudent  = StudentID(0)
	invalidGroup    = GroupID(0)
	invalidActivity = ActivityID(0)
)

// saKey identifies one student-activity record.
type saKey struct {
	student  StudentID
	activity ActivityID
}

// groupPair is an ordered pair of groups. The overlap relation and the
// per-student grandfathered sets store both orderings, so lookups never need
// to normalize.
type groupPair struct {
	g1, g2 GroupID
}

// GroupLimits holds the capacity bounds of one group.
//
// INVARIANT: Min <= MinPreferred <= MaxPreferred <= Max.
type GroupLimits struct {
	Min          int
	MinPreferred int
	MaxPreferred int
	Max          int
}

// Roster holds the per-run constants: the interned identifier spaces, group
// limits, the request set, the timetable-overlap relation and the
// grandfathered overlap exceptions. It is immutable once loading finishes.
type Roster struct {
	studentNames  map[string]StudentID
	students      []string // indexed by StudentID
	groupNames    map[string]GroupID
	groups        []string // indexed by GroupID
	activityNames map[string]ActivityID
	activities    []string // indexed by ActivityID

	// limits is indexed by GroupID. Entry 0 is a zero value.
	limits []GroupLimits

	// requested[k] is the set of target groups requested for the
	// student-activity pair k.
	requested map[saKey]map[GroupID]struct{}

	// requestedActivities[s] is the number of distinct activities the student
	// has at least one request for.
	requestedActivities map[StudentID]int

	// overlaps is the symmetric timetable-clash relation.
	overlaps map[GroupID]map[GroupID]struct{}

	// grandfathered[s] holds the group pairs (both orderings) the student
	// already occupied simultaneously at input time.
	grandfathered map[StudentID]map[groupPair]struct{}
}

func newRoster() *Roster {
	return &Roster{
		studentNames:        map[string]StudentID{},
		students:            []string{"invalid"},
		groupNames:          map[string]GroupID{},
		groups:              []string{"invalid"},
		activityNames:       map[string]ActivityID{},
		activities:          []string{"invalid"},
		limits:              []GroupLimits{{}},
		requested:           map[saKey]map[GroupID]struct{}{},
		requestedActivities: map[StudentID]int{},
		overlaps:            map[GroupID]map[GroupID]struct{}{},
		grandfathered:       map[StudentID]map[groupPair]struct{}{},
	}
}

func (r *Roster) internStudent(name string) StudentID {
	if id, ok := r.studentNames[name]; ok {
		return id
	}
	id := StudentID(len(r.students))
	r.studentNames[name] = id
	r.students = append(r.students, name)
	return id
}

func (r *Roster) internGroup(name string) GroupID {
	if id, ok := r.groupNames[name]; ok {
		return id
	}
	id := GroupID(len(r.groups))
	r.groupNames[name] = id
	r.groups = append(r.groups, name)
	r.limits = append(r.limits, GroupLimits{})
	return id
}

func (r *Roster) internActivity(name string) ActivityID {
	if id, ok := r.activityNames[name]; ok {
		return id
	}
	id := ActivityID(len(r.activities))
	r.activityNames[name] = id
	r.activities = append(r.activities, name)
	return id
}

// studentID retrieves a student ID given a name. It returns invalidStudent if
// the name was never interned.
func (r *Roster) studentID(name string) StudentID { return r.studentNames[name] }

// groupID retrieves a group ID given a name. It returns invalidGroup if the
// name was never interned.
func (r *Roster) groupID(name string) GroupID { return r.groupNames[name] }

// activityID retrieves an activity ID given a name. It returns
// invalidActivity if the name was never interned.
func (r *Roster) activityID(name string) ActivityID { return r.activityNames[name] }

// StudentName returns the identifier string for the given student.
func (r *Roster) StudentName(s StudentID) string { return r.students[s] }

// GroupName returns the identifier string for the given group.
func (r *Roster) GroupName(g GroupID) string { return r.groups[g] }

// ActivityName returns the identifier string for the given activity.
func (r *Roster) ActivityName(a ActivityID) string { return r.activities[a] }

// NumGroups returns the number of groups in the limits table.
func (r *Roster) NumGroups() int { return len(r.limits) - 1 }

// Limits returns the capacity bounds of the given group.
func (r *Roster) Limits(g GroupID) GroupLimits { return r.limits[g] }

// Overlaps reports whether the two groups clash on the timetable.
func (r *Roster) Overlaps(g1, g2 GroupID) bool {
	_, ok := r.overlaps[g1][g2]
	return ok
}

// Grandfathered reports whether the student already occupied both groups at
// input time and is therefore exempt from their overlap.
func (r *Roster) Grandfathered(s StudentID, g1, g2 GroupID) bool {
	_, ok := r.grandfathered[s][groupPair{g1, g2}]
	return ok
}

// Requested reports whether (s, a, g) appears in the requests table.
func (r *Roster) Requested(s StudentID, a ActivityID, g GroupID) bool {
	_, ok := r.requested[saKey{s, a}][g]
	return ok
}

func (r *Roster) addOverlap(g1, g2 GroupID) {
	if r.overlaps[g1] == nil {
		r.overlaps[g1] = map[GroupID]struct{}{}
	}
	if r.overlaps[g2] == nil {
		r.overlaps[g2] = map[GroupID]struct{}{}
	}
	r.overlaps[g1][g2] = struct{}{}
	r.overlaps[g2][g1] = struct{}{}
}

func (r *Roster) addGrandfathered(s StudentID, g1, g2 GroupID) {
	if r.grandfathered[s] == nil {
		r.grandfathered[s] = map[groupPair]struct{}{}
	}
	r.grandfathered[s][groupPair{g1, g2}] = struct{}{}
	r.grandfathered[s][groupPair{g2, g1}] = struct{}{}
}

func (r *Roster) addRequest(s StudentID, a ActivityID, g GroupID) bool {
	k := saKey{s, a}
	set, ok := r.requested[k]
	if !ok {
		set = map[GroupID]struct{}{}
		r.requested[k] = set
		r.requestedActivities[s]++
	}
	if _, dup := set[g]; dup {
		return false
	}
	set[g] = struct{}{}
	return true
}
