package assign

// Opts is the set of tunables for one search run. The three objective knobs
// (AwardActivity, AwardStudent, MinMaxPenalty) come straight from the
// command line; the rest control the explorer.
type Opts struct {
	// AwardActivity[k] is the award for a student who moved in k+1 distinct
	// activities. Students who moved in more activities than the table covers
	// receive the last entry.
	AwardActivity []int
	// AwardStudent is the award for each student whose every request is
	// satisfied.
	AwardStudent int
	// MinMaxPenalty is the per-seat penalty for group occupancies outside the
	// preferred [minPreferred, maxPreferred] band.
	MinMaxPenalty int

	// Seed seeds the explorer's sampler. Zero means derive from the clock;
	// tests pass a fixed value for reproducible runs.
	Seed int64

	// SampleThreshold is the pending-move count above which the explorer
	// evaluates a sampled subset instead of the full catalogue.
	SampleThreshold int
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	AwardActivity:   []int{1, 2, 4},
	AwardStudent:    1,
	MinMaxPenalty:   1,
	Seed:            0,
	SampleThreshold: 500,
}
