package assign

import (
	"math/rand"
	"time"

	"github.com/grailbio/base/log"
)

// Search is the time-bounded driver. Each iteration classifies the pending
// catalogue, runs the valid pass, re-classifies if it moved anything, runs
// the swap pass, and falls back to the explorer when neither improved. It
// stops at the deadline, or early when no request is left to satisfy.
type Search struct {
	state    *State
	opts     Opts
	deadline time.Time
	rng      *rand.Rand
	stats    Stats
}

// NewSearch prepares a run over the given state. The deadline is absolute;
// passes and the explorer poll it between candidate evaluations.
func NewSearch(st *State, opts Opts, deadline time.Time) *Search {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Search{
		state:    st,
		opts:     opts,
		deadline: deadline,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (srch *Search) expired() bool { return !time.Now().Before(srch.deadline) }

// Run drives the search until the deadline and returns the run counters.
// Every committed state respects the hard capacity and overlap constraints.
func (srch *Search) Run() Stats {
	st := srch.state
	best := st.Evaluate(srch.opts).Total()
	srch.stats.BestScore = best
	log.Printf("search: starting score %d, %d pending moves, room cutoff %d",
		best, len(st.pending), st.enoughRoom)

	for !srch.expired() {
		if len(st.pending) == 0 {
			log.Printf("search: request catalogue exhausted after %d iterations", srch.stats.Iterations)
			break
		}
		srch.stats.Iterations++

		cls := st.classify()
		improved := srch.validPass(cls)
		if improved {
			cls = st.classify()
		}
		swapped := srch.swapPass(cls)
		if !improved && !swapped {
			srch.explore()
		}

		if total := st.Evaluate(srch.opts).Total(); total > best {
			best = total
			srch.stats.BestScore = best
			log.Printf("search: iteration %d improved score to %d", srch.stats.Iterations, best)
		}
	}

	sc := st.Evaluate(srch.opts)
	log.Printf("search: done after %d iterations, score %d (%d + %d + %d - %d - %d)",
		srch.stats.Iterations, sc.Total(), sc.A, sc.B, sc.C, sc.D, sc.E)
	return srch.stats
}
