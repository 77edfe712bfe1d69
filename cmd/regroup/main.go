package main

// regroup searches for an improved student-to-group assignment.
//
// The tool reads four CSV tables (students, requests, overlaps, limits),
// runs a time-bounded local search that maximises the composite
// A + B + C - D - E objective under hard capacity and timetable constraints,
// and writes the resulting assignment as a students CSV.
//
// Example 1: solve with a ten minute budget.
//
//    regroup --timeout=600 --award-activity=1,2,4 --award-student=5 --minmax-penalty=1 \
//        --students-file=student.csv --requests-file=requests.csv \
//        --overlaps-file=overlaps.csv --limits-file=limits.csv
//
// Example 2: re-score an assignment produced by a previous run.
//
//    regroup -evaluate --timeout=1 ... --students-file=out.csv

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/regroup/assign"
	"github.com/grailbio/regroup/encoding/rostercsv"
)

// Collection of options set via cmdline flags.
type regroupFlags struct {
	timeout       int
	awardActivity string
	awardStudent  int
	minmaxPenalty int
	studentsPath  string
	requestsPath  string
	overlapsPath  string
	limitsPath    string
	outputPath    string
	snapshotPath  string
	snapshotInput string
	seed          int64
	evaluate      bool
}

func parseAwardActivity(s string) ([]int, error) {
	var awards []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.E("-award-activity: not an integer list", s)
		}
		awards = append(awards, v)
	}
	return awards, nil
}

type inputTables struct {
	limits   []rostercsv.Limit
	students []rostercsv.Student
	requests []rostercsv.Request
	overlaps []rostercsv.Overlap
}

// readTables parses the four input files concurrently. The state itself is
// built sequentially by assign.Load afterwards.
func readTables(ctx context.Context, flags regroupFlags) (inputTables, error) {
	var tables inputTables
	parsers := []struct {
		path  string
		parse func(io.Reader) error
	}{
		{flags.limitsPath, func(r io.Reader) (err error) {
			tables.limits, err = rostercsv.ReadLimits(r)
			return
		}},
		{flags.requestsPath, func(r io.Reader) (err error) {
			tables.requests, err = rostercsv.ReadRequests(r)
			return
		}},
		{flags.overlapsPath, func(r io.Reader) (err error) {
			tables.overlaps, err = rostercsv.ReadOverlaps(r)
			return
		}},
		{flags.studentsPath, func(r io.Reader) (err error) {
			tables.students, err = rostercsv.ReadStudents(r)
			return
		}},
	}
	err := traverse.Each(len(parsers), func(i int) error {
		if parsers[i].path == "" {
			return nil // assignment rows come from a snapshot instead
		}
		in, err := file.Open(ctx, parsers[i].path)
		if err != nil {
			return err
		}
		once := errors.Once{}
		once.Set(parsers[i].parse(in.Reader(ctx)))
		once.Set(in.Close(ctx))
		if err := once.Err(); err != nil {
			return errors.E(err, "read", parsers[i].path)
		}
		return nil
	})
	return tables, err
}

func writeResult(ctx context.Context, path string, rows []rostercsv.Student) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	once := errors.Once{}
	once.Set(rostercsv.WriteStudents(out.Writer(ctx), rows))
	once.Set(out.Close(ctx))
	return once.Err()
}

// evaluateOnly re-scores an existing assignment and reports whether it
// satisfies the hard constraints. No search, no output file.
func evaluateOnly(st *assign.State, opts assign.Opts) {
	sc := st.Evaluate(opts)
	fmt.Printf("score: %d\n", sc.Total())
	fmt.Printf("%d + %d + %d - %d - %d\n", sc.A, sc.B, sc.C, sc.D, sc.E)
	fmt.Printf("feasible: %v\n", st.Feasible())
}

func main() {
	programStart := time.Now()
	flags := regroupFlags{}
	flag.IntVar(&flags.timeout, "timeout", 0, "Wall-clock budget in seconds, measured from program start.")
	flag.StringVar(&flags.awardActivity, "award-activity", "", "Comma-separated award table: entry k is the award for moving in k+1 activities.")
	flag.IntVar(&flags.awardStudent, "award-student", 0, "Award for each student whose every request is satisfied.")
	flag.IntVar(&flags.minmaxPenalty, "minmax-penalty", 0, "Per-seat penalty for occupancies outside the preferred band.")
	flag.StringVar(&flags.studentsPath, "students-file", "", "CSV of current student-activity assignments.")
	flag.StringVar(&flags.requestsPath, "requests-file", "", "CSV of reassignment requests.")
	flag.StringVar(&flags.overlapsPath, "overlaps-file", "", "CSV of timetable-overlapping group pairs.")
	flag.StringVar(&flags.limitsPath, "limits-file", "", "CSV of group capacity limits.")
	flag.StringVar(&flags.outputPath, "output", "out.csv", "Path of the output assignment CSV.")
	flag.StringVar(&flags.snapshotPath, "snapshot-output", "", "If set, also write the result as a gob/recordio snapshot.")
	flag.StringVar(&flags.snapshotInput, "snapshot-input", "", "If set, read the assignment rows from this snapshot instead of -students-file.")
	flag.Int64Var(&flags.seed, "seed", 0, "Sampler seed; 0 derives one from the clock.")
	flag.BoolVar(&flags.evaluate, "evaluate", false, "Score the input assignment and exit without searching.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	for _, required := range []struct{ name, value string }{
		{"award-activity", flags.awardActivity},
		{"students-file", flags.studentsPath},
		{"requests-file", flags.requestsPath},
		{"overlaps-file", flags.overlapsPath},
		{"limits-file", flags.limitsPath},
	} {
		if required.value == "" {
			if required.name == "students-file" && flags.snapshotInput != "" {
				continue
			}
			log.Fatalf("-%s is required", required.name)
		}
	}
	if flags.timeout <= 0 {
		log.Fatal("-timeout must be a positive number of seconds")
	}
	awards, err := parseAwardActivity(flags.awardActivity)
	if err != nil {
		log.Fatal(err)
	}
	opts := assign.DefaultOpts
	opts.AwardActivity = awards
	opts.AwardStudent = flags.awardStudent
	opts.MinMaxPenalty = flags.minmaxPenalty
	opts.Seed = flags.seed

	tables, err := readTables(ctx, flags)
	if err != nil {
		log.Fatal(err)
	}
	if flags.snapshotInput != "" {
		rows, hdr := readSnapshot(ctx, flags.snapshotInput)
		tables.students = rows
		log.Printf("snapshot %s: recorded score %d, stats %+v",
			flags.snapshotInput, hdr.Score.Total(), hdr.Stats)
	}
	st, err := assign.Load(tables.limits, tables.students, tables.requests, tables.overlaps)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %d student-activity rows, %d groups, %d pending moves",
		len(tables.students), st.Roster().NumGroups(), st.PendingMoves())

	if flags.evaluate {
		evaluateOnly(st, opts)
		return
	}

	deadline := programStart.Add(time.Duration(flags.timeout) * time.Second)
	stats := assign.NewSearch(st, opts, deadline).Run()

	rows := st.Rows()
	if err := writeResult(ctx, flags.outputPath, rows); err != nil {
		log.Fatal(err)
	}
	sc := st.Evaluate(opts)
	if flags.snapshotPath != "" {
		writeSnapshot(ctx, flags.snapshotPath, rows, snapshotHeader{Opts: opts, Score: sc, Stats: stats})
	}
	log.Printf("Stats: %+v", stats)
	log.Printf("score is: %d (%d + %d + %d - %d - %d)", sc.Total(), sc.A, sc.B, sc.C, sc.D, sc.E)
	log.Printf("program took %s", time.Since(programStart))
}
