// Package rostercsv contains code for parsing the four roster input tables
// (students, requests, overlaps, limits) and writing the output assignment.
// The format is comma-delimited with '|' as the quote character and a header
// row that is skipped; gzip-compressed inputs are detected and decompressed
// transparently.
package rostercsv

import (
	"bufio"
	"io"
	"strconv"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ErrHeader is returned when an input table is empty, i.e. lacks even the
// header row.
var ErrHeader = errors.New("rostercsv: missing header row")

const quote = '|'

// Student is one row of the students table. GroupID is the original group;
// NewGroupID is "0" when the student has not moved.
type Student struct {
	StudentID  string
	ActivityID string
	SwapWeight int
	GroupID    string
	NewGroupID string
}

// Request is one row of the requests table: the student asks to attend
// activity ActivityID in group GroupID.
type Request struct {
	StudentID  string
	ActivityID string
	GroupID    string
}

// Overlap is one row of the overlaps table: the two groups clash on the
// timetable.
type Overlap struct {
	Group1ID string
	Group2ID string
}

// Limit is one row of the limits table. Count is the group's occupancy
// before any reassignment.
type Limit struct {
	GroupID      string
	Count        int
	Min          int
	MinPreferred int
	Max          int
	MaxPreferred int
}

var gzipMagic = []byte{0x1f, 0x8b}

// newReader wraps r with a gzip decompressor when the stream starts with the
// gzip magic bytes.
func newReader(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil {
		// Short or empty stream; let the scanner report it.
		return br, nil
	}
	if magic[0] != gzipMagic[0] || magic[1] != gzipMagic[1] {
		return br, nil
	}
	zr, err := gzip.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, "rostercsv: gzip")
	}
	return zr, nil
}

// splitRecord splits one line into fields: commas delimit, and a field may be
// wrapped in '|' quotes to protect embedded commas. One level of quotes is
// stripped.
func splitRecord(line string) []string {
	var (
		fields  []string
		field   []byte
		quoted  bool
		inQuote bool
	)
	flush := func() {
		s := string(field)
		if quoted && len(s) >= 2 && s[0] == quote && s[len(s)-1] == quote {
			s = s[1 : len(s)-1]
		}
		fields = append(fields, s)
		field = field[:0]
		quoted = false
	}
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == quote:
			inQuote = !inQuote
			quoted = true
			field = append(field, c)
		case c == ',' && !inQuote:
			flush()
		default:
			field = append(field, c)
		}
	}
	flush()
	return fields
}

// scanner reads one table: it validates the header's presence and hands out
// records with a fixed field count.
type scanner struct {
	b    *bufio.Scanner
	line int
	err  error
}

func newScanner(r io.Reader) (*scanner, error) {
	in, err := newReader(r)
	if err != nil {
		return nil, err
	}
	s := &scanner{b: bufio.NewScanner(in)}
	if !s.b.Scan() {
		if err := s.b.Err(); err != nil {
			return nil, errors.Wrap(err, "rostercsv: header")
		}
		return nil, ErrHeader
	}
	s.line = 1
	return s, nil
}

// scan returns the next record, or false at end of input or on error.
func (s *scanner) scan(nFields int) ([]string, bool) {
	for {
		if !s.b.Scan() {
			s.err = s.b.Err()
			return nil, false
		}
		s.line++
		if len(s.b.Bytes()) == 0 {
			continue // tolerate a trailing blank line
		}
		fields := splitRecord(s.b.Text())
		if len(fields) != nFields {
			s.err = errors.Errorf("rostercsv: line %d: got %d fields, want %d", s.line, len(fields), nFields)
			return nil, false
		}
		return fields, true
	}
}

func (s *scanner) int(fields []string, i int, name string) int {
	if s.err != nil {
		return 0
	}
	v, err := strconv.Atoi(fields[i])
	if err != nil {
		s.err = errors.Wrapf(err, "rostercsv: line %d: column %s", s.line, name)
	}
	return v
}

// ReadStudents parses the students table.
func ReadStudents(r io.Reader) ([]Student, error) {
	s, err := newScanner(r)
	if err != nil {
		return nil, err
	}
	var rows []Student
	for {
		fields, ok := s.scan(5)
		if !ok {
			break
		}
		row := Student{
			StudentID:  fields[0],
			ActivityID: fields[1],
			SwapWeight: s.int(fields, 2, "swap_weight"),
			GroupID:    fields[3],
			NewGroupID: fields[4],
		}
		if s.err != nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, s.err
}

// ReadRequests parses the requests table.
func ReadRequests(r io.Reader) ([]Request, error) {
	s, err := newScanner(r)
	if err != nil {
		return nil, err
	}
	var rows []Request
	for {
		fields, ok := s.scan(3)
		if !ok {
			break
		}
		rows = append(rows, Request{
			StudentID:  fields[0],
			ActivityID: fields[1],
			GroupID:    fields[2],
		})
	}
	return rows, s.err
}

// ReadOverlaps parses the overlaps table.
func ReadOverlaps(r io.Reader) ([]Overlap, error) {
	s, err := newScanner(r)
	if err != nil {
		return nil, err
	}
	var rows []Overlap
	for {
		fields, ok := s.scan(2)
		if !ok {
			break
		}
		rows = append(rows, Overlap{Group1ID: fields[0], Group2ID: fields[1]})
	}
	return rows, s.err
}

// ReadLimits parses the limits table. Note the column order: the hard max
// precedes the preferred max.
func ReadLimits(r io.Reader) ([]Limit, error) {
	s, err := newScanner(r)
	if err != nil {
		return nil, err
	}
	var rows []Limit
	for {
		fields, ok := s.scan(6)
		if !ok {
			break
		}
		row := Limit{
			GroupID:      fields[0],
			Count:        s.int(fields, 1, "students_cnt"),
			Min:          s.int(fields, 2, "min"),
			MinPreferred: s.int(fields, 3, "min_preferred"),
			Max:          s.int(fields, 4, "max"),
			MaxPreferred: s.int(fields, 5, "max_preferred"),
		}
		if s.err != nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, s.err
}
