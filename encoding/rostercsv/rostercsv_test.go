package rostercsv

import (
	"bytes"
	"strings"
	"testing"

	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

func TestReadStudents(t *testing.T) {
	in := `student_id,activity_id,swap_weight,group_id,new_group_id
S1,A1,3,G1,0
S2,A1,0,G2,G3
`
	rows, err := ReadStudents(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, rows, []Student{
		{StudentID: "S1", ActivityID: "A1", SwapWeight: 3, GroupID: "G1", NewGroupID: "0"},
		{StudentID: "S2", ActivityID: "A1", SwapWeight: 0, GroupID: "G2", NewGroupID: "G3"},
	})
}

func TestReadRequestsAndOverlaps(t *testing.T) {
	requests, err := ReadRequests(strings.NewReader("student_id,activity_id,req_group_id\nS1,A1,G2\n"))
	assert.NoError(t, err)
	expect.EQ(t, requests, []Request{{StudentID: "S1", ActivityID: "A1", GroupID: "G2"}})

	overlaps, err := ReadOverlaps(strings.NewReader("group1_id,group2_id\nG1,G2\nG2,G3\n"))
	assert.NoError(t, err)
	expect.EQ(t, overlaps, []Overlap{
		{Group1ID: "G1", Group2ID: "G2"},
		{Group1ID: "G2", Group2ID: "G3"},
	})
}

func TestReadLimitsColumnOrder(t *testing.T) {
	// The hard max comes before the preferred max in the file.
	in := "group_id,students_cnt,min,min_preferred,max,max_preferred\nG1,10,2,5,20,15\n"
	rows, err := ReadLimits(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, rows, []Limit{{
		GroupID: "G1", Count: 10, Min: 2, MinPreferred: 5, Max: 20, MaxPreferred: 15,
	}})
}

func TestQuotedFields(t *testing.T) {
	// '|' is the quote character: a quoted field may contain commas.
	in := "group1_id,group2_id\n|G1,a|,G2\n"
	rows, err := ReadOverlaps(strings.NewReader(in))
	assert.NoError(t, err)
	expect.EQ(t, rows, []Overlap{{Group1ID: "G1,a", Group2ID: "G2"}})
}

func TestMissingHeader(t *testing.T) {
	_, err := ReadStudents(strings.NewReader(""))
	expect.EQ(t, err, ErrHeader)
}

func TestWrongColumnCount(t *testing.T) {
	_, err := ReadStudents(strings.NewReader("header\nS1,A1,3,G1\n"))
	assert.NotNil(t, err)
}

func TestNonIntegerField(t *testing.T) {
	_, err := ReadStudents(strings.NewReader("header\nS1,A1,heavy,G1,0\n"))
	assert.NotNil(t, err)

	_, err = ReadLimits(strings.NewReader("header\nG1,10,2,5,twenty,15\n"))
	assert.NotNil(t, err)
}

func TestTrailingBlankLine(t *testing.T) {
	rows, err := ReadRequests(strings.NewReader("header\nS1,A1,G2\n\n"))
	assert.NoError(t, err)
	expect.EQ(t, len(rows), 1)
}

func TestGzippedInput(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte("group1_id,group2_id\nG1,G2\n"))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())

	rows, err := ReadOverlaps(&buf)
	assert.NoError(t, err)
	expect.EQ(t, rows, []Overlap{{Group1ID: "G1", Group2ID: "G2"}})
}

func TestWriteStudents(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStudents(&buf, []Student{
		{StudentID: "S1", ActivityID: "A1", SwapWeight: 3, GroupID: "G1", NewGroupID: "0"},
		{StudentID: "S2", ActivityID: "A2", SwapWeight: 0, GroupID: "G2", NewGroupID: "G4"},
	})
	assert.NoError(t, err)
	expect.EQ(t, buf.String(),
		"student_id,activity_id,swap_weight,group_id,new_group_id\nS1,A1,3,G1,0\nS2,A2,0,G2,G4\n")

	// Write/read round trip.
	rows, err := ReadStudents(&buf)
	assert.NoError(t, err)
	expect.EQ(t, len(rows), 2)
	expect.EQ(t, rows[1].NewGroupID, "G4")
}
