package rostercsv

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

var studentsHeader = "student_id,activity_id,swap_weight,group_id,new_group_id"

// WriteStudents writes the students table, header first. Identifiers are
// emitted verbatim; none of the production identifier spaces contain commas,
// so fields are never quoted.
func WriteStudents(w io.Writer, rows []Student) error {
	b := bufio.NewWriter(w)
	if _, err := b.WriteString(studentsHeader + "\n"); err != nil {
		return errors.Wrap(err, "rostercsv: write header")
	}
	for _, row := range rows {
		if _, err := b.WriteString(row.StudentID + "," + row.ActivityID + "," +
			strconv.Itoa(row.SwapWeight) + "," + row.GroupID + "," + row.NewGroupID + "\n"); err != nil {
			return errors.Wrap(err, "rostercsv: write row")
		}
	}
	return errors.Wrap(b.Flush(), "rostercsv: flush")
}
