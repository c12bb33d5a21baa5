// Package export renders attendance and roster data as CSV downloads. It
// formats only; callers fetch rows through the gated services first.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"studentmanagement/internal/account"
	"studentmanagement/internal/ledger"
)

// AttendanceCSV writes attendance records as CSV, one row per record, ordered
// as given.
func AttendanceCSV(w io.Writer, records []ledger.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"record_id", "student_id", "class_id", "date", "present", "remarks"}); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.StudentID,
			rec.ClassID,
			rec.Date.String(),
			strconv.FormatBool(rec.Present),
			rec.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// StudentsCSV writes a student roster as CSV. Password hashes never leave the
// account package, so only profile columns appear here.
func StudentsCSV(w io.Writer, students []account.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "username", "first_name", "last_name", "email", "admission_number", "semester", "class_id"}); err != nil {
		return err
	}
	for _, stu := range students {
		classID := ""
		if stu.ClassID != nil {
			classID = *stu.ClassID
		}
		row := []string{
			stu.ID,
			stu.Username,
			stu.FirstName,
			stu.LastName,
			stu.Email,
			stu.AdmissionNumber,
			stu.Semester,
			classID,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
