// Package ledger is the authoritative store of attendance facts. The service
// layer owns the uniqueness invariant per (student, class, date) triple:
// marking is an idempotent upsert, the same policy on the single and batch
// paths, backed by an atomic conditional write in the repository.
package ledger

import (
	"context"

	"studentmanagement/internal/access"
	"studentmanagement/internal/apperr"
	"studentmanagement/internal/metrics"
)

type (
	// Repository persists attendance facts. Upsert must be atomic against
	// the (student_id, class_id, date) unique key: concurrent double-submits
	// may race, but at most one record exists afterwards.
	Repository interface {
		// Upsert creates the record for its triple, or updates present and
		// remarks in place when it already exists. The bool reports whether
		// a new record was created.
		Upsert(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, bool, error)
		GetRecord(ctx context.Context, id string) (AttendanceRecord, error)
		UpdateRecord(ctx context.Context, id string, present bool, remarks string) (AttendanceRecord, error)
		DeleteRecord(ctx context.Context, id string) error
		// List methods return records with date in [from, to] inclusive,
		// ordered by date ascending (id ascending as a stable tiebreak).
		ListByStudent(ctx context.Context, studentID string, from, to Date) ([]AttendanceRecord, error)
		ListByClass(ctx context.Context, classID string, from, to Date) ([]AttendanceRecord, error)
		ListAll(ctx context.Context, from, to Date) ([]AttendanceRecord, error)
	}

	// Roster is the slice of the roster provider the ledger needs: class
	// ownership for the access gate and enrollment validation at mark time.
	Roster interface {
		// ClassTeacherID returns the owning teacher's id ("" when the class
		// has no teacher) or a not-found error when the class is absent.
		ClassTeacherID(ctx context.Context, classID string) (string, error)
		IsEnrolled(ctx context.Context, studentID, classID string) (bool, error)
	}

	// Invalidator drops derived read-model entries after a successful write.
	Invalidator interface {
		InvalidateAttendance(ctx context.Context, studentID, classID string)
	}

	// Service coordinates authorization, enrollment validation and writes.
	Service struct {
		repo   Repository
		roster Roster
		inval  Invalidator // optional
	}
)

// NewService creates a ledger service. inval may be nil.
func NewService(repo Repository, roster Roster, inval Invalidator) *Service {
	return &Service{repo: repo, roster: roster, inval: inval}
}

// Mark records attendance for one student. A repeat mark for the same triple
// updates present/remarks in place. The bool reports whether the record was
// newly created.
func (s *Service) Mark(ctx context.Context, actor access.Actor, m Mark) (AttendanceRecord, bool, error) {
	if err := validateMark(m); err != nil {
		return AttendanceRecord{}, false, err
	}

	teacherID, err := s.roster.ClassTeacherID(ctx, m.ClassID)
	if err != nil {
		return AttendanceRecord{}, false, err
	}
	if d := access.Decide(actor, access.ActionCreateAttendance, access.Resource{ClassTeacherID: teacherID}); !d.Allowed {
		metrics.AttendanceMarks.WithLabelValues("denied").Inc()
		return AttendanceRecord{}, false, apperr.E(apperr.KindAuthorization, d.Reason)
	}

	rec, created, err := s.mark(ctx, m)
	if err != nil {
		metrics.AttendanceMarks.WithLabelValues("error").Inc()
		return AttendanceRecord{}, false, err
	}
	metrics.AttendanceMarks.WithLabelValues(markResult(created)).Inc()
	return rec, created, nil
}

// MarkBatch records a whole-class roll call for one date. The class is
// authorized once; each student entry is then attempted independently and the
// returned outcomes enumerate per-student success or failure in input order.
func (s *Service) MarkBatch(ctx context.Context, actor access.Actor, classID string, date Date, items []BatchItem) ([]BatchOutcome, error) {
	if date.IsZero() {
		return nil, apperr.Validation("date is required", apperr.FieldError{Field: "date", Error: "required"})
	}

	teacherID, err := s.roster.ClassTeacherID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if d := access.Decide(actor, access.ActionCreateAttendance, access.Resource{ClassTeacherID: teacherID}); !d.Allowed {
		metrics.AttendanceMarks.WithLabelValues("denied").Inc()
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}

	outcomes := make([]BatchOutcome, 0, len(items))
	for _, item := range items {
		m := Mark{StudentID: item.StudentID, ClassID: classID, Date: date, Present: item.Present, Remarks: item.Remarks}
		if err := validateMark(m); err != nil {
			metrics.AttendanceMarks.WithLabelValues("error").Inc()
			outcomes = append(outcomes, BatchOutcome{StudentID: item.StudentID, Status: OutcomeError, Error: err.Error()})
			continue
		}
		rec, created, err := s.mark(ctx, m)
		if err != nil {
			metrics.AttendanceMarks.WithLabelValues("error").Inc()
			outcomes = append(outcomes, BatchOutcome{StudentID: item.StudentID, Status: OutcomeError, Error: err.Error()})
			continue
		}
		metrics.AttendanceMarks.WithLabelValues(markResult(created)).Inc()
		outcomes = append(outcomes, BatchOutcome{StudentID: item.StudentID, Status: markResult(created), Record: &rec})
	}
	return outcomes, nil
}

// mark validates enrollment and performs the atomic upsert.
func (s *Service) mark(ctx context.Context, m Mark) (AttendanceRecord, bool, error) {
	enrolled, err := s.roster.IsEnrolled(ctx, m.StudentID, m.ClassID)
	if err != nil {
		return AttendanceRecord{}, false, err
	}
	if !enrolled {
		return AttendanceRecord{}, false, apperr.Validation(
			"student is not enrolled in this class",
			apperr.FieldError{Field: "student_id", Error: "not enrolled in class"},
		)
	}

	rec, created, err := s.repo.Upsert(ctx, AttendanceRecord{
		StudentID: m.StudentID,
		ClassID:   m.ClassID,
		Date:      m.Date,
		Present:   m.Present,
		Remarks:   m.Remarks,
	})
	if err != nil {
		return AttendanceRecord{}, false, err
	}
	s.invalidate(ctx, rec)
	return rec, created, nil
}

// Update mutates present/remarks on an existing record. Only the teacher
// assigned to the record's class may update it.
func (s *Service) Update(ctx context.Context, actor access.Actor, recordID string, present bool, remarks string) (AttendanceRecord, error) {
	rec, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if d := access.Decide(actor, access.ActionUpdateAttendance, s.recordResource(ctx, rec)); !d.Allowed {
		return AttendanceRecord{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	updated, err := s.repo.UpdateRecord(ctx, recordID, present, remarks)
	if err != nil {
		return AttendanceRecord{}, err
	}
	s.invalidate(ctx, updated)
	return updated, nil
}

// Delete removes a record permanently. The assigned teacher or an admin may
// delete; history for deleted classes remains admin-deletable.
func (s *Service) Delete(ctx context.Context, actor access.Actor, recordID string) error {
	rec, err := s.repo.GetRecord(ctx, recordID)
	if err != nil {
		return err
	}
	if d := access.Decide(actor, access.ActionDeleteAttendance, s.recordResource(ctx, rec)); !d.Allowed {
		return apperr.E(apperr.KindAuthorization, d.Reason)
	}
	if err := s.repo.DeleteRecord(ctx, recordID); err != nil {
		return err
	}
	s.invalidate(ctx, rec)
	return nil
}

// RecordsFor returns all records for the subject with date in [from, to]
// inclusive, ordered by date ascending. A reversed range yields an empty
// sequence, not an error.
func (s *Service) RecordsFor(ctx context.Context, actor access.Actor, subject Subject, from, to Date) ([]AttendanceRecord, error) {
	res := access.Resource{StudentID: subject.StudentID}
	if subject.ClassID != "" {
		teacherID, err := s.roster.ClassTeacherID(ctx, subject.ClassID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		res.ClassTeacherID = teacherID
	}
	if d := access.Decide(actor, access.ActionReadAttendance, res); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}

	if from.IsZero() || to.IsZero() {
		return nil, apperr.Validation("date range is required",
			apperr.FieldError{Field: "from", Error: "required"},
			apperr.FieldError{Field: "to", Error: "required"})
	}
	if from.After(to) {
		return []AttendanceRecord{}, nil
	}

	switch {
	case subject.StudentID != "":
		return s.repo.ListByStudent(ctx, subject.StudentID, from, to)
	case subject.ClassID != "":
		return s.repo.ListByClass(ctx, subject.ClassID, from, to)
	default:
		return s.repo.ListAll(ctx, from, to)
	}
}

// recordResource resolves ownership for an existing record. A record whose
// class was deleted resolves to an empty teacher id, leaving only admins able
// to act on it.
func (s *Service) recordResource(ctx context.Context, rec AttendanceRecord) access.Resource {
	teacherID, err := s.roster.ClassTeacherID(ctx, rec.ClassID)
	if err != nil {
		teacherID = ""
	}
	return access.Resource{ClassTeacherID: teacherID, StudentID: rec.StudentID}
}

func (s *Service) invalidate(ctx context.Context, rec AttendanceRecord) {
	if s.inval != nil {
		s.inval.InvalidateAttendance(ctx, rec.StudentID, rec.ClassID)
	}
}

func validateMark(m Mark) error {
	var fields []apperr.FieldError
	if m.StudentID == "" {
		fields = append(fields, apperr.FieldError{Field: "student_id", Error: "required"})
	}
	if m.ClassID == "" {
		fields = append(fields, apperr.FieldError{Field: "class_id", Error: "required"})
	}
	if m.Date.IsZero() {
		fields = append(fields, apperr.FieldError{Field: "date", Error: "required"})
	}
	if fields != nil {
		return apperr.Validation("invalid attendance mark", fields...)
	}
	return nil
}

func markResult(created bool) string {
	if created {
		return OutcomeCreated
	}
	return OutcomeUpdated
}
