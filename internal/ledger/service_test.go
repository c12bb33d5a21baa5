package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/apperr"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
	"studentmanagement/internal/store"
)

type fixture struct {
	svc     *ledger.Service
	roster  *roster.Provider
	mem     *store.Memory
	admin   access.Actor
	teacher access.Actor
	other   access.Actor
	student access.Actor
	classID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemory()

	mustCreate := func(id, role string) access.Actor {
		_, err := mem.CreateUser(ctx, account.User{ID: id, Username: id, Role: role, Enabled: true})
		require.NoError(t, err)
		return access.Actor{ID: id, Role: role}
	}

	f := &fixture{mem: mem}
	f.admin = mustCreate("adm-1", access.RoleAdmin)
	f.teacher = mustCreate("tea-1", access.RoleTeacher)
	f.other = mustCreate("tea-2", access.RoleTeacher)
	f.student = mustCreate("stu-1", access.RoleStudent)
	mustCreate("stu-2", access.RoleStudent)

	teacherID := f.teacher.ID
	cls, err := mem.CreateClass(ctx, roster.ClassSection{ID: "cls-1", Name: "Mathematics", TeacherID: &teacherID})
	require.NoError(t, err)
	f.classID = cls.ID
	require.NoError(t, mem.SetStudentClass(ctx, "stu-1", &f.classID))
	require.NoError(t, mem.SetStudentClass(ctx, "stu-2", &f.classID))

	f.roster = roster.NewProvider(mem, mem)
	f.svc = ledger.NewService(mem, f.roster, nil)
	return f
}

func day(d int) ledger.Date { return ledger.NewDate(2026, time.April, d) }

func TestMarkCreatesRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, created, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: true,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)
	assert.True(t, rec.Present)
}

func TestMarkDuplicateUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, created, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: true,
	})
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: false, Remarks: "left early",
	})
	require.NoError(t, err)
	assert.False(t, created, "second mark for the same triple updates in place")
	assert.Equal(t, first.ID, second.ID)
	assert.False(t, second.Present)
	assert.Equal(t, "left early", second.Remarks)

	records, err := f.svc.RecordsFor(ctx, f.admin, ledger.ForStudent("stu-1"), day(1), day(1))
	require.NoError(t, err)
	assert.Len(t, records, 1, "exactly one record per (student, class, date)")
}

func TestMarkAuthz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := ledger.Mark{StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: true}

	_, _, err := f.svc.Mark(ctx, f.other, m)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "unassigned teacher denied")

	_, _, err = f.svc.Mark(ctx, f.admin, m)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "admins do not record attendance")

	_, _, err = f.svc.Mark(ctx, f.student, m)
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestMarkUnenrolledStudent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-9", ClassID: f.classID, Date: day(1), Present: true,
	})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestMarkUnknownClass(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: "cls-nope", Date: day(1), Present: true,
	})
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestMarkBatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcomes, err := f.svc.MarkBatch(ctx, f.teacher, f.classID, day(2), []ledger.BatchItem{
		{StudentID: "stu-1", Present: true},
		{StudentID: "stu-9", Present: true}, // not enrolled
		{StudentID: "stu-2", Present: false},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 3)

	assert.Equal(t, "stu-1", outcomes[0].StudentID)
	assert.Equal(t, ledger.OutcomeCreated, outcomes[0].Status)
	assert.Equal(t, "stu-9", outcomes[1].StudentID)
	assert.Equal(t, ledger.OutcomeError, outcomes[1].Status)
	assert.NotEmpty(t, outcomes[1].Error)
	assert.Equal(t, "stu-2", outcomes[2].StudentID)
	assert.Equal(t, ledger.OutcomeCreated, outcomes[2].Status, "a failed entry never blocks the rest")

	records, err := f.svc.RecordsFor(ctx, f.teacher, ledger.ForClass(f.classID), day(2), day(2))
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMarkBatchRepeatUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MarkBatch(ctx, f.teacher, f.classID, day(2), []ledger.BatchItem{
		{StudentID: "stu-1", Present: false},
	})
	require.NoError(t, err)

	outcomes, err := f.svc.MarkBatch(ctx, f.teacher, f.classID, day(2), []ledger.BatchItem{
		{StudentID: "stu-1", Present: true},
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, ledger.OutcomeUpdated, outcomes[0].Status)
	assert.True(t, outcomes[0].Record.Present)
}

func TestMarkBatchDeniedForUnassignedTeacher(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.MarkBatch(ctx, f.other, f.classID, day(2), []ledger.BatchItem{
		{StudentID: "stu-1", Present: true},
	})
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
}

func TestRecordsForOrderingAndRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, d := range []int{5, 1, 3} {
		_, _, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
			StudentID: "stu-1", ClassID: f.classID, Date: day(d), Present: true,
		})
		require.NoError(t, err)
	}

	records, err := f.svc.RecordsFor(ctx, f.student, ledger.ForStudent("stu-1"), day(1), day(5))
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, day(1), records[0].Date)
	assert.Equal(t, day(3), records[1].Date)
	assert.Equal(t, day(5), records[2].Date)

	// Inclusive bounds.
	records, err = f.svc.RecordsFor(ctx, f.student, ledger.ForStudent("stu-1"), day(3), day(5))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Reversed range yields an empty sequence, not an error.
	records, err = f.svc.RecordsFor(ctx, f.student, ledger.ForStudent("stu-1"), day(5), day(1))
	require.NoError(t, err)
	assert.Empty(t, records)

	// Missing bounds are rejected.
	_, err = f.svc.RecordsFor(ctx, f.student, ledger.ForStudent("stu-1"), ledger.Date{}, day(5))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestRecordsForAuthz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordsFor(ctx, f.student, ledger.ForStudent("stu-2"), day(1), day(5))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "students read only their own attendance")

	_, err = f.svc.RecordsFor(ctx, f.other, ledger.ForClass(f.classID), day(1), day(5))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = f.svc.RecordsFor(ctx, f.teacher, ledger.Global, day(1), day(5))
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "global scope is admin only")

	_, err = f.svc.RecordsFor(ctx, f.admin, ledger.Global, day(1), day(5))
	assert.NoError(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, _, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: false,
	})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.teacher, rec.ID, true, "late arrival")
	require.NoError(t, err)
	assert.True(t, updated.Present)
	assert.Equal(t, "late arrival", updated.Remarks)

	_, err = f.svc.Update(ctx, f.other, rec.ID, false, "")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))

	_, err = f.svc.Update(ctx, f.admin, rec.ID, false, "")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization), "admins do not edit attendance")

	require.NoError(t, f.svc.Delete(ctx, f.admin, rec.ID))
	err = f.svc.Delete(ctx, f.admin, rec.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeletedClassKeepsHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, _, err := f.svc.Mark(ctx, f.teacher, ledger.Mark{
		StudentID: "stu-1", ClassID: f.classID, Date: day(1), Present: true,
	})
	require.NoError(t, err)

	require.NoError(t, f.roster.DeleteClass(ctx, f.admin, f.classID))

	// History stays queryable by student and by global range.
	records, err := f.svc.RecordsFor(ctx, f.admin, ledger.ForStudent("stu-1"), day(1), day(1))
	require.NoError(t, err)
	require.Len(t, records, 1)

	// The owning teacher lost the class, so only an admin may act on the
	// orphaned record.
	_, err = f.svc.Update(ctx, f.teacher, rec.ID, false, "")
	assert.True(t, apperr.Is(err, apperr.KindAuthorization))
	assert.NoError(t, f.svc.Delete(ctx, f.admin, rec.ID))
}
