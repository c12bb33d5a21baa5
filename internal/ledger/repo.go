package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"studentmanagement/internal/apperr"
)

// PostgresRepository persists attendance facts in Postgres. The composite
// unique key on (student_id, class_id, date) makes Upsert an atomic
// check-and-write: double-submits resolve to a single row.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repo.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const recordColumns = `id, student_id, class_id, date, present, remarks, created_at, updated_at`

func (r *PostgresRepository) Upsert(ctx context.Context, rec AttendanceRecord) (AttendanceRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	var created bool
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records (id, student_id, class_id, date, present, remarks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		ON CONFLICT (student_id, class_id, date) DO UPDATE SET
			present = EXCLUDED.present,
			remarks = EXCLUDED.remarks,
			updated_at = EXCLUDED.updated_at
		RETURNING `+recordColumns+`, (xmax = 0) AS inserted
	`, rec.ID, rec.StudentID, rec.ClassID, rec.Date, rec.Present, rec.Remarks, now)
	var out AttendanceRecord
	if err := row.Scan(&out.ID, &out.StudentID, &out.ClassID, &out.Date, &out.Present, &out.Remarks,
		&out.CreatedAt, &out.UpdatedAt, &created); err != nil {
		return AttendanceRecord{}, false, apperr.Wrap(apperr.KindTransient, "upserting attendance record", err)
	}
	return out, created, nil
}

func (r *PostgresRepository) GetRecord(ctx context.Context, id string) (AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM attendance_records WHERE id = $1
	`, id)
	var rec AttendanceRecord
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &rec.Present, &rec.Remarks,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AttendanceRecord{}, apperr.E(apperr.KindNotFound, "attendance record not found")
		}
		return AttendanceRecord{}, apperr.Wrap(apperr.KindTransient, "fetching attendance record", err)
	}
	return rec, nil
}

func (r *PostgresRepository) UpdateRecord(ctx context.Context, id string, present bool, remarks string) (AttendanceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE attendance_records
		SET present = $2, remarks = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+recordColumns+`
	`, id, present, remarks)
	var rec AttendanceRecord
	if err := row.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &rec.Present, &rec.Remarks,
		&rec.CreatedAt, &rec.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return AttendanceRecord{}, apperr.E(apperr.KindNotFound, "attendance record not found")
		}
		return AttendanceRecord{}, apperr.Wrap(apperr.KindTransient, "updating attendance record", err)
	}
	return rec, nil
}

func (r *PostgresRepository) DeleteRecord(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM attendance_records WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "deleting attendance record", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.E(apperr.KindNotFound, "attendance record not found")
	}
	return nil
}

func (r *PostgresRepository) ListByStudent(ctx context.Context, studentID string, from, to Date) ([]AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE student_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC, id ASC
	`, studentID, from, to)
}

func (r *PostgresRepository) ListByClass(ctx context.Context, classID string, from, to Date) ([]AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE class_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC, id ASC
	`, classID, from, to)
}

func (r *PostgresRepository) ListAll(ctx context.Context, from, to Date) ([]AttendanceRecord, error) {
	return r.list(ctx, `
		SELECT `+recordColumns+` FROM attendance_records
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC, id ASC
	`, from, to)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing attendance records", err)
	}
	defer rows.Close()
	res := []AttendanceRecord{}
	for rows.Next() {
		var rec AttendanceRecord
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.ClassID, &rec.Date, &rec.Present, &rec.Remarks,
			&rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "scanning attendance record", err)
		}
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing attendance records", err)
	}
	return res, nil
}
