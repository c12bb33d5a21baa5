package roster

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"studentmanagement/internal/account"
	"studentmanagement/internal/apperr"
)

// PostgresRepository persists classes and membership links in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const classColumns = `id, name, department, teacher_id, created_at, updated_at`

func scanClass(row interface{ Scan(...any) error }) (ClassSection, error) {
	var c ClassSection
	err := row.Scan(&c.ID, &c.Name, &c.Department, &c.TeacherID, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *PostgresRepository) CreateClass(ctx context.Context, c ClassSection) (ClassSection, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classes (id, name, department, teacher_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+classColumns+`
	`, c.ID, c.Name, c.Department, c.TeacherID, c.CreatedAt, c.UpdatedAt)
	cls, err := scanClass(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ClassSection{}, apperr.E(apperr.KindDuplicate, "a class with this name already exists")
		}
		return ClassSection{}, apperr.Wrap(apperr.KindTransient, "creating class", err)
	}
	return cls, nil
}

func (r *PostgresRepository) GetClass(ctx context.Context, id string) (ClassSection, error) {
	cls, err := scanClass(r.db.QueryRowContext(ctx, `SELECT `+classColumns+` FROM classes WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClassSection{}, apperr.E(apperr.KindNotFound, "class not found")
		}
		return ClassSection{}, apperr.Wrap(apperr.KindTransient, "fetching class", err)
	}
	return cls, nil
}

func (r *PostgresRepository) ListClasses(ctx context.Context) ([]ClassSection, error) {
	return r.listClasses(ctx, `SELECT `+classColumns+` FROM classes ORDER BY name ASC, id ASC`)
}

func (r *PostgresRepository) ClassesForTeacher(ctx context.Context, teacherID string) ([]ClassSection, error) {
	return r.listClasses(ctx, `
		SELECT `+classColumns+` FROM classes WHERE teacher_id = $1 ORDER BY name ASC, id ASC
	`, teacherID)
}

func (r *PostgresRepository) StudentsInClass(ctx context.Context, classID string) ([]account.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, enabled, first_name, last_name,
			email, phone, department, admission_number, semester, class_id, created_at, updated_at
		FROM users
		WHERE class_id = $1 AND role = 'STUDENT'
		ORDER BY last_name ASC, first_name ASC, id ASC
	`, classID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing class roster", err)
	}
	defer rows.Close()
	res := []account.User{}
	for rows.Next() {
		var u account.User
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Enabled, &u.FirstName, &u.LastName,
			&u.Email, &u.Phone, &u.Department, &u.AdmissionNumber, &u.Semester, &u.ClassID,
			&u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "scanning roster row", err)
		}
		res = append(res, u)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing class roster", err)
	}
	return res, nil
}

func (r *PostgresRepository) UpdateClassRow(ctx context.Context, c ClassSection) (ClassSection, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE classes SET name = $2, department = $3, teacher_id = $4, updated_at = $5
		WHERE id = $1
		RETURNING `+classColumns+`
	`, c.ID, c.Name, c.Department, c.TeacherID, c.UpdatedAt)
	cls, err := scanClass(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ClassSection{}, apperr.E(apperr.KindNotFound, "class not found")
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ClassSection{}, apperr.E(apperr.KindDuplicate, "a class with this name already exists")
		}
		return ClassSection{}, apperr.Wrap(apperr.KindTransient, "updating class", err)
	}
	return cls, nil
}

func (r *PostgresRepository) DeleteClass(ctx context.Context, id string) error {
	// users.class_id clears via ON DELETE SET NULL; attendance history is
	// intentionally untouched.
	res, err := r.db.ExecContext(ctx, `DELETE FROM classes WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "deleting class", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.E(apperr.KindNotFound, "class not found")
	}
	return nil
}

func (r *PostgresRepository) SetStudentClass(ctx context.Context, studentID string, classID *string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET class_id = $2, updated_at = NOW() WHERE id = $1 AND role = 'STUDENT'
	`, studentID, classID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "assigning student to class", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.E(apperr.KindNotFound, "student not found")
	}
	return nil
}

func (r *PostgresRepository) StudentClassID(ctx context.Context, studentID string) (*string, error) {
	var classID *string
	err := r.db.QueryRowContext(ctx, `
		SELECT class_id FROM users WHERE id = $1 AND role = 'STUDENT'
	`, studentID).Scan(&classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.E(apperr.KindNotFound, "student not found")
		}
		return nil, apperr.Wrap(apperr.KindTransient, "fetching student enrollment", err)
	}
	return classID, nil
}

func (r *PostgresRepository) listClasses(ctx context.Context, query string, args ...any) ([]ClassSection, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing classes", err)
	}
	defer rows.Close()
	res := []ClassSection{}
	for rows.Next() {
		cls, err := scanClass(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "scanning class", err)
		}
		res = append(res, cls)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing classes", err)
	}
	return res, nil
}
