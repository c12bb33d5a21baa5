package account

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"studentmanagement/internal/apperr"
)

// PostgresRepository persists users in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, username, password_hash, role, enabled, first_name, last_name,
	email, phone, department, admission_number, semester, class_id, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.Enabled, &u.FirstName, &u.LastName,
		&u.Email, &u.Phone, &u.Department, &u.AdmissionNumber, &u.Semester, &u.ClassID, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (r *PostgresRepository) CreateUser(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, enabled, first_name, last_name,
			email, phone, department, admission_number, semester, class_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+userColumns+`
	`, u.ID, u.Username, u.PasswordHash, u.Role, u.Enabled, u.FirstName, u.LastName,
		u.Email, u.Phone, u.Department, u.AdmissionNumber, u.Semester, u.ClassID, u.CreatedAt, u.UpdatedAt)
	usr, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, apperr.E(apperr.KindDuplicate, "a user with this username already exists")
		}
		return User{}, apperr.Wrap(apperr.KindTransient, "creating user", err)
	}
	return usr, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	usr, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.E(apperr.KindNotFound, "user not found")
		}
		return User{}, apperr.Wrap(apperr.KindTransient, "fetching user", err)
	}
	return usr, nil
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	usr, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.E(apperr.KindNotFound, "user not found")
		}
		return User{}, apperr.Wrap(apperr.KindTransient, "fetching user", err)
	}
	return usr, nil
}

func (r *PostgresRepository) ListUsersByRole(ctx context.Context, role string) ([]User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+` FROM users WHERE role = $1
		ORDER BY last_name ASC, first_name ASC, id ASC
	`, role)
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET
			password_hash = $2, enabled = $3, first_name = $4, last_name = $5, email = $6,
			phone = $7, department = $8, admission_number = $9, semester = $10, class_id = $11,
			updated_at = $12
		WHERE id = $1
		RETURNING `+userColumns+`
	`, u.ID, u.PasswordHash, u.Enabled, u.FirstName, u.LastName, u.Email,
		u.Phone, u.Department, u.AdmissionNumber, u.Semester, u.ClassID, u.UpdatedAt)
	usr, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, apperr.E(apperr.KindNotFound, "user not found")
		}
		return User{}, apperr.Wrap(apperr.KindTransient, "updating user", err)
	}
	return usr, nil
}

func (r *PostgresRepository) DeleteUser(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "deleting user", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	return nil
}

func (r *PostgresRepository) SearchUsers(ctx context.Context, query string) ([]User, error) {
	pattern := "%" + query + "%"
	return r.list(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE username ILIKE $1 OR first_name ILIKE $1 OR last_name ILIKE $1 OR email ILIKE $1
		ORDER BY last_name ASC, first_name ASC, id ASC
	`, pattern)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing users", err)
	}
	defer rows.Close()
	res := []User{}
	for rows.Next() {
		usr, err := scanUser(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindTransient, "scanning user", err)
		}
		res = append(res, usr)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "listing users", err)
	}
	return res, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
