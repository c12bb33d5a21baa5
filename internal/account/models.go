// Package account holds user identities and role resolution. A user is an
// admin, a teacher or a student; students additionally carry their single
// class enrollment.
package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"studentmanagement/internal/access"
	"studentmanagement/internal/apperr"
)

// User is an identity with a role. PasswordHash never leaves the server.
type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    []byte    `json:"-"`
	Role            string    `json:"role"`
	Enabled         bool      `json:"enabled"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Department      string    `json:"department,omitempty"`
	AdmissionNumber string    `json:"admission_number,omitempty"`
	Semester        string    `json:"semester,omitempty"`
	ClassID         *string   `json:"class_id,omitempty"` // students only, at most one class
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) IsAdmin() bool   { return u.Role == access.RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == access.RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == access.RoleStudent }

// Actor converts the user into the gate's caller identity.
func (u *User) Actor() access.Actor {
	return access.Actor{ID: u.ID, Role: u.Role}
}

// SetPassword hashes and stores the password.
func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

// CheckPassword compares the password against the stored hash.
func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// NewUser carries the information needed to create a user.
type NewUser struct {
	Username        string
	Password        string
	Role            string
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	Department      string
	AdmissionNumber string
	Semester        string
}

// Validate normalizes and checks the input.
func (n *NewUser) Validate() error {
	n.Username = strings.ToLower(strings.TrimSpace(n.Username))
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.LastName = strings.TrimSpace(n.LastName)

	var fields []apperr.FieldError
	if len(n.Username) < 3 {
		fields = append(fields, apperr.FieldError{Field: "username", Error: "at least 3 characters required"})
	}
	if len(n.Password) < 8 {
		fields = append(fields, apperr.FieldError{Field: "password", Error: "at least 8 characters required"})
	}
	switch n.Role {
	case access.RoleAdmin, access.RoleTeacher, access.RoleStudent:
	default:
		fields = append(fields, apperr.FieldError{Field: "role", Error: "must be ADMIN, TEACHER or STUDENT"})
	}
	if fields != nil {
		return apperr.Validation("invalid user", fields...)
	}
	return nil
}

// UpdateUser defines the admin-editable fields; nil leaves a field unchanged.
// Role is deliberately absent: it is immutable after creation.
type UpdateUser struct {
	FirstName       *string
	LastName        *string
	Email           *string
	Phone           *string
	Department      *string
	AdmissionNumber *string
	Semester        *string
	Enabled         *bool
	Password        *string
}

// ProfileUpdate is the subset a user may change on their own profile.
type ProfileUpdate struct {
	Email *string
	Phone *string
}
