package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentmanagement/internal/access"
	"studentmanagement/internal/apperr"
)

type (
	// Repository persists users. CreateUser returns a duplicate error when
	// the username is taken.
	Repository interface {
		CreateUser(ctx context.Context, u User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByUsername(ctx context.Context, username string) (User, error)
		ListUsersByRole(ctx context.Context, role string) ([]User, error)
		UpdateUser(ctx context.Context, u User) (User, error)
		DeleteUser(ctx context.Context, id string) error
		// SearchUsers matches the query case-insensitively against username,
		// name and email.
		SearchUsers(ctx context.Context, query string) ([]User, error)
	}

	// Service resolves identities and handles admin-side user management.
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate checks credentials and returns the user. Unknown usernames,
// wrong passwords and disabled accounts all fail the same way so callers
// cannot probe for accounts.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	badCredentials := apperr.E(apperr.KindAuthentication, "invalid username or password")

	usr, err := s.repo.GetUserByUsername(ctx, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return User{}, badCredentials
		}
		return User{}, err
	}
	if err := usr.CheckPassword(password); err != nil {
		return User{}, badCredentials
	}
	if !usr.Enabled {
		return User{}, badCredentials
	}
	return usr, nil
}

// GetByID returns a user by id.
func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetUserByID(ctx, id)
}

// Create registers a new user; admin only.
func (s *Service) Create(ctx context.Context, actor access.Actor, nu NewUser) (User, error) {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return User{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	if err := nu.Validate(); err != nil {
		return User{}, err
	}

	now := time.Now().UTC()
	usr := User{
		ID:              uuid.NewString(),
		Username:        nu.Username,
		Role:            nu.Role,
		Enabled:         true,
		FirstName:       nu.FirstName,
		LastName:        nu.LastName,
		Email:           nu.Email,
		Phone:           nu.Phone,
		Department:      nu.Department,
		AdmissionNumber: nu.AdmissionNumber,
		Semester:        nu.Semester,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, err
	}
	return s.repo.CreateUser(ctx, usr)
}

// ListByRole lists users with the given role; admin only.
func (s *Service) ListByRole(ctx context.Context, actor access.Actor, role string) ([]User, error) {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return s.repo.ListUsersByRole(ctx, role)
}

// Get returns any user by id; admin only.
func (s *Service) Get(ctx context.Context, actor access.Actor, id string) (User, error) {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return User{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return s.repo.GetUserByID(ctx, id)
}

// Update applies admin edits to a user. Role never changes.
func (s *Service) Update(ctx context.Context, actor access.Actor, id string, uu UpdateUser) (User, error) {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return User{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	usr, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	applyString(&usr.FirstName, uu.FirstName)
	applyString(&usr.LastName, uu.LastName)
	applyString(&usr.Email, uu.Email)
	applyString(&usr.Phone, uu.Phone)
	applyString(&usr.Department, uu.Department)
	applyString(&usr.AdmissionNumber, uu.AdmissionNumber)
	applyString(&usr.Semester, uu.Semester)
	if uu.Enabled != nil {
		usr.Enabled = *uu.Enabled
	}
	if uu.Password != nil {
		if len(*uu.Password) < 8 {
			return User{}, apperr.Validation("invalid user",
				apperr.FieldError{Field: "password", Error: "at least 8 characters required"})
		}
		if err := usr.SetPassword(*uu.Password); err != nil {
			return User{}, err
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateUser(ctx, usr)
}

// Delete removes a user; admin only. Admins cannot delete themselves.
func (s *Service) Delete(ctx context.Context, actor access.Actor, id string) error {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return apperr.E(apperr.KindAuthorization, d.Reason)
	}
	if id == actor.ID {
		return apperr.Validation("cannot delete your own account")
	}
	return s.repo.DeleteUser(ctx, id)
}

// Search matches users by username, name or email; admin only.
func (s *Service) Search(ctx context.Context, actor access.Actor, query string) ([]User, error) {
	if d := access.Decide(actor, access.ActionManageAccounts, access.Resource{}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []User{}, nil
	}
	return s.repo.SearchUsers(ctx, query)
}

// UpdateProfile lets any authenticated user change their own contact fields.
func (s *Service) UpdateProfile(ctx context.Context, actor access.Actor, pu ProfileUpdate) (User, error) {
	usr, err := s.repo.GetUserByID(ctx, actor.ID)
	if err != nil {
		return User{}, err
	}
	applyString(&usr.Email, pu.Email)
	applyString(&usr.Phone, pu.Phone)
	usr.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateUser(ctx, usr)
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
// A blank password skips bootstrapping.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if password == "" {
		return nil
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !apperr.Is(err, apperr.KindNotFound) {
		return err
	}

	now := time.Now().UTC()
	usr := User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      access.RoleAdmin,
		Enabled:   true,
		FirstName: "Administrator",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(password); err != nil {
		return err
	}
	_, err := s.repo.CreateUser(ctx, usr)
	return err
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}
