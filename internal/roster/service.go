package roster

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/apperr"
)

type (
	// Repository persists classes and membership links.
	Repository interface {
		CreateClass(ctx context.Context, c ClassSection) (ClassSection, error)
		GetClass(ctx context.Context, id string) (ClassSection, error)
		ListClasses(ctx context.Context) ([]ClassSection, error)
		ClassesForTeacher(ctx context.Context, teacherID string) ([]ClassSection, error)
		// StudentsInClass returns enrolled students ordered by name (id as a
		// stable tiebreak) for deterministic rendering.
		StudentsInClass(ctx context.Context, classID string) ([]account.User, error)
		UpdateClassRow(ctx context.Context, c ClassSection) (ClassSection, error)
		DeleteClass(ctx context.Context, id string) error
		SetStudentClass(ctx context.Context, studentID string, classID *string) error
		// StudentClassID returns the student's current class id, nil when
		// unassigned, or a not-found error when the student is absent.
		StudentClassID(ctx context.Context, studentID string) (*string, error)
	}

	// Users is the slice of the account store the roster needs to validate
	// assignments. account.Repository satisfies it.
	Users interface {
		GetUserByID(ctx context.Context, id string) (account.User, error)
	}

	// Provider answers membership lookups and manages classes.
	Provider struct {
		repo  Repository
		users Users
	}
)

func NewProvider(repo Repository, users Users) *Provider {
	return &Provider{repo: repo, users: users}
}

// ClassesForTeacher returns all sections assigned to the teacher. Teachers
// resolve their own assignments; admins may resolve anyone's. An unknown
// teacher id yields an empty set, not an error.
func (p *Provider) ClassesForTeacher(ctx context.Context, actor access.Actor, teacherID string) ([]ClassSection, error) {
	if d := access.Decide(actor, access.ActionReadRoster, access.Resource{ClassTeacherID: teacherID}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return p.repo.ClassesForTeacher(ctx, teacherID)
}

// StudentsInClass returns the ordered roster of a class. An unknown class id
// yields an empty sequence: this data is read-mostly and the UI degrades
// gracefully instead of failing hard.
func (p *Provider) StudentsInClass(ctx context.Context, actor access.Actor, classID string) ([]account.User, error) {
	cls, err := p.repo.GetClass(ctx, classID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			if d := access.Decide(actor, access.ActionReadRoster, access.Resource{}); d.Allowed {
				return []account.User{}, nil
			}
			return nil, apperr.E(apperr.KindAuthorization, "not allowed to read this roster")
		}
		return nil, err
	}
	if d := access.Decide(actor, access.ActionReadRoster, access.Resource{ClassTeacherID: teacherOf(cls)}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return p.repo.StudentsInClass(ctx, classID)
}

// ClassForStudent returns the student's current class, or nil when the
// student is unknown or unassigned.
func (p *Provider) ClassForStudent(ctx context.Context, actor access.Actor, studentID string) (*ClassSection, error) {
	if d := access.Decide(actor, access.ActionReadRoster, access.Resource{StudentID: studentID}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	classID, err := p.repo.StudentClassID(ctx, studentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if classID == nil {
		return nil, nil
	}
	cls, err := p.repo.GetClass(ctx, *classID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cls, nil
}

// GetClass returns a class by id; admin only.
func (p *Provider) GetClass(ctx context.Context, actor access.Actor, id string) (ClassSection, error) {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return ClassSection{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return p.repo.GetClass(ctx, id)
}

// ListClasses returns all classes; admin only.
func (p *Provider) ListClasses(ctx context.Context, actor access.Actor) ([]ClassSection, error) {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return nil, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return p.repo.ListClasses(ctx)
}

// CreateClass creates a class; admin only. An initial teacher may be set.
func (p *Provider) CreateClass(ctx context.Context, actor access.Actor, nc NewClass) (ClassSection, error) {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return ClassSection{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	nc.Name = strings.TrimSpace(nc.Name)
	if nc.Name == "" {
		return ClassSection{}, apperr.Validation("invalid class",
			apperr.FieldError{Field: "name", Error: "required"})
	}
	if nc.TeacherID != nil {
		if err := p.requireRole(ctx, *nc.TeacherID, access.RoleTeacher, "teacher"); err != nil {
			return ClassSection{}, err
		}
	}
	now := time.Now().UTC()
	return p.repo.CreateClass(ctx, ClassSection{
		ID:         uuid.NewString(),
		Name:       nc.Name,
		Department: strings.TrimSpace(nc.Department),
		TeacherID:  nc.TeacherID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
}

// UpdateClass edits name/department; admin only.
func (p *Provider) UpdateClass(ctx context.Context, actor access.Actor, id string, uc UpdateClass) (ClassSection, error) {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return ClassSection{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	cls, err := p.repo.GetClass(ctx, id)
	if err != nil {
		return ClassSection{}, err
	}
	if uc.Name != nil {
		name := strings.TrimSpace(*uc.Name)
		if name == "" {
			return ClassSection{}, apperr.Validation("invalid class",
				apperr.FieldError{Field: "name", Error: "required"})
		}
		cls.Name = name
	}
	if uc.Department != nil {
		cls.Department = strings.TrimSpace(*uc.Department)
	}
	cls.UpdatedAt = time.Now().UTC()
	return p.repo.UpdateClassRow(ctx, cls)
}

// DeleteClass removes the class row; admin only. Attendance history keeps
// referencing the old id and stays queryable by student or global range.
func (p *Provider) DeleteClass(ctx context.Context, actor access.Actor, id string) error {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return apperr.E(apperr.KindAuthorization, d.Reason)
	}
	return p.repo.DeleteClass(ctx, id)
}

// AssignTeacher sets the owning teacher of a class; admin only.
func (p *Provider) AssignTeacher(ctx context.Context, actor access.Actor, classID, teacherID string) (ClassSection, error) {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return ClassSection{}, apperr.E(apperr.KindAuthorization, d.Reason)
	}
	if err := p.requireRole(ctx, teacherID, access.RoleTeacher, "teacher"); err != nil {
		return ClassSection{}, err
	}
	cls, err := p.repo.GetClass(ctx, classID)
	if err != nil {
		return ClassSection{}, err
	}
	cls.TeacherID = &teacherID
	cls.UpdatedAt = time.Now().UTC()
	return p.repo.UpdateClassRow(ctx, cls)
}

// AssignStudent moves a student into a class; admin only. A student belongs
// to at most one class, so any previous assignment is replaced.
func (p *Provider) AssignStudent(ctx context.Context, actor access.Actor, studentID, classID string) error {
	if d := access.Decide(actor, access.ActionManageClasses, access.Resource{}); !d.Allowed {
		return apperr.E(apperr.KindAuthorization, d.Reason)
	}
	if err := p.requireRole(ctx, studentID, access.RoleStudent, "student"); err != nil {
		return err
	}
	if _, err := p.repo.GetClass(ctx, classID); err != nil {
		return err
	}
	return p.repo.SetStudentClass(ctx, studentID, &classID)
}

// ClassTeacherID implements the ledger's roster dependency: the owning
// teacher's id, "" when unassigned, or a not-found error for absent classes.
func (p *Provider) ClassTeacherID(ctx context.Context, classID string) (string, error) {
	cls, err := p.repo.GetClass(ctx, classID)
	if err != nil {
		return "", err
	}
	return teacherOf(cls), nil
}

// IsEnrolled reports whether the student currently belongs to the class.
func (p *Provider) IsEnrolled(ctx context.Context, studentID, classID string) (bool, error) {
	current, err := p.repo.StudentClassID(ctx, studentID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	return current != nil && *current == classID, nil
}

func (p *Provider) requireRole(ctx context.Context, userID, role, label string) error {
	usr, err := p.users.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return apperr.E(apperr.KindNotFound, label+" not found")
		}
		return err
	}
	if usr.Role != role {
		return apperr.Validation("invalid assignment",
			apperr.FieldError{Field: label + "_id", Error: "user is not a " + label})
	}
	return nil
}

func teacherOf(cls ClassSection) string {
	if cls.TeacherID == nil {
		return ""
	}
	return *cls.TeacherID
}
