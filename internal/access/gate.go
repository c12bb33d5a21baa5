// Package access is the authorization gate guarding roster and ledger
// operations. Decide is a pure function of the caller, the action and the
// target resource; it performs no I/O, so both the API layer and the services
// can consult it cheaply. Unknown combinations deny.
package access

// Roles understood by the gate.
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleStudent = "STUDENT"
)

// Action identifies the operation being attempted.
type Action string

const (
	ActionReadAttendance   Action = "attendance:read"
	ActionCreateAttendance Action = "attendance:create"
	ActionUpdateAttendance Action = "attendance:update"
	ActionDeleteAttendance Action = "attendance:delete"
	ActionReadRoster       Action = "roster:read"
	ActionManageClasses    Action = "classes:manage"
	ActionManageAccounts   Action = "accounts:manage"
)

// Actor is the resolved caller identity.
type Actor struct {
	ID   string
	Role string
}

// Resource describes the target of an action. Ownership fields are resolved
// by the caller (via the roster) before invoking Decide; empty fields mean
// "not applicable".
type Resource struct {
	// ClassTeacherID is the id of the teacher owning the target class, when
	// the action touches a class or a record within one.
	ClassTeacherID string
	// StudentID is the student a record or roster lookup is addressed to.
	StudentID string
}

// Decision is the gate's verdict. Reason is stable and safe to surface.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision { return Decision{Allowed: true, Reason: "allowed"} }

func deny(reason string) Decision { return Decision{Reason: reason} }

// Decide authorizes action against the resource for the given actor.
// It fails closed: anything outside the explicit rules denies.
func Decide(actor Actor, action Action, res Resource) Decision {
	if actor.ID == "" {
		return deny("unauthenticated caller")
	}

	switch action {
	case ActionReadAttendance:
		switch actor.Role {
		case RoleAdmin:
			return allow()
		case RoleTeacher:
			if res.ClassTeacherID == actor.ID {
				return allow()
			}
			return deny("teacher is not assigned to this class")
		case RoleStudent:
			if res.StudentID == actor.ID {
				return allow()
			}
			return deny("students may only read their own attendance")
		}

	case ActionCreateAttendance, ActionUpdateAttendance:
		// Admins manage people and classes, not day-to-day attendance.
		if actor.Role == RoleTeacher && res.ClassTeacherID == actor.ID {
			return allow()
		}
		if actor.Role == RoleTeacher {
			return deny("teacher is not assigned to this class")
		}
		return deny("only the assigned teacher may record attendance")

	case ActionDeleteAttendance:
		if actor.Role == RoleAdmin {
			return allow()
		}
		if actor.Role == RoleTeacher && res.ClassTeacherID == actor.ID {
			return allow()
		}
		if actor.Role == RoleTeacher {
			return deny("teacher is not assigned to this class")
		}
		return deny("only the assigned teacher or an admin may delete attendance")

	case ActionReadRoster:
		switch actor.Role {
		case RoleAdmin:
			return allow()
		case RoleTeacher:
			if res.ClassTeacherID == actor.ID {
				return allow()
			}
			return deny("teacher is not assigned to this class")
		case RoleStudent:
			if res.StudentID == actor.ID {
				return allow()
			}
			return deny("students may only read their own enrollment")
		}

	case ActionManageClasses, ActionManageAccounts:
		if actor.Role == RoleAdmin {
			return allow()
		}
		return deny("admin role required")
	}

	return deny("operation not permitted for role " + actor.Role)
}
