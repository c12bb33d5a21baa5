// Package roster resolves class membership: which students belong to a class
// and which classes a teacher is assigned to. It also carries the admin-side
// class management operations.
package roster

import "time"

// ClassSection is a class with at most one owning teacher. It exists
// independently of enrolled students, and attendance history references it
// weakly: deleting a class never deletes attendance facts.
type ClassSection struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	TeacherID  *string   `json:"teacher_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewClass carries the information needed to create a class.
type NewClass struct {
	Name       string
	Department string
	TeacherID  *string
}

// UpdateClass defines the editable class fields; nil leaves a field
// unchanged. Setting TeacherID to a pointer to "" clears the assignment.
type UpdateClass struct {
	Name       *string
	Department *string
}
