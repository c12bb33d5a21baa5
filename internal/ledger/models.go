package ledger

import "time"

// AttendanceRecord is the central attendance fact: one per
// (student, class, date). Records reference their class by id only, so
// history survives class deletion.
type AttendanceRecord struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	Date      Date      `json:"date"`
	Present   bool      `json:"present"`
	Remarks   string    `json:"remarks,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Mark is the input for recording a single attendance fact.
type Mark struct {
	StudentID string
	ClassID   string
	Date      Date
	Present   bool
	Remarks   string
}

// BatchItem is one student's entry in a whole-class roll call.
type BatchItem struct {
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
	Remarks   string `json:"remarks,omitempty"`
}

// Batch outcome statuses.
const (
	OutcomeCreated = "created"
	OutcomeUpdated = "updated"
	OutcomeError   = "error"
)

// BatchOutcome reports the result of one student's entry in a batch mark.
// Entries are attempted independently; a failed entry never blocks the rest.
type BatchOutcome struct {
	StudentID string            `json:"student_id"`
	Status    string            `json:"status"`
	Record    *AttendanceRecord `json:"record,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Subject scopes an attendance query: a single student, a single class, or
// (both empty) the global admin scope.
type Subject struct {
	StudentID string
	ClassID   string
}

// Global is the admin-wide query scope.
var Global = Subject{}

// ForStudent scopes a query to one student.
func ForStudent(studentID string) Subject { return Subject{StudentID: studentID} }

// ForClass scopes a query to one class.
func ForClass(classID string) Subject { return Subject{ClassID: classID} }
