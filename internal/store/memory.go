package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"studentmanagement/internal/access"
	"studentmanagement/internal/account"
	"studentmanagement/internal/apperr"
	"studentmanagement/internal/ledger"
	"studentmanagement/internal/roster"
)

// Memory is an in-process backend implementing the account, roster and
// ledger repositories. It backs tests and STORE_BACKEND=memory dev runs and
// mirrors the Postgres semantics, including the attendance uniqueness key.
type Memory struct {
	mu      sync.RWMutex
	users   map[string]account.User
	classes map[string]roster.ClassSection
	records map[string]ledger.AttendanceRecord
	// triples indexes record ids by their (student, class, date) key so
	// Upsert stays a single atomic check-and-write under the mutex.
	triples map[string]string
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		users:   make(map[string]account.User),
		classes: make(map[string]roster.ClassSection),
		records: make(map[string]ledger.AttendanceRecord),
		triples: make(map[string]string),
	}
}

var (
	_ account.Repository = (*Memory)(nil)
	_ roster.Repository  = (*Memory)(nil)
	_ ledger.Repository  = (*Memory)(nil)
)

func tripleKey(studentID, classID string, date ledger.Date) string {
	return studentID + "|" + classID + "|" + date.String()
}

// account.Repository

func (m *Memory) CreateUser(_ context.Context, u account.User) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == u.Username {
			return account.User{}, apperr.E(apperr.KindDuplicate, "a user with this username already exists")
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) GetUserByID(_ context.Context, id string) (account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return account.User{}, apperr.E(apperr.KindNotFound, "user not found")
	}
	return u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return account.User{}, apperr.E(apperr.KindNotFound, "user not found")
}

func (m *Memory) ListUsersByRole(_ context.Context, role string) ([]account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []account.User{}
	for _, u := range m.users {
		if u.Role == role {
			res = append(res, u)
		}
	}
	sortUsers(res)
	return res, nil
}

func (m *Memory) UpdateUser(_ context.Context, u account.User) (account.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return account.User{}, apperr.E(apperr.KindNotFound, "user not found")
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return apperr.E(apperr.KindNotFound, "user not found")
	}
	delete(m.users, id)
	return nil
}

func (m *Memory) SearchUsers(_ context.Context, query string) ([]account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	res := []account.User{}
	for _, u := range m.users {
		haystack := strings.ToLower(u.Username + " " + u.FirstName + " " + u.LastName + " " + u.Email)
		if strings.Contains(haystack, q) {
			res = append(res, u)
		}
	}
	sortUsers(res)
	return res, nil
}

// roster.Repository

func (m *Memory) CreateClass(_ context.Context, c roster.ClassSection) (roster.ClassSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.classes {
		if existing.Name == c.Name {
			return roster.ClassSection{}, apperr.E(apperr.KindDuplicate, "a class with this name already exists")
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.classes[c.ID] = c
	return c, nil
}

func (m *Memory) GetClass(_ context.Context, id string) (roster.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.classes[id]
	if !ok {
		return roster.ClassSection{}, apperr.E(apperr.KindNotFound, "class not found")
	}
	return c, nil
}

func (m *Memory) ListClasses(_ context.Context) ([]roster.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []roster.ClassSection{}
	for _, c := range m.classes {
		res = append(res, c)
	}
	sortClasses(res)
	return res, nil
}

func (m *Memory) ClassesForTeacher(_ context.Context, teacherID string) ([]roster.ClassSection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []roster.ClassSection{}
	for _, c := range m.classes {
		if c.TeacherID != nil && *c.TeacherID == teacherID {
			res = append(res, c)
		}
	}
	sortClasses(res)
	return res, nil
}

func (m *Memory) StudentsInClass(_ context.Context, classID string) ([]account.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []account.User{}
	for _, u := range m.users {
		if u.Role == access.RoleStudent && u.ClassID != nil && *u.ClassID == classID {
			res = append(res, u)
		}
	}
	sortUsers(res)
	return res, nil
}

func (m *Memory) UpdateClassRow(_ context.Context, c roster.ClassSection) (roster.ClassSection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[c.ID]; !ok {
		return roster.ClassSection{}, apperr.E(apperr.KindNotFound, "class not found")
	}
	for id, existing := range m.classes {
		if id != c.ID && existing.Name == c.Name {
			return roster.ClassSection{}, apperr.E(apperr.KindDuplicate, "a class with this name already exists")
		}
	}
	m.classes[c.ID] = c
	return c, nil
}

func (m *Memory) DeleteClass(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.classes[id]; !ok {
		return apperr.E(apperr.KindNotFound, "class not found")
	}
	delete(m.classes, id)
	// Unassign students; attendance history keeps the dangling class id.
	for uid, u := range m.users {
		if u.ClassID != nil && *u.ClassID == id {
			u.ClassID = nil
			m.users[uid] = u
		}
	}
	return nil
}

func (m *Memory) SetStudentClass(_ context.Context, studentID string, classID *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[studentID]
	if !ok || u.Role != access.RoleStudent {
		return apperr.E(apperr.KindNotFound, "student not found")
	}
	u.ClassID = classID
	u.UpdatedAt = time.Now().UTC()
	m.users[studentID] = u
	return nil
}

func (m *Memory) StudentClassID(_ context.Context, studentID string) (*string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[studentID]
	if !ok || u.Role != access.RoleStudent {
		return nil, apperr.E(apperr.KindNotFound, "student not found")
	}
	return u.ClassID, nil
}

// ledger.Repository

func (m *Memory) Upsert(_ context.Context, rec ledger.AttendanceRecord) (ledger.AttendanceRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	key := tripleKey(rec.StudentID, rec.ClassID, rec.Date)
	if existingID, ok := m.triples[key]; ok {
		existing := m.records[existingID]
		existing.Present = rec.Present
		existing.Remarks = rec.Remarks
		existing.UpdatedAt = now
		m.records[existingID] = existing
		return existing, false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	m.records[rec.ID] = rec
	m.triples[key] = rec.ID
	return rec, true, nil
}

func (m *Memory) GetRecord(_ context.Context, id string) (ledger.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return ledger.AttendanceRecord{}, apperr.E(apperr.KindNotFound, "attendance record not found")
	}
	return rec, nil
}

func (m *Memory) UpdateRecord(_ context.Context, id string, present bool, remarks string) (ledger.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ledger.AttendanceRecord{}, apperr.E(apperr.KindNotFound, "attendance record not found")
	}
	rec.Present = present
	rec.Remarks = remarks
	rec.UpdatedAt = time.Now().UTC()
	m.records[id] = rec
	return rec, nil
}

func (m *Memory) DeleteRecord(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return apperr.E(apperr.KindNotFound, "attendance record not found")
	}
	delete(m.records, id)
	delete(m.triples, tripleKey(rec.StudentID, rec.ClassID, rec.Date))
	return nil
}

func (m *Memory) ListByStudent(_ context.Context, studentID string, from, to ledger.Date) ([]ledger.AttendanceRecord, error) {
	return m.listRecords(func(rec ledger.AttendanceRecord) bool { return rec.StudentID == studentID }, from, to), nil
}

func (m *Memory) ListByClass(_ context.Context, classID string, from, to ledger.Date) ([]ledger.AttendanceRecord, error) {
	return m.listRecords(func(rec ledger.AttendanceRecord) bool { return rec.ClassID == classID }, from, to), nil
}

func (m *Memory) ListAll(_ context.Context, from, to ledger.Date) ([]ledger.AttendanceRecord, error) {
	return m.listRecords(func(ledger.AttendanceRecord) bool { return true }, from, to), nil
}

func (m *Memory) listRecords(match func(ledger.AttendanceRecord) bool, from, to ledger.Date) []ledger.AttendanceRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := []ledger.AttendanceRecord{}
	for _, rec := range m.records {
		if !match(rec) {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		res = append(res, rec)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].Date.Equal(res[j].Date) {
			return res[i].Date.Before(res[j].Date)
		}
		return res[i].ID < res[j].ID
	})
	return res
}

func sortUsers(users []account.User) {
	sort.Slice(users, func(i, j int) bool {
		if users[i].LastName != users[j].LastName {
			return users[i].LastName < users[j].LastName
		}
		if users[i].FirstName != users[j].FirstName {
			return users[i].FirstName < users[j].FirstName
		}
		return users[i].ID < users[j].ID
	})
}

func sortClasses(classes []roster.ClassSection) {
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
}
