package httpapi

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"studentrecords/internal/accounts"
	"studentrecords/internal/analytics"
	"studentrecords/internal/attendance"
	"studentrecords/internal/department"
	"studentrecords/internal/store"
)

type memAccounts struct {
	mu       sync.Mutex
	depts    map[string]bool
	students map[string]accounts.Student
	staff    map[string]accounts.Staff
}

func newMemAccounts(depts ...string) *memAccounts {
	m := &memAccounts{depts: map[string]bool{}, students: map[string]accounts.Student{}, staff: map[string]accounts.Staff{}}
	for _, d := range depts {
		m.depts[d] = true
	}
	return m
}

func (m *memAccounts) setAdmin(id string, admin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := m.staff[id]
	st.IsAdmin = admin
	m.staff[id] = st
}

func (m *memAccounts) IsAdmin(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.staff[id].IsAdmin, nil
}

func (m *memAccounts) DepartmentExists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depts[name], nil
}

func (m *memAccounts) CreateStudent(_ context.Context, s accounts.Student) (accounts.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.students {
		if o.Email == s.Email {
			return accounts.Student{}, store.ErrDuplicate
		}
	}
	s.ID = uuid.NewString()
	s.AccountType = accounts.TypeStudent
	s.CreatedAt = time.Now()
	m.students[s.ID] = s
	return s, nil
}

func (m *memAccounts) GetStudent(_ context.Context, id string) (accounts.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.students[id]
	if !ok {
		return accounts.Student{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memAccounts) FindStudentByEmail(_ context.Context, email string) (accounts.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.students {
		if s.Email == email {
			return s, nil
		}
	}
	return accounts.Student{}, store.ErrNotFound
}

func (m *memAccounts) ListStudents(context.Context) ([]accounts.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []accounts.Student{}
	for _, s := range m.students {
		out = append(out, s)
	}
	return out, nil
}

func (m *memAccounts) UpdateStudent(_ context.Context, s accounts.Student) (accounts.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.ID]; !ok {
		return accounts.Student{}, store.ErrNotFound
	}
	m.students[s.ID] = s
	return s, nil
}

func (m *memAccounts) DeleteStudent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.students, id)
	return nil
}

func (m *memAccounts) CreateStaff(_ context.Context, s accounts.Staff) (accounts.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.staff {
		if o.Email == s.Email {
			return accounts.Staff{}, store.ErrDuplicate
		}
	}
	s.ID = uuid.NewString()
	s.AccountType = accounts.TypeStaff
	s.CreatedAt = time.Now()
	m.staff[s.ID] = s
	return s, nil
}

func (m *memAccounts) FindStaffByID(_ context.Context, id string) (accounts.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return accounts.Staff{}, store.ErrNotFound
	}
	return s, nil
}

func (m *memAccounts) FindStaffByEmail(_ context.Context, email string) (accounts.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.staff {
		if s.Email == email {
			return s, nil
		}
	}
	return accounts.Staff{}, store.ErrNotFound
}

func (m *memAccounts) ListStaff(context.Context) ([]accounts.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []accounts.Staff{}
	for _, s := range m.staff {
		out = append(out, s)
	}
	return out, nil
}

func (m *memAccounts) UpdateStaff(_ context.Context, s accounts.Staff) (accounts.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staff[s.ID]; !ok {
		return accounts.Staff{}, store.ErrNotFound
	}
	m.staff[s.ID] = s
	return s, nil
}

func (m *memAccounts) DeleteStaff(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staff[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.staff, id)
	return nil
}

type memDepts struct {
	mu         sync.Mutex
	names      map[string]bool
	referenced map[string]bool
}

func newMemDepts(names ...string) *memDepts {
	m := &memDepts{names: map[string]bool{}, referenced: map[string]bool{}}
	for _, n := range names {
		m.names[n] = true
	}
	return m
}

func (m *memDepts) List(context.Context) ([]department.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []department.Department{}
	for n := range m.names {
		out = append(out, department.Department{Name: n})
	}
	return out, nil
}

func (m *memDepts) Get(_ context.Context, name string) (department.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.names[name] {
		return department.Department{}, store.ErrNotFound
	}
	return department.Department{Name: name}, nil
}

func (m *memDepts) Create(_ context.Context, name string) (department.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.names[name] {
		return department.Department{}, store.ErrDuplicate
	}
	m.names[name] = true
	return department.Department{Name: name, CreatedAt: time.Now()}, nil
}

func (m *memDepts) Rename(_ context.Context, from, to string) (department.RenameResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.names[from] {
		return department.RenameResult{}, store.ErrNotFound
	}
	if m.names[to] {
		return department.RenameResult{}, store.ErrDuplicate
	}
	delete(m.names, from)
	m.names[to] = true
	return department.RenameResult{Department: department.Department{Name: to}}, nil
}

func (m *memDepts) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.names[name] {
		return store.ErrNotFound
	}
	if m.referenced[name] {
		return department.ErrReferenced
	}
	delete(m.names, name)
	return nil
}

type memAttendance struct {
	mu      sync.Mutex
	records []attendance.Record
}

func (m *memAttendance) InsertMany(_ context.Context, entries []attendance.Entry) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]attendance.Record, 0, len(entries))
	for _, e := range entries {
		out = append(out, attendance.Record{ID: uuid.NewString(), StudentID: e.StudentID, Date: e.Date, Present: bool(e.Present)})
	}
	m.records = append(m.records, out...)
	return out, nil
}

func (m *memAttendance) List(context.Context) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]attendance.Record{}, m.records...), nil
}

func (m *memAttendance) ByDate(_ context.Context, d attendance.Date) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []attendance.Record{}
	for _, r := range m.records {
		if r.Date.String() == d.String() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memAttendance) ByStudent(_ context.Context, studentID string) ([]attendance.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []attendance.Record{}
	for _, r := range m.records {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memAttendance) SetPresence(_ context.Context, d attendance.Date, studentID string, present attendance.Presence) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, r := range m.records {
		if r.Date.String() == d.String() && r.StudentID == studentID {
			m.records[i].Present = bool(present)
			n++
		}
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

type staticSource struct {
	counts []analytics.GroupCount
}

func (s staticSource) StudentCounts(context.Context) ([]analytics.GroupCount, error) {
	return s.counts, nil
}

func (staticSource) Absentees(context.Context, attendance.Date, analytics.Filter) ([]analytics.Absentee, error) {
	return nil, nil
}

func (staticSource) AttendanceTallies(context.Context, attendance.Date, attendance.Date, analytics.Filter) ([]analytics.AttendanceTally, error) {
	return nil, nil
}

func (staticSource) IntakeRows(context.Context) ([]analytics.IntakeRow, error) {
	return nil, nil
}

type memRegistry struct {
	mu      sync.Mutex
	revoked map[string]bool
}

func (r *memRegistry) Revoke(_ context.Context, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = true
	return nil
}

func (r *memRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

type fixedHealth bool

func (h fixedHealth) Healthy(context.Context) bool { return bool(h) }
