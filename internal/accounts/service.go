package accounts

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"studentrecords/internal/apperr"
	"studentrecords/internal/auth"
	"studentrecords/internal/store"
)

// Store is the persistence the service needs. *Repository satisfies it.
type Store interface {
	DepartmentExists(ctx context.Context, name string) (bool, error)

	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	FindStudentByEmail(ctx context.Context, email string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	UpdateStudent(ctx context.Context, s Student) (Student, error)
	DeleteStudent(ctx context.Context, id string) error

	CreateStaff(ctx context.Context, s Staff) (Staff, error)
	FindStaffByID(ctx context.Context, id string) (Staff, error)
	FindStaffByEmail(ctx context.Context, email string) (Staff, error)
	ListStaff(ctx context.Context) ([]Staff, error)
	UpdateStaff(ctx context.Context, s Staff) (Staff, error)
	DeleteStaff(ctx context.Context, id string) error
}

var (
	errInvalidCredentials = apperr.Unauthenticated("invalid_credentials", "Invalid credentials")
	errUnknownDepartment  = apperr.PermissionDenied("Forbidden, department doesn't exist")
	errEmailTaken         = apperr.Conflict("email already exists")
	errStudentNotFound    = apperr.NotFound("Student not found.")
	errStaffNotFound      = apperr.NotFound("Staff member not found.")
)

// dummyHash is verified against when no account matches, so unknown emails
// cost the same as wrong passwords.
var dummyHash = sync.OnceValue(func() string {
	h, _ := auth.HashPassword("not-a-real-password")
	return h
})

// Service implements registration, login and account maintenance.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) requireDepartment(ctx context.Context, name string) error {
	ok, err := s.store.DepartmentExists(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		s.log.WarnContext(ctx, "department does not exist", "dept", name)
		return errUnknownDepartment
	}
	return nil
}

// departmentGone reports a department that vanished between the existence
// check and the write.
func (s *Service) departmentGone(ctx context.Context, name string) error {
	s.log.WarnContext(ctx, "department removed during write", "dept", name)
	return errUnknownDepartment
}

// RegisterStudent creates a student account. The department must exist and
// the email must be unused.
func (s *Service) RegisterStudent(ctx context.Context, in StudentInput) (Student, error) {
	if err := s.requireDepartment(ctx, in.Dept); err != nil {
		return Student{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Student{}, err
	}
	created, err := s.store.CreateStudent(ctx, Student{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		Dept:         in.Dept,
		Batch:        in.Batch,
		Sem:          in.Sem,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		s.log.WarnContext(ctx, "email already exists", "email", in.Email)
		return Student{}, errEmailTaken
	}
	if errors.Is(err, store.ErrMissingReference) {
		return Student{}, s.departmentGone(ctx, in.Dept)
	}
	if err != nil {
		return Student{}, err
	}
	s.log.InfoContext(ctx, "student registered", "student_id", created.ID)
	return created, nil
}

// RegisterStaff creates a staff account.
func (s *Service) RegisterStaff(ctx context.Context, in StaffInput) (Staff, error) {
	if err := s.requireDepartment(ctx, in.Dept); err != nil {
		return Staff{}, err
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return Staff{}, err
	}
	created, err := s.store.CreateStaff(ctx, Staff{
		Email:        in.Email,
		Name:         in.Name,
		Phone:        in.Phone,
		Dept:         in.Dept,
		IsAdmin:      in.IsAdmin,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrDuplicate) {
		s.log.WarnContext(ctx, "email already exists", "email", in.Email)
		return Staff{}, errEmailTaken
	}
	if errors.Is(err, store.ErrMissingReference) {
		return Staff{}, s.departmentGone(ctx, in.Dept)
	}
	if err != nil {
		return Staff{}, err
	}
	s.log.InfoContext(ctx, "staff registered", "staff_id", created.ID, "is_admin", created.IsAdmin)
	return created, nil
}

// Login verifies credentials. Staff accounts are searched before students
// unless accountType narrows the search to one kind.
func (s *Service) Login(ctx context.Context, email, password, accountType string) (Identity, error) {
	switch accountType {
	case "", TypeStaff, TypeStudent:
	default:
		return Identity{}, apperr.Validation("account_type must be staff or student")
	}

	if accountType != TypeStudent {
		staff, err := s.store.FindStaffByEmail(ctx, email)
		switch {
		case err == nil:
			return s.verify(ctx, staff.PasswordHash, password, Identity{ID: staff.ID, AccountType: TypeStaff})
		case !errors.Is(err, store.ErrNotFound):
			return Identity{}, err
		}
	}
	if accountType != TypeStaff {
		student, err := s.store.FindStudentByEmail(ctx, email)
		switch {
		case err == nil:
			return s.verify(ctx, student.PasswordHash, password, Identity{ID: student.ID, AccountType: TypeStudent})
		case !errors.Is(err, store.ErrNotFound):
			return Identity{}, err
		}
	}

	_ = auth.CheckPassword(dummyHash(), password)
	s.log.WarnContext(ctx, "login for unknown email")
	return Identity{}, errInvalidCredentials
}

func (s *Service) verify(ctx context.Context, hash, password string, id Identity) (Identity, error) {
	if err := auth.CheckPassword(hash, password); err != nil {
		if errors.Is(err, auth.ErrMalformedHash) {
			s.log.ErrorContext(ctx, "stored password hash is malformed", "account_type", id.AccountType, "id", id.ID)
		}
		s.log.WarnContext(ctx, "invalid credentials", "account_type", id.AccountType, "id", id.ID)
		return Identity{}, errInvalidCredentials
	}
	s.log.InfoContext(ctx, "login successful", "account_type", id.AccountType, "id", id.ID)
	return id, nil
}

// GetStudent returns one student.
func (s *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	st, err := s.store.GetStudent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Student{}, errStudentNotFound
	}
	return st, err
}

// ListStudents returns every student.
func (s *Service) ListStudents(ctx context.Context) ([]Student, error) {
	return s.store.ListStudents(ctx)
}

// UpdateStudent applies a partial update. A new password is hashed before it
// is stored.
func (s *Service) UpdateStudent(ctx context.Context, id string, p StudentPatch) (Student, error) {
	st, err := s.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	if p.Dept != nil && *p.Dept != st.Dept {
		if err := s.requireDepartment(ctx, *p.Dept); err != nil {
			return Student{}, err
		}
	}
	setString(&st.Email, p.Email)
	setString(&st.Name, p.Name)
	setString(&st.Dept, p.Dept)
	if p.Phone != nil {
		st.Phone = *p.Phone
	}
	if p.Batch != nil {
		st.Batch = *p.Batch
	}
	if p.Sem != nil {
		st.Sem = *p.Sem
	}
	if p.Password != nil {
		if st.PasswordHash, err = auth.HashPassword(*p.Password); err != nil {
			return Student{}, err
		}
	}
	updated, err := s.store.UpdateStudent(ctx, st)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return Student{}, errEmailTaken
	case errors.Is(err, store.ErrMissingReference):
		return Student{}, s.departmentGone(ctx, st.Dept)
	case errors.Is(err, store.ErrNotFound):
		return Student{}, errStudentNotFound
	case err != nil:
		return Student{}, err
	}
	s.log.InfoContext(ctx, "student updated", "student_id", id)
	return updated, nil
}

// DeleteStudent removes a student.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	err := s.store.DeleteStudent(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errStudentNotFound
	}
	if err == nil {
		s.log.InfoContext(ctx, "student deleted", "student_id", id)
	}
	return err
}

// GetStaff returns one staff member.
func (s *Service) GetStaff(ctx context.Context, id string) (Staff, error) {
	st, err := s.store.FindStaffByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Staff{}, errStaffNotFound
	}
	return st, err
}

// ListStaff returns every staff member.
func (s *Service) ListStaff(ctx context.Context) ([]Staff, error) {
	return s.store.ListStaff(ctx)
}

// UpdateStaff applies a partial update on behalf of callerID. Only an admin
// may change the is_admin flag.
func (s *Service) UpdateStaff(ctx context.Context, callerID, id string, p StaffPatch) (Staff, error) {
	st, err := s.GetStaff(ctx, id)
	if err != nil {
		return Staff{}, err
	}
	if p.IsAdmin != nil && *p.IsAdmin != st.IsAdmin {
		caller, err := s.store.FindStaffByID(ctx, callerID)
		if err != nil || !caller.IsAdmin {
			s.log.WarnContext(ctx, "non-admin tried to change admin flag", "caller_id", callerID, "staff_id", id)
			return Staff{}, apperr.PermissionDenied("Only an admin can change admin rights.")
		}
		st.IsAdmin = *p.IsAdmin
	}
	if p.Dept != nil && *p.Dept != st.Dept {
		if err := s.requireDepartment(ctx, *p.Dept); err != nil {
			return Staff{}, err
		}
	}
	setString(&st.Email, p.Email)
	setString(&st.Name, p.Name)
	setString(&st.Dept, p.Dept)
	if p.Phone != nil {
		st.Phone = *p.Phone
	}
	if p.Password != nil {
		if st.PasswordHash, err = auth.HashPassword(*p.Password); err != nil {
			return Staff{}, err
		}
	}
	updated, err := s.store.UpdateStaff(ctx, st)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return Staff{}, errEmailTaken
	case errors.Is(err, store.ErrMissingReference):
		return Staff{}, s.departmentGone(ctx, st.Dept)
	case errors.Is(err, store.ErrNotFound):
		return Staff{}, errStaffNotFound
	case err != nil:
		return Staff{}, err
	}
	s.log.InfoContext(ctx, "staff updated", "staff_id", id)
	return updated, nil
}

// DeleteStaff removes a staff member.
func (s *Service) DeleteStaff(ctx context.Context, id string) error {
	err := s.store.DeleteStaff(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errStaffNotFound
	}
	if err == nil {
		s.log.InfoContext(ctx, "staff deleted", "staff_id", id)
	}
	return err
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
