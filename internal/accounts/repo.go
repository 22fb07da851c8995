package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"studentrecords/internal/store"
)

// Repository persists students and staff in Postgres.
type Repository struct {
	db store.DBTX
}

// NewRepository creates a repo.
func NewRepository(db store.DBTX) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, email, name, phone, dept, batch, sem, account_type, password_hash, created_at, updated_at`

const staffColumns = `id, email, name, phone, dept, is_admin, account_type, password_hash, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Phone, &s.Dept, &s.Batch, &s.Sem,
		&s.AccountType, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func scanStaff(row scanner) (Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.Email, &s.Name, &s.Phone, &s.Dept, &s.IsAdmin,
		&s.AccountType, &s.PasswordHash, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// validID rejects ids Postgres would refuse to cast to uuid.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func writeErr(op string, err error) error {
	if store.IsUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if store.IsForeignKeyViolation(err) {
		return store.ErrMissingReference
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// DepartmentExists reports whether a department with name exists.
func (r *Repository) DepartmentExists(ctx context.Context, name string) (bool, error) {
	var ok bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM departments WHERE name = $1)`, name).Scan(&ok); err != nil {
		return false, fmt.Errorf("check department: %w", err)
	}
	return ok, nil
}

// CreateStudent inserts s with a new id.
func (r *Repository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	s.ID = uuid.NewString()
	s.AccountType = TypeStudent
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, email, name, phone, dept, batch, sem, account_type, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, s.ID, s.Email, s.Name, string(s.Phone), s.Dept, s.Batch, s.Sem, s.AccountType, s.PasswordHash).Scan(&s.CreatedAt)
	if err != nil {
		return Student{}, writeErr("insert student", err)
	}
	return s, nil
}

// GetStudent returns a student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (Student, error) {
	if !validID(id) {
		return Student{}, store.ErrNotFound
	}
	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if err != nil {
		return Student{}, store.NoRows(err)
	}
	return s, nil
}

// FindStudentByEmail returns the student registered with email.
func (r *Repository) FindStudentByEmail(ctx context.Context, email string) (Student, error) {
	s, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE email = $1`, email))
	if err != nil {
		return Student{}, store.NoRows(err)
	}
	return s, nil
}

// ListStudents returns all students ordered by batch and name.
func (r *Repository) ListStudents(ctx context.Context) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY batch, name`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()
	res := []Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateStudent writes every mutable column of s.
func (r *Repository) UpdateStudent(ctx context.Context, s Student) (Student, error) {
	if !validID(s.ID) {
		return Student{}, store.ErrNotFound
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE students
		SET email = $2, name = $3, phone = $4, dept = $5, batch = $6, sem = $7, password_hash = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.Email, s.Name, string(s.Phone), s.Dept, s.Batch, s.Sem, s.PasswordHash).Scan(&s.UpdatedAt)
	if err != nil {
		return Student{}, writeErr("update student", err)
	}
	return s, nil
}

// DeleteStudent removes a student.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "students", id)
}

// CreateStaff inserts s with a new id.
func (r *Repository) CreateStaff(ctx context.Context, s Staff) (Staff, error) {
	s.ID = uuid.NewString()
	s.AccountType = TypeStaff
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO staff (id, email, name, phone, dept, is_admin, account_type, password_hash)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at
	`, s.ID, s.Email, s.Name, string(s.Phone), s.Dept, s.IsAdmin, s.AccountType, s.PasswordHash).Scan(&s.CreatedAt)
	if err != nil {
		return Staff{}, writeErr("insert staff", err)
	}
	return s, nil
}

// FindStaffByID returns a staff member by id.
func (r *Repository) FindStaffByID(ctx context.Context, id string) (Staff, error) {
	if !validID(id) {
		return Staff{}, store.ErrNotFound
	}
	s, err := scanStaff(r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id))
	if err != nil {
		return Staff{}, store.NoRows(err)
	}
	return s, nil
}

// FindStaffByEmail returns the staff member registered with email.
func (r *Repository) FindStaffByEmail(ctx context.Context, email string) (Staff, error) {
	s, err := scanStaff(r.db.QueryRowContext(ctx, `SELECT `+staffColumns+` FROM staff WHERE email = $1`, email))
	if err != nil {
		return Staff{}, store.NoRows(err)
	}
	return s, nil
}

// IsAdmin reports whether id is an admin staff member. Unknown ids are not
// admins.
func (r *Repository) IsAdmin(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	var admin bool
	err := r.db.QueryRowContext(ctx, `SELECT is_admin FROM staff WHERE id = $1`, id).Scan(&admin)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup admin flag: %w", err)
	}
	return admin, nil
}

// ListStaff returns all staff ordered by name.
func (r *Repository) ListStaff(ctx context.Context) ([]Staff, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+staffColumns+` FROM staff ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()
	res := []Staff{}
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// UpdateStaff writes every mutable column of s.
func (r *Repository) UpdateStaff(ctx context.Context, s Staff) (Staff, error) {
	if !validID(s.ID) {
		return Staff{}, store.ErrNotFound
	}
	err := r.db.QueryRowContext(ctx, `
		UPDATE staff
		SET email = $2, name = $3, phone = $4, dept = $5, is_admin = $6, password_hash = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`, s.ID, s.Email, s.Name, string(s.Phone), s.Dept, s.IsAdmin, s.PasswordHash).Scan(&s.UpdatedAt)
	if err != nil {
		return Staff{}, writeErr("update staff", err)
	}
	return s, nil
}

// DeleteStaff removes a staff member.
func (r *Repository) DeleteStaff(ctx context.Context, id string) error {
	return r.deleteByID(ctx, "staff", id)
}

func (r *Repository) deleteByID(ctx context.Context, table, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
