package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentrecords/internal/store"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func TestCreateStudentDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("INSERT INTO students").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.CreateStudent(context.Background(), Student{Email: "a@example.edu"})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWritesToMissingDepartment(t *testing.T) {
	repo, mock := newMockRepo(t)
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "students_dept_fkey"}
	mock.ExpectQuery("INSERT INTO students").WillReturnError(fk)
	mock.ExpectQuery("INSERT INTO staff").WillReturnError(&pgconn.PgError{Code: "23503"})
	mock.ExpectQuery("UPDATE students").WillReturnError(fk)

	_, err := repo.CreateStudent(context.Background(), Student{Email: "a@example.edu", Dept: "Gone"})
	assert.ErrorIs(t, err, store.ErrMissingReference)

	_, err = repo.CreateStaff(context.Background(), Staff{Email: "p@example.edu", Dept: "Gone"})
	assert.ErrorIs(t, err, store.ErrMissingReference)

	_, err = repo.UpdateStudent(context.Background(), Student{ID: "5b1c9c3e-8f3a-4c59-9a55-3f3f0d1e2a10", Dept: "Gone"})
	assert.ErrorIs(t, err, store.ErrMissingReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStaffAssignsIDAndType(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO staff").
		WithArgs(sqlmock.AnyArg(), "p@example.edu", "Prof", "42", "CS", true, TypeStaff, "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	s, err := repo.CreateStaff(context.Background(), Staff{
		Email: "p@example.edu", Name: "Prof", Phone: "42", Dept: "CS", IsAdmin: true, PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.True(t, validID(s.ID))
	assert.Equal(t, TypeStaff, s.AccountType)
	assert.Equal(t, created, s.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStudent(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "5b1c9c3e-8f3a-4c59-9a55-3f3f0d1e2a10"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "name", "phone", "dept", "batch", "sem", "account_type", "password_hash", "created_at", "updated_at"}).
			AddRow(id, "a@example.edu", "Asha", "99", "CS", 2021, 3, "student", "hash", created, nil))

	s, err := repo.GetStudent(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Asha", s.Name)
	assert.Equal(t, 2021, s.Batch)
	assert.Nil(t, s.UpdatedAt)

	// a malformed id never reaches the database
	_, err = repo.GetStudent(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsAdmin(t *testing.T) {
	repo, mock := newMockRepo(t)
	admin := "5b1c9c3e-8f3a-4c59-9a55-3f3f0d1e2a10"
	ghost := "0e0b5d0c-1111-4c59-9a55-3f3f0d1e2a10"
	broken := "0e0b5d0c-2222-4c59-9a55-3f3f0d1e2a10"

	mock.ExpectQuery("SELECT is_admin FROM staff").WithArgs(admin).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}).AddRow(true))
	mock.ExpectQuery("SELECT is_admin FROM staff").WithArgs(ghost).
		WillReturnRows(sqlmock.NewRows([]string{"is_admin"}))
	mock.ExpectQuery("SELECT is_admin FROM staff").WithArgs(broken).
		WillReturnError(errors.New("conn refused"))

	ok, err := repo.IsAdmin(context.Background(), admin)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsAdmin(context.Background(), ghost)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.IsAdmin(context.Background(), broken)
	assert.Error(t, err)

	ok, err = repo.IsAdmin(context.Background(), "1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteStaffMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := "5b1c9c3e-8f3a-4c59-9a55-3f3f0d1e2a10"
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM staff WHERE id = $1")).WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.DeleteStaff(context.Background(), id), store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPhoneAcceptsNumberOrString(t *testing.T) {
	var in StudentInput
	require.NoError(t, json.Unmarshal([]byte(`{"phone": 9876543210}`), &in))
	assert.Equal(t, Phone("9876543210"), in.Phone)

	require.NoError(t, json.Unmarshal([]byte(`{"phone": "+91 98765"}`), &in))
	assert.Equal(t, Phone("+91 98765"), in.Phone)

	assert.Error(t, json.Unmarshal([]byte(`{"phone": true}`), &in))
}
