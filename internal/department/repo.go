// Package department manages departments, the parent reference of students
// and staff.
package department

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"studentrecords/internal/store"
)

// ErrReferenced is returned when a department still has members.
var ErrReferenced = errors.New("department is referenced")

// Department is a named academic department.
type Department struct {
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// RenameResult reports how many members followed a rename.
type RenameResult struct {
	Department
	StaffMoved    int64 `json:"staff_moved"`
	StudentsMoved int64 `json:"students_moved"`
}

// Repository persists departments in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// List returns all departments by name.
func (r *Repository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, created_at, updated_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()
	res := []Department{}
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.Name, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// Get returns one department.
func (r *Repository) Get(ctx context.Context, name string) (Department, error) {
	var d Department
	err := r.db.QueryRowContext(ctx, `SELECT name, created_at, updated_at FROM departments WHERE name = $1`, name).
		Scan(&d.Name, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return Department{}, store.NoRows(err)
	}
	return d, nil
}

// Create inserts a department.
func (r *Repository) Create(ctx context.Context, name string) (Department, error) {
	d := Department{Name: name}
	err := r.db.QueryRowContext(ctx, `INSERT INTO departments (name) VALUES ($1) RETURNING created_at`, name).Scan(&d.CreatedAt)
	if err != nil {
		if store.IsUniqueViolation(err) {
			return Department{}, store.ErrDuplicate
		}
		return Department{}, fmt.Errorf("insert department: %w", err)
	}
	return d, nil
}

// Rename renames a department and moves every staff member and student to
// the new name in one transaction.
func (r *Repository) Rename(ctx context.Context, from, to string) (RenameResult, error) {
	var res RenameResult
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			UPDATE departments SET name = $2, updated_at = NOW()
			WHERE name = $1
			RETURNING name, created_at, updated_at
		`, from, to).Scan(&res.Name, &res.CreatedAt, &res.UpdatedAt)
		if err != nil {
			if store.IsUniqueViolation(err) {
				return store.ErrDuplicate
			}
			if err = store.NoRows(err); errors.Is(err, store.ErrNotFound) {
				return err
			}
			return fmt.Errorf("rename department: %w", err)
		}
		if res.StaffMoved, err = moveMembers(ctx, tx, "staff", from, to); err != nil {
			return err
		}
		res.StudentsMoved, err = moveMembers(ctx, tx, "students", from, to)
		return err
	})
	if err != nil {
		return RenameResult{}, err
	}
	return res, nil
}

func moveMembers(ctx context.Context, tx *sql.Tx, table, from, to string) (int64, error) {
	out, err := tx.ExecContext(ctx, `UPDATE `+table+` SET dept = $2, updated_at = NOW() WHERE dept = $1`, from, to)
	if err != nil {
		return 0, fmt.Errorf("move %s: %w", table, err)
	}
	return out.RowsAffected()
}

// Delete removes a department that nobody references. The department row is
// locked while members are counted; the foreign keys on students and staff
// catch a member written after the count.
func (r *Repository) Delete(ctx context.Context, name string) error {
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var locked string
		err := tx.QueryRowContext(ctx, `SELECT name FROM departments WHERE name = $1 FOR UPDATE`, name).Scan(&locked)
		if err != nil {
			return store.NoRows(err)
		}
		var referenced bool
		err = tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM students WHERE dept = $1)
			    OR EXISTS (SELECT 1 FROM staff WHERE dept = $1)
		`, name).Scan(&referenced)
		if err != nil {
			return fmt.Errorf("check department references: %w", err)
		}
		if referenced {
			return ErrReferenced
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM departments WHERE name = $1`, name); err != nil {
			return fmt.Errorf("delete department: %w", err)
		}
		return nil
	})
	if store.IsForeignKeyViolation(err) {
		return ErrReferenced
	}
	return err
}
