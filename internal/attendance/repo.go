package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studentrecords/internal/store"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `id, student_id, date, present, created_at`

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	res := []Record{}
	for rows.Next() {
		var (
			rec     Record
			present int
		)
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Date, &present, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Present = present == 1
		res = append(res, rec)
	}
	return res, rows.Err()
}

// InsertMany writes all entries in one transaction.
func (r *Repository) InsertMany(ctx context.Context, entries []Entry) ([]Record, error) {
	out := make([]Record, 0, len(entries))
	err := store.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, e := range entries {
			rec := Record{ID: uuid.NewString(), StudentID: e.StudentID, Date: e.Date, Present: bool(e.Present)}
			err := tx.QueryRowContext(ctx, `
				INSERT INTO attendance (id, student_id, date, present)
				VALUES ($1, $2, $3, $4)
				RETURNING created_at
			`, rec.ID, rec.StudentID, e.Date.Time(), e.Present.Int()).Scan(&rec.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert attendance for %s on %s: %w", e.StudentID, e.Date, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns every record, newest day first.
func (r *Repository) List(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance ORDER BY date DESC, student_id`)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return scanRecords(rows)
}

// ByDate returns the records of one day.
func (r *Repository) ByDate(ctx context.Context, d Date) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE date = $1 ORDER BY student_id`, d.Time())
	if err != nil {
		return nil, fmt.Errorf("attendance by date: %w", err)
	}
	return scanRecords(rows)
}

// ByStudent returns one student's records in date order.
func (r *Repository) ByStudent(ctx context.Context, studentID string) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM attendance WHERE student_id = $1 ORDER BY date`, studentID)
	if err != nil {
		return nil, fmt.Errorf("attendance by student: %w", err)
	}
	return scanRecords(rows)
}

// SetPresence updates the flag of every record matching (d, studentID).
func (r *Repository) SetPresence(ctx context.Context, d Date, studentID string, present Presence) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE attendance SET present = $3
		WHERE date = $1 AND student_id = $2
	`, d.Time(), studentID, present.Int())
	if err != nil {
		return 0, fmt.Errorf("update attendance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, store.ErrNotFound
	}
	return n, nil
}

// Record is a stored attendance entry.
type Record struct {
	ID        string    `json:"id"`
	StudentID string    `json:"student_id"`
	Date      Date      `json:"date"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
}
