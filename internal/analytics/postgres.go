package analytics

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"studentrecords/internal/attendance"
	"studentrecords/internal/store"
)

// PostgresSource runs report queries against the records database.
type PostgresSource struct {
	db store.DBTX
}

// NewPostgresSource creates a source.
func NewPostgresSource(db store.DBTX) *PostgresSource {
	return &PostgresSource{db: db}
}

// studentFilter appends conditions on the joined students row s.
func studentFilter(f Filter, args []any) (string, []any) {
	var clauses []string
	add := func(col string, v any) {
		args = append(args, v)
		clauses = append(clauses, col+" = $"+strconv.Itoa(len(args)))
	}
	if f.Batch != nil {
		add("s.batch", *f.Batch)
	}
	if f.Dept != nil {
		add("s.dept", *f.Dept)
	}
	if f.Sem != nil {
		add("s.sem", *f.Sem)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " AND " + strings.Join(clauses, " AND "), args
}

func (p *PostgresSource) StudentCounts(ctx context.Context) ([]GroupCount, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT batch, dept, COUNT(*)
		FROM students
		GROUP BY batch, dept
		ORDER BY batch, dept
	`)
	if err != nil {
		return nil, fmt.Errorf("student counts: %w", err)
	}
	defer rows.Close()
	var out []GroupCount
	for rows.Next() {
		var g GroupCount
		if err := rows.Scan(&g.Batch, &g.Dept, &g.Count); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (p *PostgresSource) Absentees(ctx context.Context, day attendance.Date, f Filter) ([]Absentee, error) {
	cond, args := studentFilter(f, []any{day.Time()})
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.date, s.name, s.sem, s.dept, s.batch, s.email, a.student_id
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.date = $1 AND a.present = 0`+cond+`
		ORDER BY s.name, a.student_id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("absentees: %w", err)
	}
	defer rows.Close()
	out := []Absentee{}
	for rows.Next() {
		var a Absentee
		if err := rows.Scan(&a.Date, &a.Name, &a.Sem, &a.Branch, &a.Batch, &a.Email, &a.StudentID); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *PostgresSource) AttendanceTallies(ctx context.Context, from, to attendance.Date, f Filter) ([]AttendanceTally, error) {
	cond, args := studentFilter(f, []any{from.Time(), to.Time()})
	rows, err := p.db.QueryContext(ctx, `
		SELECT a.student_id, s.name, s.batch, s.dept, COUNT(*), COALESCE(SUM(a.present), 0)
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.date BETWEEN $1 AND $2`+cond+`
		GROUP BY a.student_id, s.name, s.batch, s.dept
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("attendance tallies: %w", err)
	}
	defer rows.Close()
	var out []AttendanceTally
	for rows.Next() {
		var t AttendanceTally
		if err := rows.Scan(&t.StudentID, &t.Name, &t.Batch, &t.Dept, &t.Total, &t.Present); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresSource) IntakeRows(ctx context.Context) ([]IntakeRow, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT e.batch, e.dept, e.enrolled, b.total_intake
		FROM (
			SELECT batch, dept, COUNT(*) AS enrolled
			FROM students
			GROUP BY batch, dept
		) e
		JOIN batch_branches b ON b.year = e.batch AND b.name = e.dept
		ORDER BY e.batch, e.dept
	`)
	if err != nil {
		return nil, fmt.Errorf("intake rows: %w", err)
	}
	defer rows.Close()
	var out []IntakeRow
	for rows.Next() {
		var r IntakeRow
		if err := rows.Scan(&r.Batch, &r.Dept, &r.Enrolled, &r.Intake); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
