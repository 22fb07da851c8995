package analytics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"studentrecords/internal/apperr"
	"studentrecords/internal/attendance"
)

var reportDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "analytics_report_duration_seconds",
	Help:    "Time spent building analytics reports.",
	Buckets: prometheus.DefBuckets,
}, []string{"report", "outcome"})

// Source runs the database side of each report.
type Source interface {
	StudentCounts(ctx context.Context) ([]GroupCount, error)
	Absentees(ctx context.Context, day attendance.Date, f Filter) ([]Absentee, error)
	AttendanceTallies(ctx context.Context, from, to attendance.Date, f Filter) ([]AttendanceTally, error)
	IntakeRows(ctx context.Context) ([]IntakeRow, error)
}

// Engine builds reports from a Source. Every report is bounded by timeout.
type Engine struct {
	src     Source
	timeout time.Duration
	log     *slog.Logger
}

// NewEngine creates an engine. A non-positive timeout defaults to 10s.
func NewEngine(src Source, timeout time.Duration, log *slog.Logger) *Engine {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Engine{src: src, timeout: timeout, log: log}
}

func run[T any](ctx context.Context, e *Engine, report string, build func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	out, err := build(runCtx)
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded):
		outcome = "timeout"
		e.log.WarnContext(ctx, "report timed out", "report", report, "timeout", e.timeout)
		err = apperr.Timeout("The report took too long to generate.", err)
	default:
		outcome = "error"
	}
	reportDuration.WithLabelValues(report, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		var zero T
		return zero, err
	}
	e.log.InfoContext(ctx, "report built", "report", report, "took", time.Since(start))
	return out, nil
}

// YearlyDistribution is Report 1: students per batch, split by department.
func (e *Engine) YearlyDistribution(ctx context.Context) ([]YearDistribution, error) {
	return run(ctx, e, "yearly_distribution", func(ctx context.Context) ([]YearDistribution, error) {
		rows, err := e.src.StudentCounts(ctx)
		if err != nil {
			return nil, err
		}
		return GroupByBatch(rows), nil
	})
}

// Absentees is Report 2: students marked absent on day.
func (e *Engine) Absentees(ctx context.Context, day attendance.Date, f Filter) ([]Absentee, error) {
	if day.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	return run(ctx, e, "absentees", func(ctx context.Context) ([]Absentee, error) {
		return e.src.Absentees(ctx, day, f.normalized())
	})
}

// LowAttendance is Report 3: students at or below the threshold between
// January 1st and cutoff, inclusive.
func (e *Engine) LowAttendance(ctx context.Context, cutoff attendance.Date, f Filter) ([]LowAttendance, error) {
	if cutoff.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	return run(ctx, e, "low_attendance", func(ctx context.Context) ([]LowAttendance, error) {
		tallies, err := e.src.AttendanceTallies(ctx, cutoff.StartOfYear(), cutoff, f.normalized())
		if err != nil {
			return nil, err
		}
		return SelectLowAttendance(tallies), nil
	})
}

// IntakeUtilization is Report 4: enrollment against declared intake. The
// department filter is accepted but not applied.
func (e *Engine) IntakeUtilization(ctx context.Context, f Filter) ([]BatchIntake, error) {
	f = f.normalized()
	if f.Dept != nil {
		e.log.DebugContext(ctx, "department filter ignored by intake report", "dept", *f.Dept)
	}
	return run(ctx, e, "intake_utilization", func(ctx context.Context) ([]BatchIntake, error) {
		rows, err := e.src.IntakeRows(ctx)
		if err != nil {
			return nil, err
		}
		return SummarizeIntake(rows, f.Batch), nil
	})
}
