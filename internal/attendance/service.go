// Package attendance records daily student presence.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"studentrecords/internal/apperr"
	"studentrecords/internal/store"
)

// Entry is one attendance line of a bulk submission.
type Entry struct {
	StudentID string   `json:"student_id" binding:"required"`
	Date      Date     `json:"date"`
	Present   Presence `json:"present"`
}

// Store is the persistence the service needs. *Repository satisfies it.
type Store interface {
	InsertMany(ctx context.Context, entries []Entry) ([]Record, error)
	List(ctx context.Context) ([]Record, error)
	ByDate(ctx context.Context, d Date) ([]Record, error)
	ByStudent(ctx context.Context, studentID string) ([]Record, error)
	SetPresence(ctx context.Context, d Date, studentID string, present Presence) (int64, error)
}

var errWeekend = apperr.Validation("Entry not allowed on weekends.")

// Service validates and records attendance.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a service backed by a store.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

// Record validates every entry before writing any of them. A single bad
// entry rejects the whole batch.
func (s *Service) Record(ctx context.Context, entries []Entry) ([]Record, error) {
	if len(entries) == 0 {
		return nil, apperr.Validation("data must contain at least one entry")
	}
	for i, e := range entries {
		if _, err := uuid.Parse(e.StudentID); err != nil {
			return nil, apperr.Validation(fmt.Sprintf("data[%d]: invalid student_id", i))
		}
		if e.Date.IsZero() {
			return nil, apperr.Validation(fmt.Sprintf("data[%d]: date is required", i))
		}
		if e.Date.Weekend() {
			s.log.InfoContext(ctx, "entry not allowed on weekends", "date", e.Date.String(), "student_id", e.StudentID)
			return nil, errWeekend
		}
	}
	recs, err := s.store.InsertMany(ctx, entries)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "attendance recorded", "entries", len(recs))
	return recs, nil
}

func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.store.List(ctx)
}

func (s *Service) ByDate(ctx context.Context, d Date) ([]Record, error) {
	return s.store.ByDate(ctx, d)
}

func (s *Service) ByStudent(ctx context.Context, studentID string) ([]Record, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, apperr.Validation("invalid student_id")
	}
	return s.store.ByStudent(ctx, studentID)
}

// SetPresence changes the presence flag of a student on a day.
func (s *Service) SetPresence(ctx context.Context, d Date, studentID string, present Presence) error {
	if _, err := uuid.Parse(studentID); err != nil {
		return apperr.Validation("invalid student_id")
	}
	n, err := s.store.SetPresence(ctx, d, studentID, present)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Attendance record not found.")
	}
	if err != nil {
		return err
	}
	if n > 1 {
		s.log.WarnContext(ctx, "duplicate attendance rows updated", "date", d.String(), "student_id", studentID, "rows", n)
	}
	s.log.InfoContext(ctx, "attendance updated", "date", d.String(), "student_id", studentID, "present", bool(present))
	return nil
}
