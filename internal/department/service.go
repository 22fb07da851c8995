package department

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"studentrecords/internal/apperr"
	"studentrecords/internal/store"
)

var (
	errNotFound   = apperr.NotFound("Department not found.")
	errExists     = apperr.Conflict("department already exists")
	errReferenced = apperr.PermissionDenied("Forbidden. Department exists in student/staff data")
	errEmptyName  = apperr.Validation("department name is required")
)

// Store is the persistence the service needs. *Repository satisfies it.
type Store interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, name string) (Department, error)
	Create(ctx context.Context, name string) (Department, error)
	Rename(ctx context.Context, from, to string) (RenameResult, error)
	Delete(ctx context.Context, name string) error
}

// Service applies department rules on top of a Store.
type Service struct {
	store Store
	log   *slog.Logger
}

// NewService creates a service.
func NewService(store Store, log *slog.Logger) *Service {
	return &Service{store: store, log: log}
}

func (s *Service) List(ctx context.Context) ([]Department, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, name string) (Department, error) {
	d, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return Department{}, errNotFound
	}
	return d, err
}

func (s *Service) Create(ctx context.Context, name string) (Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Department{}, errEmptyName
	}
	d, err := s.store.Create(ctx, name)
	if errors.Is(err, store.ErrDuplicate) {
		return Department{}, errExists
	}
	if err != nil {
		return Department{}, err
	}
	s.log.InfoContext(ctx, "department created", "dept", name)
	return d, nil
}

// Rename changes a department's name. Staff and students follow atomically.
func (s *Service) Rename(ctx context.Context, from, to string) (RenameResult, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return RenameResult{}, errEmptyName
	}
	res, err := s.store.Rename(ctx, from, to)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return RenameResult{}, errNotFound
	case errors.Is(err, store.ErrDuplicate):
		return RenameResult{}, errExists
	case err != nil:
		return RenameResult{}, err
	}
	s.log.InfoContext(ctx, "department renamed",
		"from", from, "to", to, "staff_moved", res.StaffMoved, "students_moved", res.StudentsMoved)
	return res, nil
}

// Delete removes a department. Departments with members cannot be deleted.
func (s *Service) Delete(ctx context.Context, name string) error {
	err := s.store.Delete(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errNotFound
	case errors.Is(err, ErrReferenced):
		s.log.WarnContext(ctx, "department delete blocked by members", "dept", name)
		return errReferenced
	case err != nil:
		return err
	}
	s.log.InfoContext(ctx, "department deleted", "dept", name)
	return nil
}
