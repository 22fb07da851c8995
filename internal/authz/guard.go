// Package authz decides whether an authenticated identity may act. Only the
// identity is taken from the token; roles are looked up on every check.
package authz

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"studentrecords/internal/accounts"
	"studentrecords/internal/apperr"
	"studentrecords/internal/auth"
	"studentrecords/internal/store"
)

// Roles understood by RequireRole.
const (
	RoleStaff = "staff"
	RoleAdmin = "admin"
)

var denials = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "authz_denials_total",
	Help: "Authorization checks that rejected the caller.",
}, []string{"check"})

var (
	errNoPermission  = apperr.PermissionDenied("You do not have the required permission.")
	errNotOwner      = apperr.PermissionDenied("You do not have permission to update this information.")
	errStaffNotFound = apperr.NotFound("Staff member not found.")
)

// StaffLookup resolves staff records. Missing records are store.ErrNotFound.
type StaffLookup interface {
	FindStaffByID(ctx context.Context, id string) (accounts.Staff, error)
}

// Guard runs role and ownership checks against live staff records.
type Guard struct {
	staff StaffLookup
	log   *slog.Logger
}

// NewGuard creates a guard.
func NewGuard(staff StaffLookup, log *slog.Logger) *Guard {
	return &Guard{staff: staff, log: log}
}

// RequireRole returns nil when identity holds role. Unknown roles, unknown
// identities and lookup failures are all denied.
func (g *Guard) RequireRole(ctx context.Context, identity, role string) error {
	if role != RoleStaff && role != RoleAdmin {
		g.log.ErrorContext(ctx, "unknown role requested", "role", role)
		return g.deny("role:"+role, errNoPermission)
	}
	caller, err := g.staff.FindStaffByID(ctx, identity)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.log.ErrorContext(ctx, "staff lookup failed", "identity", identity, "error", err)
		}
		return g.deny("role:"+role, errNoPermission)
	}
	if role == RoleAdmin && !caller.IsAdmin {
		return g.deny("role:"+role, errNoPermission)
	}
	return nil
}

// RequireOwnerOrAdmin returns nil when identity is targetID itself or an
// admin. A missing target is NotFound.
func (g *Guard) RequireOwnerOrAdmin(ctx context.Context, identity, targetID string) error {
	if _, err := g.staff.FindStaffByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errStaffNotFound
		}
		g.log.ErrorContext(ctx, "staff lookup failed", "target_id", targetID, "error", err)
		return g.deny("owner", errNotOwner)
	}
	if identity == targetID {
		return nil
	}
	caller, err := g.staff.FindStaffByID(ctx, identity)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			g.log.ErrorContext(ctx, "staff lookup failed", "identity", identity, "error", err)
		}
		return g.deny("owner", errNotOwner)
	}
	if !caller.IsAdmin {
		return g.deny("owner", errNotOwner)
	}
	return nil
}

func (g *Guard) deny(check string, err error) error {
	denials.WithLabelValues(check).Inc()
	return err
}

// Role is gin middleware around RequireRole. It must run after
// auth.Verifier.Middleware.
func (g *Guard) Role(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityOf(c)
		if !ok {
			apperr.Abort(c, g.log, errNoPermission)
			return
		}
		if err := g.RequireRole(c.Request.Context(), identity, role); err != nil {
			g.log.WarnContext(c.Request.Context(), "permission denied", "identity", identity, "role", role, "path", c.FullPath())
			apperr.Abort(c, g.log, err)
			return
		}
		c.Next()
	}
}

// OwnerOrAdmin is gin middleware around RequireOwnerOrAdmin; the target id
// is read from the path parameter param.
func (g *Guard) OwnerOrAdmin(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityOf(c)
		if !ok {
			apperr.Abort(c, g.log, errNotOwner)
			return
		}
		if err := g.RequireOwnerOrAdmin(c.Request.Context(), identity, c.Param(param)); err != nil {
			apperr.Abort(c, g.log, err)
			return
		}
		c.Next()
	}
}

func identityOf(c *gin.Context) (string, bool) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}
