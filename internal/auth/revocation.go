package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"studentrecords/internal/store"
)

// Registry records revoked session ids.
type Registry interface {
	Revoke(ctx context.Context, jti string) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PostgresRegistry is the authoritative registry, shared by every instance
// and durable across restarts.
type PostgresRegistry struct {
	db  store.DBTX
	now func() time.Time
}

// NewPostgresRegistry creates a registry backed by the revoked_tokens table.
func NewPostgresRegistry(db store.DBTX) *PostgresRegistry {
	return &PostgresRegistry{db: db, now: time.Now}
}

// Revoke inserts jti. Revoking an already revoked id is a no-op.
func (r *PostgresRegistry) Revoke(ctx context.Context, jti string) error {
	if jti == "" {
		return errors.New("session id required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO revoked_tokens (jti, revoked_at)
		VALUES ($1, $2)
		ON CONFLICT (jti) DO NOTHING
	`, jti, r.now().UTC())
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether jti has been revoked.
func (r *PostgresRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var revoked bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = $1)`, jti).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return revoked, nil
}

// CachedRegistry keeps revoked ids in redis in front of another registry.
// Only positive answers are cached; redis failures fall through to next.
type CachedRegistry struct {
	next Registry
	rdb  *redis.Client
	ttl  time.Duration
	log  *slog.Logger
}

// NewCachedRegistry wraps next. ttl should outlive the longest token.
func NewCachedRegistry(next Registry, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedRegistry {
	return &CachedRegistry{next: next, rdb: rdb, ttl: ttl, log: log}
}

func revokedKey(jti string) string { return "revoked:" + jti }

func (r *CachedRegistry) Revoke(ctx context.Context, jti string) error {
	if err := r.next.Revoke(ctx, jti); err != nil {
		return err
	}
	r.remember(ctx, jti)
	return nil
}

func (r *CachedRegistry) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.rdb.Get(ctx, revokedKey(jti)).Err()
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, redis.Nil):
		r.log.WarnContext(ctx, "revocation cache unavailable", "error", err)
	}
	revoked, err := r.next.IsRevoked(ctx, jti)
	if err != nil {
		return false, err
	}
	if revoked {
		r.remember(ctx, jti)
	}
	return revoked, nil
}

func (r *CachedRegistry) remember(ctx context.Context, jti string) {
	if err := r.rdb.Set(ctx, revokedKey(jti), "1", r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "revocation cache write failed", "error", err)
	}
}
