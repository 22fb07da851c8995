package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentrecords/internal/logging"
)

// memRegistry is an in-memory Registry used by the auth tests.
type memRegistry struct {
	mu      sync.Mutex
	revoked map[string]bool
	err     error
	calls   int
}

func newMemRegistry() *memRegistry { return &memRegistry{revoked: map[string]bool{}} }

func (m *memRegistry) Revoke(_ context.Context, jti string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.revoked[jti] = true
	return nil
}

func (m *memRegistry) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return false, m.err
	}
	return m.revoked[jti], nil
}

func TestPostgresRegistryRevoke(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	reg := NewPostgresRegistry(db)
	reg.now = func() time.Time { return fixed }

	mock.ExpectExec("INSERT INTO revoked_tokens").
		WithArgs("jti-1", fixed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// second revoke of the same id hits ON CONFLICT DO NOTHING
	mock.ExpectExec("INSERT INTO revoked_tokens").
		WithArgs("jti-1", fixed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, reg.Revoke(context.Background(), "jti-1"))
	require.NoError(t, reg.Revoke(context.Background(), "jti-1"))
	assert.Error(t, reg.Revoke(context.Background(), ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRegistryIsRevoked(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	reg := NewPostgresRegistry(db)

	mock.ExpectQuery("SELECT EXISTS").WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("live").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery("SELECT EXISTS").WithArgs("boom").
		WillReturnError(errors.New("connection reset"))

	revoked, err := reg.IsRevoked(context.Background(), "gone")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = reg.IsRevoked(context.Background(), "live")
	require.NoError(t, err)
	assert.False(t, revoked)

	_, err = reg.IsRevoked(context.Background(), "boom")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:1",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
		MaxRetries:   -1,
	})
}

func TestCachedRegistryFallsThroughWhenRedisDown(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	next := newMemRegistry()
	reg := NewCachedRegistry(next, rdb, time.Hour, logging.Discard())
	ctx := context.Background()

	revoked, err := reg.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, reg.Revoke(ctx, "a"))
	revoked, err = reg.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, 2, next.calls)
}

func TestCachedRegistryPropagatesStoreFailure(t *testing.T) {
	rdb := unreachableRedis()
	defer rdb.Close()

	next := newMemRegistry()
	next.err = errors.New("db down")
	reg := NewCachedRegistry(next, rdb, time.Hour, logging.Discard())

	_, err := reg.IsRevoked(context.Background(), "a")
	assert.Error(t, err)
	assert.Error(t, reg.Revoke(context.Background(), "a"))
}
