package distlock

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisLockMutualExclusion(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "dispatch", time.Minute)
	b := NewRedisLock(client, "dispatch", time.Minute)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, a.Release(ctx))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockReleaseOnlyOwn(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "dispatch", time.Minute)
	b := NewRedisLock(client, "dispatch", time.Minute)

	ok, err := a.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// b never took the lock; its release must not free a's.
	require.NoError(t, b.Release(ctx))

	ok, err = b.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisLockExtend(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	l := NewRedisLock(client, "dispatch", time.Second)
	ok, err := l.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Extend(ctx, time.Minute))

	// The original one-second lease has passed but the lock still holds.
	mr.FastForward(2 * time.Second)
	other := NewRedisLock(client, "dispatch", time.Minute)
	ok, err = other.TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func newAdvisoryMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestAdvisoryLockAcquireRelease(t *testing.T) {
	db, mock := newAdvisoryMock(t)
	l := NewAdvisoryLock(db, "dispatch")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(true))

	ok, err := l.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLockNotAcquired(t *testing.T) {
	db, mock := newAdvisoryMock(t)
	l := NewAdvisoryLock(db, "dispatch")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := l.TryAcquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	// Nothing was acquired, so Release issues no unlock.
	require.NoError(t, l.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvisoryLockUnlockNotHeld(t *testing.T) {
	db, mock := newAdvisoryMock(t)
	l := NewAdvisoryLock(db, "dispatch")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_try_advisory_lock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT pg_advisory_unlock($1)")).
		WithArgs(l.lockID).
		WillReturnRows(sqlmock.NewRows([]string{"pg_advisory_unlock"}).AddRow(false))

	ok, err := l.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	// An unlock the session did not hold is surfaced, not swallowed.
	assert.Error(t, l.Release(context.Background()))
}

func TestGuardRunsAndReleases(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	var ran bool
	err := Guard(ctx, NewRedisLock(client, "dispatch", time.Minute), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	// The lock was released when Guard returned.
	ok, err := NewRedisLock(client, "dispatch", time.Minute).TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGuardHeldElsewhere(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	holder := NewRedisLock(client, "dispatch", time.Minute)
	ok, err := holder.TryAcquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	err = Guard(ctx, NewRedisLock(client, "dispatch", time.Minute), func(context.Context) error {
		t.Fatal("must not run while held")
		return nil
	})
	assert.ErrorIs(t, err, ErrNotAcquired)
}

func TestGuardPropagatesError(t *testing.T) {
	client := newTestRedis(t)
	sentinel := errors.New("dispatch blew up")

	err := Guard(context.Background(), NewRedisLock(client, "dispatch", time.Minute), func(context.Context) error {
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}
