package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursehub/internal/models"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	user := models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret", Role: models.UserRoleUser}
	require.NoError(t, repo.Set(ctx, user, time.Hour))

	assert.Equal(t, time.Hour, mr.TTL("session:u1"))
	assert.NotContains(t, mustGet(t, mr, "session:u1"), "secret")

	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Empty(t, got.PasswordHash)

	mr.FastForward(30 * time.Minute)
	user.Name = "Ada L."
	require.NoError(t, repo.Replace(ctx, user))
	assert.Equal(t, 30*time.Minute, mr.TTL("session:u1"))

	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", got.Name)

	require.NoError(t, repo.Delete(ctx, "u1"))
	_, err = repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionReplaceWithoutSessionIsNoop(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewSessionRepository(client)

	require.NoError(t, repo.Replace(context.Background(), models.User{ID: "ghost"}))
	assert.False(t, mr.Exists("session:ghost"))
}

func TestSessionExpires(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewSessionRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, models.User{ID: "u1"}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPendingRepository(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewPendingRepository(client)
	ctx := context.Background()

	pending := models.PendingRegistration{ID: "p1", Name: "Ada", Email: "ada@example.com", PasswordHash: "h", CodeHash: "abcd"}
	require.NoError(t, repo.Save(ctx, pending, 5*time.Minute))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, pending, got)

	mr.FastForward(6 * time.Minute)
	_, err = repo.Get(ctx, "p1")
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingRepositoryCountsFailedAttempts(t *testing.T) {
	mr, client := newTestRedis(t)
	repo := NewPendingRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, models.PendingRegistration{ID: "p1"}, 5*time.Minute))
	for want := int64(1); want <= 3; want++ {
		got, err := repo.RecordFailedAttempt(ctx, "p1", 5*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Greater(t, mr.TTL(pendingAttemptsKeyPrefix+"p1"), time.Duration(0))

	require.NoError(t, repo.Delete(ctx, "p1"))
	assert.False(t, mr.Exists(pendingKeyPrefix+"p1"))
	assert.False(t, mr.Exists(pendingAttemptsKeyPrefix+"p1"))

	got, err := repo.RecordFailedAttempt(ctx, "p1", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestCourseCache(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewCourseCache(client, time.Hour)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Zero(t, gen)

	course := models.Course{ID: "c1", Title: "Go", Price: 10}
	require.NoError(t, cache.Set(ctx, course, gen))
	require.NoError(t, cache.SetList(ctx, []models.Course{course}, gen))

	got, ok, err := cache.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Go", got.Title)

	list, ok, err := cache.GetList(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, list, 1)

	require.NoError(t, cache.Invalidate(ctx, "c1"))
	_, ok, _ = cache.Get(ctx, "c1")
	assert.False(t, ok)
	_, ok, _ = cache.GetList(ctx)
	assert.False(t, ok)
}

func TestCourseCacheSkipsFillsOlderThanInvalidation(t *testing.T) {
	_, client := newTestRedis(t)
	cache := NewCourseCache(client, time.Hour)
	ctx := context.Background()

	before, err := cache.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx, "c1"))

	stale := models.Course{ID: "c1", Title: "old"}
	require.NoError(t, cache.Set(ctx, stale, before))
	require.NoError(t, cache.SetList(ctx, []models.Course{stale}, before))
	_, ok, err := cache.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = cache.GetList(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	after, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
	require.NoError(t, cache.Set(ctx, models.Course{ID: "c1", Title: "new"}, after))
	got, ok, err := cache.Get(ctx, "c1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", got.Title)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
