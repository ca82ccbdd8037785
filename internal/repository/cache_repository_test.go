package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

func newCacheRepository(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheRepository(client, "classroom", nil), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, mr := newCacheRepository(t)
	ctx := context.Background()

	var missing []string
	assert.ErrorIs(t, repo.Get(ctx, "leaderboard:school-a", &missing), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "leaderboard:school-a", []string{"Jisoo", "Minho"}, time.Minute))
	assert.True(t, mr.Exists("classroom:cache:leaderboard:school-a"))

	var names []string
	require.NoError(t, repo.Get(ctx, "leaderboard:school-a", &names))
	assert.Equal(t, []string{"Jisoo", "Minho"}, names)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, repo.Get(ctx, "leaderboard:school-a", &names), appErrors.ErrCacheMiss)
}

func TestCacheRepositoryDropsUndecodableEntries(t *testing.T) {
	repo, mr := newCacheRepository(t)
	require.NoError(t, mr.Set("classroom:cache:leaderboard:school-a", "{not json"))

	var names []string
	assert.ErrorIs(t, repo.Get(context.Background(), "leaderboard:school-a", &names), appErrors.ErrCacheMiss)
	assert.False(t, mr.Exists("classroom:cache:leaderboard:school-a"))
}

func TestCacheRepositoryDeleteByPatternStaysInNamespace(t *testing.T) {
	repo, mr := newCacheRepository(t)
	ctx := context.Background()
	for _, tenant := range []string{"school-a", "school-b"} {
		require.NoError(t, repo.Set(ctx, "leaderboard:"+tenant, 1, time.Minute))
	}
	require.NoError(t, mr.Set("leaderboard:school-a", "foreign"))

	require.NoError(t, repo.DeleteByPattern(ctx, "leaderboard:school-a*"))

	assert.False(t, mr.Exists("classroom:cache:leaderboard:school-a"))
	assert.True(t, mr.Exists("classroom:cache:leaderboard:school-b"))
	assert.True(t, mr.Exists("leaderboard:school-a"))
	require.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "", nil)
	ctx := context.Background()

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "k", &v), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "k", 1, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(ctx, "*"))
	assert.NoError(t, repo.Ping(ctx))
}
