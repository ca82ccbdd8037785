package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-quest-api/internal/models"
	appErrors "github.com/noah-isme/classroom-quest-api/pkg/errors"
)

// CacheRepository abstracts persistence for cached payloads.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type cacheObserver interface {
	RecordCacheOperation(hit bool, duration time.Duration)
	ObserveCacheWrite(duration time.Duration)
}

// LeaderboardKey is the cache key of a tenant's leaderboard snapshot.
func LeaderboardKey(tenantID string) string {
	return "leaderboard:" + tenantID
}

// LeaderboardCache keeps one ranked snapshot per tenant. Cache failures never fail the request;
// they only cost a recomputation.
type LeaderboardCache struct {
	repo    CacheRepository
	metrics cacheObserver
	ttl     time.Duration
	logger  *zap.Logger
}

// NewLeaderboardCache returns nil when repo is nil, which callers treat as caching disabled.
func NewLeaderboardCache(repo CacheRepository, metrics cacheObserver, ttl time.Duration, logger *zap.Logger) *LeaderboardCache {
	if repo == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaderboardCache{repo: repo, metrics: metrics, ttl: ttl, logger: logger}
}

// Lookup returns the cached ranking of a tenant.
func (c *LeaderboardCache) Lookup(ctx context.Context, tenantID string) ([]models.LeaderboardEntry, bool) {
	if c == nil {
		return nil, false
	}
	start := time.Now()
	var entries []models.LeaderboardEntry
	err := c.repo.Get(ctx, LeaderboardKey(tenantID), &entries)
	if c.metrics != nil {
		c.metrics.RecordCacheOperation(err == nil, time.Since(start))
	}
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			c.logger.Warn("leaderboard cache read failed", zap.String("tenant_id", tenantID), zap.Error(err))
		}
		return nil, false
	}
	return entries, true
}

// Store saves a freshly computed ranking.
func (c *LeaderboardCache) Store(ctx context.Context, tenantID string, entries []models.LeaderboardEntry) {
	if c == nil {
		return
	}
	start := time.Now()
	err := c.repo.Set(ctx, LeaderboardKey(tenantID), entries, c.ttl)
	if c.metrics != nil {
		c.metrics.ObserveCacheWrite(time.Since(start))
	}
	if err != nil {
		c.logger.Warn("leaderboard cache write failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}

// Invalidate drops a tenant's snapshot after points change.
func (c *LeaderboardCache) Invalidate(ctx context.Context, tenantID string) {
	if c == nil {
		return
	}
	if err := c.repo.DeleteByPattern(ctx, LeaderboardKey(tenantID)); err != nil {
		c.logger.Warn("leaderboard cache invalidation failed", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
