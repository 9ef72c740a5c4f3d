package controllers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"dashboard-service/models"
	awspkg "dashboard-service/pkg/aws"
	"dashboard-service/seeding"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	DefaultCacheTTL        = 10 * time.Minute
	CatalogCachePrefix     = "catalog:desc:v"
	CatalogCacheVersionKey = "catalog:version"
)

// CacheManager caches catalog query results in Redis. Entries are keyed by a
// version number so a single INCR invalidates all of them.
type CacheManager struct {
	redis   *redis.Client
	ttl     time.Duration
	metrics *awspkg.MetricsClient
}

func NewCacheManager(rdb *redis.Client, ttl time.Duration, metrics *awspkg.MetricsClient) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheManager{redis: rdb, ttl: ttl, metrics: metrics}
}

// GetProductSetDetails returns a cached result for description.
func (cm *CacheManager) GetProductSetDetails(ctx context.Context, description string) ([]models.ProductSetDetails, bool) {
	if cm == nil || cm.redis == nil {
		return nil, false
	}
	version, err := cm.version(ctx)
	if err != nil {
		return nil, false
	}

	data, err := cm.redis.Get(ctx, cacheKey(version, description)).Bytes()
	if err != nil {
		cm.record(awspkg.MetricCacheMisses)
		return nil, false
	}

	var items []models.ProductSetDetails
	if err := json.Unmarshal(data, &items); err != nil {
		zap.L().Warn("Failed to unmarshal cached catalog result", zap.Error(err))
		return nil, false
	}
	cm.record(awspkg.MetricCacheHits)
	return items, true
}

// SetProductSetDetailsAsync caches a result off the request path.
func (cm *CacheManager) SetProductSetDetailsAsync(description string, items []models.ProductSetDetails) {
	if cm == nil || cm.redis == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		version, err := cm.version(ctx)
		if err != nil {
			return
		}
		data, err := json.Marshal(items)
		if err != nil {
			zap.L().Warn("Failed to marshal catalog result for cache", zap.Error(err))
			return
		}
		if err := cm.redis.Set(ctx, cacheKey(version, description), data, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache catalog result", zap.Error(err))
		}
	}()
}

// Invalidate drops every cached catalog result by bumping the version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if cm == nil || cm.redis == nil {
		return nil
	}
	v, err := cm.redis.Incr(ctx, CatalogCacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zap.L().Info("Catalog cache invalidated", zap.Int64("new_version", v))
	return nil
}

// InvalidateAfterSeeding is a seeding finish hook. Any session that wrote
// rows, even one that failed halfway, invalidates the cache.
func (cm *CacheManager) InvalidateAfterSeeding(ctx context.Context, snap seeding.Snapshot) {
	if snap.State == seeding.StateSkipped {
		return
	}
	if err := cm.Invalidate(ctx); err != nil {
		zap.L().Error("Failed to invalidate catalog cache after seeding", zap.Error(err))
	}
}

func (cm *CacheManager) version(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		v, err := cm.redis.Get(ctx, CatalogCacheVersionKey).Int64()
		if err == nil && v > 0 {
			return v, nil
		}
		if errors.Is(err, redis.Nil) {
			if err := cm.redis.SetNX(ctx, CatalogCacheVersionKey, 1, 0).Err(); err == nil {
				continue
			}
		}
		if ctx.Err() != nil {
			break
		}
		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *CacheManager) record(metric string) {
	if !cm.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = cm.metrics.RecordCount(ctx, metric, map[string]string{"Cache": "catalog"})
	}()
}

func cacheKey(version int64, description string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(description)))
	return fmt.Sprintf("%s%d:%s", CatalogCachePrefix, version, hex.EncodeToString(sum[:]))
}
