package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Darkqurk/hankki1/internal/core/cache"
	"github.com/Darkqurk/hankki1/internal/infrastructure/metrics"
	"github.com/Darkqurk/hankki1/internal/pkg/common"

	"go.uber.org/zap"
)

const cacheKeyPrefix = "reco:v1"

// CacheKey 推薦結果快取鍵
func CacheKey(userID uint, top int, fingerprint string) string {
	return fmt.Sprintf("%s:user:%d:top:%d:fp:%s", cacheKeyPrefix, userID, top, fingerprint)
}

// ResultCache 推薦結果快取，後端錯誤一律視為未命中
type ResultCache struct {
	store cache.Store
	ttl   time.Duration
	tops  []int
}

// NewResultCache 建立推薦結果快取
func NewResultCache(store cache.Store, ttl time.Duration, tops []int) *ResultCache {
	return &ResultCache{store: store, ttl: ttl, tops: tops}
}

// Get 讀取快取內容
func (c *ResultCache) Get(ctx context.Context, key string) ([]byte, bool) {
	backend := c.store.Backend()
	data, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		metrics.CacheHits.WithLabelValues(backend).Inc()
		common.LogCacheHit("recommendation", key)
		return data, true
	case errors.Is(err, cache.ErrCacheMiss):
	default:
		metrics.CacheErrors.WithLabelValues(backend, "get").Inc()
		common.LogWarn("讀取推薦快取失敗", zap.String("key", key), zap.Error(err))
	}
	metrics.CacheMisses.WithLabelValues(backend).Inc()
	common.LogCacheMiss("recommendation", key)
	return nil, false
}

// Set 寫入快取內容
func (c *ResultCache) Set(ctx context.Context, key string, data []byte) {
	if err := c.store.Set(ctx, key, data, c.ttl); err != nil {
		metrics.CacheErrors.WithLabelValues(c.store.Backend(), "set").Inc()
		common.LogWarn("寫入推薦快取失敗", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate 刪除使用者在常用 top 值下的快取
func (c *ResultCache) Invalidate(ctx context.Context, userID uint, fingerprint string) {
	keys := make([]string, 0, len(c.tops))
	for _, top := range c.tops {
		keys = append(keys, CacheKey(userID, top, fingerprint))
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		metrics.CacheErrors.WithLabelValues(c.store.Backend(), "delete").Inc()
		common.LogWarn("清除推薦快取失敗", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	metrics.CacheInvalidations.Inc()
	common.LogDebug("已清除推薦快取", zap.Uint("user_id", userID), zap.Ints("tops", c.tops))
}
