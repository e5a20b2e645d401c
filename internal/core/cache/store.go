// Package cache 提供推薦結果使用的鍵值快取後端
package cache

import (
	"context"
	"time"

	"github.com/Darkqurk/hankki1/internal/infrastructure/config"
	"github.com/Darkqurk/hankki1/internal/pkg/common"
)

// ErrCacheMiss 鍵不存在或已過期
var ErrCacheMiss = common.ErrCacheMiss

// Store 鍵值快取介面
type Store interface {
	// Get 找不到時回傳 ErrCacheMiss
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete 刪除不存在的鍵不視為錯誤
	Delete(ctx context.Context, keys ...string) error
	// Backend 後端名稱，用於日誌與指標
	Backend() string
	Close() error
}

// New 依設定選擇快取後端
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return NewNoop(), nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		return NewRedisStore(ctx, &cfg.Redis, &cfg.Cache)
	default:
		return NewManager(&cfg.Cache), nil
	}
}

// noopStore 快取停用時使用，永遠未命中
type noopStore struct{}

func (noopStore) Get(context.Context, string) ([]byte, error)              { return nil, ErrCacheMiss }
func (noopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (noopStore) Delete(context.Context, ...string) error                  { return nil }
func (noopStore) Backend() string                                          { return "disabled" }
func (noopStore) Close() error                                             { return nil }

// NewNoop 回傳永遠未命中的快取
func NewNoop() Store {
	return noopStore{}
}
