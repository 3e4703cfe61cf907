package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/user/moovie-social/internal/logger"
	"github.com/user/moovie-social/internal/model"
	"github.com/user/moovie-social/internal/utils"
)

// CatalogCache 目录搜索结果缓存
type CatalogCache interface {
	Get(ctx context.Context, key string) (*model.CatalogMedia, bool)
	Set(ctx context.Context, key string, media *model.CatalogMedia)
}

// LRUCatalogCache 进程内缓存
type LRUCatalogCache struct {
	store *utils.SearchCache[*model.CatalogMedia]
}

func NewLRUCatalogCache(size int, ttl time.Duration) *LRUCatalogCache {
	return &LRUCatalogCache{store: utils.NewSearchCache[*model.CatalogMedia](size, ttl)}
}

func (c *LRUCatalogCache) Get(_ context.Context, key string) (*model.CatalogMedia, bool) {
	return c.store.Get(key)
}

func (c *LRUCatalogCache) Set(_ context.Context, key string, media *model.CatalogMedia) {
	c.store.Set(key, media)
}

// RedisCatalogCache 多实例共享缓存，读写失败只记日志
type RedisCatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCatalogCache(client *redis.Client, ttl time.Duration) *RedisCatalogCache {
	return &RedisCatalogCache{client: client, ttl: ttl}
}

func (c *RedisCatalogCache) Get(ctx context.Context, key string) (*model.CatalogMedia, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Get().WithError(err).Warn("[CatalogCache] 读取 Redis 失败")
		}
		return nil, false
	}
	var media model.CatalogMedia
	if err := json.Unmarshal(raw, &media); err != nil {
		logger.Get().WithError(err).Warn("[CatalogCache] 缓存内容无法解析")
		return nil, false
	}
	return &media, true
}

func (c *RedisCatalogCache) Set(ctx context.Context, key string, media *model.CatalogMedia) {
	raw, err := json.Marshal(media)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Get().WithError(err).Warn("[CatalogCache] 写入 Redis 失败")
	}
}

// NewRedisClient 连接 Redis，失败时返回错误由调用方决定是否降级
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
