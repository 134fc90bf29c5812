package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/familu/entitlement-service/internal/domain/entity"
	"github.com/familu/entitlement-service/internal/domain/model"
	"github.com/familu/entitlement-service/internal/domain/repository"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix     = "entitlement:catalog:"
	defaultTTL           = 10 * time.Minute
	defaultScanBatchSize = 100
	listKey              = "all"
)

// CatalogCache is a read-through Redis cache in front of a CategoryRepository.
// Redis failures fall through to the repository.
type CatalogCache struct {
	next      repository.CategoryRepository
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// CatalogCacheOption configures a CatalogCache
type CatalogCacheOption func(*CatalogCache)

// WithTTL sets how long catalog entries live in Redis
func WithTTL(ttl time.Duration) CatalogCacheOption {
	return func(c *CatalogCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix sets the Redis key prefix
func WithKeyPrefix(prefix string) CatalogCacheOption {
	return func(c *CatalogCache) {
		c.keyPrefix = prefix
	}
}

// WithCacheLogger sets the logger for the cache
func WithCacheLogger(logger *zap.Logger) CatalogCacheOption {
	return func(c *CatalogCache) {
		c.logger = logger
	}
}

// NewCatalogCache wraps next with a cache on client. The caller owns client.
func NewCatalogCache(next repository.CategoryRepository, client *redis.Client, opts ...CatalogCacheOption) *CatalogCache {
	c := &CatalogCache{
		next:      next,
		client:    client,
		keyPrefix: defaultKeyPrefix,
		ttl:       defaultTTL,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CatalogCache) key(suffix string) string {
	return c.keyPrefix + suffix
}

// List returns active categories, from Redis when cached
func (c *CatalogCache) List(ctx context.Context) ([]*entity.Category, error) {
	var categories []*entity.Category
	if c.get(ctx, c.key(listKey), &categories) {
		return categories, nil
	}

	categories, err := c.next.List(ctx)
	if err != nil {
		return nil, err
	}
	c.set(ctx, c.key(listKey), categories)
	return categories, nil
}

// GetByID returns a category, from Redis when cached. Misses are not cached.
func (c *CatalogCache) GetByID(ctx context.Context, id string) (*entity.Category, error) {
	var category entity.Category
	if c.get(ctx, c.key("category:"+id), &category) {
		return &category, nil
	}

	found, err := c.next.GetByID(ctx, id)
	if err != nil || found == nil {
		return found, err
	}
	c.set(ctx, c.key("category:"+id), found)
	return found, nil
}

// Upsert writes through and drops every cached entry
func (c *CatalogCache) Upsert(ctx context.Context, categories []*model.Category) error {
	if err := c.next.Upsert(ctx, categories); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// DeactivateMissing writes through and drops every cached entry
func (c *CatalogCache) DeactivateMissing(ctx context.Context, keepIDs []string) (int64, error) {
	n, err := c.next.DeactivateMissing(ctx, keepIDs)
	if err != nil {
		return n, err
	}
	c.Invalidate(ctx)
	return n, nil
}

// Invalidate removes all catalog keys
func (c *CatalogCache) Invalidate(ctx context.Context) {
	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.keyPrefix+"*", defaultScanBatchSize).Result()
		if err != nil {
			c.logger.Warn("Failed to scan catalog cache keys", zap.Error(err))
			return
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.logger.Warn("Failed to delete catalog cache keys", zap.Error(err))
				return
			}
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}

func (c *CatalogCache) get(ctx context.Context, key string, dest interface{}) bool {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Catalog cache read failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Warn("Catalog cache entry is corrupt", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *CatalogCache) set(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Failed to encode catalog cache entry", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Catalog cache write failed", zap.String("key", key), zap.Error(err))
	}
}

var _ repository.CategoryRepository = (*CatalogCache)(nil)
