package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pressflow/newsroom/internal/observability"
)

// ArticlesCache keeps rendered list/category responses in redis. Keys carry
// a version number that every article write bumps, so a stale page can
// never be served; old versions just age out via TTL.
type ArticlesCache struct {
	rdb  *redis.Client
	ttl  time.Duration
	prom *observability.Prom
}

const versionKey = "articles:version"

// NewArticlesCache returns a nil cache when rdb is nil; a nil *ArticlesCache
// is safe to use and behaves as a permanent miss.
func NewArticlesCache(rdb *redis.Client, ttl time.Duration, prom *observability.Prom) *ArticlesCache {
	if rdb == nil {
		return nil
	}
	return &ArticlesCache{rdb: rdb, ttl: ttl, prom: prom}
}

func (c *ArticlesCache) mark(keyspace string, hit bool) {
	if c.prom == nil {
		return
	}
	if hit {
		c.prom.CacheHits.WithLabelValues(keyspace).Inc()
		return
	}
	c.prom.CacheMisses.WithLabelValues(keyspace).Inc()
}

func (c *ArticlesCache) key(ctx context.Context, suffix string) (string, error) {
	v, err := c.rdb.Get(ctx, versionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("articles:v%d:%s", v, suffix), nil
}

func (c *ArticlesCache) GetPage(ctx context.Context, page, limit int) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	k, err := c.key(ctx, fmt.Sprintf("page:%d:%d", page, limit))
	if err != nil {
		return nil, false
	}

	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		c.mark("page", false)
		return nil, false
	}

	c.mark("page", true)
	return b, true
}

func (c *ArticlesCache) SetPage(ctx context.Context, page, limit int, body []byte) {
	if c == nil {
		return
	}

	k, err := c.key(ctx, fmt.Sprintf("page:%d:%d", page, limit))
	if err != nil {
		return
	}
	c.rdb.Set(ctx, k, body, c.ttl)
}

func (c *ArticlesCache) GetCategory(ctx context.Context, category string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	k, err := c.key(ctx, "category:"+category)
	if err != nil {
		return nil, false
	}

	b, err := c.rdb.Get(ctx, k).Bytes()
	if err != nil {
		c.mark("category", false)
		return nil, false
	}

	c.mark("category", true)
	return b, true
}

func (c *ArticlesCache) SetCategory(ctx context.Context, category string, body []byte) {
	if c == nil {
		return
	}

	k, err := c.key(ctx, "category:"+category)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, k, body, c.ttl)
}

// Invalidate bumps the version; every cached page under the old version is
// orphaned at once.
func (c *ArticlesCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	c.rdb.Incr(ctx, versionKey)
}
