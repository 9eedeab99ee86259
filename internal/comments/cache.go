package comments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const cacheKeyPrefix = "comments"

// Cache keeps public listings in Redis. Each post slug has its own version
// counter; bumping it orphans every cached listing for that post.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{client: client, ttl: ttl, logger: logger}
}

func versionKey(slug string) string {
	return strings.Join([]string{cacheKeyPrefix, "version", slug}, ":")
}

func listingKey(slug string, version int64) string {
	return strings.Join([]string{cacheKeyPrefix, "public", slug, strconv.FormatInt(version, 10)}, ":")
}

// Version returns the current listing version for slug. Missing counters
// read as zero.
func (c *Cache) Version(ctx context.Context, slug string) (int64, error) {
	ver, err := c.client.Get(ctx, versionKey(slug)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// PublicComments returns the cached listing or populates it using loader.
// Concurrent misses for the same key share one loader call. Redis failures
// degrade to calling loader directly.
func (c *Cache) PublicComments(ctx context.Context, slug string, loader func(context.Context) ([]PublicComment, error)) ([]PublicComment, error) {
	if c == nil || c.client == nil {
		return loader(ctx)
	}
	ver, err := c.Version(ctx, slug)
	if err != nil {
		c.warn("cache version", slug, err)
		return loader(ctx)
	}
	key := listingKey(slug, ver)

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var out []PublicComment
		if err := json.Unmarshal(payload, &out); err == nil {
			return out, nil
		}
		c.warn("cache decode", slug, err)
	} else if !errors.Is(err, redis.Nil) {
		c.warn("cache read", slug, err)
		return loader(ctx)
	}

	// The fill is shared by every waiter on key, so it must outlive the
	// request that started it.
	fillCtx := context.WithoutCancel(ctx)
	resultChan := c.group.DoChan(key, func() (interface{}, error) {
		rows, err := loader(fillCtx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(rows)
		if err != nil {
			return nil, err
		}
		if err := c.client.Set(fillCtx, key, raw, c.ttl).Err(); err != nil {
			c.warn("cache write", slug, err)
		}
		return rows, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]PublicComment), nil
	}
}

// Invalidate bumps the version for slug.
func (c *Cache) Invalidate(ctx context.Context, slug string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, versionKey(slug)).Err()
}

func (c *Cache) warn(msg, slug string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, slog.String("post_slug", slug), slog.Any("error", err))
}
