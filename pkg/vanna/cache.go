package vanna

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

// cachedClient memoizes GenerateSQL responses in redis. SQL generation is the
// most expensive call of the pipeline and identical questions are common.
// Every cache failure falls through to the underlying client.
type cachedClient struct {
	Client
	rdb *redis.Client
	ttl time.Duration
}

// WithSQLCache decorates a client with a redis-backed generated-SQL cache.
// A nil redis client returns the inner client unchanged.
func WithSQLCache(inner Client, rdb *redis.Client, ttl time.Duration) Client {
	if rdb == nil {
		return inner
	}
	return &cachedClient{Client: inner, rdb: rdb, ttl: ttl}
}

func (c *cachedClient) GenerateSQL(ctx context.Context, question string) (string, error) {
	key := sqlCacheKey(question)

	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil && cached != "" {
		return cached, nil
	}

	sql, err := c.Client.GenerateSQL(ctx, question)
	if err != nil {
		return "", err
	}

	if sql != "" {
		c.rdb.Set(ctx, key, sql, c.ttl)
	}
	return sql, nil
}

func sqlCacheKey(question string) string {
	sum := md5.Sum([]byte(question))
	return "text2sql:sql:" + hex.EncodeToString(sum[:])
}
