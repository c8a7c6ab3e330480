// Package cache adds a Redis read-through cache in front of the brand and
// category lookups of a catalog gateway. Every other lookup passes through.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/utafrali/goodssearch/internal/codec"
	"github.com/utafrali/goodssearch/internal/domain"
	"github.com/utafrali/goodssearch/internal/gateway"
)

const (
	brandKeyPrefix    = "goodssearch:brand:"
	categoryKeyPrefix = "goodssearch:category:"
)

// Catalog wraps a gateway.Catalog. Cache failures are logged and the lookup
// falls back to the wrapped gateway; collaborator errors are never cached.
type Catalog struct {
	gateway.Catalog

	client *redis.Client
	ttl    time.Duration
	codec  codec.Codec
	logger *slog.Logger
}

// New creates a caching catalog gateway.
func New(next gateway.Catalog, client *redis.Client, ttl time.Duration, c codec.Codec, logger *slog.Logger) *Catalog {
	return &Catalog{
		Catalog: next,
		client:  client,
		ttl:     ttl,
		codec:   c,
		logger:  logger,
	}
}

// Brand returns the cached brand or loads and caches it.
func (c *Catalog) Brand(ctx context.Context, id int64) (*domain.Brand, error) {
	key := brandKeyPrefix + strconv.FormatInt(id, 10)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var b domain.Brand
		if err := c.codec.Unmarshal(data, &b); err == nil {
			return &b, nil
		}
		c.logger.WarnContext(ctx, "discarding undecodable cached brand", slog.Int64("brand_id", id))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "brand cache read failed", slog.String("error", err.Error()))
	}

	b, err := c.Catalog.Brand(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := c.codec.Marshal(b); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "brand cache write failed", slog.String("error", err.Error()))
		}
	}
	return b, nil
}

// CategoryNames serves cached names and loads only the missing ids from the
// wrapped gateway in one call.
func (c *Catalog) CategoryNames(ctx context.Context, ids []int64) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = categoryKeyPrefix + strconv.FormatInt(id, 10)
	}

	names := make([]string, len(ids))
	cached := make([]bool, len(ids))

	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		c.logger.WarnContext(ctx, "category cache read failed", slog.String("error", err.Error()))
	} else {
		for i, v := range values {
			if s, ok := v.(string); ok {
				names[i] = s
				cached[i] = true
			}
		}
	}

	var missing []int64
	for i, id := range ids {
		if !cached[i] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return names, nil
	}

	loaded, err := c.Catalog.CategoryNames(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(loaded) != len(missing) {
		return nil, fmt.Errorf("category names: got %d names for %d ids", len(loaded), len(missing))
	}

	byID := make(map[int64]string, len(missing))
	pipe := c.client.Pipeline()
	for i, id := range missing {
		byID[id] = loaded[i]
		pipe.Set(ctx, categoryKeyPrefix+strconv.FormatInt(id, 10), loaded[i], c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.WarnContext(ctx, "category cache write failed", slog.String("error", err.Error()))
	}

	for i, id := range ids {
		if !cached[i] {
			names[i] = byID[id]
		}
	}
	return names, nil
}
