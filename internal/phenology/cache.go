package phenology

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// CachedCatalog keeps per-crop stage lists in redis. A nil client disables
// caching; redis failures fall back to the wrapped catalog.
type CachedCatalog struct {
	next Catalog
	rdb  *redis.Client
	ttl  time.Duration
}

func NewCachedCatalog(next Catalog, rdb *redis.Client, ttl time.Duration) *CachedCatalog {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedCatalog{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(crop Crop) string {
	return "phenology:stages:" + crop.String()
}

func (c *CachedCatalog) StagesFor(ctx context.Context, crop Crop) ([]Stage, error) {
	if c.rdb == nil || !crop.Known() {
		return c.next.StagesFor(ctx, crop)
	}

	raw, err := c.rdb.Get(ctx, cacheKey(crop)).Bytes()
	switch {
	case err == nil:
		var stages []Stage
		if jsonErr := json.Unmarshal(raw, &stages); jsonErr == nil {
			return stages, nil
		}
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("crop", crop.String()).Msg("stage cache read failed")
	}

	stages, err := c.next.StagesFor(ctx, crop)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(stages); err == nil {
		if err := c.rdb.Set(ctx, cacheKey(crop), payload, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Str("crop", crop.String()).Msg("stage cache write failed")
		}
	}
	return stages, nil
}

// Invalidate drops cached stage lists, e.g. after reseeding.
func (c *CachedCatalog) Invalidate(ctx context.Context) error {
	if c.rdb == nil {
		return nil
	}
	keys := make([]string, 0, len(Crops()))
	for _, crop := range Crops() {
		keys = append(keys, cacheKey(crop))
	}
	return c.rdb.Del(ctx, keys...).Err()
}
