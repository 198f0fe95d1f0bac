package server

import (
	"context"
	"time"

	"agro-crm/internal/phenology"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// NewStageCatalog serves the seeded stage table through the redis cache.
// Entries cached before the last seed are dropped; a nil client disables the cache.
func NewStageCatalog(ctx context.Context, db *gorm.DB, rdb *redis.Client, ttl time.Duration) *phenology.CachedCatalog {
	catalog := phenology.NewCachedCatalog(phenology.NewDBCatalog(db), rdb, ttl)
	if err := catalog.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("stage cache invalidation failed")
	}
	return catalog
}
