// Package service holds the application logic between the HTTP handlers and
// the repositories: validation of references, transactions, cascades and
// the rendering of response DTOs.
package service

import (
	"context"
	"errors"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/blob"
	"agro-crm/internal/phenology"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// runTx executes fn inside a GORM transaction. Inside fn only tx may be used.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// notFound maps gorm.ErrRecordNotFound to the entity's 404 error.
func notFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(entity)
	}
	return err
}

// removeBlobs deletes object storage keys after their rows are gone.
// Failures only leave orphan objects, so they are logged.
func removeBlobs(ctx context.Context, store blob.Store, keys []string) {
	if store == nil {
		return
	}
	for _, key := range keys {
		if err := store.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("blob delete failed")
		}
	}
}

// canonicalCulture stores known crops under their canonical name and keeps
// anything else as typed.
func canonicalCulture(s string) string {
	s = strings.TrimSpace(s)
	if crop := phenology.ParseCrop(s); crop.Known() {
		return crop.String()
	}
	return s
}

// nonZero treats an explicit 0 id as absent.
func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}
