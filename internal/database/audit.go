package database

import (
	"context"

	"agro-crm/internal/models"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// CreateAuditLog records a mutation. Failures are logged and never fail the request.
func CreateAuditLog(ctx context.Context, db *gorm.DB, userID *uint, entity string, entityID uint, action, details string) {
	if db == nil {
		return
	}
	record := models.AuditLog{
		UserID:   userID,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
		Details:  details,
	}
	if err := db.WithContext(ctx).Create(&record).Error; err != nil {
		log.Warn().Err(err).Str("entity", entity).Uint("entity_id", entityID).Msg("audit log write failed")
	}
}

// ListAuditLogs returns the most recent entries, newest first.
func ListAuditLogs(ctx context.Context, db *gorm.DB, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	var logs []models.AuditLog
	err := db.WithContext(ctx).
		Preload("User").
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
