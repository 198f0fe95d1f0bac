package models

import "time"

type AuditLog struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	UserID *uint // nil for system actions
	User   *User

	Entity   string `gorm:"size:50;not null"` // "client", "visit", "planting", ...
	EntityID uint
	Action   string `gorm:"size:50;not null"` // "create", "update", "delete", "cascade_delete"
	Details  string `gorm:"type:text"`
}
