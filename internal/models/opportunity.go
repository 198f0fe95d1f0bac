package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultOpportunityStage = "prospecting"

type Opportunity struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ClientID uint `gorm:"not null;index"`
	Client   Client

	Title          string           `gorm:"size:300"`
	EstimatedValue *decimal.Decimal `gorm:"type:numeric(14,2)"`
	Stage          string           `gorm:"size:80;not null;default:prospecting"`
}
