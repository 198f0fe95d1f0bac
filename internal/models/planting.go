package models

import "time"

// Planting anchors a generated visit schedule. PlotID is nil when the
// schedule was generated before the plot was known.
type Planting struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	PlotID *uint `gorm:"index"`
	Plot   *Plot

	Culture      string     `gorm:"size:120"`
	Variety      string     `gorm:"size:200"`
	PlantingDate *time.Time `gorm:"type:date"`

	Visits []Visit
}
