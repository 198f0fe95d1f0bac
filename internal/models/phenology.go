package models

// PhenologyStage is one row of the seeded Stage Catalog.
type PhenologyStage struct {
	ID      uint   `gorm:"primaryKey"`
	Culture string `gorm:"size:50;not null;uniqueIndex:idx_stage_culture_code"`
	Code    string `gorm:"size:20;not null;uniqueIndex:idx_stage_culture_code"`
	Name    string `gorm:"size:100;not null"`
	Days    int    `gorm:"not null"`
}

// Variety is a cultivar offered for a crop in the planting forms.
type Variety struct {
	ID      uint   `gorm:"primaryKey"`
	Culture string `gorm:"size:50;not null;uniqueIndex:idx_variety_culture_name"`
	Name    string `gorm:"size:80;not null;uniqueIndex:idx_variety_culture_name"`
}
