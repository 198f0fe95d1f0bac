package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

type VisitStatus string
type VisitKind string

const (
	VisitPlanned   VisitStatus = "planned"
	VisitCompleted VisitStatus = "completed"

	// KindSeed is the visit that represents the planting event itself.
	KindSeed      VisitKind = "seed"
	KindScheduled VisitKind = "scheduled"
	KindAdHoc     VisitKind = "adhoc"
)

// SeedLabel is the recommendation text carried by every seed visit.
const SeedLabel = "Planting"

type Visit struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ClientID   uint  `gorm:"not null;index"`
	PropertyID *uint `gorm:"index"`
	PlotID     *uint `gorm:"index"`
	PlantingID *uint `gorm:"index"`

	// ConsultantID points into the consultant directory, not a table.
	ConsultantID *uint `gorm:"index"`

	Client   Client
	Property *Property
	Plot     *Plot
	Planting *Planting

	Date           *time.Time  `gorm:"type:date;index"`
	Kind           VisitKind   `gorm:"type:varchar(20);not null;default:adhoc"`
	Status         VisitStatus `gorm:"type:varchar(20);not null;default:planned"`
	Checklist      string      `gorm:"type:text"`
	Diagnosis      string      `gorm:"type:text"`
	Recommendation string      `gorm:"type:text"`
	ObservedStage  string      `gorm:"size:200"` // phenology actually observed in the field
	Culture        string      `gorm:"size:120"`
	Variety        string      `gorm:"size:200"`
	Latitude       *float64
	Longitude      *float64

	Photos   []Photo
	Products []VisitProduct
}

// IsSeed reports whether v represents a planting event. Rows written before
// the kind column existed only carry the label, so the text is checked too.
func (v Visit) IsSeed() bool {
	if v.Kind == KindSeed {
		return true
	}
	label := strings.ToLower(v.Recommendation)
	return strings.Contains(label, "planting") || strings.Contains(label, "plantio")
}

type VisitProduct struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	VisitID uint `gorm:"not null;index"`

	ProductName     string     `gorm:"size:200;not null"`
	Dose            string     `gorm:"size:60"`
	Unit            string     `gorm:"size:30"`
	ApplicationDate *time.Time `gorm:"type:date"`
}

type Photo struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	VisitID uint `gorm:"not null;index"`

	// URL is absolute for object storage, or a legacy "/uploads/..." path.
	URL       string `gorm:"size:500"`
	Key       string `gorm:"column:object_key;size:300;index"`
	Caption   string `gorm:"size:255"`
	Latitude  *float64
	Longitude *float64

	Meta datatypes.JSONMap
}
