package dto

import "time"

// ── Request DTOs ─────────────────────────────────────────────────────────────

type ProductInput struct {
	ProductName     string `json:"product_name"     validate:"required,max=200"`
	Dose            string `json:"dose"             validate:"max=60"`
	Unit            string `json:"unit"             validate:"max=30"`
	ApplicationDate string `json:"application_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdateProductRequest struct {
	ProductName     *string `json:"product_name"     validate:"omitempty,min=1,max=200"`
	Dose            *string `json:"dose"             validate:"omitempty,max=60"`
	Unit            *string `json:"unit"             validate:"omitempty,max=30"`
	ApplicationDate *string `json:"application_date" validate:"omitempty,datetime=2006-01-02"`
}

type CreateVisitRequest struct {
	ClientID         uint           `json:"client_id"         validate:"required"`
	PropertyID       *uint          `json:"property_id"`
	PlotID           *uint          `json:"plot_id"`
	ConsultantID     *uint          `json:"consultant_id"`
	Date             string         `json:"date"              validate:"required,datetime=2006-01-02"`
	Status           string         `json:"status"            validate:"max=20"`
	GenerateSchedule bool           `json:"generate_schedule"`
	Culture          string         `json:"culture"           validate:"max=120"`
	Variety          string         `json:"variety"           validate:"max=200"`
	Checklist        string         `json:"checklist"`
	Diagnosis        string         `json:"diagnosis"`
	Recommendation   string         `json:"recommendation"`
	ObservedStage    string         `json:"observed_stage"    validate:"max=200"`
	Latitude         *float64       `json:"latitude"          validate:"omitempty,latitude"`
	Longitude        *float64       `json:"longitude"         validate:"omitempty,longitude"`
	Products         []ProductInput `json:"products"          validate:"dive"`
}

// UpdateVisitRequest is a partial update: nil fields are left untouched.
type UpdateVisitRequest struct {
	ClientID       *uint           `json:"client_id"`
	PropertyID     *uint           `json:"property_id"`
	PlotID         *uint           `json:"plot_id"`
	ConsultantID   *uint           `json:"consultant_id"`
	Date           *string         `json:"date"           validate:"omitempty,datetime=2006-01-02"`
	PreserveDate   bool            `json:"preserve_date"`
	Status         *string         `json:"status"         validate:"omitempty,max=20"`
	Checklist      *string         `json:"checklist"`
	Diagnosis      *string         `json:"diagnosis"`
	Recommendation *string         `json:"recommendation"`
	ObservedStage  *string         `json:"observed_stage" validate:"omitempty,max=200"`
	Culture        *string         `json:"culture"        validate:"omitempty,max=120"`
	Variety        *string         `json:"variety"        validate:"omitempty,max=200"`
	Latitude       *float64        `json:"latitude"       validate:"omitempty,latitude"`
	Longitude      *float64        `json:"longitude"      validate:"omitempty,longitude"`
	Products       *[]ProductInput `json:"products"       validate:"omitempty,dive"`
}

type BulkVisitRequest struct {
	Items []CreateVisitRequest `json:"items" validate:"required"`
}

// ── Response DTOs ────────────────────────────────────────────────────────────

type ProductResponse struct {
	ID              uint    `json:"id"`
	VisitID         uint    `json:"visit_id"`
	ProductName     string  `json:"product_name"`
	Dose            string  `json:"dose"`
	Unit            string  `json:"unit"`
	ApplicationDate *string `json:"application_date"`
}

type PhotoResponse struct {
	ID        uint     `json:"id"`
	VisitID   uint     `json:"visit_id"`
	URL       string   `json:"url"`
	Caption   string   `json:"caption"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type VisitResponse struct {
	ID             uint              `json:"id"`
	ClientID       uint              `json:"client_id"`
	ClientName     string            `json:"client_name"`
	PropertyID     *uint             `json:"property_id"`
	PlotID         *uint             `json:"plot_id"`
	PlantingID     *uint             `json:"planting_id"`
	ConsultantID   *uint             `json:"consultant_id"`
	ConsultantName string            `json:"consultant_name"`
	Date           *string           `json:"date"`
	Kind           string            `json:"kind"`
	Status         string            `json:"status"`
	Checklist      string            `json:"checklist"`
	Diagnosis      string            `json:"diagnosis"`
	Recommendation string            `json:"recommendation"`
	ObservedStage  string            `json:"observed_stage"`
	Culture        string            `json:"culture"`
	Variety        string            `json:"variety"`
	Latitude       *float64          `json:"latitude"`
	Longitude      *float64          `json:"longitude"`
	CreatedAt      time.Time         `json:"created_at"`
	Photos         []PhotoResponse   `json:"photos"`
	Products       []ProductResponse `json:"products"`
}

type CreateVisitResponse struct {
	Message   string        `json:"message"`
	Visit     VisitResponse `json:"visit"`
	Scheduled int           `json:"scheduled"`
}

type DeleteVisitResponse struct {
	Message         string `json:"message"`
	RemovedVisitIDs []uint `json:"removed_visit_ids"`
	PlantingID      *uint  `json:"planting_id,omitempty"`
	// Ambiguous is set when siblings were matched heuristically, without a planting link.
	Ambiguous bool `json:"ambiguous"`
}

type UploadPhotosResponse struct {
	Message string          `json:"message"`
	Photos  []PhotoResponse `json:"photos"`
}

type UpdateCaptionRequest struct {
	Caption string `json:"caption" validate:"max=255"`
}

// ScheduleEntry is one row of the phenology schedule preview.
type ScheduleEntry struct {
	Code          string `json:"code"`
	Stage         string `json:"stage"`
	Days          int    `json:"days"`
	SuggestedDate string `json:"suggested_date"`
}
