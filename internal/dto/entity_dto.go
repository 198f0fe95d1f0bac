package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ── Clients ──────────────────────────────────────────────────────────────────

type CreateClientRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=200"`
	Document string `json:"document" validate:"max=100"`
	Segment  string `json:"segment"  validate:"max=50"`
	Vendor   string `json:"vendor"   validate:"max=120"`
}

type UpdateClientRequest struct {
	Name     *string `json:"name"     validate:"omitempty,min=1,max=200"`
	Document *string `json:"document" validate:"omitempty,max=100"`
	Segment  *string `json:"segment"  validate:"omitempty,max=50"`
	Vendor   *string `json:"vendor"   validate:"omitempty,max=120"`
}

type ClientResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document"`
	Segment   string    `json:"segment"`
	Vendor    string    `json:"vendor"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientDetailResponse is the client page: the client plus everything it owns.
type ClientDetailResponse struct {
	ClientResponse
	Properties    []PropertyDetail      `json:"properties"`
	Opportunities []OpportunityResponse `json:"opportunities"`
	RecentVisits  []VisitResponse       `json:"recent_visits"`
}

type PropertyDetail struct {
	PropertyResponse
	Plots []PlotResponse `json:"plots"`
}

// ── Properties ───────────────────────────────────────────────────────────────

type CreatePropertyRequest struct {
	ClientID  uint     `json:"client_id"  validate:"required"`
	Name      string   `json:"name"       validate:"required,min=1,max=200"`
	CityState string   `json:"city_state" validate:"max=120"`
	AreaHa    *float64 `json:"area_ha"    validate:"omitempty,gte=0"`
}

type UpdatePropertyRequest struct {
	ClientID  *uint    `json:"client_id"`
	Name      *string  `json:"name"       validate:"omitempty,min=1,max=200"`
	CityState *string  `json:"city_state" validate:"omitempty,max=120"`
	AreaHa    *float64 `json:"area_ha"    validate:"omitempty,gte=0"`
}

type PropertyResponse struct {
	ID        uint     `json:"id"`
	ClientID  uint     `json:"client_id"`
	Name      string   `json:"name"`
	CityState string   `json:"city_state"`
	AreaHa    *float64 `json:"area_ha"`
}

// ── Plots ────────────────────────────────────────────────────────────────────

type CreatePlotRequest struct {
	PropertyID uint     `json:"property_id" validate:"required"`
	Name       string   `json:"name"        validate:"required,min=1,max=200"`
	AreaHa     *float64 `json:"area_ha"     validate:"omitempty,gte=0"`
	Irrigated  *bool    `json:"irrigated"`
	Latitude   *float64 `json:"latitude"    validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude"   validate:"omitempty,longitude"`
}

type UpdatePlotRequest struct {
	PropertyID *uint    `json:"property_id"`
	Name       *string  `json:"name"        validate:"omitempty,min=1,max=200"`
	AreaHa     *float64 `json:"area_ha"     validate:"omitempty,gte=0"`
	Irrigated  *bool    `json:"irrigated"`
	Latitude   *float64 `json:"latitude"    validate:"omitempty,latitude"`
	Longitude  *float64 `json:"longitude"   validate:"omitempty,longitude"`
}

type PlotResponse struct {
	ID         uint     `json:"id"`
	PropertyID uint     `json:"property_id"`
	Name       string   `json:"name"`
	AreaHa     *float64 `json:"area_ha"`
	Irrigated  *bool    `json:"irrigated"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

// ── Plantings ────────────────────────────────────────────────────────────────

type CreatePlantingRequest struct {
	PlotID       uint   `json:"plot_id"       validate:"required"`
	Culture      string `json:"culture"       validate:"max=120"`
	Variety      string `json:"variety"       validate:"max=200"`
	PlantingDate string `json:"planting_date" validate:"omitempty,datetime=2006-01-02"`
}

type UpdatePlantingRequest struct {
	PlotID       *uint   `json:"plot_id"`
	Culture      *string `json:"culture"       validate:"omitempty,max=120"`
	Variety      *string `json:"variety"       validate:"omitempty,max=200"`
	PlantingDate *string `json:"planting_date" validate:"omitempty,datetime=2006-01-02"`
}

type PlantingResponse struct {
	ID           uint    `json:"id"`
	PlotID       *uint   `json:"plot_id"`
	Culture      string  `json:"culture"`
	Variety      string  `json:"variety"`
	PlantingDate *string `json:"planting_date"`
}

// ── Opportunities ────────────────────────────────────────────────────────────

type CreateOpportunityRequest struct {
	ClientID       uint             `json:"client_id"       validate:"required"`
	Title          string           `json:"title"           validate:"required,min=1,max=300"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Stage          string           `json:"stage"           validate:"max=80"`
}

type UpdateOpportunityRequest struct {
	ClientID       *uint            `json:"client_id"`
	Title          *string          `json:"title"           validate:"omitempty,min=1,max=300"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Stage          *string          `json:"stage"           validate:"omitempty,max=80"`
}

type OpportunityResponse struct {
	ID             uint             `json:"id"`
	ClientID       uint             `json:"client_id"`
	Title          string           `json:"title"`
	EstimatedValue *decimal.Decimal `json:"estimated_value"`
	Stage          string           `json:"stage"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ── Varieties ────────────────────────────────────────────────────────────────

type CreateVarietyRequest struct {
	Culture string `json:"culture" validate:"required,max=50"`
	Name    string `json:"name"    validate:"required,min=1,max=80"`
}

type UpdateVarietyRequest struct {
	Name *string `json:"name" validate:"omitempty,min=1,max=80"`
}

type VarietyResponse struct {
	ID      uint   `json:"id"`
	Culture string `json:"culture"`
	Name    string `json:"name"`
}

// CultureResponse is one crop of the enumeration with its seeded varieties.
type CultureResponse struct {
	Name      string   `json:"name"`
	Varieties []string `json:"varieties"`
}
