package models

import "time"

type Client struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Name     string `gorm:"size:200;not null"`
	Document string `gorm:"size:100;index"` // CPF/CNPJ or any free-text id
	Segment  string `gorm:"size:50"`
	Vendor   string `gorm:"size:120"` // owning vendor / consultant name

	Properties    []Property
	Opportunities []Opportunity
}

type Property struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	ClientID uint `gorm:"not null;index"`
	Client   Client

	Name      string `gorm:"size:200;not null"`
	CityState string `gorm:"size:120"`
	AreaHa    *float64

	Plots []Plot
}

type Plot struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	PropertyID uint `gorm:"not null;index"`
	Property   Property

	Name      string `gorm:"size:200;not null"`
	AreaHa    *float64
	Irrigated *bool // nil = unknown
	Latitude  *float64
	Longitude *float64

	Plantings []Planting
}
