package repository

import (
	"context"
	"errors"
	"time"

	"agro-crm/internal/models"

	"gorm.io/gorm"
)

// VisitFilter holds the equality and date-range filters of the visit listing.
type VisitFilter struct {
	ClientID     *uint
	PropertyID   *uint
	PlotID       *uint
	PlantingID   *uint
	ConsultantID *uint
	Status       string
	From         *time.Time // inclusive
	To           *time.Time // exclusive
}

// visitOrder sorts undated visits last.
const visitOrder = "visits.date IS NULL, visits.date ASC, visits.id ASC"

type VisitRepository struct {
	*Repository[models.Visit]
}

func NewVisitRepository(db *gorm.DB) *VisitRepository {
	return &VisitRepository{Repository: New[models.Visit](db)}
}

func (r *VisitRepository) WithTx(tx *gorm.DB) *VisitRepository {
	return &VisitRepository{Repository: r.Repository.WithTx(tx)}
}

// WithDetails preloads everything a visit response renders.
func WithDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Client").
		Preload("Planting").
		Preload("Photos", func(db *gorm.DB) *gorm.DB { return db.Order("photos.id ASC") }).
		Preload("Products", func(db *gorm.DB) *gorm.DB { return db.Order("visit_products.id ASC") })
}

func (f VisitFilter) scope(db *gorm.DB) *gorm.DB {
	if f.ClientID != nil {
		db = db.Where("visits.client_id = ?", *f.ClientID)
	}
	if f.PropertyID != nil {
		db = db.Where("visits.property_id = ?", *f.PropertyID)
	}
	if f.PlotID != nil {
		db = db.Where("visits.plot_id = ?", *f.PlotID)
	}
	if f.PlantingID != nil {
		db = db.Where("visits.planting_id = ?", *f.PlantingID)
	}
	if f.ConsultantID != nil {
		db = db.Where("visits.consultant_id = ?", *f.ConsultantID)
	}
	if f.Status != "" {
		db = db.Where("visits.status = ?", f.Status)
	}
	if f.From != nil {
		db = db.Where("visits.date >= ?", *f.From)
	}
	if f.To != nil {
		db = db.Where("visits.date < ?", *f.To)
	}
	return db
}

func (r *VisitRepository) Search(ctx context.Context, f VisitFilter) ([]models.Visit, error) {
	return r.List(ctx, f.scope, WithDetails, OrderBy(visitOrder))
}

func (r *VisitRepository) Get(ctx context.Context, id uint) (*models.Visit, error) {
	return r.FindByID(ctx, id, WithDetails)
}

// sameNullable matches col against an optional id, treating nil as IS NULL.
func sameNullable(db *gorm.DB, col string, v *uint) *gorm.DB {
	if v == nil {
		return db.Where(col + " IS NULL")
	}
	return db.Where(col+" = ?", *v)
}

// Cycle returns the visits reported together with v: the visits of its
// planting, or without a planting link those sharing client, property, plot
// and crop. The result includes v, ordered by date.
func (r *VisitRepository) Cycle(ctx context.Context, v *models.Visit) ([]models.Visit, error) {
	if v.PlantingID != nil {
		return r.Search(ctx, VisitFilter{PlantingID: v.PlantingID})
	}
	return r.List(ctx, func(db *gorm.DB) *gorm.DB {
		db = db.Where("visits.client_id = ?", v.ClientID)
		db = sameNullable(db, "visits.property_id", v.PropertyID)
		db = sameNullable(db, "visits.plot_id", v.PlotID)
		return db.Where("LOWER(visits.culture) = LOWER(?)", v.Culture)
	}, WithDetails, OrderBy(visitOrder))
}

// LegacySiblings finds candidate schedule visits of a seed visit that has no
// planting link: same client, property and crop (and plot when set), no
// planting link, excluding v itself.
func (r *VisitRepository) LegacySiblings(ctx context.Context, v *models.Visit) ([]models.Visit, error) {
	return r.List(ctx, func(db *gorm.DB) *gorm.DB {
		db = db.Where("visits.id <> ? AND visits.client_id = ? AND visits.planting_id IS NULL", v.ID, v.ClientID)
		db = sameNullable(db, "visits.property_id", v.PropertyID)
		if v.PlotID != nil {
			db = db.Where("visits.plot_id = ?", *v.PlotID)
		}
		return db.Where("LOWER(visits.culture) = LOWER(?)", v.Culture)
	}, OrderBy(visitOrder))
}

// LatestPlanting returns the most recent planting of a plot, or nil.
func (r *VisitRepository) LatestPlanting(ctx context.Context, plotID uint) (*models.Planting, error) {
	var p models.Planting
	err := r.DB().WithContext(ctx).Where("plot_id = ?", plotID).Order("id DESC").First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
