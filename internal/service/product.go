package service

import (
	"context"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"gorm.io/gorm"
)

func (s *VisitService) AddProduct(ctx context.Context, actor *uint, visitID uint, in dto.ProductInput) (*dto.ProductResponse, error) {
	products, err := buildProducts([]dto.ProductInput{in})
	if err != nil {
		return nil, err
	}
	p := products[0]
	p.VisitID = visitID

	err = runTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := mustExist[models.Visit](ctx, tx, "visit", visitID); err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, err
	}
	database.CreateAuditLog(ctx, s.db, actor, "visit_product", p.ID, "create", p.ProductName)
	out := renderProduct(&p)
	return &out, nil
}

func (s *VisitService) UpdateProduct(ctx context.Context, actor *uint, id uint, req dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	var p models.VisitProduct
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return notFound(err, "product")
		}
		if req.ProductName != nil {
			p.ProductName = strings.TrimSpace(*req.ProductName)
		}
		if req.Dose != nil {
			p.Dose = strings.TrimSpace(*req.Dose)
		}
		if req.Unit != nil {
			p.Unit = strings.TrimSpace(*req.Unit)
		}
		if req.ApplicationDate != nil && *req.ApplicationDate != "" {
			date, err := dto.ParseDate(*req.ApplicationDate)
			if err != nil {
				return apierror.Validation("invalid application_date, expected YYYY-MM-DD")
			}
			p.ApplicationDate = date
		}
		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, err
	}
	database.CreateAuditLog(ctx, s.db, actor, "visit_product", id, "update", "")
	out := renderProduct(&p)
	return &out, nil
}

func (s *VisitService) DeleteProduct(ctx context.Context, actor *uint, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.VisitProduct{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apierror.NotFound("product")
	}
	database.CreateAuditLog(ctx, s.db, actor, "visit_product", id, "delete", "")
	return nil
}
