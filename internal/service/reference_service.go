package service

import (
	"context"
	"fmt"

	"agro-crm/internal/consultant"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/repository"

	"gorm.io/gorm"
)

const recentVisitLimit = 10

// ReferenceService serves the read-only lookups behind the forms and the
// client page.
type ReferenceService struct {
	db          *gorm.DB
	consultants *consultant.Directory
	render      *Renderer
}

func NewReferenceService(db *gorm.DB, render *Renderer) *ReferenceService {
	return &ReferenceService{db: db, consultants: render.Consultants, render: render}
}

// Cultures lists the crop enumeration with the varieties registered for each.
func (s *ReferenceService) Cultures(ctx context.Context) ([]dto.CultureResponse, error) {
	var varieties []models.Variety
	if err := s.db.WithContext(ctx).Order("culture ASC, name ASC").Find(&varieties).Error; err != nil {
		return nil, fmt.Errorf("list varieties: %w", err)
	}
	byCrop := map[string][]string{}
	for _, v := range varieties {
		byCrop[v.Culture] = append(byCrop[v.Culture], v.Name)
	}

	crops := phenology.Crops()
	out := make([]dto.CultureResponse, 0, len(crops))
	for _, c := range crops {
		names := byCrop[c.String()]
		if names == nil {
			names = []string{}
		}
		out = append(out, dto.CultureResponse{Name: c.String(), Varieties: names})
	}
	return out, nil
}

func (s *ReferenceService) Consultants() []consultant.Consultant {
	return s.consultants.All()
}

func (s *ReferenceService) Status(ctx context.Context) (*dto.StatusResponse, error) {
	out := &dto.StatusResponse{OK: true}
	counts := []struct {
		model any
		dst   *int64
	}{
		{&models.Client{}, &out.Clients},
		{&models.Property{}, &out.Properties},
		{&models.Plot{}, &out.Plots},
		{&models.Planting{}, &out.Plantings},
		{&models.Visit{}, &out.Visits},
	}
	for _, c := range counts {
		if err := s.db.WithContext(ctx).Model(c.model).Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("count: %w", err)
		}
	}
	return out, nil
}

// ClientDetail loads a client with its properties, plots, opportunities and
// latest visits.
func (s *ReferenceService) ClientDetail(ctx context.Context, id uint) (*dto.ClientDetailResponse, error) {
	var client models.Client
	err := s.db.WithContext(ctx).
		Preload("Properties", func(db *gorm.DB) *gorm.DB { return db.Order("properties.name ASC") }).
		Preload("Properties.Plots", func(db *gorm.DB) *gorm.DB { return db.Order("plots.name ASC") }).
		Preload("Opportunities", func(db *gorm.DB) *gorm.DB { return db.Order("opportunities.id DESC") }).
		First(&client, id).Error
	if err != nil {
		return nil, notFound(err, "client")
	}

	var visits []models.Visit
	err = s.db.WithContext(ctx).
		Scopes(repository.WithDetails).
		Where("visits.client_id = ?", id).
		Order("visits.date IS NULL, visits.date DESC, visits.id DESC").
		Limit(recentVisitLimit).
		Find(&visits).Error
	if err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}

	out := &dto.ClientDetailResponse{
		ClientResponse: RenderClient(&client),
		Properties:     make([]dto.PropertyDetail, 0, len(client.Properties)),
		Opportunities:  make([]dto.OpportunityResponse, 0, len(client.Opportunities)),
		RecentVisits:   s.render.Visits(visits),
	}
	for i := range client.Properties {
		p := &client.Properties[i]
		pd := dto.PropertyDetail{PropertyResponse: RenderProperty(p), Plots: make([]dto.PlotResponse, 0, len(p.Plots))}
		for j := range p.Plots {
			pd.Plots = append(pd.Plots, RenderPlot(&p.Plots[j]))
		}
		out.Properties = append(out.Properties, pd)
	}
	for i := range client.Opportunities {
		out.Opportunities = append(out.Opportunities, RenderOpportunity(&client.Opportunities[i]))
	}
	return out, nil
}

func (s *ReferenceService) AuditLogs(ctx context.Context, limit int) ([]dto.AuditLogResponse, error) {
	logs, err := database.ListAuditLogs(ctx, s.db, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	out := make([]dto.AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		r := dto.AuditLogResponse{
			ID:        l.ID,
			CreatedAt: l.CreatedAt,
			Entity:    l.Entity,
			EntityID:  l.EntityID,
			Action:    l.Action,
			Details:   l.Details,
		}
		if l.User != nil {
			r.UserEmail = l.User.Email
		}
		out = append(out, r)
	}
	return out, nil
}
