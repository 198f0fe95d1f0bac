package service

import (
	"context"
	"strings"

	"agro-crm/internal/apierror"
	"agro-crm/internal/blob"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/repository"

	"gorm.io/gorm"
)

type (
	ClientService      = CRUD[models.Client, dto.CreateClientRequest, dto.UpdateClientRequest, dto.ClientResponse]
	PropertyService    = CRUD[models.Property, dto.CreatePropertyRequest, dto.UpdatePropertyRequest, dto.PropertyResponse]
	PlotService        = CRUD[models.Plot, dto.CreatePlotRequest, dto.UpdatePlotRequest, dto.PlotResponse]
	PlantingService    = CRUD[models.Planting, dto.CreatePlantingRequest, dto.UpdatePlantingRequest, dto.PlantingResponse]
	OpportunityService = CRUD[models.Opportunity, dto.CreateOpportunityRequest, dto.UpdateOpportunityRequest, dto.OpportunityResponse]
	VarietyService     = CRUD[models.Variety, dto.CreateVarietyRequest, dto.UpdateVarietyRequest, dto.VarietyResponse]
)

func eq(column string) func(db *gorm.DB, v any) *gorm.DB {
	return func(db *gorm.DB, v any) *gorm.DB { return db.Where(column+" = ?", v) }
}

// mustExist returns the entity's 404 when no row with id exists.
func mustExist[M any](ctx context.Context, tx *gorm.DB, entity string, id uint) error {
	ok, err := repository.New[M](tx).Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apierror.NotFound(entity)
	}
	return nil
}

// pinnedByVisits returns a 409 when visits match the condition. Visits store
// their whole client/property/plot chain, so an owner change would split it.
func pinnedByVisits(ctx context.Context, tx *gorm.DB, entity string, query string, args ...any) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&models.Visit{}).Where(query, args...).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apierror.Conflict("%s has %d visit(s) and cannot change owner", entity, count)
	}
	return nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

func uniqueDocument(tx *gorm.DB, document string, exceptID uint) error {
	if document == "" {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Client{}).
		Where("document = ? AND id <> ?", document, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apierror.Conflict("a client with document %s already exists", document)
	}
	return nil
}

func RenderClient(c *models.Client) dto.ClientResponse {
	return dto.ClientResponse{
		ID:        c.ID,
		Name:      c.Name,
		Document:  c.Document,
		Segment:   c.Segment,
		Vendor:    c.Vendor,
		CreatedAt: c.CreatedAt,
	}
}

func NewClientService(db *gorm.DB, blobs blob.Store) *ClientService {
	return NewCRUD(db, blobs, Binding[models.Client, dto.CreateClientRequest, dto.UpdateClientRequest, dto.ClientResponse]{
		Entity: "client",
		Order:  "id DESC",
		Filters: []Filter{
			{Param: "segment", Apply: eq("segment")},
			{Param: "vendor", Apply: eq("vendor")},
		},
		Build: func(_ context.Context, tx *gorm.DB, req dto.CreateClientRequest) (*models.Client, error) {
			c := &models.Client{
				Name:     strings.TrimSpace(req.Name),
				Document: strings.TrimSpace(req.Document),
				Segment:  strings.TrimSpace(req.Segment),
				Vendor:   strings.TrimSpace(req.Vendor),
			}
			if c.Name == "" {
				return nil, apierror.Validation("name is required")
			}
			return c, uniqueDocument(tx, c.Document, 0)
		},
		Patch: func(_ context.Context, tx *gorm.DB, c *models.Client, req dto.UpdateClientRequest) error {
			if req.Name != nil {
				if name := strings.TrimSpace(*req.Name); name != "" {
					c.Name = name
				}
			}
			if req.Document != nil {
				c.Document = strings.TrimSpace(*req.Document)
			}
			if req.Segment != nil {
				c.Segment = strings.TrimSpace(*req.Segment)
			}
			if req.Vendor != nil {
				c.Vendor = strings.TrimSpace(*req.Vendor)
			}
			return uniqueDocument(tx, c.Document, c.ID)
		},
		Render:  RenderClient,
		ID:      func(c *models.Client) uint { return c.ID },
		Cascade: repository.DeleteClient,
	})
}

// ── Properties ───────────────────────────────────────────────────────────────

func RenderProperty(p *models.Property) dto.PropertyResponse {
	return dto.PropertyResponse{
		ID:        p.ID,
		ClientID:  p.ClientID,
		Name:      p.Name,
		CityState: p.CityState,
		AreaHa:    p.AreaHa,
	}
}

func NewPropertyService(db *gorm.DB, blobs blob.Store) *PropertyService {
	return NewCRUD(db, blobs, Binding[models.Property, dto.CreatePropertyRequest, dto.UpdatePropertyRequest, dto.PropertyResponse]{
		Entity:  "property",
		Order:   "id DESC",
		Filters: []Filter{{Param: "client_id", Numeric: true, Apply: eq("client_id")}},
		Build: func(ctx context.Context, tx *gorm.DB, req dto.CreatePropertyRequest) (*models.Property, error) {
			if err := mustExist[models.Client](ctx, tx, "client", req.ClientID); err != nil {
				return nil, err
			}
			return &models.Property{
				ClientID:  req.ClientID,
				Name:      strings.TrimSpace(req.Name),
				CityState: strings.TrimSpace(req.CityState),
				AreaHa:    req.AreaHa,
			}, nil
		},
		Patch: func(ctx context.Context, tx *gorm.DB, p *models.Property, req dto.UpdatePropertyRequest) error {
			if req.ClientID != nil && *req.ClientID != p.ClientID {
				if err := mustExist[models.Client](ctx, tx, "client", *req.ClientID); err != nil {
					return err
				}
				err := pinnedByVisits(ctx, tx, "property",
					"property_id = ? OR plot_id IN (SELECT id FROM plots WHERE property_id = ?)", p.ID, p.ID)
				if err != nil {
					return err
				}
				p.ClientID = *req.ClientID
			}
			if req.Name != nil {
				p.Name = strings.TrimSpace(*req.Name)
			}
			if req.CityState != nil {
				p.CityState = strings.TrimSpace(*req.CityState)
			}
			if req.AreaHa != nil {
				p.AreaHa = req.AreaHa
			}
			return nil
		},
		Render:  RenderProperty,
		ID:      func(p *models.Property) uint { return p.ID },
		Cascade: repository.DeleteProperty,
	})
}

// ── Plots ────────────────────────────────────────────────────────────────────

func RenderPlot(p *models.Plot) dto.PlotResponse {
	return dto.PlotResponse{
		ID:         p.ID,
		PropertyID: p.PropertyID,
		Name:       p.Name,
		AreaHa:     p.AreaHa,
		Irrigated:  p.Irrigated,
		Latitude:   p.Latitude,
		Longitude:  p.Longitude,
	}
}

func NewPlotService(db *gorm.DB, blobs blob.Store) *PlotService {
	return NewCRUD(db, blobs, Binding[models.Plot, dto.CreatePlotRequest, dto.UpdatePlotRequest, dto.PlotResponse]{
		Entity: "plot",
		Order:  "id DESC",
		Filters: []Filter{
			{Param: "property_id", Numeric: true, Apply: eq("property_id")},
			{Param: "client_id", Numeric: true, Apply: func(db *gorm.DB, v any) *gorm.DB {
				return db.Where("property_id IN (SELECT id FROM properties WHERE client_id = ?)", v)
			}},
		},
		Build: func(ctx context.Context, tx *gorm.DB, req dto.CreatePlotRequest) (*models.Plot, error) {
			if err := mustExist[models.Property](ctx, tx, "property", req.PropertyID); err != nil {
				return nil, err
			}
			return &models.Plot{
				PropertyID: req.PropertyID,
				Name:       strings.TrimSpace(req.Name),
				AreaHa:     req.AreaHa,
				Irrigated:  req.Irrigated,
				Latitude:   req.Latitude,
				Longitude:  req.Longitude,
			}, nil
		},
		Patch: func(ctx context.Context, tx *gorm.DB, p *models.Plot, req dto.UpdatePlotRequest) error {
			if req.PropertyID != nil && *req.PropertyID != p.PropertyID {
				if err := mustExist[models.Property](ctx, tx, "property", *req.PropertyID); err != nil {
					return err
				}
				if err := pinnedByVisits(ctx, tx, "plot", "plot_id = ?", p.ID); err != nil {
					return err
				}
				p.PropertyID = *req.PropertyID
			}
			if req.Name != nil {
				p.Name = strings.TrimSpace(*req.Name)
			}
			if req.AreaHa != nil {
				p.AreaHa = req.AreaHa
			}
			if req.Irrigated != nil {
				p.Irrigated = req.Irrigated
			}
			if req.Latitude != nil {
				p.Latitude = req.Latitude
			}
			if req.Longitude != nil {
				p.Longitude = req.Longitude
			}
			return nil
		},
		Render:  RenderPlot,
		ID:      func(p *models.Plot) uint { return p.ID },
		Cascade: repository.DeletePlot,
	})
}

// ── Plantings ────────────────────────────────────────────────────────────────

func RenderPlanting(p *models.Planting) dto.PlantingResponse {
	return dto.PlantingResponse{
		ID:           p.ID,
		PlotID:       p.PlotID,
		Culture:      p.Culture,
		Variety:      p.Variety,
		PlantingDate: dto.FormatDate(p.PlantingDate),
	}
}

func NewPlantingService(db *gorm.DB, blobs blob.Store) *PlantingService {
	return NewCRUD(db, blobs, Binding[models.Planting, dto.CreatePlantingRequest, dto.UpdatePlantingRequest, dto.PlantingResponse]{
		Entity: "planting",
		Order:  "id DESC",
		Filters: []Filter{
			{Param: "plot_id", Numeric: true, Apply: eq("plot_id")},
			{Param: "property_id", Numeric: true, Apply: func(db *gorm.DB, v any) *gorm.DB {
				return db.Where("plot_id IN (SELECT id FROM plots WHERE property_id = ?)", v)
			}},
			{Param: "client_id", Numeric: true, Apply: func(db *gorm.DB, v any) *gorm.DB {
				return db.Where(`plot_id IN (SELECT plots.id FROM plots
					JOIN properties ON properties.id = plots.property_id
					WHERE properties.client_id = ?)`, v)
			}},
		},
		Build: func(ctx context.Context, tx *gorm.DB, req dto.CreatePlantingRequest) (*models.Planting, error) {
			if err := mustExist[models.Plot](ctx, tx, "plot", req.PlotID); err != nil {
				return nil, err
			}
			date, err := dto.ParseDate(req.PlantingDate)
			if err != nil {
				return nil, apierror.Validation("invalid planting_date, expected YYYY-MM-DD")
			}
			plotID := req.PlotID
			return &models.Planting{
				PlotID:       &plotID,
				Culture:      canonicalCulture(req.Culture),
				Variety:      strings.TrimSpace(req.Variety),
				PlantingDate: date,
			}, nil
		},
		Patch: func(ctx context.Context, tx *gorm.DB, p *models.Planting, req dto.UpdatePlantingRequest) error {
			if id := nonZero(req.PlotID); id != nil {
				if err := mustExist[models.Plot](ctx, tx, "plot", *id); err != nil {
					return err
				}
				p.PlotID = id
			}
			if req.Culture != nil {
				p.Culture = canonicalCulture(*req.Culture)
			}
			if req.Variety != nil {
				p.Variety = strings.TrimSpace(*req.Variety)
			}
			if req.PlantingDate != nil {
				date, err := dto.ParseDate(*req.PlantingDate)
				if err != nil {
					return apierror.Validation("invalid planting_date, expected YYYY-MM-DD")
				}
				p.PlantingDate = date
			}
			return nil
		},
		Render:  RenderPlanting,
		ID:      func(p *models.Planting) uint { return p.ID },
		Cascade: repository.DeletePlanting,
	})
}

// ── Opportunities ────────────────────────────────────────────────────────────

func RenderOpportunity(o *models.Opportunity) dto.OpportunityResponse {
	return dto.OpportunityResponse{
		ID:             o.ID,
		ClientID:       o.ClientID,
		Title:          o.Title,
		EstimatedValue: o.EstimatedValue,
		Stage:          o.Stage,
		CreatedAt:      o.CreatedAt,
	}
}

func NewOpportunityService(db *gorm.DB) *OpportunityService {
	return NewCRUD(db, nil, Binding[models.Opportunity, dto.CreateOpportunityRequest, dto.UpdateOpportunityRequest, dto.OpportunityResponse]{
		Entity: "opportunity",
		Order:  "id DESC",
		Filters: []Filter{
			{Param: "client_id", Numeric: true, Apply: eq("client_id")},
			{Param: "stage", Apply: eq("stage")},
		},
		Build: func(ctx context.Context, tx *gorm.DB, req dto.CreateOpportunityRequest) (*models.Opportunity, error) {
			if err := mustExist[models.Client](ctx, tx, "client", req.ClientID); err != nil {
				return nil, err
			}
			if req.EstimatedValue != nil && req.EstimatedValue.IsNegative() {
				return nil, apierror.Validation("estimated_value must not be negative")
			}
			stage := strings.TrimSpace(req.Stage)
			if stage == "" {
				stage = models.DefaultOpportunityStage
			}
			return &models.Opportunity{
				ClientID:       req.ClientID,
				Title:          strings.TrimSpace(req.Title),
				EstimatedValue: req.EstimatedValue,
				Stage:          stage,
			}, nil
		},
		Patch: func(ctx context.Context, tx *gorm.DB, o *models.Opportunity, req dto.UpdateOpportunityRequest) error {
			if req.ClientID != nil && *req.ClientID != o.ClientID {
				if err := mustExist[models.Client](ctx, tx, "client", *req.ClientID); err != nil {
					return err
				}
				o.ClientID = *req.ClientID
			}
			if req.Title != nil {
				o.Title = strings.TrimSpace(*req.Title)
			}
			if req.EstimatedValue != nil {
				if req.EstimatedValue.IsNegative() {
					return apierror.Validation("estimated_value must not be negative")
				}
				o.EstimatedValue = req.EstimatedValue
			}
			if req.Stage != nil && strings.TrimSpace(*req.Stage) != "" {
				o.Stage = strings.TrimSpace(*req.Stage)
			}
			return nil
		},
		Render: RenderOpportunity,
		ID:     func(o *models.Opportunity) uint { return o.ID },
	})
}

// ── Varieties ────────────────────────────────────────────────────────────────

func uniqueVariety(tx *gorm.DB, culture, name string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Variety{}).
		Where("culture = ? AND LOWER(name) = LOWER(?) AND id <> ?", culture, name, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apierror.Conflict("variety %s already exists for %s", name, culture)
	}
	return nil
}

func NewVarietyService(db *gorm.DB) *VarietyService {
	return NewCRUD(db, nil, Binding[models.Variety, dto.CreateVarietyRequest, dto.UpdateVarietyRequest, dto.VarietyResponse]{
		Entity: "variety",
		Order:  "culture ASC, name ASC",
		Filters: []Filter{{Param: "culture", Apply: func(db *gorm.DB, v any) *gorm.DB {
			return db.Where("culture = ?", canonicalCulture(v.(string)))
		}}},
		Build: func(_ context.Context, tx *gorm.DB, req dto.CreateVarietyRequest) (*models.Variety, error) {
			crop := phenology.ParseCrop(req.Culture)
			if !crop.Known() {
				return nil, apierror.Validation("unknown culture %q", req.Culture)
			}
			v := &models.Variety{Culture: crop.String(), Name: strings.TrimSpace(req.Name)}
			return v, uniqueVariety(tx, v.Culture, v.Name, 0)
		},
		Patch: func(_ context.Context, tx *gorm.DB, v *models.Variety, req dto.UpdateVarietyRequest) error {
			if req.Name != nil {
				v.Name = strings.TrimSpace(*req.Name)
			}
			return uniqueVariety(tx, v.Culture, v.Name, v.ID)
		},
		Render: func(v *models.Variety) dto.VarietyResponse {
			return dto.VarietyResponse{ID: v.ID, Culture: v.Culture, Name: v.Name}
		},
		ID: func(v *models.Variety) uint { return v.ID },
	})
}
