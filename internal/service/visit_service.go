package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"agro-crm/internal/apierror"
	"agro-crm/internal/blob"
	"agro-crm/internal/consultant"
	"agro-crm/internal/database"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// VisitQuery is the GET /visits filter set. Month "current" restricts the
// listing to this calendar month; Scope "all" ignores every other filter.
type VisitQuery struct {
	Month string
	Scope string
	repository.VisitFilter
}

// VisitService is the Visit Lifecycle Manager: it creates schedules as a unit
// and cascades deletes from the seed visit to its planting.
type VisitService struct {
	db          *gorm.DB
	visits      *repository.VisitRepository
	scheduler   *phenology.Scheduler
	consultants *consultant.Directory
	blobs       blob.Store
	render      *Renderer
	now         func() time.Time
}

func NewVisitService(db *gorm.DB, scheduler *phenology.Scheduler, consultants *consultant.Directory, blobs blob.Store, render *Renderer) *VisitService {
	return &VisitService{
		db:          db,
		visits:      repository.NewVisitRepository(db),
		scheduler:   scheduler,
		consultants: consultants,
		blobs:       blobs,
		render:      render,
		now:         time.Now,
	}
}

// refs are the validated optional references of a visit.
type refs struct {
	PropertyID *uint
	PlotID     *uint
}

// resolveRefs checks that the client exists, that the property belongs to the
// client and that the plot belongs to the property. A plot given without a
// property supplies the property.
func resolveRefs(ctx context.Context, tx *gorm.DB, clientID uint, propertyID, plotID *uint) (refs, error) {
	propertyID, plotID = nonZero(propertyID), nonZero(plotID)
	if err := mustExist[models.Client](ctx, tx, "client", clientID); err != nil {
		return refs{}, err
	}

	if plotID != nil {
		var plot models.Plot
		if err := tx.WithContext(ctx).Select("id", "property_id").First(&plot, *plotID).Error; err != nil {
			return refs{}, notFound(err, "plot")
		}
		switch {
		case propertyID == nil:
			pid := plot.PropertyID
			propertyID = &pid
		case *propertyID != plot.PropertyID:
			return refs{}, apierror.Validation("plot %d does not belong to property %d", *plotID, *propertyID)
		}
	}

	if propertyID != nil {
		var prop models.Property
		if err := tx.WithContext(ctx).Select("id", "client_id").First(&prop, *propertyID).Error; err != nil {
			return refs{}, notFound(err, "property")
		}
		if prop.ClientID != clientID {
			return refs{}, apierror.Validation("property %d does not belong to client %d", *propertyID, clientID)
		}
	}
	return refs{PropertyID: propertyID, PlotID: plotID}, nil
}

func (s *VisitService) checkConsultant(id *uint) (*uint, error) {
	id = nonZero(id)
	if id != nil && !s.consultants.Exists(*id) {
		return nil, apierror.NotFound("consultant")
	}
	return id, nil
}

func normalizeStatus(s string) models.VisitStatus {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return models.VisitPlanned
	}
	return models.VisitStatus(s)
}

func buildProducts(in []dto.ProductInput) ([]models.VisitProduct, error) {
	out := make([]models.VisitProduct, 0, len(in))
	for _, p := range in {
		date, err := dto.ParseDate(p.ApplicationDate)
		if err != nil {
			return nil, apierror.Validation("invalid application_date, expected YYYY-MM-DD")
		}
		out = append(out, models.VisitProduct{
			ProductName:     strings.TrimSpace(p.ProductName),
			Dose:            strings.TrimSpace(p.Dose),
			Unit:            strings.TrimSpace(p.Unit),
			ApplicationDate: date,
		})
	}
	return out, nil
}

// visitDraft is a create request after parsing, before any write.
type visitDraft struct {
	req          dto.CreateVisitRequest
	date         time.Time
	status       models.VisitStatus
	culture      string
	variety      string
	consultantID *uint
	products     []models.VisitProduct
}

func (s *VisitService) draft(req dto.CreateVisitRequest) (*visitDraft, error) {
	date, err := dto.ParseDate(req.Date)
	if err != nil || date == nil {
		return nil, apierror.Validation("invalid date, expected YYYY-MM-DD")
	}
	d := &visitDraft{
		req:     req,
		date:    *date,
		status:  normalizeStatus(req.Status),
		culture: canonicalCulture(req.Culture),
		variety: strings.TrimSpace(req.Variety),
	}
	if req.GenerateSchedule && (d.culture == "" || d.variety == "") {
		return nil, apierror.Validation("culture and variety are required to generate a schedule")
	}
	if d.consultantID, err = s.checkConsultant(req.ConsultantID); err != nil {
		return nil, err
	}
	if d.products, err = buildProducts(req.Products); err != nil {
		return nil, err
	}
	return d, nil
}

// base is the visit every record of the request shares.
func (d *visitDraft) base(r refs) models.Visit {
	date := d.date
	return models.Visit{
		ClientID:       d.req.ClientID,
		PropertyID:     r.PropertyID,
		PlotID:         r.PlotID,
		ConsultantID:   d.consultantID,
		Date:           &date,
		Kind:           models.KindAdHoc,
		Status:         d.status,
		Checklist:      d.req.Checklist,
		Diagnosis:      d.req.Diagnosis,
		Recommendation: strings.TrimSpace(d.req.Recommendation),
		ObservedStage:  d.req.ObservedStage,
		Culture:        d.culture,
		Variety:        d.variety,
		Latitude:       d.req.Latitude,
		Longitude:      d.req.Longitude,
	}
}

// createSingle writes one visit without a schedule. Crop details missing
// from the request are copied from the plot's latest planting.
func (s *VisitService) createSingle(ctx context.Context, tx *gorm.DB, d *visitDraft) (*models.Visit, error) {
	r, err := resolveRefs(ctx, tx, d.req.ClientID, d.req.PropertyID, d.req.PlotID)
	if err != nil {
		return nil, err
	}
	v := d.base(r)
	if v.Culture == "" && v.PlotID != nil {
		p, err := s.visits.WithTx(tx).LatestPlanting(ctx, *v.PlotID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			v.Culture, v.Variety = p.Culture, p.Variety
		}
	}
	v.Products = d.products
	if err := tx.WithContext(ctx).Create(&v).Error; err != nil {
		return nil, fmt.Errorf("create visit: %w", err)
	}
	return &v, nil
}

// Create writes a single visit, or with GenerateSchedule a planting, its seed
// visit and one planned visit per schedule stub, all or nothing.
func (s *VisitService) Create(ctx context.Context, actor *uint, req dto.CreateVisitRequest) (*dto.CreateVisitResponse, error) {
	d, err := s.draft(req)
	if err != nil {
		return nil, err
	}

	var stubs []phenology.Stub
	if req.GenerateSchedule {
		// the catalog is read before the transaction opens
		stubs, err = s.scheduler.Generate(ctx, phenology.ParseCrop(d.culture), d.variety, d.date)
		if err != nil {
			return nil, fmt.Errorf("generate schedule: %w", err)
		}
		if len(stubs) == 0 {
			log.Info().Str("culture", d.culture).Msg("no stage catalog entries, only the seed visit is created")
		}
	}

	var seed *models.Visit
	err = runTx(ctx, s.db, func(tx *gorm.DB) error {
		if !req.GenerateSchedule {
			seed, err = s.createSingle(ctx, tx, d)
			return err
		}

		r, err := resolveRefs(ctx, tx, req.ClientID, req.PropertyID, req.PlotID)
		if err != nil {
			return err
		}
		plantingDate := d.date
		planting := models.Planting{
			PlotID:       r.PlotID,
			Culture:      d.culture,
			Variety:      d.variety,
			PlantingDate: &plantingDate,
		}
		if err := tx.Create(&planting).Error; err != nil {
			return fmt.Errorf("create planting: %w", err)
		}

		v := d.base(r)
		v.PlantingID = &planting.ID
		v.Kind = models.KindSeed
		v.Recommendation = models.SeedLabel
		v.Products = d.products
		if err := tx.Create(&v).Error; err != nil {
			return fmt.Errorf("create seed visit: %w", err)
		}
		seed = &v

		if len(stubs) == 0 {
			return nil
		}
		scheduled := make([]models.Visit, 0, len(stubs))
		for _, st := range stubs {
			sv := d.base(r)
			date := st.Date
			sv.Date = &date
			sv.PlantingID = &planting.ID
			sv.Kind = models.KindScheduled
			sv.Status = models.VisitPlanned
			sv.Recommendation = st.Label
			sv.Checklist, sv.Diagnosis, sv.ObservedStage = "", "", ""
			scheduled = append(scheduled, sv)
		}
		if err := tx.Create(&scheduled).Error; err != nil {
			return fmt.Errorf("create scheduled visits: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	database.CreateAuditLog(ctx, s.db, actor, "visit", seed.ID, "create",
		fmt.Sprintf("generate_schedule=%t scheduled=%d", req.GenerateSchedule, len(stubs)))

	msg := "visit created"
	if req.GenerateSchedule {
		msg = "visit created with schedule"
		log.Info().
			Str("culture", d.culture).
			Uint("planting_id", *seed.PlantingID).
			Int("scheduled", len(stubs)).
			Msg("schedule generated")
	}
	out, err := s.Get(ctx, seed.ID)
	if err != nil {
		return nil, err
	}
	return &dto.CreateVisitResponse{Message: msg, Visit: *out, Scheduled: len(stubs)}, nil
}

// Bulk creates plain visits. Items with invalid or missing references are skipped.
func (s *VisitService) Bulk(ctx context.Context, actor *uint, items []dto.CreateVisitRequest) ([]dto.VisitResponse, error) {
	var created []uint
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		for i, it := range items {
			it.GenerateSchedule = false
			d, err := s.draft(it)
			if err == nil {
				var v *models.Visit
				if v, err = s.createSingle(ctx, tx, d); err == nil {
					created = append(created, v.ID)
					continue
				}
			}
			if _, ok := apierror.As(err); !ok {
				return err
			}
			log.Debug().Int("item", i).Err(err).Msg("bulk visit skipped")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, id := range created {
		database.CreateAuditLog(ctx, s.db, actor, "visit", id, "create", "bulk")
	}
	if len(created) == 0 {
		return []dto.VisitResponse{}, nil
	}
	list, err := s.visits.List(ctx, repository.Where("visits.id IN ?", created), repository.WithDetails, repository.OrderBy("visits.id ASC"))
	if err != nil {
		return nil, err
	}
	return s.render.Visits(list), nil
}

func (s *VisitService) Get(ctx context.Context, id uint) (*dto.VisitResponse, error) {
	v, err := s.visits.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "visit")
	}
	out := s.render.Visit(v)
	return &out, nil
}

// Filter resolves the month and scope shortcuts into a repository filter.
func (s *VisitService) Filter(q VisitQuery) repository.VisitFilter {
	switch {
	case q.Scope == "all":
		return repository.VisitFilter{}
	case q.Month == "current":
		now := s.now().UTC()
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		return repository.VisitFilter{From: &from, To: &to}
	}
	return q.VisitFilter
}

func (s *VisitService) Search(ctx context.Context, q VisitQuery) ([]models.Visit, error) {
	list, err := s.visits.Search(ctx, s.Filter(q))
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return list, nil
}

func (s *VisitService) List(ctx context.Context, q VisitQuery) ([]dto.VisitResponse, error) {
	list, err := s.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.render.Visits(list), nil
}

// Update applies a partial update. References are re-validated when any of
// client, property or plot changes; products, when given, replace the list.
func (s *VisitService) Update(ctx context.Context, actor *uint, id uint, req dto.UpdateVisitRequest) (*dto.VisitResponse, error) {
	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		var v models.Visit
		if err := tx.First(&v, id).Error; err != nil {
			return notFound(err, "visit")
		}

		if req.ClientID != nil || req.PropertyID != nil || req.PlotID != nil {
			clientID := v.ClientID
			if req.ClientID != nil && *req.ClientID != 0 {
				clientID = *req.ClientID
			}
			propertyID, plotID := v.PropertyID, v.PlotID
			if req.PropertyID != nil {
				propertyID = req.PropertyID
			}
			if req.PlotID != nil {
				plotID = req.PlotID
			}
			r, err := resolveRefs(ctx, tx, clientID, propertyID, plotID)
			if err != nil {
				return err
			}
			v.ClientID, v.PropertyID, v.PlotID = clientID, r.PropertyID, r.PlotID
		}
		if req.ConsultantID != nil {
			cid, err := s.checkConsultant(req.ConsultantID)
			if err != nil {
				return err
			}
			v.ConsultantID = cid
		}
		if req.Date != nil && !req.PreserveDate {
			date, err := dto.ParseDate(*req.Date)
			if err != nil {
				return apierror.Validation("invalid date, expected YYYY-MM-DD")
			}
			v.Date = date
		}
		if req.Status != nil && strings.TrimSpace(*req.Status) != "" {
			v.Status = normalizeStatus(*req.Status)
		}
		if req.Recommendation != nil && strings.TrimSpace(*req.Recommendation) != "" {
			v.Recommendation = strings.TrimSpace(*req.Recommendation)
		}
		if req.Checklist != nil {
			v.Checklist = *req.Checklist
		}
		if req.Diagnosis != nil {
			v.Diagnosis = *req.Diagnosis
		}
		if req.ObservedStage != nil {
			v.ObservedStage = *req.ObservedStage
		}
		if req.Culture != nil {
			v.Culture = canonicalCulture(*req.Culture)
		}
		if req.Variety != nil {
			v.Variety = strings.TrimSpace(*req.Variety)
		}
		if req.Latitude != nil {
			v.Latitude = req.Latitude
		}
		if req.Longitude != nil {
			v.Longitude = req.Longitude
		}

		if req.Products != nil {
			products, err := buildProducts(*req.Products)
			if err != nil {
				return err
			}
			if err := tx.Where("visit_id = ?", id).Delete(&models.VisitProduct{}).Error; err != nil {
				return err
			}
			for i := range products {
				products[i].VisitID = id
			}
			if len(products) > 0 {
				if err := tx.Create(&products).Error; err != nil {
					return err
				}
			}
		}
		return tx.Omit("Client", "Property", "Plot", "Planting", "Photos", "Products").Save(&v).Error
	})
	if err != nil {
		return nil, err
	}

	database.CreateAuditLog(ctx, s.db, actor, "visit", id, "update", "")
	return s.Get(ctx, id)
}

// DeleteOptions narrows a visit delete. SingleOnly removes just the visit,
// never its planting or siblings.
type DeleteOptions struct {
	SingleOnly bool
}

// Delete removes a visit. A visit linked to a planting, or a seed visit,
// takes its planting's whole schedule with it. Seed visits without a planting
// link fall back to matching siblings on client, property, plot and crop.
func (s *VisitService) Delete(ctx context.Context, actor *uint, id uint, opts DeleteOptions) (*dto.DeleteVisitResponse, error) {
	resp := &dto.DeleteVisitResponse{}
	var rm *repository.Removed

	err := runTx(ctx, s.db, func(tx *gorm.DB) error {
		var v models.Visit
		if err := tx.First(&v, id).Error; err != nil {
			return notFound(err, "visit")
		}

		var err error
		switch {
		case opts.SingleOnly:
			rm, err = repository.DeleteVisits(tx, []uint{v.ID})
			resp.Message = "visit removed"
		case v.PlantingID != nil:
			rm, err = repository.DeletePlanting(tx, *v.PlantingID)
			resp.PlantingID = v.PlantingID
			resp.Message = "planting and linked visits removed"
		case v.IsSeed():
			rm, err = s.deleteLegacyCycle(ctx, tx, &v, resp)
		default:
			rm, err = repository.DeleteVisits(tx, []uint{v.ID})
			resp.Message = "visit removed"
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	removeBlobs(ctx, s.blobs, rm.PhotoKeys)
	resp.RemovedVisitIDs = rm.VisitIDs
	sort.Slice(resp.RemovedVisitIDs, func(i, j int) bool { return resp.RemovedVisitIDs[i] < resp.RemovedVisitIDs[j] })

	database.CreateAuditLog(ctx, s.db, actor, "visit", id, "delete", fmt.Sprint(rm.Counts))
	log.Info().Uint("visit_id", id).Uints("removed", resp.RemovedVisitIDs).Msg("visit deleted")
	return resp, nil
}

// deleteLegacyCycle handles seed visits written before plantings were linked.
// When the group holds other seed visits only the visits dated from this seed
// up to the next one are taken.
func (s *VisitService) deleteLegacyCycle(ctx context.Context, tx *gorm.DB, v *models.Visit, resp *dto.DeleteVisitResponse) (*repository.Removed, error) {
	siblings, err := s.visits.WithTx(tx).LegacySiblings(ctx, v)
	if err != nil {
		return nil, err
	}

	var seeds, others []models.Visit
	for _, sib := range siblings {
		if sib.IsSeed() {
			seeds = append(seeds, sib)
		} else {
			others = append(others, sib)
		}
	}

	targets := others
	if len(seeds) > 0 {
		targets = nil
		if v.Date != nil {
			var next *time.Time
			for _, sd := range seeds {
				if sd.Date != nil && sd.Date.After(*v.Date) && (next == nil || sd.Date.Before(*next)) {
					next = sd.Date
				}
			}
			for _, o := range others {
				if o.Date == nil || o.Date.Before(*v.Date) {
					continue
				}
				if next != nil && !o.Date.Before(*next) {
					continue
				}
				targets = append(targets, o)
			}
		}
	}

	ids := []uint{v.ID}
	matched := make([]uint, 0, len(targets))
	for _, t := range targets {
		matched = append(matched, t.ID)
	}
	ids = append(ids, matched...)

	if len(matched) > 0 || len(seeds) > 0 {
		resp.Ambiguous = true
		log.Warn().
			Uint("visit_id", v.ID).
			Uints("matched", matched).
			Int("other_seeds", len(seeds)).
			Msg("seed visit without planting link, siblings matched heuristically")
	}
	resp.Message = fmt.Sprintf("planting visit and %d related visits removed", len(matched))
	return repository.DeleteVisits(tx, ids)
}
