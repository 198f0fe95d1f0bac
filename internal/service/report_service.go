package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"agro-crm/internal/apierror"
	"agro-crm/internal/consultant"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/report"
	"agro-crm/internal/repository"

	"gorm.io/gorm"
)

const reportTitle = "Technical visit report"

// ReportService builds the read-only documents: cycle reports, exports and
// schedule previews.
type ReportService struct {
	db          *gorm.DB
	visits      *repository.VisitRepository
	photos      *PhotoService
	scheduler   *phenology.Scheduler
	consultants *consultant.Directory
	urls        PhotoURLs
	now         func() time.Time
}

func NewReportService(db *gorm.DB, photos *PhotoService, scheduler *phenology.Scheduler, render *Renderer) *ReportService {
	return &ReportService{
		db:          db,
		visits:      repository.NewVisitRepository(db),
		photos:      photos,
		scheduler:   scheduler,
		consultants: render.Consultants,
		urls:        render.URLs,
		now:         time.Now,
	}
}

// Cycle resolves the visits reported together with visitID. With images the
// photo bytes are loaded from object storage for embedding.
func (s *ReportService) Cycle(ctx context.Context, visitID uint, images bool) (*report.Cycle, error) {
	v, err := s.visits.Get(ctx, visitID)
	if err != nil {
		return nil, notFound(err, "visit")
	}
	list, err := s.visits.Cycle(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("load cycle: %w", err)
	}

	culture, variety := cropOf(v)
	c := &report.Cycle{
		Title:       reportTitle,
		Client:      clientName(v),
		Culture:     culture,
		Variety:     variety,
		Consultant:  s.consultants.NameOf(v.ConsultantID),
		GeneratedAt: s.now(),
		Visits:      make([]report.Section, 0, len(list)),
	}
	if v.PropertyID != nil {
		c.Property = s.nameOf(ctx, &models.Property{}, *v.PropertyID)
	}
	if v.PlotID != nil {
		c.Plot = s.nameOf(ctx, &models.Plot{}, *v.PlotID)
	}

	for i := range list {
		sec := s.section(ctx, &list[i], images)
		if sec.Date != nil {
			if c.From == nil || sec.Date.Before(*c.From) {
				c.From = sec.Date
			}
			if c.To == nil || sec.Date.After(*c.To) {
				c.To = sec.Date
			}
		}
		c.Visits = append(c.Visits, sec)
	}
	return c, nil
}

// nameOf reads the name column of a property or plot; a dangling id renders empty.
func (s *ReportService) nameOf(ctx context.Context, model any, id uint) string {
	var name string
	if err := s.db.WithContext(ctx).Model(model).Where("id = ?", id).Select("name").Scan(&name).Error; err != nil {
		return ""
	}
	return name
}

func (s *ReportService) section(ctx context.Context, v *models.Visit, images bool) report.Section {
	sec := report.Section{
		ID:            v.ID,
		Date:          v.Date,
		Label:         v.Recommendation,
		Status:        string(v.Status),
		ObservedStage: v.ObservedStage,
		Checklist:     v.Checklist,
		Diagnosis:     v.Diagnosis,
	}
	// ad hoc visits carry free text in the recommendation, not a stage label
	if v.Kind != models.KindScheduled && !v.IsSeed() {
		sec.Label = "Visit"
		sec.Recommendation = v.Recommendation
	}
	for _, p := range v.Products {
		sec.Products = append(sec.Products, report.Product{
			Name:            p.ProductName,
			Dose:            p.Dose,
			Unit:            p.Unit,
			ApplicationDate: p.ApplicationDate,
		})
	}
	for i := range v.Photos {
		p := &v.Photos[i]
		ph := report.Photo{
			URL:       s.urls.Resolve(p.URL),
			Caption:   p.Caption,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		}
		if images {
			ph.Data = s.photos.ReadImage(ctx, p)
		}
		sec.Photos = append(sec.Photos, ph)
	}
	return sec
}

// PDF renders the cycle of visitID and returns the download file name.
func (s *ReportService) PDF(ctx context.Context, visitID uint, w io.Writer) (string, error) {
	c, err := s.Cycle(ctx, visitID, true)
	if err != nil {
		return "", err
	}
	if err := report.WritePDF(w, c); err != nil {
		return "", fmt.Errorf("render pdf: %w", err)
	}
	return c.FileName(), nil
}

// ExportVisits writes the filtered visit listing as XLSX.
func (s *ReportService) ExportVisits(ctx context.Context, list []models.Visit, w io.Writer) error {
	props, plots, err := s.placeNames(ctx, list)
	if err != nil {
		return err
	}
	rows := make([]report.VisitRow, 0, len(list))
	for i := range list {
		v := &list[i]
		culture, variety := cropOf(v)
		row := report.VisitRow{
			ID:             v.ID,
			Client:         clientName(v),
			Consultant:     s.consultants.NameOf(v.ConsultantID),
			Culture:        culture,
			Variety:        variety,
			Kind:           string(v.Kind),
			Status:         string(v.Status),
			ObservedStage:  v.ObservedStage,
			Recommendation: v.Recommendation,
			Products:       len(v.Products),
			Photos:         len(v.Photos),
		}
		if d := dto.FormatDate(v.Date); d != nil {
			row.Date = *d
		}
		if v.PropertyID != nil {
			row.Property = props[*v.PropertyID]
		}
		if v.PlotID != nil {
			row.Plot = plots[*v.PlotID]
		}
		rows = append(rows, row)
	}
	return report.WriteVisitsXLSX(w, rows)
}

func (s *ReportService) placeNames(ctx context.Context, list []models.Visit) (map[uint]string, map[uint]string, error) {
	var propIDs, plotIDs []uint
	for _, v := range list {
		if v.PropertyID != nil {
			propIDs = append(propIDs, *v.PropertyID)
		}
		if v.PlotID != nil {
			plotIDs = append(plotIDs, *v.PlotID)
		}
	}
	props := map[uint]string{}
	plots := map[uint]string{}
	if len(propIDs) > 0 {
		var rows []models.Property
		if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", propIDs).Find(&rows).Error; err != nil {
			return nil, nil, fmt.Errorf("load properties: %w", err)
		}
		for _, r := range rows {
			props[r.ID] = r.Name
		}
	}
	if len(plotIDs) > 0 {
		var rows []models.Plot
		if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", plotIDs).Find(&rows).Error; err != nil {
			return nil, nil, fmt.Errorf("load plots: %w", err)
		}
		for _, r := range rows {
			plots[r.ID] = r.Name
		}
	}
	return props, plots, nil
}

// Schedule previews the stage visits of a planting without persisting them.
// An unknown crop yields an empty schedule.
func (s *ReportService) Schedule(ctx context.Context, culture, variety, plantingDate string) ([]dto.ScheduleEntry, error) {
	if strings.TrimSpace(culture) == "" || strings.TrimSpace(plantingDate) == "" {
		return nil, apierror.Validation("culture and planting_date are required")
	}
	date, err := dto.ParseDate(plantingDate)
	if err != nil {
		return nil, apierror.Validation("invalid planting_date format")
	}
	stubs, err := s.scheduler.Generate(ctx, phenology.ParseCrop(culture), variety, *date)
	if err != nil {
		return nil, fmt.Errorf("generate schedule: %w", err)
	}
	out := make([]dto.ScheduleEntry, 0, len(stubs))
	for _, st := range stubs {
		out = append(out, dto.ScheduleEntry{
			Code:          st.Code,
			Stage:         st.Label,
			Days:          st.Offset,
			SuggestedDate: st.Date.Format(dto.DateLayout),
		})
	}
	return out, nil
}

// ScheduleXLSX writes the schedule preview as a workbook.
func (s *ReportService) ScheduleXLSX(ctx context.Context, culture, variety, plantingDate string, w io.Writer) error {
	entries, err := s.Schedule(ctx, culture, variety, plantingDate)
	if err != nil {
		return err
	}
	rows := make([]report.ScheduleRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, report.ScheduleRow{Code: e.Code, Stage: e.Stage, Days: e.Days, SuggestedDate: e.SuggestedDate})
	}
	crop := phenology.ParseCrop(culture)
	name := culture
	if crop.Known() {
		name = crop.String()
	}
	return report.WriteScheduleXLSX(w, name, variety, plantingDate, rows)
}
