package phenology

import (
	"context"
	"strings"
	"time"
)

// Stub is a dated visit produced by schedule expansion, not yet persisted.
type Stub struct {
	Date   time.Time `json:"date"`
	Label  string    `json:"label"`
	Code   string    `json:"code"`
	Offset int       `json:"days"`
}

type Scheduler struct {
	catalog Catalog
}

func NewScheduler(catalog Catalog) *Scheduler {
	return &Scheduler{catalog: catalog}
}

// Generate expands the crop's stage table from plantingDate. The variety is
// accepted for the record but does not change offsets. Unknown crops yield no stubs.
func (s *Scheduler) Generate(ctx context.Context, crop Crop, variety string, plantingDate time.Time) ([]Stub, error) {
	if !crop.Known() {
		return nil, nil
	}
	stages, err := s.catalog.StagesFor(ctx, crop)
	if err != nil {
		return nil, err
	}
	return Expand(crop, stages, plantingDate), nil
}

// Expand is the pure part of Generate. stages must be ascending by offset.
func Expand(crop Crop, stages []Stage, plantingDate time.Time) []Stub {
	rule := RuleFor(crop)
	day := truncateDay(plantingDate)

	stubs := make([]Stub, 0, len(stages))
	for _, st := range stages {
		if rule.excludes(st.Name) || isPlantingStage(st) {
			continue
		}
		stubs = append(stubs, Stub{
			Date:   day.AddDate(0, 0, st.Offset),
			Label:  strings.TrimSpace(st.Name),
			Code:   st.Code,
			Offset: st.Offset,
		})
	}
	return stubs
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
