package phenology

import (
	"context"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"agro-crm/internal/models"

	"gorm.io/gorm"
)

// Stage is one Stage Catalog entry: a developmental stage and its offset in days from planting.
type Stage struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Offset int    `json:"days"`
}

// Catalog returns the stages of a crop ordered ascending by offset.
// A crop without entries yields an empty slice and no error.
type Catalog interface {
	StagesFor(ctx context.Context, crop Crop) ([]Stage, error)
}

//go:embed stages.csv
var defaultStagesCSV string

// StaticCatalog is an in-memory Catalog, used to seed the database and in tests.
type StaticCatalog struct {
	byCrop map[Crop][]Stage
}

func NewStaticCatalog(entries map[Crop][]Stage) *StaticCatalog {
	c := &StaticCatalog{byCrop: make(map[Crop][]Stage, len(entries))}
	for crop, stages := range entries {
		sorted := append([]Stage(nil), stages...)
		sortStages(sorted)
		c.byCrop[crop] = sorted
	}
	return c
}

// DefaultCatalog parses the embedded stage table.
func DefaultCatalog() (*StaticCatalog, error) {
	return LoadCatalogCSV(strings.NewReader(defaultStagesCSV))
}

// LoadCatalogCSV reads "crop,code,name,days" rows; the first row is a header.
func LoadCatalogCSV(r io.Reader) (*StaticCatalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	if _, err := cr.Read(); err != nil {
		return nil, fmt.Errorf("stage catalog header: %w", err)
	}
	entries := map[Crop][]Stage{}
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("stage catalog line %d: %w", line, err)
		}
		crop := ParseCrop(rec[0])
		if !crop.Known() {
			return nil, fmt.Errorf("stage catalog line %d: unknown crop %q", line, rec[0])
		}
		days, err := strconv.Atoi(strings.TrimSpace(rec[3]))
		if err != nil {
			return nil, fmt.Errorf("stage catalog line %d: days %q: %w", line, rec[3], err)
		}
		entries[crop] = append(entries[crop], Stage{
			Code:   strings.TrimSpace(rec[1]),
			Name:   strings.TrimSpace(rec[2]),
			Offset: days,
		})
	}
	return NewStaticCatalog(entries), nil
}

func (c *StaticCatalog) StagesFor(_ context.Context, crop Crop) ([]Stage, error) {
	return append([]Stage(nil), c.byCrop[crop]...), nil
}

// Rows flattens the catalog into seedable rows.
func (c *StaticCatalog) Rows() []models.PhenologyStage {
	var rows []models.PhenologyStage
	for _, crop := range Crops() {
		for _, s := range c.byCrop[crop] {
			rows = append(rows, models.PhenologyStage{
				Culture: crop.String(),
				Code:    s.Code,
				Name:    s.Name,
				Days:    s.Offset,
			})
		}
	}
	return rows
}

// DBCatalog reads the seeded phenology_stages table.
type DBCatalog struct {
	db *gorm.DB
}

func NewDBCatalog(db *gorm.DB) *DBCatalog {
	return &DBCatalog{db: db}
}

func (c *DBCatalog) StagesFor(ctx context.Context, crop Crop) ([]Stage, error) {
	if !crop.Known() {
		return nil, nil
	}
	var rows []models.PhenologyStage
	err := c.db.WithContext(ctx).
		Where("culture = ?", crop.String()).
		Order("days asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load stages for %s: %w", crop, err)
	}
	stages := make([]Stage, 0, len(rows))
	for _, r := range rows {
		stages = append(stages, Stage{Code: r.Code, Name: r.Name, Offset: r.Days})
	}
	return stages, nil
}

func sortStages(s []Stage) {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Offset < s[j].Offset })
}
