package service

import (
	"context"
	"testing"
	"time"

	"agro-crm/internal/blob"
	"agro-crm/internal/consultant"
	"agro-crm/internal/models"
	"agro-crm/internal/phenology"
	"agro-crm/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type env struct {
	ctx     context.Context
	db      *gorm.DB
	store   *blob.Memory
	render  *Renderer
	visits  *VisitService
	photos  *PhotoService
	reports *ReportService
	auth    *AuthService
	refs    *ReferenceService

	client   models.Client
	property models.Property
	plot     models.Plot
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.OpenDB(t)
	scheduler := phenology.NewScheduler(fixtureCatalog(t))
	dir := consultant.NewDirectory([]consultant.Consultant{{ID: 1, Name: "Jhonatan"}, {ID: 2, Name: "Felipe"}})
	store := blob.NewMemory()
	render := &Renderer{Consultants: dir}
	photos := NewPhotoService(db, store, render)

	e := &env{
		ctx:     context.Background(),
		db:      db,
		store:   store,
		render:  render,
		visits:  NewVisitService(db, scheduler, dir, store, render),
		photos:  photos,
		reports: NewReportService(db, photos, scheduler, render),
		auth:    NewAuthService(db, "secret", 24),
		refs:    NewReferenceService(db, render),
	}

	e.client = models.Client{Name: "Fazenda Boa Vista", Document: "123"}
	require.NoError(t, db.Create(&e.client).Error)
	e.property = models.Property{ClientID: e.client.ID, Name: "Sede"}
	require.NoError(t, db.Create(&e.property).Error)
	e.plot = models.Plot{PropertyID: e.property.ID, Name: "Talhão 1"}
	require.NoError(t, db.Create(&e.plot).Error)
	return e
}

// fixtureCatalog keeps the embedded soy and cotton tables and pins corn to
// five stages, four of them past planting day.
func fixtureCatalog(t *testing.T) *phenology.StaticCatalog {
	t.Helper()
	def, err := phenology.DefaultCatalog()
	require.NoError(t, err)
	entries := map[phenology.Crop][]phenology.Stage{
		phenology.Corn: {
			{Code: "VE", Name: "Emergence", Offset: 0},
			{Code: "V4", Name: "Fourth leaf", Offset: 21},
			{Code: "VT", Name: "Tasseling", Offset: 60},
			{Code: "R1", Name: "Silking", Offset: 70},
			{Code: "R6", Name: "Physiological maturity", Offset: 100},
		},
	}
	for _, crop := range []phenology.Crop{phenology.Soy, phenology.Cotton} {
		stages, err := def.StagesFor(context.Background(), crop)
		require.NoError(t, err)
		entries[crop] = stages
	}
	return phenology.NewStaticCatalog(entries)
}

func ptr[T any](v T) *T { return &v }

func (e *env) count(t *testing.T, model any, query ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(model)
	if len(query) > 0 {
		q = q.Where(query[0], query[1:]...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}
