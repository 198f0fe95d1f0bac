package repository_test

import (
	"context"
	"testing"
	"time"

	"agro-crm/internal/models"
	"agro-crm/internal/repository"
	"agro-crm/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	client   models.Client
	property models.Property
	plot     models.Plot
	planting models.Planting
	visits   []models.Visit
}

func ptr[T any](v T) *T { return &v }

func seed(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	var f fixture
	f.client = models.Client{Name: "Fazenda Boa Vista"}
	require.NoError(t, db.Create(&f.client).Error)
	f.property = models.Property{ClientID: f.client.ID, Name: "Sede"}
	require.NoError(t, db.Create(&f.property).Error)
	f.plot = models.Plot{PropertyID: f.property.ID, Name: "T1"}
	require.NoError(t, db.Create(&f.plot).Error)
	f.planting = models.Planting{PlotID: &f.plot.ID, Culture: "Soy", Variety: "Olimpo"}
	require.NoError(t, db.Create(&f.planting).Error)

	for i := 0; i < 3; i++ {
		v := models.Visit{
			ClientID:   f.client.ID,
			PropertyID: &f.property.ID,
			PlotID:     &f.plot.ID,
			PlantingID: &f.planting.ID,
			Date:       ptr(time.Date(2025, 1, 10+i, 0, 0, 0, 0, time.UTC)),
			Kind:       models.KindScheduled,
			Status:     models.VisitPlanned,
		}
		require.NoError(t, db.Create(&v).Error)
		f.visits = append(f.visits, v)
	}
	photo := models.Photo{VisitID: f.visits[0].ID, URL: "https://cdn/x.jpg", Key: "visits/1/x.jpg"}
	require.NoError(t, db.Create(&photo).Error)
	product := models.VisitProduct{VisitID: f.visits[1].ID, ProductName: "Fungicide"}
	require.NoError(t, db.Create(&product).Error)
	opp := models.Opportunity{ClientID: f.client.ID, Title: "Seed deal", Stage: "prospecting"}
	require.NoError(t, db.Create(&opp).Error)
	return f
}

func count(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestDeleteClientCascades(t *testing.T) {
	db := testutil.OpenDB(t)
	f := seed(t, db)

	var rm *repository.Removed
	err := db.Transaction(func(tx *gorm.DB) error {
		var err error
		rm, err = repository.DeleteClient(tx, f.client.ID)
		return err
	})
	require.NoError(t, err)

	for _, m := range []any{&models.Client{}, &models.Property{}, &models.Plot{}, &models.Planting{},
		&models.Visit{}, &models.Photo{}, &models.VisitProduct{}, &models.Opportunity{}} {
		assert.Zero(t, count(t, db, m), "%T", m)
	}
	assert.Equal(t, []string{"visits/1/x.jpg"}, rm.PhotoKeys)
	assert.Equal(t, 3, rm.Counts["visits"])
	assert.Equal(t, 1, rm.Counts["opportunities"])
}

func TestDeletePlantingRemovesLinkedVisitsOnly(t *testing.T) {
	db := testutil.OpenDB(t)
	f := seed(t, db)

	adhoc := models.Visit{ClientID: f.client.ID, PlotID: &f.plot.ID, Kind: models.KindAdHoc}
	require.NoError(t, db.Create(&adhoc).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		_, err := repository.DeletePlanting(tx, f.planting.ID)
		return err
	})
	require.NoError(t, err)

	assert.Zero(t, count(t, db, &models.Planting{}))
	assert.EqualValues(t, 1, count(t, db, &models.Visit{}))
	assert.EqualValues(t, 1, count(t, db, &models.Plot{}))
}

func TestDeleteVisitsDropsOrphanPlotlessPlanting(t *testing.T) {
	db := testutil.OpenDB(t)
	client := models.Client{Name: "C"}
	require.NoError(t, db.Create(&client).Error)
	planting := models.Planting{Culture: "Corn"}
	require.NoError(t, db.Create(&planting).Error)
	v := models.Visit{ClientID: client.ID, PlantingID: &planting.ID, Kind: models.KindSeed}
	require.NoError(t, db.Create(&v).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		rm, err := repository.DeleteVisits(tx, []uint{v.ID})
		if err == nil {
			assert.Equal(t, []uint{planting.ID}, rm.PlantingIDs)
		}
		return err
	})
	require.NoError(t, err)
	assert.Zero(t, count(t, db, &models.Planting{}))
}

func TestVisitSearchAndCycle(t *testing.T) {
	db := testutil.OpenDB(t)
	f := seed(t, db)
	repo := repository.NewVisitRepository(db)
	ctx := context.Background()

	from := time.Date(2025, 1, 11, 0, 0, 0, 0, time.UTC)
	got, err := repo.Search(ctx, repository.VisitFilter{ClientID: &f.client.ID, From: &from})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, f.visits[1].ID, got[0].ID)
	assert.Len(t, got[0].Products, 1)
	assert.Equal(t, "Fazenda Boa Vista", got[0].Client.Name)

	cycle, err := repo.Cycle(ctx, &f.visits[2])
	require.NoError(t, err)
	require.Len(t, cycle, 3)
	assert.Equal(t, f.visits[0].ID, cycle[0].ID)
	assert.Len(t, cycle[0].Photos, 1)

	latest, err := repo.LatestPlanting(ctx, f.plot.ID)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "Olimpo", latest.Variety)
}
