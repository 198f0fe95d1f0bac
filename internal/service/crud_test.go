package service

import (
	"testing"

	"agro-crm/internal/apierror"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientCRUD(t *testing.T) {
	e := newEnv(t)
	clients := NewClientService(e.db, e.store)

	c, err := clients.Create(e.ctx, nil, dto.CreateClientRequest{Name: " Sítio Novo ", Document: "999", Segment: "grain"})
	require.NoError(t, err)
	assert.Equal(t, "Sítio Novo", c.Name)

	_, err = clients.Create(e.ctx, nil, dto.CreateClientRequest{Name: "Dup", Document: "999"})
	assert.Equal(t, 409, apierror.Status(err))
	_, err = clients.Update(e.ctx, nil, c.ID, dto.UpdateClientRequest{Document: ptr("123")})
	assert.Equal(t, 409, apierror.Status(err))

	// empty documents never collide
	_, err = clients.Create(e.ctx, nil, dto.CreateClientRequest{Name: "A"})
	require.NoError(t, err)
	_, err = clients.Create(e.ctx, nil, dto.CreateClientRequest{Name: "B"})
	require.NoError(t, err)

	list, err := clients.List(e.ctx, map[string]string{"segment": "grain"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	up, err := clients.Update(e.ctx, nil, c.ID, dto.UpdateClientRequest{Vendor: ptr("Felipe")})
	require.NoError(t, err)
	assert.Equal(t, "Felipe", up.Vendor)
	assert.Equal(t, "999", up.Document)

	_, err = clients.Get(e.ctx, 12345)
	assert.True(t, apierror.IsNotFound(err))
}

func TestListRejectsNonNumericFilter(t *testing.T) {
	e := newEnv(t)
	props := NewPropertyService(e.db, e.store)
	_, err := props.List(e.ctx, map[string]string{"client_id": "abc"})
	assert.Equal(t, 400, apierror.Status(err))

	list, err := props.List(e.ctx, map[string]string{"client_id": "999", "unknown": "x"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNestedFiltersAndMissingParents(t *testing.T) {
	e := newEnv(t)
	plots := NewPlotService(e.db, e.store)
	plantings := NewPlantingService(e.db, e.store)

	_, err := plots.Create(e.ctx, nil, dto.CreatePlotRequest{PropertyID: 999, Name: "x"})
	assert.True(t, apierror.IsNotFound(err))

	p, err := plantings.Create(e.ctx, nil, dto.CreatePlantingRequest{PlotID: e.plot.ID, Culture: "algodão", Variety: "FM 985", PlantingDate: "2024-12-01"})
	require.NoError(t, err)
	assert.Equal(t, "Cotton", p.Culture)

	byClient, err := plots.List(e.ctx, map[string]string{"client_id": "1"})
	require.NoError(t, err)
	assert.Len(t, byClient, 1)
	byProperty, err := plantings.List(e.ctx, map[string]string{"property_id": "1"})
	require.NoError(t, err)
	assert.Len(t, byProperty, 1)
	none, err := plantings.List(e.ctx, map[string]string{"client_id": "2"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteClientCascadesAndRemovesBlobs(t *testing.T) {
	e := newEnv(t)
	resp := e.cornSchedule(t)
	_, err := e.photos.Upload(e.ctx, nil, resp.Visit.ID, []PhotoUpload{{Filename: "a.jpg", Body: bytesReader("x")}})
	require.NoError(t, err)
	opps := NewOpportunityService(e.db)
	_, err = opps.Create(e.ctx, nil, dto.CreateOpportunityRequest{ClientID: e.client.ID, Title: "Seed deal"})
	require.NoError(t, err)

	clients := NewClientService(e.db, e.store)
	rm, err := clients.Delete(e.ctx, nil, e.client.ID)
	require.NoError(t, err)
	assert.Len(t, rm.VisitIDs, 5)
	assert.Zero(t, e.store.Len())
	for _, m := range []any{&models.Client{}, &models.Property{}, &models.Plot{}, &models.Planting{}, &models.Visit{}, &models.Photo{}, &models.Opportunity{}} {
		assert.Zero(t, e.count(t, m))
	}

	_, err = clients.Delete(e.ctx, nil, e.client.ID)
	assert.True(t, apierror.IsNotFound(err))
}

func TestOpportunityDecimal(t *testing.T) {
	e := newEnv(t)
	opps := NewOpportunityService(e.db)

	_, err := opps.Create(e.ctx, nil, dto.CreateOpportunityRequest{ClientID: e.client.ID, Title: "x", EstimatedValue: ptr(decimal.NewFromInt(-1))})
	assert.Equal(t, 400, apierror.Status(err))

	o, err := opps.Create(e.ctx, nil, dto.CreateOpportunityRequest{ClientID: e.client.ID, Title: "x", EstimatedValue: ptr(decimal.RequireFromString("1250.50"))})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultOpportunityStage, o.Stage)

	got, err := opps.Get(e.ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EstimatedValue)
	assert.True(t, got.EstimatedValue.Equal(decimal.RequireFromString("1250.5")))
}

func TestVarieties(t *testing.T) {
	e := newEnv(t)
	varieties := NewVarietyService(e.db)

	v, err := varieties.Create(e.ctx, nil, dto.CreateVarietyRequest{Culture: "soja", Name: "BMX Zeus"})
	require.NoError(t, err)
	assert.Equal(t, "Soy", v.Culture)

	_, err = varieties.Create(e.ctx, nil, dto.CreateVarietyRequest{Culture: "Soy", Name: "bmx zeus"})
	assert.Equal(t, 409, apierror.Status(err))
	_, err = varieties.Create(e.ctx, nil, dto.CreateVarietyRequest{Culture: "Wheat", Name: "x"})
	assert.Equal(t, 400, apierror.Status(err))

	list, err := varieties.List(e.ctx, map[string]string{"culture": "soybean"})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	cultures, err := e.refs.Cultures(e.ctx)
	require.NoError(t, err)
	require.Len(t, cultures, 3)
	for _, c := range cultures {
		if c.Name == "Soy" {
			assert.Equal(t, []string{"BMX Zeus"}, c.Varieties)
		}
	}
}

func TestOwnerChangeBlockedByVisits(t *testing.T) {
	e := newEnv(t)
	other := models.Client{Name: "Sítio Vizinho"}
	require.NoError(t, e.db.Create(&other).Error)
	otherProperty := models.Property{ClientID: other.ID, Name: "Retiro"}
	require.NoError(t, e.db.Create(&otherProperty).Error)

	properties := NewPropertyService(e.db, e.store)
	plots := NewPlotService(e.db, e.store)

	// without visits the plot may move to another property and back
	_, err := plots.Update(e.ctx, nil, e.plot.ID, dto.UpdatePlotRequest{PropertyID: &otherProperty.ID})
	require.NoError(t, err)
	_, err = plots.Update(e.ctx, nil, e.plot.ID, dto.UpdatePlotRequest{PropertyID: &e.property.ID})
	require.NoError(t, err)

	_, err = e.visits.Create(e.ctx, nil, dto.CreateVisitRequest{ClientID: e.client.ID, PlotID: &e.plot.ID, Date: "2025-02-01"})
	require.NoError(t, err)

	_, err = properties.Update(e.ctx, nil, e.property.ID, dto.UpdatePropertyRequest{ClientID: &other.ID})
	assert.Equal(t, 409, apierror.Status(err))
	_, err = plots.Update(e.ctx, nil, e.plot.ID, dto.UpdatePlotRequest{PropertyID: &otherProperty.ID})
	assert.Equal(t, 409, apierror.Status(err))

	var mismatched int64
	require.NoError(t, e.db.Model(&models.Visit{}).
		Joins("JOIN properties ON properties.id = visits.property_id").
		Where("properties.client_id <> visits.client_id").
		Count(&mismatched).Error)
	assert.Zero(t, mismatched)

	// renames still go through
	out, err := properties.Update(e.ctx, nil, e.property.ID, dto.UpdatePropertyRequest{Name: ptr("Sede Nova")})
	require.NoError(t, err)
	assert.Equal(t, "Sede Nova", out.Name)
}
