package phenology

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func labels(stubs []Stub) []string {
	out := make([]string, 0, len(stubs))
	for _, s := range stubs {
		out = append(out, s.Label)
	}
	return out
}

func TestGenerateCorn(t *testing.T) {
	cat := NewStaticCatalog(map[Crop][]Stage{
		Corn: {
			{Code: "VE", Name: "Emergence", Offset: 0},
			{Code: "V4", Name: "V4", Offset: 21},
			{Code: "VT", Name: "VT", Offset: 60},
			{Code: "R1", Name: "R1", Offset: 70},
			{Code: "R6", Name: "R6", Offset: 100},
		},
	})
	stubs, err := NewScheduler(cat).Generate(context.Background(), Corn, "X", day("2025-01-10"))
	require.NoError(t, err)
	require.Len(t, stubs, 4)

	want := []string{"2025-01-31", "2025-03-11", "2025-03-21", "2025-04-20"}
	for i, s := range stubs {
		assert.Equal(t, want[i], s.Date.Format("2006-01-02"))
	}
	assert.Equal(t, []string{"V4", "VT", "R1", "R6"}, labels(stubs))
}

func TestGenerateSoyDropsPhysiologicalMaturity(t *testing.T) {
	cat := NewStaticCatalog(map[Crop][]Stage{
		Soy: {
			{Code: "VE", Name: "Emergence", Offset: 7},
			{Code: "R1", Name: "Beginning bloom", Offset: 45},
			{Code: "R7", Name: "Physiological Maturity", Offset: 90},
			{Code: "R7b", Name: "physiological maturity (dup)", Offset: 120},
			{Code: "R8", Name: "Full maturity", Offset: 125},
		},
	})
	stubs, err := NewScheduler(cat).Generate(context.Background(), ParseCrop(" SOJA "), "", day("2025-01-10"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Emergence", "Beginning bloom", "Full maturity"}, labels(stubs))
	assert.Equal(t, "2025-05-15", stubs[2].Date.Format("2006-01-02"))
}

func TestExclusionIsSoyOnly(t *testing.T) {
	stages := []Stage{{Code: "R6", Name: "Physiological maturity", Offset: 110}}
	assert.Len(t, Expand(Corn, stages, day("2025-01-10")), 1)
	assert.Empty(t, Expand(Soy, stages, day("2025-01-10")))
}

func TestGenerateUnknownCrop(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	stubs, err := NewScheduler(cat).Generate(context.Background(), ParseCrop("Unknown"), "", day("2025-01-10"))
	require.NoError(t, err)
	assert.Empty(t, stubs)
}

func TestExpandSkipsPlantingByName(t *testing.T) {
	stages := []Stage{
		{Code: "S", Name: "Plantio", Offset: 3},
		{Code: "P", Name: "Post-planting check", Offset: 5},
		{Code: "V2", Name: "  Second leaf ", Offset: 14},
	}
	stubs := Expand(Cotton, stages, day("2025-01-10"))
	require.Len(t, stubs, 1)
	assert.Equal(t, "Second leaf", stubs[0].Label)
	assert.Equal(t, 14, stubs[0].Offset)
}

func TestExpandIsDeterministicAndOrdered(t *testing.T) {
	cat, err := DefaultCatalog()
	require.NoError(t, err)
	s := NewScheduler(cat)
	planted := time.Date(2024, 10, 2, 15, 30, 0, 0, time.UTC)

	for _, crop := range Crops() {
		a, err := s.Generate(context.Background(), crop, "", planted)
		require.NoError(t, err)
		b, err := s.Generate(context.Background(), crop, "", planted)
		require.NoError(t, err)
		assert.Equal(t, a, b)
		require.NotEmpty(t, a, crop)

		for i, st := range a {
			assert.NotZero(t, st.Offset)
			assert.Equal(t, day("2024-10-02").AddDate(0, 0, st.Offset), st.Date)
			if i > 0 {
				assert.False(t, st.Date.Before(a[i-1].Date))
			}
		}
	}
}

func TestParseCrop(t *testing.T) {
	assert.Equal(t, Corn, ParseCrop("Milho"))
	assert.Equal(t, Corn, ParseCrop("maize"))
	assert.Equal(t, Soy, ParseCrop("Soybean"))
	assert.Equal(t, Cotton, ParseCrop("Algodão"))
	assert.Equal(t, CropUnknown, ParseCrop("wheat"))
	assert.False(t, ParseCrop("").Known())
}

func TestLoadCatalogCSVErrors(t *testing.T) {
	_, err := LoadCatalogCSV(strings.NewReader("crop,code,name,days\nWheat,X,Tillering,20\n"))
	assert.ErrorContains(t, err, "unknown crop")

	_, err = LoadCatalogCSV(strings.NewReader("crop,code,name,days\nCorn,X,Tillering,abc\n"))
	assert.ErrorContains(t, err, "days")
}

func TestStaticCatalogSortsAndRows(t *testing.T) {
	cat := NewStaticCatalog(map[Crop][]Stage{
		Corn: {{Code: "B", Name: "b", Offset: 30}, {Code: "A", Name: "a", Offset: 10}},
	})
	stages, err := cat.StagesFor(context.Background(), Corn)
	require.NoError(t, err)
	assert.Equal(t, "A", stages[0].Code)

	rows := cat.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "Corn", rows[0].Culture)
}

type failingCatalog struct{}

func (failingCatalog) StagesFor(context.Context, Crop) ([]Stage, error) {
	return nil, errors.New("boom")
}

func TestGeneratePropagatesCatalogError(t *testing.T) {
	_, err := NewScheduler(failingCatalog{}).Generate(context.Background(), Corn, "", day("2025-01-10"))
	assert.Error(t, err)
}

func TestCachedCatalogWithoutRedisPassesThrough(t *testing.T) {
	base, err := DefaultCatalog()
	require.NoError(t, err)
	cached := NewCachedCatalog(base, nil, 0)

	want, _ := base.StagesFor(context.Background(), Soy)
	got, err := cached.StagesFor(context.Background(), Soy)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.NoError(t, cached.Invalidate(context.Background()))
}
