package report

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for x := 0; x < 40; x++ {
		img.Set(x, 10, color.RGBA{G: 160, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func date(s string) *time.Time {
	d, _ := time.Parse("2006-01-02", s)
	return &d
}

func TestPhotoColumns(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 3: 1, 4: 2, 6: 2, 7: 3, 12: 3}
	for n, want := range cases {
		assert.Equal(t, want, PhotoColumns(n), "n=%d", n)
	}
}

func TestFileName(t *testing.T) {
	c := &Cycle{Client: "Fazenda A/B", Variety: "P3707"}
	assert.Equal(t, "Fazenda A_B - P3707 - Report.pdf", c.FileName())
	assert.Equal(t, "Client - Visit - Report.pdf", (&Cycle{}).FileName())
}

func TestWritePDFSkipsBrokenImages(t *testing.T) {
	lat, lon := -23.5, -51.2
	c := &Cycle{
		Title:       "Visit report",
		Client:      "João Silva",
		Culture:     "Corn",
		Variety:     "P3707",
		GeneratedAt: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
		Visits: []Section{
			{ID: 1, Date: date("2025-01-01"), Label: "Planting", Status: "completed"},
			{
				ID: 2, Date: date("2025-01-31"), Label: "V4 - four leaves", Diagnosis: "Leaf spot at edges",
				Products: []Product{{Name: "Fungicide X", Dose: "0.5", Unit: "L/ha", ApplicationDate: date("2025-02-01")}},
				Photos: []Photo{
					{Caption: "north edge", Latitude: &lat, Longitude: &lon, Data: pngBytes(t)},
					{Caption: "broken", Data: []byte("not an image")},
					{Caption: "missing"},
				},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, c))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestWritePDFManyPhotos(t *testing.T) {
	img := pngBytes(t)
	photos := make([]Photo, 8)
	for i := range photos {
		photos[i] = Photo{Caption: "p", Data: img}
	}
	c := &Cycle{Title: "Visit report", Visits: []Section{{ID: 3, Photos: photos}}}

	var buf bytes.Buffer
	require.NoError(t, WritePDF(&buf, c))
	assert.NotZero(t, buf.Len())
}

func TestWriteVisitsXLSX(t *testing.T) {
	var buf bytes.Buffer
	rows := []VisitRow{
		{ID: 7, Date: "2025-01-31", Client: "Farm", Kind: "scheduled", Status: "planned", Products: 2},
	}
	require.NoError(t, WriteVisitsXLSX(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue("Visits", "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)
	client, _ := f.GetCellValue("Visits", "C2")
	assert.Equal(t, "Farm", client)
	products, _ := f.GetCellValue("Visits", "M2")
	assert.Equal(t, "2", products)
}

func TestWriteScheduleXLSX(t *testing.T) {
	var buf bytes.Buffer
	rows := []ScheduleRow{
		{Code: "V4", Stage: "four leaves", Days: 30, SuggestedDate: "2025-01-31"},
		{Code: "VT", Stage: "tasseling", Days: 69, SuggestedDate: "2025-03-11"},
	}
	require.NoError(t, WriteScheduleXLSX(&buf, "Corn", "P3707", "2025-01-01", rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows("Schedule")
	require.NoError(t, err)
	require.Len(t, got, 7)
	assert.Equal(t, []string{"Crop", "Corn"}, got[0])
	assert.Equal(t, []string{"Code", "Stage", "Days", "Suggested date"}, got[4])
	assert.Equal(t, []string{"VT", "tasseling", "69", "2025-03-11"}, got[6])
}
