package service

import (
	"bytes"
	"image"
	"image/png"
	"strings"
	"testing"

	"agro-crm/internal/apierror"
	"agro-crm/internal/dto"
	"agro-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func pngImage(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 6))))
	return buf.Bytes()
}

func TestCycleReport(t *testing.T) {
	e := newEnv(t)
	resp := e.cornSchedule(t)

	var scheduled models.Visit
	require.NoError(t, e.db.Where("kind = ?", models.KindScheduled).Order("id").First(&scheduled).Error)
	_, err := e.photos.Upload(e.ctx, nil, scheduled.ID, []PhotoUpload{
		{Filename: "leaf.png", ContentType: "image/png", Body: bytes.NewReader(pngImage(t)), Caption: "leaf"},
		{Filename: "bad.jpg", Body: strings.NewReader("garbage")},
	})
	require.NoError(t, err)

	c, err := e.reports.Cycle(e.ctx, scheduled.ID, true)
	require.NoError(t, err)
	assert.Equal(t, "Fazenda Boa Vista", c.Client)
	assert.Equal(t, "Sede", c.Property)
	assert.Equal(t, "Talhão 1", c.Plot)
	assert.Equal(t, "Corn", c.Culture)
	assert.Equal(t, "P3707", c.Variety)
	assert.Equal(t, "Jhonatan", c.Consultant)
	require.Len(t, c.Visits, 5)
	assert.Equal(t, resp.Visit.ID, c.Visits[0].ID)
	assert.Equal(t, "2025-01-10", c.From.Format("2006-01-02"))
	assert.Equal(t, "2025-04-20", c.To.Format("2006-01-02"))
	require.Len(t, c.Visits[1].Photos, 2)
	assert.NotEmpty(t, c.Visits[1].Photos[0].Data)
	assert.True(t, strings.HasPrefix(c.Visits[1].Photos[0].URL, "/uploads/visits/"))

	var buf bytes.Buffer
	name, err := e.reports.PDF(e.ctx, resp.Visit.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, "Fazenda Boa Vista - P3707 - Report.pdf", name)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	_, err = e.reports.Cycle(e.ctx, 999, false)
	assert.True(t, apierror.IsNotFound(err))
}

func TestCycleReportUnknownConsultant(t *testing.T) {
	e := newEnv(t)
	d := day("2025-01-01")
	v := models.Visit{ClientID: e.client.ID, ConsultantID: ptr(uint(9)), Date: &d, Culture: "Soy", Kind: models.KindAdHoc}
	require.NoError(t, e.db.Create(&v).Error)

	c, err := e.reports.Cycle(e.ctx, v.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "Consultant 9", c.Consultant)
	require.Len(t, c.Visits, 1)
	assert.Equal(t, "Visit", c.Visits[0].Label)
}

func TestSchedulePreview(t *testing.T) {
	e := newEnv(t)
	entries, err := e.reports.Schedule(e.ctx, "soja", "", "2025-01-01")
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	for _, en := range entries {
		assert.NotContains(t, strings.ToLower(en.Stage), "physiological maturity")
		assert.NotZero(t, en.Days)
	}

	empty, err := e.reports.Schedule(e.ctx, "Wheat", "", "2025-01-01")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = e.reports.Schedule(e.ctx, "", "", "2025-01-01")
	assert.Equal(t, 400, apierror.Status(err))
	_, err = e.reports.Schedule(e.ctx, "Corn", "", "01/01/2025")
	assert.Equal(t, 400, apierror.Status(err))

	var buf bytes.Buffer
	require.NoError(t, e.reports.ScheduleXLSX(e.ctx, "milho", "P3707", "2025-01-01", &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	crop, _ := f.GetCellValue("Schedule", "B1")
	assert.Equal(t, "Corn", crop)
}

func TestExportVisits(t *testing.T) {
	e := newEnv(t)
	e.cornSchedule(t)
	list, err := e.visits.Search(e.ctx, VisitQuery{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.reports.ExportVisits(e.ctx, list, &buf))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Visits")
	require.NoError(t, err)
	require.Len(t, rows, 6)
	assert.Equal(t, "Sede", rows[1][3])
	assert.Equal(t, "Talhão 1", rows[1][4])
	assert.Equal(t, "Jhonatan", rows[1][5])
}

func TestPhotoLifecycle(t *testing.T) {
	e := newEnv(t)
	resp, err := e.visits.Create(e.ctx, nil, dto.CreateVisitRequest{ClientID: e.client.ID, Date: "2025-02-01"})
	require.NoError(t, err)
	id := resp.Visit.ID
	lat := -21.1

	up, err := e.photos.Upload(e.ctx, nil, id, []PhotoUpload{
		{Filename: "../../etc/pass wd", Body: strings.NewReader("a"), Caption: " north ", Latitude: &lat},
		{Filename: "b.png", ContentType: "image/png", Body: strings.NewReader("b")},
	})
	require.NoError(t, err)
	require.Len(t, up.Photos, 2)
	assert.Equal(t, "north", up.Photos[0].Caption)
	assert.Regexp(t, `^/uploads/visits/\d+/[0-9a-f]{32}_pass_wd\.jpg$`, up.Photos[0].URL)

	key := strings.TrimPrefix(up.Photos[1].URL, "/uploads/")
	info, rc, err := e.photos.Open(e.ctx, key)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "image/png", info.ContentType)
	_, _, err = e.photos.Open(e.ctx, "visits/../x")
	assert.True(t, apierror.IsNotFound(err))

	p, err := e.photos.UpdateCaption(e.ctx, nil, up.Photos[1].ID, "south")
	require.NoError(t, err)
	assert.Equal(t, "south", p.Caption)

	require.NoError(t, e.photos.Delete(e.ctx, nil, up.Photos[0].ID))
	assert.Equal(t, 1, e.store.Len())
	assert.True(t, apierror.IsNotFound(e.photos.Delete(e.ctx, nil, up.Photos[0].ID)))

	n, err := e.photos.DeleteAll(e.ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, e.store.Len())

	_, err = e.photos.Upload(e.ctx, nil, 999, []PhotoUpload{{Filename: "x", Body: strings.NewReader("x")}})
	assert.True(t, apierror.IsNotFound(err))
	_, err = e.photos.Upload(e.ctx, nil, id, nil)
	assert.Equal(t, 400, apierror.Status(err))
}

func TestPhotoURLs(t *testing.T) {
	u := PhotoURLs{PhotoBase: "https://cdn.example.com/", PublicBase: "https://api.example.com"}
	assert.Equal(t, "https://cdn.example.com/visits/1/a.jpg", u.Stored("visits/1/a.jpg"))
	assert.Equal(t, "https://api.example.com/uploads/old.jpg", u.Resolve("/uploads/old.jpg"))
	assert.Equal(t, "http://x/y.jpg", u.Resolve("http://x/y.jpg"))
	assert.Equal(t, "/uploads/k", PhotoURLs{}.Stored("k"))
}
