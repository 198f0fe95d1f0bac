package web

import (
	"bytes"
	"testing"
	"time"

	"agro-crm/internal/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisitReportTemplate(t *testing.T) {
	tmpl, err := Templates()
	require.NoError(t, err)

	d := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	lat, lon := -23.5, -51.25
	c := &report.Cycle{
		Title:       "Visit report",
		Client:      "Farm <One>",
		Culture:     "Corn",
		GeneratedAt: d,
		Visits: []report.Section{{
			ID:    4,
			Date:  &d,
			Label: "V4 - four leaves",
			Photos: []report.Photo{
				{URL: "/uploads/visits/4/a.jpg", Caption: "edge", Latitude: &lat, Longitude: &lon},
			},
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "visit_report.html", map[string]any{"Report": c}))
	html := buf.String()
	assert.Contains(t, html, "Farm &lt;One&gt;")
	assert.Contains(t, html, "31/01/2025")
	assert.Contains(t, html, `src="/uploads/visits/4/a.jpg"`)
	assert.Contains(t, html, "-23.50000, -51.25000")
	assert.Contains(t, html, "cols-1")
}
