// Package web embeds the HTML templates served by the API.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"agro-crm/internal/report"
)

//go:embed templates/*.html
var files embed.FS

// FuncMap holds the helpers available to every template.
var FuncMap = template.FuncMap{
	"date":  report.FormatDate,
	"stamp": func(t time.Time) string { return t.Format("02/01/2006 15:04") },
	"coords": func(lat, lon *float64) string {
		if lat == nil || lon == nil {
			return ""
		}
		return fmt.Sprintf("%.5f, %.5f", *lat, *lon)
	},
	"photoColumns": report.PhotoColumns,
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}

// Templates parses the embedded templates with FuncMap.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap).ParseFS(files, "templates/*.html")
}
