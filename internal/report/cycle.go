// Package report renders visit cycles and listings into PDF and XLSX documents.
package report

import (
	"time"
)

// Cycle is a cumulative report: the visits of one planting, oldest first.
type Cycle struct {
	Title       string
	Client      string
	Property    string
	Plot        string
	Culture     string
	Variety     string
	Consultant  string
	From        *time.Time
	To          *time.Time
	GeneratedAt time.Time
	Visits      []Section
}

type Section struct {
	ID             uint
	Date           *time.Time
	Label          string
	Status         string
	ObservedStage  string
	Checklist      string
	Diagnosis      string
	Recommendation string
	Products       []Product
	Photos         []Photo
}

type Product struct {
	Name            string
	Dose            string
	Unit            string
	ApplicationDate *time.Time
}

// Photo carries the image bytes for the PDF and the URL for HTML output.
type Photo struct {
	URL       string
	Caption   string
	Latitude  *float64
	Longitude *float64
	Data      []byte
}

// PhotoColumns is the grid width for n photos: one column up to 3, two up to 6, else three.
func PhotoColumns(n int) int {
	switch {
	case n <= 3:
		return 1
	case n <= 6:
		return 2
	}
	return 3
}

func FormatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01/2006")
}

// FileName is the download name of a cycle PDF.
func (c *Cycle) FileName() string {
	client, variety := c.Client, c.Variety
	if client == "" {
		client = "Client"
	}
	if variety == "" {
		variety = "Visit"
	}
	return sanitize(client + " - " + variety + " - Report.pdf")
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
