package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// VisitRow is one line of the visit listing export.
type VisitRow struct {
	ID             uint
	Date           string
	Client         string
	Property       string
	Plot           string
	Consultant     string
	Culture        string
	Variety        string
	Kind           string
	Status         string
	ObservedStage  string
	Recommendation string
	Products       int
	Photos         int
}

// ScheduleRow is one suggested stage visit.
type ScheduleRow struct {
	Code          string
	Stage         string
	Days          int
	SuggestedDate string
}

var visitHeader = []any{
	"ID", "Date", "Client", "Property", "Plot", "Consultant", "Crop", "Variety",
	"Kind", "Status", "Observed stage", "Recommendation", "Products", "Photos",
}

// WriteVisitsXLSX writes the visit listing as a single-sheet workbook.
func WriteVisitsXLSX(w io.Writer, rows []VisitRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Visits"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := writeHeader(f, sheet, visitHeader); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []any{
			r.ID, r.Date, r.Client, r.Property, r.Plot, r.Consultant, r.Culture, r.Variety,
			r.Kind, r.Status, r.ObservedStage, r.Recommendation, r.Products, r.Photos,
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("xlsx: row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(sheet, "B", "H", 18)
	_ = f.SetColWidth(sheet, "K", "L", 40)
	return writeTo(f, w)
}

// WriteScheduleXLSX writes a schedule preview for one planting.
func WriteScheduleXLSX(w io.Writer, crop, variety, plantingDate string, rows []ScheduleRow) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Schedule"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	meta := [][]any{
		{"Crop", crop},
		{"Variety", variety},
		{"Planting date", plantingDate},
	}
	for i, m := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &m); err != nil {
			return err
		}
	}
	start := len(meta) + 2
	if err := writeHeaderAt(f, sheet, start, []any{"Code", "Stage", "Days", "Suggested date"}); err != nil {
		return err
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, start+i+1)
		values := []any{r.Code, r.Stage, r.Days, r.SuggestedDate}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(sheet, "A", "A", 16)
	_ = f.SetColWidth(sheet, "B", "B", 36)
	_ = f.SetColWidth(sheet, "D", "D", 16)
	return writeTo(f, w)
}

func writeHeader(f *excelize.File, sheet string, header []any) error {
	return writeHeaderAt(f, sheet, 1, header)
}

func writeHeaderAt(f *excelize.File, sheet string, row int, header []any) error {
	cell, _ := excelize.CoordinatesToCellName(1, row)
	if err := f.SetSheetRow(sheet, cell, &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DCE9D5"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), row)
	return f.SetCellStyle(sheet, cell, last, style)
}

func writeTo(f *excelize.File, w io.Writer) error {
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
