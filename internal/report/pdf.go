package report

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 15.0
	photoGap   = 4.0
)

var imageTypes = map[string]string{"jpeg": "JPG", "png": "PNG", "gif": "GIF"}

// WritePDF renders the cycle as an A4 document with a cover block followed by
// one section per visit. Photos that cannot be decoded are skipped.
func WritePDF(w io.Writer, c *Cycle) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s - page %d", c.Title, pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*pageMargin

	// ── Cover ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr(c.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, tr("Generated "+c.GeneratedAt.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	labelW := 35.0
	cover := [][2]string{
		{"Client", c.Client},
		{"Property", c.Property},
		{"Plot", c.Plot},
		{"Crop", c.Culture},
		{"Variety", c.Variety},
		{"Consultant", c.Consultant},
		{"Period", FormatDate(c.From) + " to " + FormatDate(c.To)},
	}
	for _, row := range cover {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(labelW, 6, tr(row[0]+":"), "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(contentW-labelW, 6, tr(orDash(row[1])), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)
	pdf.Line(pageMargin, pdf.GetY(), pageW-pageMargin, pdf.GetY())
	pdf.Ln(4)

	// ── Visits ───────────────────────────────────────────────────────────────
	for i := range c.Visits {
		writeSection(pdf, tr, &c.Visits[i], contentW)
	}

	return pdf.Output(w)
}

func writeSection(pdf *fpdf.Fpdf, tr func(string) string, s *Section, contentW float64) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 240, 225)
	heading := FormatDate(s.Date) + "  " + orDash(s.Label)
	pdf.CellFormat(contentW, 8, tr(heading), "", 1, "L", true, 0, "")
	pdf.Ln(1)

	fields := [][2]string{
		{"Status", s.Status},
		{"Observed stage", s.ObservedStage},
		{"Checklist", s.Checklist},
		{"Diagnosis", s.Diagnosis},
		{"Recommendation", s.Recommendation},
	}
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			continue
		}
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(contentW, 5, tr(f[0]), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(contentW, 5, tr(f[1]), "", "L", false)
	}

	if len(s.Products) > 0 {
		pdf.Ln(1)
		cols := []float64{contentW * 0.45, contentW * 0.15, contentW * 0.15, contentW * 0.25}
		pdf.SetFont("Helvetica", "B", 9)
		for i, h := range []string{"Product", "Dose", "Unit", "Application"} {
			pdf.CellFormat(cols[i], 6, h, "B", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
		for _, p := range s.Products {
			pdf.CellFormat(cols[0], 5, tr(p.Name), "", 0, "L", false, 0, "")
			pdf.CellFormat(cols[1], 5, tr(p.Dose), "", 0, "L", false, 0, "")
			pdf.CellFormat(cols[2], 5, tr(p.Unit), "", 0, "L", false, 0, "")
			pdf.CellFormat(cols[3], 5, FormatDate(p.ApplicationDate), "", 1, "L", false, 0, "")
		}
	}

	writePhotos(pdf, tr, s, contentW)
	pdf.Ln(6)
}

type decoded struct {
	name string
	w, h int
	p    *Photo
}

func writePhotos(pdf *fpdf.Fpdf, tr func(string) string, s *Section, contentW float64) {
	var imgs []decoded
	for i := range s.Photos {
		p := &s.Photos[i]
		if len(p.Data) == 0 {
			continue
		}
		cfg, format, err := image.DecodeConfig(bytes.NewReader(p.Data))
		if err != nil || cfg.Width == 0 || cfg.Height == 0 {
			continue
		}
		typ, ok := imageTypes[format]
		if !ok {
			continue
		}
		name := fmt.Sprintf("visit-%d-photo-%d", s.ID, i)
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: typ}, bytes.NewReader(p.Data))
		if pdf.Err() {
			pdf.ClearError()
			continue
		}
		imgs = append(imgs, decoded{name: name, w: cfg.Width, h: cfg.Height, p: p})
	}
	if len(imgs) == 0 {
		return
	}

	cols := PhotoColumns(len(imgs))
	cellW := (contentW - photoGap*float64(cols-1)) / float64(cols)
	left, _, _, _ := pdf.GetMargins()
	_, pageH := pdf.GetPageSize()

	pdf.Ln(2)
	for row := 0; row*cols < len(imgs); row++ {
		end := min((row+1)*cols, len(imgs))
		rowH := 0.0
		for _, img := range imgs[row*cols : end] {
			rowH = max(rowH, cellW*float64(img.h)/float64(img.w))
		}
		rowH = min(rowH, 110)
		captionH := 10.0

		if pdf.GetY()+rowH+captionH > pageH-pageMargin {
			pdf.AddPage()
		}
		y := pdf.GetY()
		for i, img := range imgs[row*cols : end] {
			x := left + float64(i)*(cellW+photoGap)
			h := min(cellW*float64(img.h)/float64(img.w), rowH)
			w := h * float64(img.w) / float64(img.h)
			pdf.ImageOptions(img.name, x+(cellW-w)/2, y, w, h, false, fpdf.ImageOptions{}, 0, "")

			caption := img.p.Caption
			if img.p.Latitude != nil && img.p.Longitude != nil {
				caption = strings.TrimSpace(fmt.Sprintf("%s (%.5f, %.5f)", caption, *img.p.Latitude, *img.p.Longitude))
			}
			pdf.SetXY(x, y+rowH+1)
			pdf.SetFont("Helvetica", "I", 8)
			pdf.MultiCell(cellW, 4, tr(caption), "", "C", false)
		}
		pdf.SetXY(left, y+rowH+captionH)
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
