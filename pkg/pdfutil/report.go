package pdfutil

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// TableOptions controls RenderTable layout.
type TableOptions struct {
	Title string
	// Landscape is chosen automatically for more than six columns unless set.
	Landscape *bool
	FontSize  float64
}

// RenderTable lays headers and rows out as a paginated A4 table. The header
// row is repeated on every page and long cell values are truncated to fit.
func RenderTable(headers []string, rows [][]string, opts TableOptions) ([]byte, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}

	orientation := "P"
	landscape := len(headers) > 6
	if opts.Landscape != nil {
		landscape = *opts.Landscape
	}
	if landscape {
		orientation = "L"
	}
	fontSize := opts.FontSize
	if fontSize <= 0 {
		fontSize = 9
	}

	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(false, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, pageH := pdf.GetPageSize()
	left, top, right, bottom := pdf.GetMargins()
	usableW := pageW - left - right
	cellW := usableW / float64(len(headers))
	rowH := fontSize * 0.6

	drawHeader := func() {
		pdf.SetFont("Arial", "B", fontSize)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range headers {
			pdf.CellFormat(cellW, rowH, fit(pdf, tr(h), cellW), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", fontSize)
	}

	pdf.AddPage()
	if opts.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(usableW, 10, tr(opts.Title), "", 1, "L", false, 0, "")
		pdf.Ln(2)
	}
	drawHeader()

	for _, row := range rows {
		if pdf.GetY()+rowH > pageH-bottom {
			pdf.AddPage()
			pdf.SetY(top)
			drawHeader()
		}
		for i := range headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(cellW, rowH, fit(pdf, tr(cell), cellW), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("render table: %w", pdf.Error())
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render table: %w", err)
	}
	return buf.Bytes(), nil
}

// fit truncates s with an ellipsis so it fits width (minus cell padding).
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	max := width - 2
	if pdf.GetStringWidth(s) <= max {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > max {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
