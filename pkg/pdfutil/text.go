package pdfutil

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PageText is the text layer of one page. Page is 1-based.
type PageText struct {
	Page int    `json:"page"`
	Text string `json:"text"`
}

// HasText reports whether the page carries any non-blank text.
func (p PageText) HasText() bool {
	return strings.TrimSpace(p.Text) != ""
}

// PDFParser extracts the embedded text layer of a PDF.
type PDFParser interface {
	ExtractText(ctx context.Context, data []byte) ([]PageText, error)
}

type textParser struct{}

// NewPDFParser returns a parser backed by github.com/ledongthuc/pdf. It reads
// existing text only; scanned pages come back empty.
func NewPDFParser() PDFParser {
	return &textParser{}
}

func (p *textParser) ExtractText(ctx context.Context, data []byte) (pages []PageText, err error) {
	// The reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("read text layer: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	n := r.NumPage()
	pages = make([]PageText, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pt := PageText{Page: i}
		pg := r.Page(i)
		if !pg.V.IsNull() {
			txt, err := pg.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("page %d: %w", i, err)
			}
			pt.Text = strings.TrimSpace(txt)
		}
		pages = append(pages, pt)
	}
	return pages, nil
}
