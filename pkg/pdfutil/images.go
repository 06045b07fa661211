package pdfutil

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// ImagePage is one page holding one image. Page and image geometry are in
// points; the image is drawn at (X, Y) from the top-left corner.
type ImagePage struct {
	Data       []byte
	Format     string // "jpeg" or "png"
	PageWidth  float64
	PageHeight float64
	X, Y       float64
	Width      float64
	Height     float64
}

// RenderImagePages produces a PDF with one page per entry, in order.
func RenderImagePages(pages []ImagePage) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no image pages to render")
	}

	first := pages[0]
	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: first.PageWidth, Ht: first.PageHeight},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)

	for i, p := range pages {
		imageType, err := gofpdfImageType(p.Format)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}

		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: p.PageWidth, Ht: p.PageHeight})

		name := fmt.Sprintf("img%d", i)
		opts := gofpdf.ImageOptions{ImageType: imageType}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(p.Data))
		pdf.ImageOptions(name, p.X, p.Y, p.Width, p.Height, false, opts, 0, "")

		if pdf.Err() {
			return nil, fmt.Errorf("page %d: %w", i+1, pdf.Error())
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render image pages: %w", err)
	}
	return buf.Bytes(), nil
}

func gofpdfImageType(format string) (string, error) {
	switch format {
	case "jpeg", "jpg":
		return "JPG", nil
	case "png":
		return "PNG", nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}
