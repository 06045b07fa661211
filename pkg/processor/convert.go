package processor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"
	"sync"

	"github.com/yourorg/pdf-toolkit/pkg/csvutil"
	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
	"github.com/yourorg/pdf-toolkit/pkg/transform"
)

// Fixed messages of the conversions that are not available.
const (
	MsgOCRUnavailable   = "OCR for scanned documents is not available"
	MsgWordUnavailable  = "Word to PDF conversion is not available"
	MsgExcelUnavailable = "Excel to PDF conversion supports CSV files only; save the sheet as CSV and try again"
)

// ImagesToPDF builds a document with one page per image, in input order.
// Images are probed concurrently so a bad file is reported before any page
// is built.
func (p *Processor) ImagesToPDF(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	inputs := make([]transform.ImageInput, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f InputFile) {
			defer wg.Done()
			inputs[i], errs[i] = probeImage(f)
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	doc, err := p.tr.ImagesToDocument(ctx, inputs)
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, doc, docengine.SaveOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(UniqueFilename("images", "pdf"), data)}}, nil
}

func probeImage(f InputFile) (transform.ImageInput, error) {
	format, err := docengine.DetectImageFormat(f.ContentType, f.Name)
	if err != nil {
		return transform.ImageInput{}, errors.NewValidationError(fmt.Sprintf("%s is not a JPEG or PNG image", f.Name))
	}
	_, decoded, err := image.DecodeConfig(bytes.NewReader(f.Data))
	if err != nil {
		return transform.ImageInput{}, errors.NewLoadError(fmt.Sprintf("could not read image %s", f.Name), err)
	}
	// Trust the bytes over the declared type.
	switch decoded {
	case string(docengine.ImageJPEG), string(docengine.ImagePNG):
		format = docengine.ImageFormat(decoded)
	default:
		return transform.ImageInput{}, errors.NewValidationError(fmt.Sprintf("%s is a %s image, not JPEG or PNG", f.Name, decoded))
	}
	return transform.ImageInput{Name: f.Name, Data: f.Data, Format: format}, nil
}

// ExtractText returns the embedded text layer page by page, plus a .txt
// file. Pages without text are listed; a document without any text fails.
func (p *Processor) ExtractText(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	f := files[0]
	pages, err := p.text.ExtractText(ctx, f.Data)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.NewLoadError(fmt.Sprintf("could not read %s", f.Name), err)
	}

	report := &TextReport{FileName: f.Name, Pages: pages}
	var buf strings.Builder
	for _, pg := range pages {
		if !pg.HasText() {
			report.PagesWithoutText = append(report.PagesWithoutText, pg.Page)
			continue
		}
		fmt.Fprintf(&buf, "--- Page %d ---\n%s\n\n", pg.Page, pg.Text)
	}
	if len(pages) == 0 || len(report.PagesWithoutText) == len(pages) {
		return nil, errors.NewNotImplementedError(MsgOCRUnavailable)
	}

	res := &Result{
		Files: []OutputFile{{Name: baseName(f.Name) + ".txt", ContentType: ContentTypeText, Data: []byte(buf.String())}},
		Text:  report,
	}
	if n := len(report.PagesWithoutText); n > 0 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("%d page(s) have no text layer; scanned pages cannot be read", n))
	}
	return res, nil
}

// WordToPDF is not available.
func (p *Processor) WordToPDF(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	return nil, errors.NewNotImplementedError(MsgWordUnavailable)
}

// ExcelToPDF renders a CSV file as a paginated table. Binary spreadsheets
// are not supported.
func (p *Processor) ExcelToPDF(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	f := files[0]
	if ext := strings.ToLower(filepath.Ext(f.Name)); ext == ".xls" || ext == ".xlsx" {
		return nil, errors.NewNotImplementedError(MsgExcelUnavailable)
	}

	table, err := csvutil.NewParser(csvutil.DefaultParserConfig()).Parse(bytes.NewReader(f.Data))
	if err != nil {
		return nil, errors.NewLoadError(fmt.Sprintf("could not read %s", f.Name), err)
	}
	headers := table.Headers
	for len(headers) < table.Columns() {
		headers = append(headers, "")
	}
	data, err := pdfutil.RenderTable(headers, table.Rows, pdfutil.TableOptions{Title: f.Name})
	if err != nil {
		return nil, errors.NewDocumentProcessingError("render table", err)
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+".pdf", data)}}, nil
}
