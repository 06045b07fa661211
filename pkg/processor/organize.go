package processor

import (
	"context"
	"fmt"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
)

// Merge concatenates every input in order.
func (p *Processor) Merge(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	if len(files) < 2 {
		return nil, errors.NewValidationError("select at least two PDF files to merge")
	}
	level, err := compression(params.Level)
	if err != nil {
		return nil, err
	}

	docs := make([]docengine.Document, 0, len(files))
	for _, f := range files {
		doc, err := p.load(ctx, f, "")
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	merged, err := p.tr.Merge(ctx, docs)
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, merged, docengine.SaveOptions{Compression: level})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(UniqueFilename("merged", "pdf"), data)}}, nil
}

// Split produces one document per page (mode "each"), per selected page
// (mode "pages") or per range (mode "ranges").
func (p *Processor) Split(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}
	base := baseName(f.Name)
	pageCount := doc.PageCount()

	var (
		docs  []docengine.Document
		names func(i int) string
	)
	switch params.Mode {
	case "", "each":
		docs, err = p.tr.SplitEachPage(ctx, doc)
		names = func(i int) string { return fmt.Sprintf("%s_page_%d.pdf", base, i+1) }

	case "pages":
		set, perr := p.parser.Parse(params.Pages, pageCount)
		if perr != nil {
			return nil, perr
		}
		if set.Empty() {
			return nil, errors.NewValidationError("select at least one page to split out")
		}
		ranges := make([]pagespec.SplitRange, set.Len())
		for i, idx := range set {
			ranges[i] = pagespec.SplitRange{Start: idx, End: idx}
		}
		docs, err = p.tr.SplitByRanges(ctx, doc, ranges)
		names = func(i int) string { return fmt.Sprintf("%s_page_%d.pdf", base, set[i]+1) }

	case "ranges":
		ranges, perr := p.parser.ParseRanges(params.Pages, pageCount)
		if perr != nil {
			return nil, perr
		}
		if len(ranges) == 0 {
			return nil, errors.NewValidationError("enter at least one valid page range, such as 1-3")
		}
		docs, err = p.tr.SplitByRanges(ctx, doc, ranges)
		names = func(i int) string {
			return fmt.Sprintf("%s_pages_%d-%d.pdf", base, ranges[i].Start+1, ranges[i].End+1)
		}

	default:
		return nil, errors.NewValidationError(fmt.Sprintf("unknown split mode %q", params.Mode))
	}
	if err != nil {
		return nil, err
	}

	out, err := p.saveAll(ctx, docs, names)
	if err != nil {
		return nil, err
	}
	return &Result{Files: out}, nil
}

// Rotate sets the rotation of the selected pages, or of all pages when no
// selection is given.
func (p *Processor) Rotate(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	if !docengine.ValidRotation(params.Angle) || params.Angle == 0 {
		return nil, errors.NewValidationError("rotation must be 90, 180 or 270 degrees")
	}
	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}

	var set pagespec.IndexSet
	if params.Pages != "" {
		if set, err = p.selection(params.Pages, doc.PageCount(), "rotate"); err != nil {
			return nil, err
		}
	}

	if _, err := p.tr.RotatePages(ctx, doc, set, params.Angle); err != nil {
		return nil, err
	}
	data, err := p.save(ctx, doc, docengine.SaveOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_rotated.pdf", data)}}, nil
}

// DeletePages removes the selected pages.
func (p *Processor) DeletePages(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}
	set, err := p.selection(params.Pages, doc.PageCount(), "delete")
	if err != nil {
		return nil, err
	}

	out, err := p.tr.DeletePages(ctx, doc, set)
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, out, docengine.SaveOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_edited.pdf", data)}}, nil
}

// ExtractPages copies the selected pages into a new document.
func (p *Processor) ExtractPages(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}
	set, err := p.selection(params.Pages, doc.PageCount(), "extract")
	if err != nil {
		return nil, err
	}

	out, err := p.tr.ExtractPages(ctx, doc, set)
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, out, docengine.SaveOptions{})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_extracted.pdf", data)}}, nil
}

// selection parses spec and requires at least one page.
func (p *Processor) selection(spec string, pageCount int, verb string) (pagespec.IndexSet, error) {
	set, err := p.parser.Parse(spec, pageCount)
	if err != nil {
		return nil, err
	}
	if set.Empty() {
		return nil, errors.NewValidationError(
			fmt.Sprintf("select at least one page to %s (the document has %d pages)", verb, pageCount),
		).WithDetails(map[string]interface{}{"pages": spec, "pageCount": pageCount})
	}
	return set, nil
}

func compression(level string) (docengine.Compression, error) {
	c, err := docengine.ParseCompression(level)
	if err != nil {
		return 0, errors.NewValidationError("compression level must be low, medium or high")
	}
	return c, nil
}
