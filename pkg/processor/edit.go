package processor

import (
	"context"
	"sync"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/filesize"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
)

// Watermark defaults.
const (
	DefaultWatermarkFontSize = 36
	DefaultWatermarkOpacity  = 0.3
	DefaultWatermarkRotation = 45
	DefaultWatermarkColor    = "#808080"
)

// Watermark stamps params.Text on the selected pages, or on every page.
func (p *Processor) Watermark(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	if params.Text == "" {
		return nil, errors.NewValidationError("watermark text is required")
	}

	wm := &docengine.Watermark{
		Text:     params.Text,
		FontSize: DefaultWatermarkFontSize,
		Opacity:  DefaultWatermarkOpacity,
		Rotation: DefaultWatermarkRotation,
		Position: docengine.PositionCenter,
		Color:    DefaultWatermarkColor,
	}
	if params.FontSize > 0 {
		wm.FontSize = params.FontSize
	}
	if params.Opacity != nil {
		if *params.Opacity <= 0 || *params.Opacity > 1 {
			return nil, errors.NewValidationError("opacity must be greater than 0 and at most 1")
		}
		wm.Opacity = *params.Opacity
	}
	if params.Rotation != nil {
		wm.Rotation = *params.Rotation
	}
	if params.Position != "" {
		wm.Position = params.Position
	}
	if params.Color != "" {
		wm.Color = params.Color
	}

	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}

	var set pagespec.IndexSet
	if params.Pages != "" {
		if set, err = p.selection(params.Pages, doc.PageCount(), "watermark"); err != nil {
			return nil, err
		}
		wm.Pages = set.OneBased()
	}

	data, err := p.save(ctx, doc, docengine.SaveOptions{Watermark: wm})
	if err != nil {
		return nil, err
	}
	return &Result{Files: []OutputFile{pdfFile(baseName(f.Name)+"_watermarked.pdf", data)}}, nil
}

// Metadata reads the document information of every input concurrently.
// The report keeps input order; the first failing input, in input order,
// fails the whole call.
func (p *Processor) Metadata(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	report := make([]Metadata, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f InputFile) {
			defer wg.Done()
			report[i], errs[i] = p.metadata(ctx, f, params.Password)
		}(i, f)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Result{Metadata: report}, nil
}

func (p *Processor) metadata(ctx context.Context, f InputFile, password string) (Metadata, error) {
	doc, err := p.load(ctx, f, password)
	if err != nil {
		return Metadata{}, err
	}
	info, err := p.lib.Info(doc)
	if err != nil {
		return Metadata{}, errors.NewDocumentProcessingError("read metadata", err)
	}
	return Metadata{
		FileName:      f.Name,
		FileSize:      f.Size(),
		FormattedSize: filesize.Format(f.Size()),
		Info:          info,
	}, nil
}
