// Package processor implements the PDF tools on top of the document
// transformer. It works on bytes: files go in, files come out.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
	"github.com/yourorg/pdf-toolkit/pkg/telemetry"
	"github.com/yourorg/pdf-toolkit/pkg/transform"
)

// RunRecorder receives one event per finished tool run.
type RunRecorder interface {
	RecordToolRun(run telemetry.ToolRun)
}

// Processor runs catalog tools.
type Processor struct {
	lib       docengine.Library
	tr        *transform.Transformer
	parser    *pagespec.Parser
	text      pdfutil.PDFParser
	limits    Limits
	recorder  RunRecorder
	timeout   time.Duration
	logger    logging.Logger
	toolFuncs map[string]toolFunc
}

type toolFunc func(ctx context.Context, files []InputFile, params Params) (*Result, error)

// Option configures a Processor.
type Option func(*Processor)

// WithPageSpecPolicy sets how invalid page selections are handled.
func WithPageSpecPolicy(policy pagespec.Policy) Option {
	return func(p *Processor) { p.parser = pagespec.NewParser(policy) }
}

// WithLimits overrides DefaultLimits.
func WithLimits(limits Limits) Option {
	return func(p *Processor) { p.limits = limits }
}

// WithRecorder sends a telemetry event per run.
func WithRecorder(r RunRecorder) Option {
	return func(p *Processor) { p.recorder = r }
}

// WithTimeout bounds each run. Zero means no limit beyond the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(p *Processor) { p.timeout = d }
}

// WithTextParser replaces the text layer parser.
func WithTextParser(tp pdfutil.PDFParser) Option {
	return func(p *Processor) { p.text = tp }
}

// New returns a Processor over lib.
func New(lib docengine.Library, logger logging.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	p := &Processor{
		lib:    lib,
		tr:     transform.New(lib, logger),
		parser: pagespec.NewParser(pagespec.Lenient),
		text:   pdfutil.NewPDFParser(),
		limits: DefaultLimits(),
		logger: logger.With(logging.NewField("component", "processor")),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.toolFuncs = map[string]toolFunc{
		ToolMerge:        p.Merge,
		ToolSplit:        p.Split,
		ToolCompress:     p.Compress,
		ToolRotate:       p.Rotate,
		ToolDeletePages:  p.DeletePages,
		ToolExtractPages: p.ExtractPages,
		ToolImagesToPDF:  p.ImagesToPDF,
		ToolProtect:      p.Protect,
		ToolUnlock:       p.Unlock,
		ToolWatermark:    p.Watermark,
		ToolMetadata:     p.Metadata,
		ToolOCR:          p.ExtractText,
		ToolWordToPDF:    p.WordToPDF,
		ToolExcelToPDF:   p.ExcelToPDF,
	}
	return p
}

// Limits returns the upload limits in force.
func (p *Processor) Limits() Limits {
	return p.limits
}

// Run validates the request against the tool's catalog entry and runs it.
func (p *Processor) Run(ctx context.Context, req Request) (*Result, error) {
	tool, ok := Lookup(req.Tool)
	if !ok {
		return nil, errors.NewNotFoundError(fmt.Sprintf("unknown tool %q", req.Tool))
	}

	logger := logging.FromContext(ctx).With(
		logging.NewField("tool", tool.Slug),
		logging.NewField("files", len(req.Files)),
	)
	start := time.Now()

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	res, err := p.run(ctx, tool, req)
	if err != nil && ctx.Err() == context.DeadlineExceeded {
		err = errors.NewTimeoutError(fmt.Sprintf("%s timed out", tool.Name))
	}

	run := telemetry.ToolRun{
		Tool:       tool.Slug,
		Source:     req.Source,
		DurationMs: time.Since(start).Milliseconds(),
		Files:      len(req.Files),
	}
	for _, f := range req.Files {
		run.OriginalSize += f.Size()
	}

	if err != nil {
		run.ErrorCode = string(errors.FromError(err).Code)
		logger.Warn("Tool failed",
			logging.NewField("duration_ms", run.DurationMs),
			logging.NewField("error_code", run.ErrorCode),
			logging.NewField("error", err))
		p.record(run)
		return nil, err
	}

	run.ResultSize = res.ResultSize
	logger.Info("Tool completed",
		logging.NewField("duration_ms", run.DurationMs),
		logging.NewField("outputs", len(res.Files)),
		logging.NewField("original_size", res.OriginalSize),
		logging.NewField("result_size", res.ResultSize))
	p.record(run)
	return res, nil
}

func (p *Processor) run(ctx context.Context, tool ToolInfo, req Request) (*Result, error) {
	if !tool.Available {
		return p.toolFuncs[tool.Slug](ctx, req.Files, req.Params)
	}
	if err := ValidateFiles(req.Files, tool, p.limits); err != nil {
		return nil, err
	}
	res, err := p.toolFuncs[tool.Slug](ctx, req.Files, req.Params)
	if err != nil {
		return nil, err
	}
	// A cancelled request discards whatever was produced.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res.Tool = tool.Slug
	res.finish(req.Files)
	return res, nil
}

func (p *Processor) record(run telemetry.ToolRun) {
	if p.recorder != nil {
		p.recorder.RecordToolRun(run)
	}
}

func (r *Result) finish(inputs []InputFile) {
	if r.OriginalSize == 0 {
		for _, f := range inputs {
			r.OriginalSize += f.Size()
		}
	}
	if r.ResultSize == 0 {
		for _, f := range r.Files {
			r.ResultSize += f.Size()
		}
	}
}

func (p *Processor) load(ctx context.Context, f InputFile, password string) (docengine.Document, error) {
	doc, err := p.lib.Load(ctx, f.Data, docengine.LoadOptions{Password: password})
	if err != nil {
		if errors.IsLoad(err) {
			return nil, err
		}
		return nil, errors.NewLoadError(fmt.Sprintf("could not read %s", f.Name), err)
	}
	return doc, nil
}

func (p *Processor) save(ctx context.Context, doc docengine.Document, opts docengine.SaveOptions) ([]byte, error) {
	data, err := p.lib.Save(ctx, doc, opts)
	if err != nil {
		if errors.IsDocumentProcessing(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errors.NewDocumentProcessingError("save", err)
	}
	return data, nil
}

func (p *Processor) saveAll(ctx context.Context, docs []docengine.Document, names func(i int) string) ([]OutputFile, error) {
	files := make([]OutputFile, 0, len(docs))
	for i, doc := range docs {
		data, err := p.save(ctx, doc, docengine.SaveOptions{})
		if err != nil {
			return nil, err
		}
		files = append(files, pdfFile(names(i), data))
	}
	return files, nil
}

func pdfFile(name string, data []byte) OutputFile {
	return OutputFile{Name: name, ContentType: ContentTypePDF, Data: data}
}
