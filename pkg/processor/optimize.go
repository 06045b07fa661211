package processor

import (
	"context"
	"fmt"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/filesize"
)

// minUsefulReduction is the reduction, in percent, below which compress warns.
const minUsefulReduction = 5.0

// Compress rewrites the document at the requested level (medium by default).
// When the rewrite is not smaller the original bytes are returned.
func (p *Processor) Compress(ctx context.Context, files []InputFile, params Params) (*Result, error) {
	level := params.Level
	if level == "" {
		level = "medium"
	}
	c, err := compression(level)
	if err != nil {
		return nil, err
	}

	f := files[0]
	doc, err := p.load(ctx, f, "")
	if err != nil {
		return nil, err
	}
	data, err := p.save(ctx, doc, docengine.SaveOptions{Compression: c})
	if err != nil {
		return nil, err
	}

	res := &Result{OriginalSize: f.Size()}
	if int64(len(data)) >= f.Size() {
		data = f.Data
	}
	res.Files = []OutputFile{pdfFile(baseName(f.Name)+"_compressed.pdf", data)}
	res.ResultSize = int64(len(data))
	res.Reduction = filesize.Reduction(res.OriginalSize, res.ResultSize)

	if res.Reduction < minUsefulReduction {
		res.Warnings = append(res.Warnings, fmt.Sprintf(
			"the file is already well optimized: %s to %s (%.1f%% smaller)",
			filesize.Format(res.OriginalSize), filesize.Format(res.ResultSize), res.Reduction))
	}
	return res, nil
}
