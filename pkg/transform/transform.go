// Package transform applies page-level transformations to documents through
// a docengine.Library.
package transform

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"

	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
)

// A4 page size in points.
const (
	A4Width  = 595.28
	A4Height = 841.89
)

// Operation names carried by DOCUMENT_PROCESSING_ERROR details.
const (
	OpExtractPages  = "extract pages"
	OpDeletePages   = "delete pages"
	OpSplitByRanges = "split by ranges"
	OpSplitEachPage = "split each page"
	OpRotatePages   = "rotate pages"
	OpMerge         = "merge"
	OpImages        = "images to document"
)

// ImageInput is one raster image for ImagesToDocument.
type ImageInput struct {
	Name   string
	Data   []byte
	Format docengine.ImageFormat
}

// Transformer performs transformations without retries. Library failures
// come back as DOCUMENT_PROCESSING_ERROR naming the operation; multi-document
// operations return nothing when any step fails.
type Transformer struct {
	lib    docengine.Library
	logger logging.Logger
}

// New returns a Transformer over lib.
func New(lib docengine.Library, logger logging.Logger) *Transformer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Transformer{lib: lib, logger: logger.With(logging.NewField("component", "transform"))}
}

// Library returns the underlying document library.
func (t *Transformer) Library() docengine.Library {
	return t.lib
}

// ExtractPages returns a new document holding exactly the pages in indices,
// in order.
func (t *Transformer) ExtractPages(ctx context.Context, doc docengine.Document, indices pagespec.IndexSet) (docengine.Document, error) {
	if indices.Empty() {
		return nil, errors.NewValidationError("select at least one page to extract")
	}
	out, err := t.copyInto(ctx, doc, indices)
	if err != nil {
		return nil, wrap(OpExtractPages, err)
	}
	return out, nil
}

// DeletePages returns a new document without the pages in indices. An empty
// selection, or one covering every page, is rejected before the library is
// touched.
func (t *Transformer) DeletePages(ctx context.Context, doc docengine.Document, indices pagespec.IndexSet) (docengine.Document, error) {
	pageCount := doc.PageCount()
	selected := pagespec.FromIndices(indices, pageCount)
	if selected.Empty() {
		return nil, errors.NewValidationError("select at least one page to delete")
	}
	if selected.Covers(pageCount) {
		return nil, errors.NewValidationError("cannot delete every page of the document")
	}

	keep := make([]int, 0, pageCount-selected.Len())
	for i := 0; i < pageCount; i++ {
		if !selected.Contains(i) {
			keep = append(keep, i)
		}
	}

	out, err := t.copyInto(ctx, doc, keep)
	if err != nil {
		return nil, wrap(OpDeletePages, err)
	}
	t.logger.Debug("pages deleted",
		logging.NewField("deleted", selected.String()),
		logging.NewField("remaining", len(keep)))
	return out, nil
}

// SplitByRanges returns one document per range, in input order. Ranges are
// clipped to the document; ranges left empty produce no document.
func (t *Transformer) SplitByRanges(ctx context.Context, doc docengine.Document, ranges []pagespec.SplitRange) ([]docengine.Document, error) {
	pageCount := doc.PageCount()
	var docs []docengine.Document
	for _, r := range ranges {
		start, end := max(r.Start, 0), min(r.End, pageCount-1)
		if start > end {
			continue
		}
		indices := make([]int, 0, end-start+1)
		for i := start; i <= end; i++ {
			indices = append(indices, i)
		}
		out, err := t.copyInto(ctx, doc, indices)
		if err != nil {
			return nil, wrap(OpSplitByRanges, err)
		}
		docs = append(docs, out)
	}
	return docs, nil
}

// SplitEachPage returns one single-page document per page, in order.
func (t *Transformer) SplitEachPage(ctx context.Context, doc docengine.Document) ([]docengine.Document, error) {
	pageCount := doc.PageCount()
	docs := make([]docengine.Document, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		out, err := t.copyInto(ctx, doc, []int{i})
		if err != nil {
			return nil, wrap(OpSplitEachPage, err)
		}
		docs = append(docs, out)
	}
	return docs, nil
}

// RotatePages sets the rotation of the pages in indices, or of every page
// when indices is empty, and returns doc. The angle replaces any earlier
// rotation. 0 resets pages to upright.
//
// doc is changed in place. The angle, the targets and ctx are checked before
// the first page is touched; only a library failure partway through can leave
// doc partly rotated, and then the error says which operation failed.
func (t *Transformer) RotatePages(ctx context.Context, doc docengine.Document, indices pagespec.IndexSet, angle int) (docengine.Document, error) {
	if !docengine.ValidRotation(angle) {
		return nil, errors.NewValidationError(fmt.Sprintf("rotation must be 0, 90, 180 or 270 degrees, got %d", angle))
	}

	pageCount := doc.PageCount()
	targets := pagespec.FromIndices(indices, pageCount)
	if indices.Empty() {
		targets = pagespec.All(pageCount)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for _, i := range targets {
		if err := t.lib.SetPageRotation(doc, i, angle); err != nil {
			return nil, wrap(OpRotatePages, err)
		}
	}
	return doc, nil
}

// Merge returns a new document with every page of docs, in order.
func (t *Transformer) Merge(ctx context.Context, docs []docengine.Document) (docengine.Document, error) {
	if len(docs) == 0 {
		return nil, errors.NewValidationError("select at least one document to merge")
	}
	out := t.lib.Create()
	for _, doc := range docs {
		if err := t.appendPages(ctx, out, doc, pagespec.All(doc.PageCount())); err != nil {
			return nil, wrap(OpMerge, err)
		}
	}
	return out, nil
}

// ImagesToDocument returns a document with one page per image. Images larger
// than A4 are scaled down to fit, keeping their aspect ratio; smaller images
// keep their pixel size in points.
func (t *Transformer) ImagesToDocument(ctx context.Context, images []ImageInput) (docengine.Document, error) {
	if len(images) == 0 {
		return nil, errors.NewValidationError("select at least one image")
	}
	out := t.lib.Create()
	for _, in := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := t.lib.EmbedImage(out, in.Data, in.Format)
		if err != nil {
			return nil, wrap(OpImages, fmt.Errorf("%s: %w", in.Name, err))
		}
		w, h := FitA4(float64(img.Width()), float64(img.Height()))
		if err := t.lib.DrawImage(out, img, docengine.Rect{Width: w, Height: h}); err != nil {
			return nil, wrap(OpImages, fmt.Errorf("%s: %w", in.Name, err))
		}
	}
	return out, nil
}

// FitA4 scales (w, h) down to fit an A4 page when it is larger.
func FitA4(w, h float64) (float64, float64) {
	if w <= A4Width && h <= A4Height {
		return w, h
	}
	scale := math.Min(A4Width/w, A4Height/h)
	return w * scale, h * scale
}

func (t *Transformer) copyInto(ctx context.Context, doc docengine.Document, indices []int) (docengine.Document, error) {
	out := t.lib.Create()
	if err := t.appendPages(ctx, out, doc, indices); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Transformer) appendPages(ctx context.Context, dst, src docengine.Document, indices []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pages, err := t.lib.CopyPages(src, indices)
	if err != nil {
		return err
	}
	for _, p := range pages {
		if err := t.lib.AddPage(dst, p); err != nil {
			return err
		}
	}
	return nil
}

func wrap(op string, err error) error {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.CodeOf(err) == errors.ErrorCodeDocumentProcessing {
		return err
	}
	return errors.NewDocumentProcessingError(op, err)
}
