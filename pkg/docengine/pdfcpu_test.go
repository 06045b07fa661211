package docengine

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// samplePDF renders an n-page PDF whose page i is (100+i) points wide.
func samplePDF(t *testing.T, n int) []byte {
	t.Helper()
	data := testPNG(t, 4, 4)
	pages := make([]pdfutil.ImagePage, n)
	for i := range pages {
		w := float64(100 + i)
		pages[i] = pdfutil.ImagePage{Data: data, Format: "png", PageWidth: w, PageHeight: 200, Width: w, Height: 200}
	}
	out, err := pdfutil.RenderImagePages(pages)
	require.NoError(t, err)
	return out
}

func pageWidths(t *testing.T, data []byte) []float64 {
	t.Helper()
	ctx, err := api.ReadContext(bytes.NewReader(data), nil)
	require.NoError(t, err)
	require.NoError(t, api.ValidateContext(ctx))
	dims, err := ctx.PageDims()
	require.NoError(t, err)
	widths := make([]float64, len(dims))
	for i, d := range dims {
		widths[i] = d.Width
	}
	return widths
}

func TestPDFLibrary_ExtractKeepsOrder(t *testing.T) {
	lib := NewPDFLibrary(logging.NewNopLogger())
	ctx := context.Background()

	doc, err := lib.Load(ctx, samplePDF(t, 4), LoadOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, doc.PageCount())

	out := lib.Create()
	pages, err := lib.CopyPages(doc, []int{1, 3})
	require.NoError(t, err)
	for _, p := range pages {
		require.NoError(t, lib.AddPage(out, p))
	}

	data, err := lib.Save(ctx, out, SaveOptions{Compression: CompressionMedium})
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 103}, pageWidths(t, data))
}

func TestPDFLibrary_MergeAndRotate(t *testing.T) {
	lib := NewPDFLibrary(nil)
	ctx := context.Background()

	a, err := lib.Load(ctx, samplePDF(t, 2), LoadOptions{})
	require.NoError(t, err)
	b, err := lib.Load(ctx, samplePDF(t, 1), LoadOptions{})
	require.NoError(t, err)

	out := lib.Create()
	for _, src := range []Document{a, b} {
		pages, err := lib.CopyPages(src, []int{0})
		require.NoError(t, err)
		require.NoError(t, lib.AddPage(out, pages[0]))
	}
	require.NoError(t, lib.SetPageRotation(out, 1, 90))

	data, err := lib.Save(ctx, out, SaveOptions{})
	require.NoError(t, err)

	pctx, err := api.ReadContext(bytes.NewReader(data), nil)
	require.NoError(t, err)
	require.NoError(t, api.ValidateContext(pctx))
	assert.Equal(t, 2, pctx.PageCount)

	_, _, inh, err := pctx.PageDict(2, false)
	require.NoError(t, err)
	assert.Equal(t, 90, inh.Rotate)
}

func TestPDFLibrary_ImagePages(t *testing.T) {
	lib := NewPDFLibrary(nil)
	doc := lib.Create()

	img, err := lib.EmbedImage(doc, testPNG(t, 30, 60), ImagePNG)
	require.NoError(t, err)
	assert.Equal(t, 30, img.Width())
	require.NoError(t, lib.DrawImage(doc, img, Rect{Width: 30, Height: 60}))

	_, err = lib.EmbedImage(doc, testPNG(t, 1, 1), ImageJPEG)
	assert.Error(t, err)

	data, err := lib.Save(context.Background(), doc, SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, []float64{30}, pageWidths(t, data))
}

func TestPDFLibrary_EncryptAndUnlock(t *testing.T) {
	lib := NewPDFLibrary(nil)
	ctx := context.Background()

	doc, err := lib.Load(ctx, samplePDF(t, 2), LoadOptions{})
	require.NoError(t, err)

	protected, err := lib.Save(ctx, doc, SaveOptions{
		Encryption: &Encryption{UserPassword: "user-pass", Permissions: Permissions{Print: true}},
	})
	require.NoError(t, err)

	_, err = lib.Load(ctx, protected, LoadOptions{})
	assert.True(t, errors.IsLoad(err))

	_, err = lib.Load(ctx, protected, LoadOptions{Password: "nope"})
	assert.True(t, errors.IsLoad(err))

	unlocked, err := lib.Load(ctx, protected, LoadOptions{Password: "user-pass"})
	require.NoError(t, err)
	assert.Equal(t, 2, unlocked.PageCount())

	_, err = lib.Load(ctx, samplePDF(t, 1), LoadOptions{Password: "user-pass"})
	assert.True(t, errors.IsLoad(err))
}

func TestPDFLibrary_Watermark(t *testing.T) {
	lib := NewPDFLibrary(nil)
	ctx := context.Background()

	doc, err := lib.Load(ctx, samplePDF(t, 2), LoadOptions{})
	require.NoError(t, err)

	data, err := lib.Save(ctx, doc, SaveOptions{Watermark: &Watermark{
		Text: "DRAFT", FontSize: 36, Opacity: 0.3, Rotation: 45, Position: PositionCenter, Pages: []int{1},
	}})
	require.NoError(t, err)
	assert.Len(t, pageWidths(t, data), 2)
}

func TestPDFLibrary_InfoReadsDocumentMetadata(t *testing.T) {
	created := time.Date(2023, time.March, 14, 9, 30, 0, 0, time.UTC)
	modified := time.Date(2024, time.July, 1, 17, 0, 0, 0, time.UTC)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Quarterly Report", true)
	pdf.SetAuthor("Jane Doe", true)
	pdf.SetSubject("Finance", true)
	pdf.SetCreationDate(created)
	pdf.SetModificationDate(modified)
	pdf.AddPage()
	pdf.AddPage()
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))

	lib := NewPDFLibrary(logging.NewNopLogger())
	doc, err := lib.Load(context.Background(), buf.Bytes(), LoadOptions{})
	require.NoError(t, err)

	info, err := lib.Info(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, info.PageCount)
	assert.Equal(t, "Quarterly Report", info.Title)
	assert.Equal(t, "Jane Doe", info.Author)
	assert.Equal(t, "Finance", info.Subject)
	assert.Contains(t, info.CreationDate, "2023")
	assert.Contains(t, info.ModDate, "2024")
	assert.False(t, info.Encrypted)
}

func TestPDFLibrary_LoadRejectsGarbage(t *testing.T) {
	_, err := NewPDFLibrary(nil).Load(context.Background(), []byte("hello"), LoadOptions{})
	assert.True(t, errors.IsLoad(err))
}

func TestPDFLibrary_SaveEmpty(t *testing.T) {
	lib := NewPDFLibrary(nil)
	_, err := lib.Save(context.Background(), lib.Create(), SaveOptions{})
	assert.True(t, errors.IsDocumentProcessing(err))
}

func TestWatermarkDescription(t *testing.T) {
	desc := watermarkDescription(&Watermark{FontSize: 24, Opacity: 0.5, Rotation: 30, Position: PositionTopRight})
	assert.Equal(t, "fontname:Helvetica, points:24, rotation:30, opacity:0.5, position:tr, scalefactor:1 abs, fillcolor:#808080", desc)
}
