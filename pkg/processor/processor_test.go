package processor

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/pagespec"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
	"github.com/yourorg/pdf-toolkit/pkg/telemetry"
)

type recorder struct {
	mu   sync.Mutex
	runs []telemetry.ToolRun
}

func (r *recorder) RecordToolRun(run telemetry.ToolRun) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
}

type stubText struct {
	pages []pdfutil.PageText
	err   error
}

func (s stubText) ExtractText(ctx context.Context, data []byte) ([]pdfutil.PageText, error) {
	return s.pages, s.err
}

func pdfInput(name string, pages int) InputFile {
	return InputFile{Name: name, ContentType: ContentTypePDF, Data: docengine.MemoryFixture(name, pages)}
}

func newProcessor(opts ...Option) (*Processor, *docengine.MemoryLibrary) {
	lib := docengine.NewMemoryLibrary()
	return New(lib, nil, opts...), lib
}

func run(t *testing.T, p *Processor, tool string, params Params, files ...InputFile) (*Result, error) {
	t.Helper()
	return p.Run(context.Background(), Request{Tool: tool, Files: files, Params: params, Source: "test"})
}

func outputPages(t *testing.T, f OutputFile) []docengine.MemoryPage {
	t.Helper()
	pages, err := docengine.DecodeMemoryFile(f.Data)
	require.NoError(t, err)
	return pages
}

func TestRun_UnknownTool(t *testing.T) {
	p, _ := newProcessor()
	_, err := run(t, p, "shred", Params{}, pdfInput("a.pdf", 1))
	assert.Equal(t, errors.ErrorCodeNotFound, errors.CodeOf(err))
}

func TestRun_TimeoutBecomesTimeoutError(t *testing.T) {
	p, _ := newProcessor(WithTimeout(time.Minute))
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := p.Run(ctx, Request{Tool: ToolCompress, Files: []InputFile{pdfInput("a.pdf", 1)}})

	require.Error(t, err)
	assert.Equal(t, errors.ErrorCodeTimeout, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "Compress PDF timed out")
}

func TestRun_ValidatesFiles(t *testing.T) {
	p, lib := newProcessor(WithLimits(Limits{MaxFileSize: 1024, MaxFiles: 2}))

	_, err := run(t, p, ToolSplit, Params{})
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolSplit, Params{}, InputFile{Name: "notes.txt", ContentType: "text/plain", Data: []byte("x")})
	assert.True(t, errors.IsValidation(err))

	big := InputFile{Name: "big.pdf", Data: bytes.Repeat([]byte("x"), 2048)}
	_, err = run(t, p, ToolSplit, Params{}, big)
	assert.Equal(t, errors.ErrorCodePayloadTooLarge, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "2 KB")

	_, err = run(t, p, ToolMerge, Params{}, pdfInput("a.pdf", 1), pdfInput("b.pdf", 1), pdfInput("c.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolMerge, Params{}, pdfInput("a.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	assert.Empty(t, lib.Calls())
}

func TestValidateFile_AcceptsByExtension(t *testing.T) {
	f := InputFile{Name: "scan.PDF", ContentType: "application/octet-stream", Data: []byte("%PDF")}
	assert.NoError(t, ValidateFile(f, InputPDF, 0))

	img := InputFile{Name: "photo", ContentType: "image/png; charset=binary", Data: []byte{1}}
	assert.NoError(t, ValidateFile(img, InputImage, 0))
}

func TestMerge(t *testing.T) {
	p, _ := newProcessor()

	res, err := run(t, p, ToolMerge, Params{Level: "high"}, pdfInput("a.pdf", 2), pdfInput("b.pdf", 1))
	require.NoError(t, err)
	require.Len(t, res.Files, 1)
	assert.True(t, strings.HasPrefix(res.Files[0].Name, "merged_"))

	pages := outputPages(t, res.Files[0])
	require.Len(t, pages, 3)
	assert.Equal(t, "a.pdf", pages[0].Source)
	assert.Equal(t, "b.pdf", pages[2].Source)
	assert.Equal(t, res.Files[0].Size(), res.ResultSize)
}

func TestSplit_Modes(t *testing.T) {
	p, _ := newProcessor()
	in := pdfInput("report.pdf", 5)

	res, err := run(t, p, ToolSplit, Params{}, in)
	require.NoError(t, err)
	require.Len(t, res.Files, 5)
	assert.Equal(t, "report_page_3.pdf", res.Files[2].Name)

	res, err = run(t, p, ToolSplit, Params{Mode: "pages", Pages: "4,2"}, in)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "report_page_2.pdf", res.Files[0].Name)
	assert.Equal(t, 4, outputPages(t, res.Files[1])[0].Page)

	res, err = run(t, p, ToolSplit, Params{Mode: "ranges", Pages: "4-5, 1-2, 3"}, in)
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.Equal(t, "report_pages_4-5.pdf", res.Files[0].Name)
	assert.Len(t, outputPages(t, res.Files[1]), 2)

	_, err = run(t, p, ToolSplit, Params{Mode: "ranges", Pages: "3"}, in)
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolSplit, Params{Mode: "pages", Pages: "9"}, in)
	assert.True(t, errors.IsValidation(err))
}

func TestSplit_StrictPolicy(t *testing.T) {
	p, _ := newProcessor(WithPageSpecPolicy(pagespec.Strict))

	_, err := run(t, p, ToolSplit, Params{Mode: "pages", Pages: "1,9"}, pdfInput("a.pdf", 3))
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "9")
}

func TestRotate(t *testing.T) {
	p, _ := newProcessor()
	in := pdfInput("scan.pdf", 3)

	res, err := run(t, p, ToolRotate, Params{Angle: 90, Pages: "2"}, in)
	require.NoError(t, err)
	pages := outputPages(t, res.Files[0])
	assert.Equal(t, []int{0, 90, 0}, []int{pages[0].Rotation, pages[1].Rotation, pages[2].Rotation})
	assert.Equal(t, "scan_rotated.pdf", res.Files[0].Name)

	res, err = run(t, p, ToolRotate, Params{Angle: 270}, in)
	require.NoError(t, err)
	for _, pg := range outputPages(t, res.Files[0]) {
		assert.Equal(t, 270, pg.Rotation)
	}

	_, err = run(t, p, ToolRotate, Params{Angle: 90, Pages: "7"}, in)
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolRotate, Params{Angle: 45}, in)
	assert.True(t, errors.IsValidation(err))
}

func TestDeleteAndExtract(t *testing.T) {
	p, _ := newProcessor()
	in := pdfInput("doc.pdf", 4)

	res, err := run(t, p, ToolDeletePages, Params{Pages: "1,3"}, in)
	require.NoError(t, err)
	pages := outputPages(t, res.Files[0])
	assert.Equal(t, []int{2, 4}, []int{pages[0].Page, pages[1].Page})

	_, err = run(t, p, ToolDeletePages, Params{Pages: "1-4"}, in)
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolDeletePages, Params{Pages: ""}, in)
	assert.True(t, errors.IsValidation(err))

	res, err = run(t, p, ToolExtractPages, Params{Pages: "2-3"}, in)
	require.NoError(t, err)
	assert.Len(t, outputPages(t, res.Files[0]), 2)
	assert.Equal(t, "doc_extracted.pdf", res.Files[0].Name)
}

func TestLoadFailureIsLoadError(t *testing.T) {
	p, _ := newProcessor()
	_, err := run(t, p, ToolExtractPages, Params{Pages: "1"}, InputFile{Name: "x.pdf", Data: []byte("garbage")})
	assert.True(t, errors.IsLoad(err))
}

func TestProtectAndUnlock(t *testing.T) {
	p, _ := newProcessor()

	_, err := run(t, p, ToolProtect, Params{Password: "abc"}, pdfInput("a.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	_, err = run(t, p, ToolProtect, Params{Password: "abcd", OwnerPassword: "xy"}, pdfInput("a.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	res, err := run(t, p, ToolProtect, Params{Password: "abcd", Permissions: []string{"print", "copy"}}, pdfInput("a.pdf", 1))
	require.NoError(t, err)
	locked := InputFile{Name: "a_protected.pdf", ContentType: ContentTypePDF, Data: res.Files[0].Data}

	_, err = run(t, p, ToolUnlock, Params{Password: "wrong"}, locked)
	require.Error(t, err)
	assert.True(t, errors.IsLoad(err))
	assert.Contains(t, err.Error(), "incorrect password or document not protected")

	res, err = run(t, p, ToolUnlock, Params{Password: "abcd"}, locked)
	require.NoError(t, err)
	assert.Equal(t, "a_protected_unlocked.pdf", res.Files[0].Name)

	_, err = run(t, p, ToolUnlock, Params{Password: "abcd"}, pdfInput("plain.pdf", 1))
	assert.True(t, errors.IsLoad(err))
}

func TestWatermark(t *testing.T) {
	p, _ := newProcessor()

	_, err := run(t, p, ToolWatermark, Params{}, pdfInput("a.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	zero := 0.0
	_, err = run(t, p, ToolWatermark, Params{Text: "DRAFT", Opacity: &zero}, pdfInput("a.pdf", 1))
	assert.True(t, errors.IsValidation(err))

	res, err := run(t, p, ToolWatermark, Params{Text: "DRAFT", Pages: "1"}, pdfInput("a.pdf", 2))
	require.NoError(t, err)
	assert.Contains(t, string(res.Files[0].Data), `"watermark":"DRAFT"`)
}

func TestMetadata_KeepsInputOrder(t *testing.T) {
	p, _ := newProcessor()

	files := []InputFile{pdfInput("c.pdf", 3), pdfInput("a.pdf", 1), pdfInput("b.pdf", 2)}
	res, err := run(t, p, ToolMetadata, Params{}, files...)
	require.NoError(t, err)
	require.Len(t, res.Metadata, 3)
	for i, f := range files {
		assert.Equal(t, f.Name, res.Metadata[i].FileName)
		assert.Equal(t, f.Name, res.Metadata[i].Title)
	}
	assert.Equal(t, 3, res.Metadata[0].PageCount)
	assert.NotEmpty(t, res.Metadata[1].FormattedSize)

	files[1] = InputFile{Name: "bad.pdf", Data: []byte("nope")}
	_, err = run(t, p, ToolMetadata, Params{}, files...)
	assert.True(t, errors.IsLoad(err))
}

func TestExtractText(t *testing.T) {
	p, _ := newProcessor(WithTextParser(stubText{pages: []pdfutil.PageText{
		{Page: 1, Text: "hello"},
		{Page: 2},
	}}))

	res, err := run(t, p, ToolOCR, Params{}, pdfInput("notes.pdf", 2))
	require.NoError(t, err)
	assert.Equal(t, []int{2}, res.Text.PagesWithoutText)
	assert.Equal(t, "notes.txt", res.Files[0].Name)
	assert.Contains(t, string(res.Files[0].Data), "hello")
	assert.Len(t, res.Warnings, 1)

	scanned, _ := newProcessor(WithTextParser(stubText{pages: []pdfutil.PageText{{Page: 1}}}))
	_, err = run(t, scanned, ToolOCR, Params{}, pdfInput("scan.pdf", 1))
	require.Error(t, err)
	assert.True(t, errors.IsNotImplemented(err))
	assert.Equal(t, MsgOCRUnavailable, errors.FromError(err).Message)
}

func TestConversionStubs(t *testing.T) {
	p, _ := newProcessor()

	_, err := run(t, p, ToolWordToPDF, Params{}, InputFile{Name: "a.docx", Data: []byte("x")})
	assert.True(t, errors.IsNotImplemented(err))

	_, err = run(t, p, ToolExcelToPDF, Params{}, InputFile{Name: "a.xlsx", Data: []byte("x")})
	assert.True(t, errors.IsNotImplemented(err))

	res, err := run(t, p, ToolExcelToPDF, Params{}, InputFile{Name: "sales.csv", ContentType: ContentTypeCSV, Data: []byte("region,total\nnorth,10\nsouth,12,extra\n")})
	require.NoError(t, err)
	assert.Equal(t, "sales.pdf", res.Files[0].Name)
	assert.True(t, bytes.HasPrefix(res.Files[0].Data, []byte("%PDF-")))
}

func TestCompress_WarnsWhenNotSmaller(t *testing.T) {
	p, _ := newProcessor()
	in := pdfInput("a.pdf", 1)

	res, err := run(t, p, ToolCompress, Params{Level: "low"}, in)
	require.NoError(t, err)
	assert.Equal(t, in.Size(), res.OriginalSize)
	assert.LessOrEqual(t, res.ResultSize, res.OriginalSize)
	assert.Len(t, res.Warnings, 1)

	_, err = run(t, p, ToolCompress, Params{Level: "max"}, in)
	assert.True(t, errors.IsValidation(err))
}

func TestImagesToPDF(t *testing.T) {
	p, lib := newProcessor()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 20, 10))))

	res, err := run(t, p, ToolImagesToPDF, Params{},
		InputFile{Name: "a.png", ContentType: ContentTypePNG, Data: buf.Bytes()},
		InputFile{Name: "b.jpg", ContentType: ContentTypeJPEG, Data: buf.Bytes()},
	)
	require.NoError(t, err)
	pages := outputPages(t, res.Files[0])
	assert.Len(t, pages, 2)
	assert.Equal(t, "20x10", pages[1].Image)
	assert.Equal(t, 2, lib.CallCount(docengine.OpDrawImage))

	_, err = run(t, p, ToolImagesToPDF, Params{}, InputFile{Name: "x.png", ContentType: ContentTypePNG, Data: []byte("nope")})
	assert.True(t, errors.IsLoad(err))
}

func TestRun_RecordsTelemetry(t *testing.T) {
	rec := &recorder{}
	p, _ := newProcessor(WithRecorder(rec))

	_, err := run(t, p, ToolSplit, Params{}, pdfInput("a.pdf", 2))
	require.NoError(t, err)
	_, err = run(t, p, ToolDeletePages, Params{Pages: "1-2"}, pdfInput("a.pdf", 2))
	require.Error(t, err)

	require.Len(t, rec.runs, 2)
	assert.Equal(t, "split", rec.runs[0].Tool)
	assert.Equal(t, "test", rec.runs[0].Source)
	assert.Empty(t, rec.runs[0].ErrorCode)
	assert.Equal(t, string(errors.ErrorCodeValidation), rec.runs[1].ErrorCode)
}

func TestUniqueFilename(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 5, 1, 10, 20, 30, 123e6, time.UTC) }
	defer func() { now = time.Now }()

	assert.Equal(t, "my_file_v2_2024-05-01T10-20-30-123Z.pdf", UniqueFilename("my file-v2", "pdf"))
}

func TestCatalog(t *testing.T) {
	tools := Catalog()
	require.Len(t, tools, 14)

	word, ok := Lookup(ToolWordToPDF)
	require.True(t, ok)
	assert.False(t, word.Available)

	for _, tool := range tools {
		assert.Contains(t, Categories(), tool.Category, tool.Slug)
	}
	_, ok = Lookup("nope")
	assert.False(t, ok)
}
