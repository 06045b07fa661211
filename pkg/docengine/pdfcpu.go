package docengine

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/logging"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
)

// ErrEmptyDocument is returned when saving a document without pages.
var ErrEmptyDocument = stderrors.New("document has no pages")

var disableConfigDir sync.Once

// PDFLibrary implements Library on top of pdfcpu.
//
// Documents are page plans: an ordered list of references into loaded source
// files, plus rotation overrides and image pages. Nothing is rewritten until
// Save, which extracts contiguous runs of source pages, renders image pages
// with gofpdf, merges the parts and applies rotation, compression, watermark
// and encryption in that order.
type PDFLibrary struct {
	logger logging.Logger
}

// NewPDFLibrary returns a pdfcpu-backed library. pdfcpu's on-disk
// configuration directory is disabled process-wide.
func NewPDFLibrary(logger logging.Logger) *PDFLibrary {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	disableConfigDir.Do(api.DisableConfigDir)
	return &PDFLibrary{logger: logger.With(logging.NewField("component", "pdfcpu"))}
}

type pdfSource struct {
	data      []byte
	pageCount int
}

type planEntry struct {
	src    *pdfSource
	pageNr int // 1-based, when src != nil

	img  *pdfImage
	rect Rect

	rotation *int
}

type pdfPage struct {
	entry planEntry
}

func (pdfPage) isPage() {}

type pdfImage struct {
	data   []byte
	format ImageFormat
	width  int
	height int
}

func (i *pdfImage) Width() int  { return i.width }
func (i *pdfImage) Height() int { return i.height }

type pdfDocument struct {
	mu      sync.Mutex
	entries []planEntry
	info    Info
}

func (d *pdfDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

func (l *PDFLibrary) config() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (l *PDFLibrary) document(d Document) (*pdfDocument, error) {
	doc, ok := d.(*pdfDocument)
	if !ok || doc == nil {
		return nil, fmt.Errorf("document was not created by this library")
	}
	return doc, nil
}

// Load reads and validates data. With a password the document is decrypted
// first; the plan then refers to the decrypted bytes.
func (l *PDFLibrary) Load(ctx context.Context, data []byte, opts LoadOptions) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.NewLoadError("could not read document", stderrors.New("empty input"))
	}

	if opts.Password != "" {
		conf := l.config()
		conf.UserPW = opts.Password
		conf.OwnerPW = opts.Password
		var out bytes.Buffer
		if err := api.Decrypt(bytes.NewReader(data), &out, conf); err != nil {
			return nil, errors.NewLoadError("incorrect password or document not protected", err)
		}
		data = out.Bytes()
	}

	pctx, err := l.read(data)
	if err != nil {
		return nil, errors.NewLoadError("could not read document", err)
	}

	encrypted := pctx.Encrypt != nil
	if encrypted {
		// Only an owner password is set; store the plain bytes.
		var out bytes.Buffer
		if err := api.Decrypt(bytes.NewReader(data), &out, l.config()); err != nil {
			return nil, errors.NewLoadError("document is password protected", err)
		}
		data = out.Bytes()
	}

	src := &pdfSource{data: data, pageCount: pctx.PageCount}
	doc := &pdfDocument{
		entries: make([]planEntry, src.pageCount),
		info: Info{
			PageCount:    pctx.PageCount,
			Title:        pctx.Title,
			Author:       pctx.Author,
			Subject:      pctx.Subject,
			Creator:      pctx.Creator,
			Producer:     pctx.Producer,
			CreationDate: pctx.XRefTable.CreationDate,
			ModDate:      pctx.XRefTable.ModDate,
			Encrypted:    encrypted || opts.Password != "",
		},
	}
	if pctx.HeaderVersion != nil {
		doc.info.Version = pctx.HeaderVersion.String()
	}
	for i := range doc.entries {
		doc.entries[i] = planEntry{src: src, pageNr: i + 1}
	}

	l.logger.Debug("document loaded",
		logging.NewField("pages", src.pageCount),
		logging.NewField("bytes", len(data)),
		logging.NewField("encrypted", doc.info.Encrypted))
	return doc, nil
}

func (l *PDFLibrary) read(data []byte) (*model.Context, error) {
	pctx, err := api.ReadContext(bytes.NewReader(data), l.config())
	if err != nil {
		return nil, err
	}
	if err := api.ValidateContext(pctx); err != nil {
		return nil, err
	}
	return pctx, nil
}

func (l *PDFLibrary) Create() Document {
	return &pdfDocument{}
}

func (l *PDFLibrary) CopyPages(src Document, indices []int) ([]Page, error) {
	doc, err := l.document(src)
	if err != nil {
		return nil, err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()

	pages := make([]Page, 0, len(indices))
	for _, i := range indices {
		if err := checkIndex(i, len(doc.entries)); err != nil {
			return nil, err
		}
		pages = append(pages, pdfPage{entry: doc.entries[i]})
	}
	return pages, nil
}

func (l *PDFLibrary) AddPage(d Document, page Page) error {
	doc, err := l.document(d)
	if err != nil {
		return err
	}
	p, ok := page.(pdfPage)
	if !ok {
		return fmt.Errorf("page was not copied by this library")
	}
	doc.mu.Lock()
	doc.entries = append(doc.entries, p.entry)
	doc.mu.Unlock()
	return nil
}

func (l *PDFLibrary) RemovePage(d Document, index int) error {
	doc, err := l.document(d)
	if err != nil {
		return err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if err := checkIndex(index, len(doc.entries)); err != nil {
		return err
	}
	doc.entries = append(doc.entries[:index:index], doc.entries[index+1:]...)
	return nil
}

func (l *PDFLibrary) SetPageRotation(d Document, index, angle int) error {
	if !ValidRotation(angle) {
		return fmt.Errorf("invalid rotation %d", angle)
	}
	doc, err := l.document(d)
	if err != nil {
		return err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	if err := checkIndex(index, len(doc.entries)); err != nil {
		return err
	}
	a := angle
	doc.entries[index].rotation = &a
	return nil
}

func (l *PDFLibrary) EmbedImage(d Document, data []byte, format ImageFormat) (Image, error) {
	if _, err := l.document(d); err != nil {
		return nil, err
	}
	cfg, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if ImageFormat(decoded) != format {
		return nil, fmt.Errorf("image is %s, not %s", decoded, format)
	}
	return &pdfImage{data: data, format: format, width: cfg.Width, height: cfg.Height}, nil
}

func (l *PDFLibrary) DrawImage(d Document, img Image, rect Rect) error {
	doc, err := l.document(d)
	if err != nil {
		return err
	}
	pi, ok := img.(*pdfImage)
	if !ok {
		return fmt.Errorf("image was not embedded by this library")
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("invalid image size %gx%g", rect.Width, rect.Height)
	}
	doc.mu.Lock()
	doc.entries = append(doc.entries, planEntry{img: pi, rect: rect})
	doc.mu.Unlock()
	return nil
}

func (l *PDFLibrary) Info(d Document) (Info, error) {
	doc, err := l.document(d)
	if err != nil {
		return Info{}, err
	}
	doc.mu.Lock()
	defer doc.mu.Unlock()
	info := doc.info
	info.PageCount = len(doc.entries)
	return info, nil
}

func (l *PDFLibrary) Save(ctx context.Context, d Document, opts SaveOptions) ([]byte, error) {
	doc, err := l.document(d)
	if err != nil {
		return nil, err
	}
	doc.mu.Lock()
	entries := append([]planEntry(nil), doc.entries...)
	doc.mu.Unlock()

	if len(entries) == 0 {
		return nil, errors.NewDocumentProcessingError("save", ErrEmptyDocument)
	}

	start := time.Now()
	parts, err := l.materialize(ctx, entries)
	if err != nil {
		return nil, err
	}

	data := parts[0]
	if len(parts) > 1 {
		readers := make([]io.ReadSeeker, len(parts))
		for i, p := range parts {
			readers[i] = bytes.NewReader(p)
		}
		var merged bytes.Buffer
		if err := api.MergeRaw(readers, &merged, false, l.config()); err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		data = merged.Bytes()
	}

	if data, err = l.finish(data, entries, opts.Compression); err != nil {
		return nil, err
	}
	if opts.Watermark != nil {
		if data, err = l.watermark(data, opts.Watermark); err != nil {
			return nil, err
		}
	}
	if opts.Encryption != nil {
		if data, err = l.encrypt(data, opts.Encryption); err != nil {
			return nil, err
		}
	}

	l.logger.Debug("document saved",
		logging.NewField("pages", len(entries)),
		logging.NewField("parts", len(parts)),
		logging.NewField("compression", opts.Compression.String()),
		logging.NewField("bytes", len(data)),
		logging.NewField("duration_ms", time.Since(start).Milliseconds()))
	return data, nil
}

// materialize turns the plan into a list of PDF parts whose concatenation
// has exactly the planned pages in order.
func (l *PDFLibrary) materialize(ctx context.Context, entries []planEntry) ([][]byte, error) {
	var parts [][]byte
	for i := 0; i < len(entries); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		j := i + 1
		if entries[i].img != nil {
			for j < len(entries) && entries[j].img != nil {
				j++
			}
			part, err := renderImages(entries[i:j])
			if err != nil {
				return nil, err
			}
			parts = append(parts, part)
			i = j
			continue
		}

		src := entries[i].src
		pageNrs := []int{entries[i].pageNr}
		for j < len(entries) && entries[j].src == src && entries[j].pageNr > entries[j-1].pageNr {
			pageNrs = append(pageNrs, entries[j].pageNr)
			j++
		}
		part, err := l.extract(src, pageNrs)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part)
		i = j
	}
	return parts, nil
}

func (l *PDFLibrary) extract(src *pdfSource, pageNrs []int) ([]byte, error) {
	if len(pageNrs) == src.pageCount {
		return src.data, nil
	}
	pctx, err := l.read(src.data)
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}
	out, err := pdfcpu.ExtractPages(pctx, pageNrs, false)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(out, &buf); err != nil {
		return nil, fmt.Errorf("write pages: %w", err)
	}
	return buf.Bytes(), nil
}

func renderImages(entries []planEntry) ([]byte, error) {
	pages := make([]pdfutil.ImagePage, len(entries))
	for i, e := range entries {
		pages[i] = pdfutil.ImagePage{
			Data:       e.img.data,
			Format:     string(e.img.format),
			PageWidth:  e.rect.X + e.rect.Width,
			PageHeight: e.rect.Y + e.rect.Height,
			X:          e.rect.X,
			Y:          e.rect.Y,
			Width:      e.rect.Width,
			Height:     e.rect.Height,
		}
	}
	return pdfutil.RenderImagePages(pages)
}

// finish applies rotation overrides and writes the document with the
// requested compression.
func (l *PDFLibrary) finish(data []byte, entries []planEntry, level Compression) ([]byte, error) {
	pctx, err := l.read(data)
	if err != nil {
		return nil, fmt.Errorf("read assembled document: %w", err)
	}

	for i, e := range entries {
		if e.rotation == nil {
			continue
		}
		dict, _, _, err := pctx.PageDict(i+1, false)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		if dict == nil {
			return nil, fmt.Errorf("page %d: missing page dictionary", i+1)
		}
		dict.Update("Rotate", types.Integer(*e.rotation))
	}

	conf := pctx.Configuration
	conf.WriteObjectStream = level >= CompressionHigh
	conf.WriteXRefStream = level >= CompressionMedium
	if level >= CompressionLow {
		if err := api.OptimizeContext(pctx); err != nil {
			return nil, fmt.Errorf("optimize: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}
	return buf.Bytes(), nil
}

var watermarkAnchors = map[string]string{
	PositionCenter:      "c",
	PositionTopLeft:     "tl",
	PositionTopRight:    "tr",
	PositionBottomLeft:  "bl",
	PositionBottomRight: "br",
}

func watermarkDescription(wm *Watermark) string {
	anchor, ok := watermarkAnchors[wm.Position]
	if !ok {
		anchor = "c"
	}
	color := wm.Color
	if color == "" {
		color = "#808080"
	}
	return fmt.Sprintf("fontname:Helvetica, points:%d, rotation:%g, opacity:%g, position:%s, scalefactor:1 abs, fillcolor:%s",
		wm.FontSize, wm.Rotation, wm.Opacity, anchor, color)
}

func (l *PDFLibrary) watermark(data []byte, wm *Watermark) ([]byte, error) {
	stamp, err := api.TextWatermark(wm.Text, watermarkDescription(wm), true, false, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}

	var selected []string
	for _, p := range wm.Pages {
		selected = append(selected, strconv.Itoa(p))
	}

	var out bytes.Buffer
	if err := api.AddWatermarks(bytes.NewReader(data), &out, selected, stamp, l.config()); err != nil {
		return nil, fmt.Errorf("watermark: %w", err)
	}
	return out.Bytes(), nil
}

func permissionFlags(p Permissions) model.PermissionFlags {
	flags := model.PermissionsNone
	if p.Print {
		flags |= model.PermissionPrintRev2 | model.PermissionPrintRev3
	}
	if p.Modify {
		flags |= model.PermissionModify | model.PermissionAssembleRev3
	}
	if p.Copy {
		flags |= model.PermissionExtract | model.PermissionExtractRev3
	}
	if p.Annotate {
		flags |= model.PermissionModAnnFillForm | model.PermissionFillRev3
	}
	return flags
}

func (l *PDFLibrary) encrypt(data []byte, enc *Encryption) ([]byte, error) {
	owner := enc.OwnerPassword
	if owner == "" {
		owner = enc.UserPassword
	}
	conf := model.NewAESConfiguration(enc.UserPassword, owner, 256)
	conf.ValidationMode = model.ValidationRelaxed
	conf.Permissions = permissionFlags(enc.Permissions)

	var out bytes.Buffer
	if err := api.Encrypt(bytes.NewReader(data), &out, conf); err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return out.Bytes(), nil
}
