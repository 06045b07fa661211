package docengine

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"image"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/yourorg/pdf-toolkit/pkg/errors"
)

// Operation names used for call recording and failure injection.
const (
	OpLoad            = "Load"
	OpCreate          = "Create"
	OpCopyPages       = "CopyPages"
	OpAddPage         = "AddPage"
	OpRemovePage      = "RemovePage"
	OpSetPageRotation = "SetPageRotation"
	OpEmbedImage      = "EmbedImage"
	OpDrawImage       = "DrawImage"
	OpSave            = "Save"
	OpInfo            = "Info"
)

// MemoryPage describes one page of a MemoryLibrary document.
type MemoryPage struct {
	Source   string  `json:"source"`
	Page     int     `json:"page"` // 1-based page number in Source
	Rotation int     `json:"rotation"`
	Image    string  `json:"image,omitempty"` // "WxH" for drawn images
	Width    float64 `json:"width,omitempty"`
	Height   float64 `json:"height,omitempty"`
}

// memoryFile is the serialized form produced by MemoryLibrary.Save.
type memoryFile struct {
	Magic       string       `json:"magic"`
	Pages       []MemoryPage `json:"pages"`
	Info        Info         `json:"info"`
	Compression string       `json:"compression,omitempty"`
	Watermark   string       `json:"watermark,omitempty"`
	Password    string       `json:"password,omitempty"`
}

const memoryMagic = "memdoc/1"

// MemoryFixture returns bytes that MemoryLibrary loads as a pages-page
// document whose pages are labelled with source.
func MemoryFixture(source string, pages int) []byte {
	f := memoryFile{Magic: memoryMagic, Info: Info{Title: source}}
	for i := 1; i <= pages; i++ {
		f.Pages = append(f.Pages, MemoryPage{Source: source, Page: i})
	}
	data, _ := json.Marshal(f)
	return data
}

// MemoryLibrary is an in-memory Library. It records every call, can be told
// to fail a given operation, and saves documents as JSON page lists. Raw PDF
// input is accepted too: pdfcpu counts its pages, which is enough for
// planning but not for output.
type MemoryLibrary struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

// NewMemoryLibrary returns an empty MemoryLibrary.
func NewMemoryLibrary() *MemoryLibrary {
	return &MemoryLibrary{fail: map[string]error{}}
}

// FailOn makes every later call of op return err. A nil err clears it.
func (m *MemoryLibrary) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fail, op)
		return
	}
	m.fail[op] = err
}

// Calls returns the recorded operation names in call order.
func (m *MemoryLibrary) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// CallCount returns how often op was called.
func (m *MemoryLibrary) CallCount(op string) int {
	n := 0
	for _, c := range m.Calls() {
		if c == op {
			n++
		}
	}
	return n
}

// Reset forgets recorded calls.
func (m *MemoryLibrary) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

func (m *MemoryLibrary) record(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, op)
	return m.fail[op]
}

type memoryDocument struct {
	mu    sync.Mutex
	pages []MemoryPage
	info  Info
}

func (d *memoryDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pages)
}

type memoryPageHandle struct {
	page MemoryPage
}

func (memoryPageHandle) isPage() {}

type memoryImage struct {
	width, height int
}

func (i *memoryImage) Width() int  { return i.width }
func (i *memoryImage) Height() int { return i.height }

// Pages returns a copy of doc's pages.
func (m *MemoryLibrary) Pages(doc Document) []MemoryPage {
	d, ok := doc.(*memoryDocument)
	if !ok {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]MemoryPage(nil), d.pages...)
}

// Rotation returns the rotation of page index, or -1 when out of range.
func (m *MemoryLibrary) Rotation(doc Document, index int) int {
	pages := m.Pages(doc)
	if index < 0 || index >= len(pages) {
		return -1
	}
	return pages[index].Rotation
}

// DecodeMemoryFile parses bytes produced by MemoryLibrary.Save.
func DecodeMemoryFile(data []byte) ([]MemoryPage, error) {
	var f memoryFile
	if err := json.Unmarshal(data, &f); err != nil || f.Magic != memoryMagic {
		return nil, stderrors.New("not a memory document")
	}
	return f.Pages, nil
}

func (m *MemoryLibrary) document(doc Document) (*memoryDocument, error) {
	d, ok := doc.(*memoryDocument)
	if !ok || d == nil {
		return nil, fmt.Errorf("document was not created by this library")
	}
	return d, nil
}

func (m *MemoryLibrary) Load(ctx context.Context, data []byte, opts LoadOptions) (Document, error) {
	if err := m.record(OpLoad); err != nil {
		return nil, errors.NewLoadError("could not read document", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var f memoryFile
	if json.Unmarshal(data, &f) == nil && f.Magic == memoryMagic {
		if f.Password != "" && opts.Password != f.Password {
			return nil, errors.NewLoadError("incorrect password or document not protected", stderrors.New("password mismatch"))
		}
		if f.Password == "" && opts.Password != "" {
			return nil, errors.NewLoadError("incorrect password or document not protected", stderrors.New("document is not encrypted"))
		}
		f.Info.Encrypted = f.Password != ""
		f.Info.PageCount = len(f.Pages)
		return &memoryDocument{pages: f.Pages, info: f.Info}, nil
	}

	if bytes.HasPrefix(data, []byte("%PDF-")) {
		conf := model.NewDefaultConfiguration()
		conf.ValidationMode = model.ValidationRelaxed
		n, err := api.PageCount(bytes.NewReader(data), conf)
		if err != nil {
			return nil, errors.NewLoadError("could not read document", err)
		}
		d := &memoryDocument{info: Info{PageCount: n}}
		for i := 1; i <= n; i++ {
			d.pages = append(d.pages, MemoryPage{Source: "pdf", Page: i})
		}
		return d, nil
	}

	return nil, errors.NewLoadError("could not read document", stderrors.New("unrecognized input"))
}

func (m *MemoryLibrary) Create() Document {
	_ = m.record(OpCreate)
	return &memoryDocument{}
}

func (m *MemoryLibrary) CopyPages(src Document, indices []int) ([]Page, error) {
	if err := m.record(OpCopyPages); err != nil {
		return nil, err
	}
	d, err := m.document(src)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	pages := make([]Page, 0, len(indices))
	for _, i := range indices {
		if err := checkIndex(i, len(d.pages)); err != nil {
			return nil, err
		}
		pages = append(pages, memoryPageHandle{page: d.pages[i]})
	}
	return pages, nil
}

func (m *MemoryLibrary) AddPage(doc Document, page Page) error {
	if err := m.record(OpAddPage); err != nil {
		return err
	}
	d, err := m.document(doc)
	if err != nil {
		return err
	}
	p, ok := page.(memoryPageHandle)
	if !ok {
		return fmt.Errorf("page was not copied by this library")
	}
	d.mu.Lock()
	d.pages = append(d.pages, p.page)
	d.mu.Unlock()
	return nil
}

func (m *MemoryLibrary) RemovePage(doc Document, index int) error {
	if err := m.record(OpRemovePage); err != nil {
		return err
	}
	d, err := m.document(doc)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := checkIndex(index, len(d.pages)); err != nil {
		return err
	}
	d.pages = append(d.pages[:index:index], d.pages[index+1:]...)
	return nil
}

func (m *MemoryLibrary) SetPageRotation(doc Document, index, angle int) error {
	if err := m.record(OpSetPageRotation); err != nil {
		return err
	}
	if !ValidRotation(angle) {
		return fmt.Errorf("invalid rotation %d", angle)
	}
	d, err := m.document(doc)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := checkIndex(index, len(d.pages)); err != nil {
		return err
	}
	d.pages[index].Rotation = angle
	return nil
}

func (m *MemoryLibrary) EmbedImage(doc Document, data []byte, format ImageFormat) (Image, error) {
	if err := m.record(OpEmbedImage); err != nil {
		return nil, err
	}
	if _, err := m.document(doc); err != nil {
		return nil, err
	}
	cfg, decoded, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	if ImageFormat(decoded) != format {
		return nil, fmt.Errorf("image is %s, not %s", decoded, format)
	}
	return &memoryImage{width: cfg.Width, height: cfg.Height}, nil
}

func (m *MemoryLibrary) DrawImage(doc Document, img Image, rect Rect) error {
	if err := m.record(OpDrawImage); err != nil {
		return err
	}
	d, err := m.document(doc)
	if err != nil {
		return err
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("invalid image size %gx%g", rect.Width, rect.Height)
	}
	d.mu.Lock()
	d.pages = append(d.pages, MemoryPage{
		Source: "image",
		Page:   len(d.pages) + 1,
		Image:  fmt.Sprintf("%dx%d", img.Width(), img.Height()),
		Width:  rect.X + rect.Width,
		Height: rect.Y + rect.Height,
	})
	d.mu.Unlock()
	return nil
}

func (m *MemoryLibrary) Save(ctx context.Context, doc Document, opts SaveOptions) ([]byte, error) {
	if err := m.record(OpSave); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := m.document(doc)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	f := memoryFile{
		Magic:       memoryMagic,
		Pages:       append([]MemoryPage(nil), d.pages...),
		Info:        d.info,
		Compression: opts.Compression.String(),
	}
	d.mu.Unlock()

	if len(f.Pages) == 0 {
		return nil, errors.NewDocumentProcessingError("save", ErrEmptyDocument)
	}
	if opts.Watermark != nil {
		f.Watermark = opts.Watermark.Text
	}
	if opts.Encryption != nil {
		f.Password = opts.Encryption.UserPassword
	}
	// Encryption status reflects the output, not the source.
	f.Info.Encrypted = false
	f.Info.PageCount = len(f.Pages)
	return json.Marshal(f)
}

func (m *MemoryLibrary) Info(doc Document) (Info, error) {
	if err := m.record(OpInfo); err != nil {
		return Info{}, err
	}
	d, err := m.document(doc)
	if err != nil {
		return Info{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	info := d.info
	info.PageCount = len(d.pages)
	return info, nil
}
