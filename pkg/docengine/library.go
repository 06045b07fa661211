// Package docengine is the boundary between the toolkit and the byte-level
// PDF engine. Callers only see opaque Document, Page and Image handles and
// the operations of Library.
package docengine

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Document is an opaque handle to a document owned by a Library. A handle
// must not be used from two goroutines at once.
type Document interface {
	PageCount() int
}

// Page is an opaque page handle returned by Library.CopyPages.
type Page interface {
	isPage()
}

// Image is an embedded raster image. Width and Height are in pixels.
type Image interface {
	Width() int
	Height() int
}

// ImageFormat names a supported raster format.
type ImageFormat string

const (
	ImageJPEG ImageFormat = "jpeg"
	ImagePNG  ImageFormat = "png"
)

// DetectImageFormat resolves the format from a content type, falling back to
// the file extension.
func DetectImageFormat(contentType, filename string) (ImageFormat, error) {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ImageJPEG, nil
	case "image/png":
		return ImagePNG, nil
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return ImageJPEG, nil
	case ".png":
		return ImagePNG, nil
	}
	return "", fmt.Errorf("unsupported image type %q", filename)
}

// Rect positions an image on a page, in points. DrawImage appends a page of
// (X+Width) x (Y+Height).
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Compression selects how aggressively Save rewrites the document.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionLow
	CompressionMedium
	CompressionHigh
)

// ParseCompression maps "low", "medium", "high" (and "" / "none") to a level.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "low":
		return CompressionLow, nil
	case "medium":
		return CompressionMedium, nil
	case "high":
		return CompressionHigh, nil
	}
	return CompressionNone, fmt.Errorf("unknown compression level %q", s)
}

func (c Compression) String() string {
	switch c {
	case CompressionLow:
		return "low"
	case CompressionMedium:
		return "medium"
	case CompressionHigh:
		return "high"
	}
	return "none"
}

// Watermark positions.
const (
	PositionCenter      = "center"
	PositionTopLeft     = "top-left"
	PositionTopRight    = "top-right"
	PositionBottomLeft  = "bottom-left"
	PositionBottomRight = "bottom-right"
)

// Watermark is a text stamp applied on Save.
type Watermark struct {
	Text     string
	FontSize int
	Opacity  float64
	Rotation float64
	Position string
	// Color is a hex RGB value such as "#808080".
	Color string
	// Pages are 1-based page numbers; empty means every page.
	Pages []int
}

// Permissions granted to a reader who opens an encrypted document with the
// user password.
type Permissions struct {
	Print    bool `json:"print"`
	Modify   bool `json:"modify"`
	Copy     bool `json:"copy"`
	Annotate bool `json:"annotate"`
}

// Encryption protects the saved document with AES-256.
type Encryption struct {
	UserPassword  string
	OwnerPassword string
	Permissions   Permissions
}

// LoadOptions control Library.Load.
type LoadOptions struct {
	// Password decrypts a protected document. Loading an unprotected document
	// with a password fails.
	Password string
}

// SaveOptions control Library.Save.
type SaveOptions struct {
	Compression Compression
	Watermark   *Watermark
	Encryption  *Encryption
}

// Info is the document information of a loaded document.
type Info struct {
	PageCount    int    `json:"pageCount"`
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modificationDate,omitempty"`
	Encrypted    bool   `json:"encrypted"`
	Version      string `json:"version,omitempty"`
}

// Library is the document engine contract.
//
// Load fails with a LOAD_ERROR AppError. The remaining operations return
// plain errors; wrapping them is the caller's concern.
type Library interface {
	Load(ctx context.Context, data []byte, opts LoadOptions) (Document, error)
	Create() Document
	CopyPages(src Document, indices []int) ([]Page, error)
	AddPage(doc Document, page Page) error
	RemovePage(doc Document, index int) error
	SetPageRotation(doc Document, index, angle int) error
	EmbedImage(doc Document, data []byte, format ImageFormat) (Image, error)
	DrawImage(doc Document, img Image, rect Rect) error
	Save(ctx context.Context, doc Document, opts SaveOptions) ([]byte, error)
	Info(doc Document) (Info, error)
}

// ValidRotation reports whether angle is a page rotation the engine accepts.
func ValidRotation(angle int) bool {
	switch angle {
	case 0, 90, 180, 270:
		return true
	}
	return false
}

func checkIndex(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("page index %d out of range [0, %d)", index, count)
	}
	return nil
}
