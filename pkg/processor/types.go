package processor

import (
	"github.com/yourorg/pdf-toolkit/pkg/docengine"
	"github.com/yourorg/pdf-toolkit/pkg/pdfutil"
)

// Content types produced or accepted by the tools.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeCSV  = "text/csv"
)

// InputFile is one uploaded file.
type InputFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size returns the file size in bytes.
func (f InputFile) Size() int64 { return int64(len(f.Data)) }

// OutputFile is one produced file.
type OutputFile struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Data        []byte `json:"-"`
}

// Size returns the file size in bytes.
func (f OutputFile) Size() int64 { return int64(len(f.Data)) }

// Params carries the tool options. Zero values select the documented
// defaults; fields a tool does not use are ignored.
type Params struct {
	// Pages is a page selection such as "1,3,5-8"; the processor's page-spec
	// policy decides what happens to segments it cannot accept.
	Pages string `form:"pages" json:"pages,omitempty"`
	// Mode is the split mode: each (default), pages or ranges.
	Mode  string `form:"mode" json:"mode,omitempty" validate:"omitempty,oneof=each pages ranges"`
	Angle int    `form:"angle" json:"angle,omitempty" validate:"omitempty,oneof=90 180 270"`
	// Level is the compression level for compress and merge.
	Level string `form:"level" json:"level,omitempty" validate:"omitempty,oneof=low medium high"`

	Password      string   `form:"password" json:"password,omitempty"`
	OwnerPassword string   `form:"ownerPassword" json:"ownerPassword,omitempty"`
	Permissions   []string `form:"permissions" json:"permissions,omitempty" validate:"omitempty,dive,oneof=print modify copy annotate"`

	Text     string   `form:"text" json:"text,omitempty" validate:"omitempty,max=200"`
	FontSize int      `form:"fontSize" json:"fontSize,omitempty" validate:"omitempty,min=8,max=200"`
	Opacity  *float64 `form:"opacity" json:"opacity,omitempty" validate:"omitempty,gt=0,lte=1"`
	Rotation *float64 `form:"rotation" json:"rotation,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Position string   `form:"position" json:"position,omitempty" validate:"omitempty,oneof=center top-left top-right bottom-left bottom-right"`
	Color    string   `form:"color" json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// Metadata describes one document for the metadata tool.
type Metadata struct {
	FileName      string `json:"fileName"`
	FileSize      int64  `json:"fileSize"`
	FormattedSize string `json:"formattedSize"`
	docengine.Info
}

// TextReport is the outcome of the text extraction tool.
type TextReport struct {
	FileName         string             `json:"fileName"`
	Pages            []pdfutil.PageText `json:"pages"`
	PagesWithoutText []int              `json:"pagesWithoutText,omitempty"`
}

// Result is what every tool returns.
type Result struct {
	Tool         string       `json:"tool"`
	Files        []OutputFile `json:"files,omitempty"`
	OriginalSize int64        `json:"originalSize"`
	ResultSize   int64        `json:"resultSize"`
	Reduction    float64      `json:"reduction,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	Metadata     []Metadata   `json:"metadata,omitempty"`
	Text         *TextReport  `json:"text,omitempty"`
}

// Request is one tool invocation.
type Request struct {
	Tool   string
	Files  []InputFile
	Params Params
	// Source tags telemetry: "http", "job" or "cli".
	Source string
}
