package processor

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/filesize"
)

// Limits bound the uploads a tool accepts.
type Limits struct {
	MaxFileSize int64
	MaxFiles    int
}

// DefaultLimits are 100 MB per file and 20 files per request.
func DefaultLimits() Limits {
	return Limits{MaxFileSize: 100 * 1024 * 1024, MaxFiles: 20}
}

var acceptedTypes = map[string]struct {
	contentTypes []string
	extensions   []string
	label        string
}{
	InputPDF:         {[]string{ContentTypePDF}, []string{".pdf"}, "a PDF"},
	InputImage:       {[]string{ContentTypeJPEG, "image/jpg", ContentTypePNG}, []string{".jpg", ".jpeg", ".png"}, "a JPEG or PNG image"},
	InputSpreadsheet: {[]string{ContentTypeCSV, "application/vnd.ms-excel", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}, []string{".csv", ".xls", ".xlsx"}, "a spreadsheet"},
	InputDocument:    {[]string{"application/msword", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}, []string{".doc", ".docx"}, "a Word document"},
}

// ValidateFile checks that f is of the given input kind, by content type or
// extension, and within maxSize bytes.
func ValidateFile(f InputFile, kind string, maxSize int64) error {
	accepted, ok := acceptedTypes[kind]
	if !ok {
		return errors.NewValidationError(fmt.Sprintf("unknown input kind %q", kind))
	}
	if len(f.Data) == 0 {
		return errors.NewValidationError(fmt.Sprintf("%s is empty", f.Name))
	}

	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(f.ContentType, ";", 2)[0]))
	ext := strings.ToLower(filepath.Ext(f.Name))
	if !contains(accepted.contentTypes, ct) && !contains(accepted.extensions, ext) {
		return errors.NewValidationError(fmt.Sprintf("%s is not %s", f.Name, accepted.label))
	}

	if maxSize > 0 && f.Size() > maxSize {
		return errors.NewPayloadTooLargeError(fmt.Sprintf("%s is %s, the limit is %s",
			f.Name, filesize.Format(f.Size()), filesize.Format(maxSize)))
	}
	return nil
}

// ValidateFiles checks the file count against tool and limits, then every file.
func ValidateFiles(files []InputFile, tool ToolInfo, limits Limits) error {
	if len(files) == 0 {
		return errors.NewValidationError("select at least one file")
	}
	if tool.MinFiles > 1 && len(files) < tool.MinFiles {
		return errors.NewValidationError(fmt.Sprintf("%s needs at least %d files", tool.Name, tool.MinFiles))
	}
	maxFiles := limits.MaxFiles
	if tool.MaxFiles > 0 && (maxFiles <= 0 || tool.MaxFiles < maxFiles) {
		maxFiles = tool.MaxFiles
	}
	if maxFiles > 0 && len(files) > maxFiles {
		return errors.NewValidationError(fmt.Sprintf("%s accepts at most %d files, got %d", tool.Name, maxFiles, len(files)))
	}
	for _, f := range files {
		if err := ValidateFile(f, tool.Accepts, limits.MaxFileSize); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

var (
	nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
	now      = time.Now
)

// UniqueFilename returns base with every non-alphanumeric character replaced
// by "_", followed by the current UTC time and ext:
// "my_file_2024-05-01T10-20-30-123Z.pdf".
func UniqueFilename(base, ext string) string {
	ts := now().UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("%s_%s.%s", nonAlnum.ReplaceAllString(base, "_"), ts, strings.TrimPrefix(ext, "."))
}

// baseName strips the directory and extension from name.
func baseName(name string) string {
	name = filepath.Base(name)
	if b := strings.TrimSuffix(name, filepath.Ext(name)); b != "" && b != "." {
		return b
	}
	return "document"
}
