// Package api exposes the tools, the processing history and batch jobs over
// HTTP.
package api

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourorg/pdf-toolkit/pkg/errors"
	"github.com/yourorg/pdf-toolkit/pkg/filesize"
	"github.com/yourorg/pdf-toolkit/pkg/httpservice"
	"github.com/yourorg/pdf-toolkit/pkg/processor"
)

// Response headers describing a tool result.
const (
	HeaderOriginalSize    = "X-Original-Size"
	HeaderResultSize      = "X-Result-Size"
	HeaderResultSizeHuman = "X-Result-Size-Human"
	HeaderReduction       = "X-Reduction-Percent"
	HeaderWarning         = "X-Warning"
	ContentTypeZip        = "application/zip"
	filesField            = "files"
)

// ExposedHeaders lists the headers browsers need to read from tool responses.
var ExposedHeaders = []string{
	HeaderOriginalSize, HeaderResultSize, HeaderResultSizeHuman, HeaderReduction, HeaderWarning,
	"Content-Disposition",
}

// readFiles reads every uploaded file of the "files" field.
func readFiles(c *gin.Context) ([]processor.InputFile, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if err == http.ErrNotMultipart {
			return nil, errors.NewValidationError("expected a multipart/form-data upload")
		}
		if strings.Contains(err.Error(), "request body too large") {
			return nil, errors.NewPayloadTooLargeError("upload is too large")
		}
		return nil, errors.NewValidationError("could not read upload: " + err.Error())
	}

	headers := form.File[filesField]
	files := make([]processor.InputFile, 0, len(headers))
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(fh *multipart.FileHeader) (processor.InputFile, error) {
	src, err := fh.Open()
	if err != nil {
		return processor.InputFile{}, errors.NewValidationError(fmt.Sprintf("could not open %s", fh.Filename))
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return processor.InputFile{}, errors.NewValidationError(fmt.Sprintf("could not read %s", fh.Filename))
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return processor.InputFile{Name: fh.Filename, ContentType: ct, Data: data}, nil
}

// bindParams reads tool options from the form fields.
func bindParams(c *gin.Context) (processor.Params, error) {
	var params processor.Params
	if err := httpservice.ValidateRequest(c, &params); err != nil {
		return params, err
	}
	return params, nil
}

// writeFiles writes one output as the response body and several as a zip.
func writeFiles(c *gin.Context, res *processor.Result) error {
	c.Header(HeaderOriginalSize, strconv.FormatInt(res.OriginalSize, 10))
	c.Header(HeaderResultSize, strconv.FormatInt(res.ResultSize, 10))
	c.Header(HeaderResultSizeHuman, filesize.Format(res.ResultSize))
	if res.Tool == processor.ToolCompress || res.Reduction != 0 {
		c.Header(HeaderReduction, strconv.FormatFloat(res.Reduction, 'f', 1, 64))
	}
	for _, w := range res.Warnings {
		c.Writer.Header().Add(HeaderWarning, w)
	}

	switch len(res.Files) {
	case 0:
		return errors.NewInternalError("tool produced no output")
	case 1:
		f := res.Files[0]
		c.Header("Content-Disposition", attachment(f.Name))
		c.Data(http.StatusOK, f.ContentType, f.Data)
		return nil
	}

	archive, err := zipFiles(res.Files)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", attachment(processor.UniqueFilename(res.Tool, "zip")))
	c.Data(http.StatusOK, ContentTypeZip, archive)
	return nil
}

func zipFiles(files []processor.OutputFile) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]int, len(files))
	for _, f := range files {
		name := f.Name
		if n := seen[name]; n > 0 {
			name = fmt.Sprintf("%d_%s", n, name)
		}
		seen[f.Name]++

		w, err := zw.Create(name)
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(name, `"`, "_"))
}
