package pdfutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestRenderImagePages(t *testing.T) {
	data := pngBytes(t, 40, 20)

	out, err := RenderImagePages([]ImagePage{
		{Data: data, Format: "png", PageWidth: 40, PageHeight: 20, Width: 40, Height: 20},
		{Data: data, Format: "png", PageWidth: 595.28, PageHeight: 841.89, Width: 100, Height: 50},
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Equal(t, 2, bytes.Count(out, []byte("/Type /Page\n")))
}

func TestRenderImagePages_Errors(t *testing.T) {
	_, err := RenderImagePages(nil)
	assert.Error(t, err)

	_, err = RenderImagePages([]ImagePage{{Data: []byte("x"), Format: "gif", PageWidth: 1, PageHeight: 1}})
	assert.Error(t, err)
}

func TestRenderTable_Paginates(t *testing.T) {
	rows := make([][]string, 200)
	for i := range rows {
		rows[i] = []string{"row", "a very long value that will not fit into a narrow column at all", ""}
	}

	out, err := RenderTable([]string{"name", "value", "empty"}, rows, TableOptions{Title: "report.csv"})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 1)

	_, err = RenderTable(nil, rows, TableOptions{})
	assert.Error(t, err)
}

func TestExtractText_RejectsGarbage(t *testing.T) {
	_, err := NewPDFParser().ExtractText(context.Background(), []byte("not a pdf"))
	assert.Error(t, err)
}

func TestExtractText_ImageOnlyPagesHaveNoText(t *testing.T) {
	doc, err := RenderImagePages([]ImagePage{
		{Data: pngBytes(t, 10, 10), Format: "png", PageWidth: 10, PageHeight: 10, Width: 10, Height: 10},
	})
	require.NoError(t, err)

	pages, err := NewPDFParser().ExtractText(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, 1, pages[0].Page)
	assert.False(t, pages[0].HasText())
}
