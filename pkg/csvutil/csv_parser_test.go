package csvutil

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_Parse(t *testing.T) {
	csvData := "name,age,city\nJohn,30,New York\n\nJane,25\nBob,35,Chicago,extra"

	table, err := NewParser(DefaultParserConfig()).Parse(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"Jane", "25"}, table.Rows[1])
	assert.Equal(t, 4, table.Columns())
}

func TestParser_SniffsSemicolonAndStripsBOM(t *testing.T) {
	csvData := "\xEF\xBB\xBFproduct;price\nwidget;1,50\n"

	table, err := NewParser(DefaultParserConfig()).Parse(strings.NewReader(csvData))
	require.NoError(t, err)

	assert.Equal(t, []string{"product", "price"}, table.Headers)
	assert.Equal(t, [][]string{{"widget", "1,50"}}, table.Rows)
}

func TestParser_NoHeader(t *testing.T) {
	cfg := DefaultParserConfig()
	cfg.HasHeader = false

	table, err := NewParser(cfg).Parse(strings.NewReader("a\tb\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Column 1", "Column 2"}, table.Headers)
}

func TestParser_MaxRows(t *testing.T) {
	cfg := DefaultParserConfig()
	cfg.MaxRows = 1

	_, err := NewParser(cfg).Parse(strings.NewReader("h\n1\n2\n"))
	assert.Error(t, err)
}

func TestParser_EmptyFile(t *testing.T) {
	_, err := NewParser(DefaultParserConfig()).Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestWriter_WriteTable(t *testing.T) {
	var buf bytes.Buffer
	err := NewWriter(&buf).WriteTable(&Table{
		Headers: []string{"file", "tool"},
		Rows:    [][]string{{"a.pdf", "merge"}, {"b, c.pdf", "split"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "file,tool\na.pdf,merge\n\"b, c.pdf\",split\n", buf.String())
}

func TestWriter_FormulaEscaping(t *testing.T) {
	row := []string{"=HYPERLINK(\"x\")", "-3", "ok", ""}

	var buf bytes.Buffer
	w := NewWriter(&buf, WithFormulaEscaping(), WithDelimiter(';'))
	require.NoError(t, w.WriteRow(row))
	require.NoError(t, w.Flush())

	assert.Equal(t, "\"'=HYPERLINK(\"\"x\"\")\";'-3;ok;\n", buf.String())
	assert.Equal(t, "-3", row[1], "input row must not be modified")
}
