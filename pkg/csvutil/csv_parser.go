package csvutil

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// Table is a parsed CSV file.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Columns returns the widest of the header and the longest row.
func (t *Table) Columns() int {
	n := len(t.Headers)
	for _, r := range t.Rows {
		n = max(n, len(r))
	}
	return n
}

// ParserConfig configures CSV parsing behavior.
type ParserConfig struct {
	HasHeader bool
	// Comma is the field delimiter. Zero sniffs ',', ';' or tab from the
	// first line, which covers spreadsheet exports in most locales.
	Comma         rune
	Comment       rune
	LazyQuotes    bool
	SkipEmptyRows bool
	// MaxRows stops parsing with an error past this many data rows; 0 means no limit.
	MaxRows int
}

// DefaultParserConfig returns a default parser configuration.
func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		HasHeader:     true,
		LazyQuotes:    true,
		SkipEmptyRows: true,
		MaxRows:       100000,
	}
}

// Parser reads CSV tables.
type Parser struct {
	config ParserConfig
}

// NewParser creates a new CSV parser.
func NewParser(config ParserConfig) *Parser {
	return &Parser{config: config}
}

// Parse reads every row of r. Rows may have differing widths.
func (p *Parser) Parse(r io.Reader) (*Table, error) {
	br := bufio.NewReader(r)
	if bom, _ := br.Peek(3); bytes.Equal(bom, []byte{0xEF, 0xBB, 0xBF}) {
		_, _ = br.Discard(3)
	}

	comma := p.config.Comma
	if comma == 0 {
		comma = sniffDelimiter(br)
	}

	cr := csv.NewReader(br)
	cr.Comma = comma
	cr.Comment = p.config.Comment
	cr.LazyQuotes = p.config.LazyQuotes
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	table := &Table{}
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}

		if p.config.HasHeader && table.Headers == nil {
			table.Headers = row
			continue
		}
		if p.config.SkipEmptyRows && isEmpty(row) {
			continue
		}
		if p.config.MaxRows > 0 && len(table.Rows) >= p.config.MaxRows {
			return nil, fmt.Errorf("CSV file has more than %d rows", p.config.MaxRows)
		}
		table.Rows = append(table.Rows, row)
	}

	if table.Headers == nil && len(table.Rows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}
	if table.Headers == nil {
		table.Headers = make([]string, table.Columns())
		for i := range table.Headers {
			table.Headers[i] = fmt.Sprintf("Column %d", i+1)
		}
	}
	return table, nil
}

func sniffDelimiter(br *bufio.Reader) rune {
	peek, _ := br.Peek(4096)
	first := peek
	if i := bytes.IndexByte(peek, '\n'); i >= 0 {
		first = peek[:i]
	}
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t'} {
		if n := bytes.Count(first, []byte(string(c))); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func isEmpty(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}
