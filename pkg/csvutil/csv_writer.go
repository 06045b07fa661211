package csvutil

import (
	"encoding/csv"
	"io"
	"strings"
)

// Writer writes tables as CSV.
type Writer struct {
	writer        *csv.Writer
	escapeFormula bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithDelimiter sets the field delimiter. The default is a comma.
func WithDelimiter(r rune) WriterOption {
	return func(w *Writer) { w.writer.Comma = r }
}

// WithFormulaEscaping prefixes cells that a spreadsheet would evaluate
// (leading =, +, -, @, tab or carriage return) with a single quote. File names
// and error messages in exports come from users.
func WithFormulaEscaping() WriterOption {
	return func(w *Writer) { w.escapeFormula = true }
}

// NewWriter creates a new CSV writer.
func NewWriter(w io.Writer, opts ...WriterOption) *Writer {
	cw := &Writer{writer: csv.NewWriter(w)}
	for _, opt := range opts {
		opt(cw)
	}
	return cw
}

// WriteTable writes the header followed by every row and flushes.
func (w *Writer) WriteTable(t *Table) error {
	if len(t.Headers) > 0 {
		if err := w.WriteRow(t.Headers); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return w.Flush()
}

// WriteRow writes a single CSV row.
func (w *Writer) WriteRow(row []string) error {
	if w.escapeFormula {
		row = escapeRow(row)
	}
	return w.writer.Write(row)
}

// Flush flushes any buffered data to the underlying writer.
func (w *Writer) Flush() error {
	w.writer.Flush()
	return w.writer.Error()
}

func escapeRow(row []string) []string {
	var out []string
	for i, cell := range row {
		if cell == "" || !strings.ContainsRune("=+-@\t\r", rune(cell[0])) {
			continue
		}
		if out == nil {
			out = append([]string(nil), row...)
		}
		out[i] = "'" + cell
	}
	if out == nil {
		return row
	}
	return out
}
