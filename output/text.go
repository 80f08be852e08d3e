package output

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/lazytable/lazytable/table"
)

// TextFormatter renders the table with aligned columns for terminals.
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new aligned text formatter.
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// SetOutput sets the output writer.
func (f *TextFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders the table.
func (f *TextFormatter) Format(t *table.Table) error {
	tw := tablewriter.NewWriter(f.writer)
	tw.SetHeader(t.Schema.Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetBorder(false)

	columns := t.Schema.Names()
	for _, row := range t.Rows() {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatValue(row[col])
		}
		tw.Append(record)
	}
	tw.Render()
	return nil
}
