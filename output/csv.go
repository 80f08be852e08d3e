package output

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/lazytable/lazytable/table"
)

// CSVFormatter writes the table as CSV with a header row. Column order
// follows the table schema.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter.
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// SetOutput sets the output writer.
func (c *CSVFormatter) SetOutput(w io.Writer) {
	c.writer = w
}

// Format writes the table as CSV.
func (c *CSVFormatter) Format(t *table.Table) error {
	w := csv.NewWriter(c.writer)
	columns := t.Schema.Names()

	if err := w.Write(columns); err != nil {
		return err
	}
	for _, row := range t.Rows() {
		record := make([]string, len(columns))
		for i, col := range columns {
			record[i] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV writer: %w", err)
	}
	return nil
}
