// Package output renders materialized result tables in text formats.
//
// Supported formats: JSON Lines (one object per line), CSV with a header
// row, and an aligned text table for terminals.
//
// Example usage:
//
//	formatter := output.NewTextFormatter(os.Stdout)
//	if err := formatter.Format(result); err != nil {
//	    log.Fatal(err)
//	}
package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/lazytable/lazytable/table"
)

// Formatter defines the interface for result formatters.
type Formatter interface {
	// Format writes the table in the formatter's specific format.
	Format(t *table.Table) error

	// SetOutput changes the output writer.
	SetOutput(w io.Writer)
}

// New returns the formatter for a format name: "jsonl", "csv" or "text".
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case "jsonl", "json":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "text", "table":
		return NewTextFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// formatValue converts a cell value to its text representation.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
