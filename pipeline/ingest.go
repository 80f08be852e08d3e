package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lazytable/lazytable/colstore"
	"github.com/lazytable/lazytable/logutil"
	"github.com/lazytable/lazytable/table"
)

// IngestCSV converts a row-oriented CSV dataset into the columnar format the
// pipeline scans. The first record is the header. Column types are inferred
// from the values: a column where every non-empty value parses as an integer
// is Int, as a number is Float, as true/false is Bool, anything else is
// String. Empty cells become nulls.
//
// Returns the inferred schema. Fails with table.ErrIO on unreadable input or
// failed output, table.ErrSchema on an empty or ragged CSV.
func IngestCSV(csvPath, outPath string, chunkSize int) (*table.Schema, error) {
	if chunkSize < 1 {
		chunkSize = 4096
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", table.ErrIO, csvPath, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %s has no header: %v", table.ErrSchema, csvPath, err)
	}

	var records [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", table.ErrSchema, csvPath, err)
		}
		records = append(records, rec)
	}

	schema := inferSchema(header, records)

	batches := make([]table.Batch, 0, (len(records)+chunkSize-1)/chunkSize)
	for start := 0; start < len(records); start += chunkSize {
		end := min(start+chunkSize, len(records))
		cols := make([]table.Column, len(header))
		for ci, fld := range schema.Fields() {
			values := make([]any, end-start)
			for ri, rec := range records[start:end] {
				values[ri] = parseValue(rec[ci], fld.Type)
			}
			cols[ci] = table.Column{Name: fld.Name, Type: fld.Type, Values: values}
		}
		batches = append(batches, table.Batch{Columns: cols})
	}

	if err := colstore.Write(outPath, schema, batches); err != nil {
		return nil, err
	}
	logutil.Info("csv ingested",
		zap.String("csv", csvPath),
		zap.String("out", outPath),
		zap.Int("rows", len(records)))
	return schema, nil
}

// inferSchema decides a logical type per column by inspecting every value.
func inferSchema(header []string, records [][]string) *table.Schema {
	fields := make([]table.Field, len(header))
	for ci, name := range header {
		isInt, isFloat, isBool, any := true, true, true, false
		for _, rec := range records {
			if ci >= len(rec) || rec[ci] == "" {
				continue
			}
			any = true
			v := rec[ci]
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
			switch strings.ToLower(v) {
			case "true", "false":
			default:
				isBool = false
			}
		}
		t := table.String
		switch {
		case !any:
			t = table.String
		case isInt:
			t = table.Int
		case isFloat:
			t = table.Float
		case isBool:
			t = table.Bool
		}
		fields[ci] = table.Field{Name: name, Type: t}
	}
	return table.NewSchema(fields...)
}

func parseValue(raw string, t table.Type) any {
	if raw == "" {
		return nil
	}
	switch t {
	case table.Int:
		v, _ := strconv.ParseInt(raw, 10, 64)
		return v
	case table.Float:
		v, _ := strconv.ParseFloat(raw, 64)
		return v
	case table.Bool:
		return strings.EqualFold(raw, "true")
	default:
		return raw
	}
}
