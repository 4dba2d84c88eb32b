package core

// csv.go renders records as CSV text.
//
// The first record defines the header of a table. Every other record must
// carry exactly the same key set; values are written in header order.
// Quoting of delimiters, quotes and newlines is left to encoding/csv.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// NamedTable is one section handed to the serializer. Value must be a Record
// or a []Record.
type NamedTable struct {
	Name  string
	Value any
}

// WriteCSV writes value as CSV to w. A single Record yields one header row
// and one data row; an empty []Record yields no output at all.
func WriteCSV(w io.Writer, value any) error {
	records, err := tableRecords(value)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	header := records[0].Keys()
	for i, rec := range records[1:] {
		if !rec.sameKeys(records[0]) {
			return fmt.Errorf("%w: record %d has columns %v, want %v",
				ErrHeterogeneousRows, i+1, rec.Keys(), header)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	line := make([]string, len(header))
	for _, rec := range records {
		for i, k := range header {
			line[i] = cellText(rec.values[k])
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// tableRecords accepts the two table shapes the serializer understands.
func tableRecords(value any) ([]Record, error) {
	switch v := value.(type) {
	case Record:
		return []Record{v}, nil
	case *Record:
		if v == nil {
			return nil, fmt.Errorf("%w: nil record", ErrUnsupportedShape)
		}
		return []Record{*v}, nil
	case []Record:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedShape, value)
	}
}

// cellText converts a value to its CSV cell form. Nested JSON values such as
// timeseries arrays are written as compact JSON.
func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
