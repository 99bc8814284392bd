// Package sheet reads header-keyed rows from tabular files. Cell values are
// scalars: trimmed strings, numbers, or booleans, keyed by the header row.
package sheet

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is one sheet row keyed by the header cell of its column.
type Row map[string]any

// Source yields the rows of one named sheet. Row 1 is the header; returned
// rows start at the sheet's row 2.
type Source interface {
	Rows(sheet string) ([]Row, error)
}

// String returns the cell as a trimmed string, rendering numbers and
// booleans. Missing cells return "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

// Has reports whether the cell holds a non-empty value.
func (r Row) Has(key string) bool {
	return r.String(key) != ""
}

// Float returns the cell as a number when it holds or parses as one.
func (r Row) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// Bool returns the cell as a boolean; anything unparsable is false.
func (r Row) Bool(key string) bool {
	switch v := r[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		return err == nil && b
	default:
		return false
	}
}

// List splits a comma-separated cell into trimmed values, dropping empties.
func (r Row) List(key string) []string {
	raw := r.String(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// coerce interprets one raw cell: numeric text becomes float64, true/false
// become bool, everything else is a trimmed string.
func coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}

// rowsFromRecords builds header-keyed rows from raw records, tolerating
// ragged row lengths and skipping rows with no values at all.
func rowsFromRecords(headers []string, records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := make(Row, len(headers))
		empty := true
		for col, header := range headers {
			header = strings.TrimSpace(header)
			if header == "" {
				continue
			}
			var value any = ""
			if col < len(record) {
				value = coerce(record[col])
			}
			if value != "" {
				empty = false
			}
			row[header] = value
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}
