package sheet

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVSource reads rows from a single-table CSV file. The sheet name passed
// to Rows is ignored; a CSV file has exactly one table.
type CSVSource struct {
	path string
}

// NewCSVSource creates a source for a CSV file.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{path: path}
}

// Rows implements Source.
func (s *CSVSource) Rows(string) ([]Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open csv %s: %w", s.path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv %s: %w", s.path, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return rowsFromRecords(records[0], records[1:]), nil
}
