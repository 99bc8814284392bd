package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXSource reads rows from a workbook on disk. The workbook is opened per
// call; a synchronization run reads each sheet once.
type XLSXSource struct {
	path string
}

// NewXLSXSource creates a source for an .xlsx workbook.
func NewXLSXSource(path string) *XLSXSource {
	return &XLSXSource{path: path}
}

// Rows implements Source.
func (s *XLSXSource) Rows(sheet string) ([]Row, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return rowsFromRecords(records[0], records[1:]), nil
}
