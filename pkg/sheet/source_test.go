package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestCSVSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "customers.csv")
	data := "Name,City,Category\nAcme,Denver,Commercial\nBeta,Boulder,Residential\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	rows, err := NewCSVSource(path).Rows("Customers")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Acme", rows[0].String("Name"))
	assert.Equal(t, "Denver", rows[0].String("City"))
	assert.Equal(t, "Residential", rows[1].String("Category"))
}

func TestCSVSource_MissingFile(t *testing.T) {
	_, err := NewCSVSource(filepath.Join(t.TempDir(), "nope.csv")).Rows("")
	assert.Error(t, err)
}

func TestCSVSource_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rows, err := NewCSVSource(path).Rows("")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestXLSXSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")

	f := excelize.NewFile()
	sheet := "Vendors"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Name", "City", "Vendor Category"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Acme Supply", "Denver", "Concrete"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"Beta Materials", "Boulder", "Steel"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rows, err := NewXLSXSource(path).Rows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Acme Supply", rows[0].String("Name"))
	assert.Equal(t, "Steel", rows[1].String("Vendor Category"))
}

func TestXLSXSource_UnknownSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	_, err := NewXLSXSource(path).Rows("Nope")
	assert.Error(t, err)
}
