package ingest

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

// writeWorkbook saves a single-sheet workbook with the given rows.
func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("crimes")
	require.NoError(t, err)

	for _, cells := range rows {
		row := sheet.AddRow()
		for _, v := range cells {
			row.AddCell().SetString(v)
		}
	}

	path := filepath.Join(t.TempDir(), "crimes.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestXLSXSourceReadsRecords(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"latitude", "longitude", "crime_type", "severity", "month"},
		{"51.5074", "-0.1278", "robbery", "0.9", "2025-06"},
		{"51.5080", "-0.1290", "shoplifting", "", "2025-06"},
	})

	src, err := NewXLSXSource(path, Options{})
	require.NoError(t, err)

	var count int
	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
		if count == 1 {
			assert.Equal(t, "Robbery", rec.CrimeType)
			assert.Equal(t, 51.5074, rec.Latitude)
			assert.Equal(t, 0.9, rec.Severity)
		}
	}
	assert.Equal(t, 2, count)
	assert.Equal(t, 0, src.Skipped())
}

func TestXLSXSourceSkipsInvalidRows(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"latitude", "longitude", "crime_type"},
		{"51.5074", "-0.1278", "robbery"},
		{"garbage", "-0.1278", "robbery"},
		{"51.5074", "-0.1278", ""},
	})

	src, err := NewXLSXSource(path, Options{})
	require.NoError(t, err)

	var count int
	for {
		_, err := src.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		count++
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, src.Skipped())
}

func TestXLSXSourceMissingHeader(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"foo", "bar"},
		{"1", "2"},
	})

	_, err := NewXLSXSource(path, Options{})
	require.Error(t, err)
}

func TestXLSXSourceMissingFile(t *testing.T) {
	_, err := NewXLSXSource(filepath.Join(t.TempDir(), "nope.xlsx"), Options{})
	require.Error(t, err)
}
