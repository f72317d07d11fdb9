package ingest

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/saferoute/internal/model"
)

// XLSXSource streams validated crime records from the first sheet of an
// .xlsx workbook. Several city portals publish monthly spreadsheets rather
// than CSV.
type XLSXSource struct {
	sheet   *xlsx.Sheet
	cols    columnIndex
	opts    Options
	row     int
	skipped int
}

// NewXLSXSource opens a workbook file and prepares the first sheet.
func NewXLSXSource(path string, opts Options) (*XLSXSource, error) {
	wb, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("ingest: xlsx has no sheets")
	}
	sheet := wb.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("ingest: xlsx sheet is empty")
	}

	header := make([]string, 0, len(sheet.Rows[0].Cells))
	for _, cell := range sheet.Rows[0].Cells {
		header = append(header, cell.String())
	}
	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	return &XLSXSource{sheet: sheet, cols: cols, opts: opts, row: 1}, nil
}

// Next implements crimegrid.Source.
func (s *XLSXSource) Next() (model.CrimeRecord, error) {
	for s.row < len(s.sheet.Rows) {
		cells := s.sheet.Rows[s.row].Cells
		s.row++

		row := make([]string, 0, len(cells))
		for _, cell := range cells {
			row = append(row, cell.String())
		}

		rec, ok := buildRecord(field(row, s.cols.lat), field(row, s.cols.lon),
			field(row, s.cols.crimeType), field(row, s.cols.severity), field(row, s.cols.month))
		if !ok {
			s.skipped++
			continue
		}
		if s.opts.StudyArea != nil && !s.opts.StudyArea.Contains(rec.Latitude, rec.Longitude) {
			s.skipped++
			continue
		}
		return rec, nil
	}
	return model.CrimeRecord{}, io.EOF
}

// Skipped returns the number of rows dropped so far.
func (s *XLSXSource) Skipped() int {
	return s.skipped
}
