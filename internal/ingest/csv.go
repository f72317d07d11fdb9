// Package ingest reads crime datasets into validated CrimeRecord streams.
// Malformed rows are skipped and counted, never fatal to the batch.
package ingest

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

// titleCaser canonicalizes crime type names ("theft from the person" and
// "THEFT FROM THE PERSON" must bucket identically).
var titleCaser = cases.Title(language.English)

// NormalizeCrimeType returns the canonical form of a crime type name.
func NormalizeCrimeType(s string) string {
	return titleCaser.String(strings.ToLower(strings.TrimSpace(s)))
}

// Options constrain ingestion.
type Options struct {
	// StudyArea, when set, drops records outside the box.
	StudyArea *geo.BBox
}

// CSVSource streams validated crime records from a CSV export. The header
// row is used to locate columns, so column order does not matter.
type CSVSource struct {
	reader  *csv.Reader
	cols    columnIndex
	opts    Options
	skipped int
}

// columnIndex maps the fields we need to CSV column positions.
type columnIndex struct {
	lat, lon, crimeType, severity, month int
}

// NewCSVSource reads the header and returns a streaming source.
func NewCSVSource(r io.Reader, opts Options) (*CSVSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // city exports are ragged more often than not

	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "ingest: read CSV header")
	}

	cols, err := locateColumns(header)
	if err != nil {
		return nil, err
	}
	return &CSVSource{reader: cr, cols: cols, opts: opts}, nil
}

// locateColumns finds required fields by case-insensitive header name.
func locateColumns(header []string) (columnIndex, error) {
	cols := columnIndex{lat: -1, lon: -1, crimeType: -1, severity: -1, month: -1}
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "latitude", "lat":
			cols.lat = i
		case "longitude", "lon", "lng":
			cols.lon = i
		case "crime_type", "crime type", "category", "offence", "offense":
			cols.crimeType = i
		case "severity":
			cols.severity = i
		case "month", "date":
			cols.month = i
		}
	}
	if cols.lat < 0 || cols.lon < 0 || cols.crimeType < 0 {
		return cols, eris.New("ingest: CSV header missing latitude/longitude/crime type columns")
	}
	return cols, nil
}

// Next implements crimegrid.Source. Invalid rows are skipped silently
// (counted via Skipped) and the next valid row is returned.
func (s *CSVSource) Next() (model.CrimeRecord, error) {
	for {
		row, err := s.reader.Read()
		if err == io.EOF {
			return model.CrimeRecord{}, io.EOF
		}
		if err != nil {
			// A malformed row, not a broken stream: skip it.
			s.skipped++
			continue
		}

		rec, ok := s.parseRow(row)
		if !ok {
			s.skipped++
			continue
		}
		return rec, nil
	}
}

// Skipped returns the number of rows dropped so far.
func (s *CSVSource) Skipped() int {
	return s.skipped
}

func (s *CSVSource) parseRow(row []string) (model.CrimeRecord, bool) {
	rec, ok := buildRecord(field(row, s.cols.lat), field(row, s.cols.lon),
		field(row, s.cols.crimeType), field(row, s.cols.severity), field(row, s.cols.month))
	if !ok {
		return model.CrimeRecord{}, false
	}
	if s.opts.StudyArea != nil && !s.opts.StudyArea.Contains(rec.Latitude, rec.Longitude) {
		return model.CrimeRecord{}, false
	}
	return rec, true
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// buildRecord validates and assembles one record from raw string fields.
func buildRecord(latStr, lonStr, crimeType, severityStr, month string) (model.CrimeRecord, bool) {
	crimeType = NormalizeCrimeType(crimeType)
	if crimeType == "" {
		return model.CrimeRecord{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return model.CrimeRecord{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return model.CrimeRecord{}, false
	}
	if !geo.ValidCoordinate(lat, lon) {
		return model.CrimeRecord{}, false
	}

	severity := 0.5
	if s := strings.TrimSpace(severityStr); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			severity = model.Clamp01(v)
		}
	}

	return model.CrimeRecord{
		Latitude:  lat,
		Longitude: lon,
		CrimeType: crimeType,
		Severity:  severity,
		Month:     strings.TrimSpace(month),
	}, true
}
