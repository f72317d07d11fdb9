package ingest

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/geo"
	"github.com/sells-group/saferoute/internal/model"
)

func drain(t *testing.T, src *CSVSource) []model.CrimeRecord {
	t.Helper()
	var records []model.CrimeRecord
	for {
		rec, err := src.Next()
		if err == io.EOF {
			return records
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
}

func TestCSVSourceReadsRecords(t *testing.T) {
	data := `latitude,longitude,crime_type,severity,month
51.5074,-0.1278,robbery,0.9,2025-06
51.5080,-0.1290,BICYCLE THEFT,,2025-06
`
	src, err := NewCSVSource(strings.NewReader(data), Options{})
	require.NoError(t, err)

	records := drain(t, src)
	require.Len(t, records, 2)

	assert.Equal(t, "Robbery", records[0].CrimeType)
	assert.Equal(t, 0.9, records[0].Severity)
	assert.Equal(t, "2025-06", records[0].Month)

	assert.Equal(t, "Bicycle Theft", records[1].CrimeType)
	assert.Equal(t, 0.5, records[1].Severity, "missing severity defaults")
	assert.Equal(t, 0, src.Skipped())
}

func TestCSVSourceColumnOrderIrrelevant(t *testing.T) {
	data := `category,lon,lat
burglary,-0.1278,51.5074
`
	src, err := NewCSVSource(strings.NewReader(data), Options{})
	require.NoError(t, err)

	records := drain(t, src)
	require.Len(t, records, 1)
	assert.Equal(t, "Burglary", records[0].CrimeType)
	assert.Equal(t, 51.5074, records[0].Latitude)
}

func TestCSVSourceSkipsInvalidRows(t *testing.T) {
	data := `latitude,longitude,crime_type
51.5074,-0.1278,robbery
not-a-number,-0.1278,robbery
51.5074,-0.1278,
0,0,robbery
95.0,-0.1278,robbery
51.5075,-0.1279,assault
`
	src, err := NewCSVSource(strings.NewReader(data), Options{})
	require.NoError(t, err)

	records := drain(t, src)
	assert.Len(t, records, 2)
	assert.Equal(t, 4, src.Skipped())
}

func TestCSVSourceRaggedRows(t *testing.T) {
	data := `latitude,longitude,crime_type,severity
51.5074,-0.1278,robbery
51.5075,-0.1279,assault,0.8,extra-column
`
	src, err := NewCSVSource(strings.NewReader(data), Options{})
	require.NoError(t, err)

	records := drain(t, src)
	assert.Len(t, records, 2, "short and long rows both parse")
}

func TestCSVSourceStudyAreaFilter(t *testing.T) {
	data := `latitude,longitude,crime_type
51.5074,-0.1278,robbery
40.7128,-74.0060,robbery
`
	src, err := NewCSVSource(strings.NewReader(data), Options{
		StudyArea: &geo.BBox{MinLat: 51, MinLon: -1, MaxLat: 52, MaxLon: 0},
	})
	require.NoError(t, err)

	records := drain(t, src)
	require.Len(t, records, 1)
	assert.Equal(t, 51.5074, records[0].Latitude)
	assert.Equal(t, 1, src.Skipped())
}

func TestCSVSourceMissingColumns(t *testing.T) {
	_, err := NewCSVSource(strings.NewReader("foo,bar\n1,2\n"), Options{})
	require.Error(t, err)
}

func TestCSVSourceSeverityClamped(t *testing.T) {
	data := `latitude,longitude,crime_type,severity
51.5074,-0.1278,robbery,7.5
51.5075,-0.1279,robbery,-2
`
	src, err := NewCSVSource(strings.NewReader(data), Options{})
	require.NoError(t, err)

	records := drain(t, src)
	require.Len(t, records, 2)
	assert.Equal(t, 1.0, records[0].Severity)
	assert.Equal(t, 0.0, records[1].Severity)
}

func TestNormalizeCrimeType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"theft from the person", "Theft From The Person"},
		{"THEFT FROM THE PERSON", "Theft From The Person"},
		{"  robbery  ", "Robbery"},
		{"anti-social behaviour", "Anti-Social Behaviour"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeCrimeType(tt.in))
	}
}
