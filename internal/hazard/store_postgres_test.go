package hazard

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/saferoute/internal/model"
)

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS community_hazards").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	store := NewPostgresStore(mock)
	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryNear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	reportedAt := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"id", "latitude", "longitude", "type", "severity", "metadata", "status", "reported_at",
	}).AddRow(
		"h1", 51.5001, 0.5001, "flooding", "high",
		[]byte(`{"affects_traffic":"true"}`), "active", reportedAt,
	).AddRow(
		"h2", 51.5002, 0.5002, "broken_glass", "low",
		[]byte(`{}`), "active", reportedAt,
	)

	mock.ExpectQuery("SELECT id, latitude, longitude").
		WithArgs(0.5, 51.5, 500.0).
		WillReturnRows(rows)

	store := NewPostgresStore(mock)
	reports, err := store.QueryNear(context.Background(), 51.5, 0.5, 500)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "h1", reports[0].ID)
	assert.Equal(t, model.SeverityHigh, reports[0].Severity)
	assert.Equal(t, model.SourceCommunity, reports[0].Source)
	assert.True(t, reports[0].AffectsTraffic())
	assert.False(t, reports[1].AffectsTraffic())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresQueryNearEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, latitude, longitude").
		WithArgs(0.5, 51.5, 500.0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "latitude", "longitude", "type", "severity", "metadata", "status", "reported_at",
		}))

	store := NewPostgresStore(mock)
	reports, err := store.QueryNear(context.Background(), 51.5, 0.5, 500)
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestPostgresCreateReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO community_hazards").
		WithArgs(pgxmock.AnyArg(), 51.5, 0.5, "flooding", "high",
			pgxmock.AnyArg(), "active", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	store := NewPostgresStore(mock)
	id, err := store.CreateReport(context.Background(), model.HazardReport{
		Latitude: 51.5, Longitude: 0.5,
		Type: "flooding", Severity: model.SeverityHigh,
		Source: model.SourceCommunity,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id, "missing id is generated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResolveReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE community_hazards SET status").
		WithArgs("h1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	store := NewPostgresStore(mock)
	require.NoError(t, store.ResolveReport(context.Background(), "h1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResolveReportNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("UPDATE community_hazards SET status").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	store := NewPostgresStore(mock)
	assert.Error(t, store.ResolveReport(context.Background(), "missing"))
}
