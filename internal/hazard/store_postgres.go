package hazard

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/saferoute/internal/db"
	"github.com/sells-group/saferoute/internal/model"
)

// PostgresStore implements CommunityStore over a PostGIS-enabled database.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore returns a store over the given pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const migration = `
CREATE TABLE IF NOT EXISTS community_hazards (
	id          TEXT PRIMARY KEY,
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	type        TEXT NOT NULL,
	severity    TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	status      TEXT NOT NULL DEFAULT 'active',
	reported_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	geom        GEOMETRY(Point, 4326) GENERATED ALWAYS AS (ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)) STORED
);

CREATE INDEX IF NOT EXISTS idx_community_hazards_geom ON community_hazards USING GIST (geom);
CREATE INDEX IF NOT EXISTS idx_community_hazards_status ON community_hazards (status);
`

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, migration); err != nil {
		return eris.Wrap(err, "hazard: migrate")
	}
	return nil
}

// QueryNear implements CommunityStore: active reports within radiusM of the
// point, nearest first.
func (s *PostgresStore) QueryNear(ctx context.Context, lat, lon, radiusM float64) ([]model.HazardReport, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, latitude, longitude, type, severity, metadata, status, reported_at
		FROM community_hazards
		WHERE status = 'active'
		  AND ST_DWithin(geom::geography, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($1, $2), 4326)`,
		lon, lat, radiusM)
	if err != nil {
		return nil, eris.Wrap(err, "hazard: query near")
	}
	defer rows.Close()

	var reports []model.HazardReport
	for rows.Next() {
		var r model.HazardReport
		var severity string
		var metadata []byte
		if err := rows.Scan(&r.ID, &r.Latitude, &r.Longitude, &r.Type, &severity,
			&metadata, &r.Status, &r.ReportedAt); err != nil {
			return nil, eris.Wrap(err, "hazard: scan report")
		}
		r.Severity = model.HazardSeverity(severity)
		r.Source = model.SourceCommunity
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				return nil, eris.Wrapf(err, "hazard: parse metadata for %s", r.ID)
			}
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "hazard: iterate reports")
	}
	return reports, nil
}

// CreateReport inserts a new community hazard report and returns its id.
func (s *PostgresStore) CreateReport(ctx context.Context, r model.HazardReport) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = "active"
	}
	if r.ReportedAt.IsZero() {
		r.ReportedAt = time.Now()
	}

	metadata, err := json.Marshal(r.Metadata)
	if err != nil {
		return "", eris.Wrap(err, "hazard: marshal metadata")
	}

	if _, err := s.pool.Exec(ctx, `
		INSERT INTO community_hazards (id, latitude, longitude, type, severity, metadata, status, reported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Latitude, r.Longitude, r.Type, string(r.Severity), metadata, r.Status, r.ReportedAt); err != nil {
		return "", eris.Wrap(err, "hazard: insert report")
	}
	return r.ID, nil
}

// ResolveReport marks a report resolved so it stops contributing to density.
func (s *PostgresStore) ResolveReport(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE community_hazards SET status = 'resolved' WHERE id = $1`, id)
	if err != nil {
		return eris.Wrap(err, "hazard: resolve report")
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("hazard: report %s not found", id)
	}
	return nil
}
