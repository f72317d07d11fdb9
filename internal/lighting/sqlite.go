package lighting

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/saferoute/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Lighting features
// survive process restarts, so a long TTL actually pays off.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "lighting: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "lighting: sqlite exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lighting_cells (
	cell_key   TEXT PRIMARY KEY,
	fetched_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS lighting_features (
	id                TEXT NOT NULL,
	source            TEXT NOT NULL,
	cell_key          TEXT NOT NULL,
	latitude          REAL NOT NULL,
	longitude         REAL NOT NULL,
	lit_status        TEXT NOT NULL,
	light_source      TEXT NOT NULL,
	coverage_radius_m REAL NOT NULL,
	lighting_score    REAL NOT NULL,
	cached_at         DATETIME NOT NULL,
	PRIMARY KEY (id, source)
);

CREATE INDEX IF NOT EXISTS idx_lighting_features_cell ON lighting_features(cell_key);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "lighting: sqlite migrate")
}

// CellFetchedAt implements Store.
func (s *SQLiteStore) CellFetchedAt(ctx context.Context, cellKey string) (time.Time, bool, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT fetched_at FROM lighting_cells WHERE cell_key = ?`, cellKey,
	).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, eris.Wrap(err, "lighting: sqlite cell fetched_at")
	}
	return t, true, nil
}

// Features implements Store.
func (s *SQLiteStore) Features(ctx context.Context, cellKeys []string) ([]model.LightingFeature, error) {
	var out []model.LightingFeature
	for _, key := range cellKeys {
		rows, err := s.db.QueryContext(ctx, `
			SELECT id, source, latitude, longitude, lit_status, light_source,
			       coverage_radius_m, lighting_score, cached_at
			FROM lighting_features WHERE cell_key = ?`, key)
		if err != nil {
			return nil, eris.Wrap(err, "lighting: sqlite query features")
		}
		for rows.Next() {
			var f model.LightingFeature
			var lit string
			if err := rows.Scan(&f.ID, &f.Source, &f.Latitude, &f.Longitude, &lit,
				&f.LightSource, &f.CoverageRadius, &f.LightingScore, &f.CachedAt); err != nil {
				rows.Close()
				return nil, eris.Wrap(err, "lighting: sqlite scan feature")
			}
			f.LitStatus = model.LitStatus(lit)
			out = append(out, f)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "lighting: sqlite iterate features")
		}
		rows.Close()
	}
	return out, nil
}

// ReplaceCell implements Store.
func (s *SQLiteStore) ReplaceCell(ctx context.Context, cellKey string, fetchedAt time.Time, features []model.LightingFeature) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "lighting: sqlite begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO lighting_cells (cell_key, fetched_at) VALUES (?, ?)
		ON CONFLICT (cell_key) DO UPDATE SET fetched_at = excluded.fetched_at`,
		cellKey, fetchedAt); err != nil {
		return eris.Wrap(err, "lighting: sqlite upsert cell")
	}

	for _, f := range features {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO lighting_features
				(id, source, cell_key, latitude, longitude, lit_status,
				 light_source, coverage_radius_m, lighting_score, cached_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id, source) DO UPDATE SET
				cell_key = excluded.cell_key,
				latitude = excluded.latitude,
				longitude = excluded.longitude,
				lit_status = excluded.lit_status,
				light_source = excluded.light_source,
				coverage_radius_m = excluded.coverage_radius_m,
				lighting_score = excluded.lighting_score,
				cached_at = excluded.cached_at`,
			f.ID, f.Source, cellKey, f.Latitude, f.Longitude, string(f.LitStatus),
			f.LightSource, f.CoverageRadius, f.LightingScore, f.CachedAt); err != nil {
			return eris.Wrap(err, "lighting: sqlite upsert feature")
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "lighting: sqlite commit")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
