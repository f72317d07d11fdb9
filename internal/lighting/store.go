package lighting

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/saferoute/internal/model"
)

// Store persists lighting features grouped by grid cell. Implementations
// must be safe for concurrent use.
type Store interface {
	// CellFetchedAt returns the last successful refresh time for a cell.
	// ok is false when the cell has never been refreshed.
	CellFetchedAt(ctx context.Context, cellKey string) (t time.Time, ok bool, err error)

	// Features returns all cached features for the given cells.
	Features(ctx context.Context, cellKeys []string) ([]model.LightingFeature, error)

	// ReplaceCell records a refresh: features are upserted keyed by
	// (id, source) and the cell's fetch time is updated.
	ReplaceCell(ctx context.Context, cellKey string, fetchedAt time.Time, features []model.LightingFeature) error

	Close() error
}

// MemoryStore is an in-memory Store, used in tests and for ephemeral runs.
type MemoryStore struct {
	mu        sync.RWMutex
	fetchedAt map[string]time.Time
	features  map[string]map[string]model.LightingFeature // cellKey -> (id|source) -> feature
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		fetchedAt: map[string]time.Time{},
		features:  map[string]map[string]model.LightingFeature{},
	}
}

// CellFetchedAt implements Store.
func (m *MemoryStore) CellFetchedAt(_ context.Context, cellKey string) (time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.fetchedAt[cellKey]
	return t, ok, nil
}

// Features implements Store.
func (m *MemoryStore) Features(_ context.Context, cellKeys []string) ([]model.LightingFeature, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.LightingFeature
	for _, key := range cellKeys {
		for _, f := range m.features[key] {
			out = append(out, f)
		}
	}
	return out, nil
}

// ReplaceCell implements Store.
func (m *MemoryStore) ReplaceCell(_ context.Context, cellKey string, fetchedAt time.Time, features []model.LightingFeature) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cell, ok := m.features[cellKey]
	if !ok {
		cell = map[string]model.LightingFeature{}
		m.features[cellKey] = cell
	}
	for _, f := range features {
		cell[f.ID+"|"+f.Source] = f
	}
	m.fetchedAt[cellKey] = fetchedAt
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error { return nil }
