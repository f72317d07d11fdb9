package crimegrid

import (
	"sync/atomic"
	"time"

	"github.com/sells-group/saferoute/internal/model"
)

// Snapshot is an immutable crime grid. A snapshot is built wholesale and
// published atomically; readers never observe a partially built grid.
type Snapshot struct {
	cells   map[string]model.SafetyCell
	weights model.FactorWeights
	builtAt time.Time
}

// NewSnapshot assembles a snapshot from pre-scored cells. The map is copied;
// the caller keeps ownership of its argument.
func NewSnapshot(cells map[string]model.SafetyCell, weights model.FactorWeights, builtAt time.Time) *Snapshot {
	copied := make(map[string]model.SafetyCell, len(cells))
	for k, v := range cells {
		copied[k] = v
	}
	return &Snapshot{cells: copied, weights: weights, builtAt: builtAt}
}

// Cell returns the cell for a key, if present.
func (s *Snapshot) Cell(key string) (model.SafetyCell, bool) {
	c, ok := s.cells[key]
	return c, ok
}

// Len returns the number of populated cells.
func (s *Snapshot) Len() int {
	return len(s.cells)
}

// Weights returns the factor weights the snapshot was built with.
func (s *Snapshot) Weights() model.FactorWeights {
	return s.weights
}

// BuiltAt returns the build completion time.
func (s *Snapshot) BuiltAt() time.Time {
	return s.builtAt
}

// Cells returns a copy of the cell map, for export and inspection.
func (s *Snapshot) Cells() map[string]model.SafetyCell {
	out := make(map[string]model.SafetyCell, len(s.cells))
	for k, v := range s.cells {
		out[k] = v
	}
	return out
}

// Store publishes grid snapshots via an atomic pointer swap. Concurrent
// readers keep the snapshot they loaded until the next Swap.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a Store holding an empty snapshot, so callers never need
// a nil check before the first rebuild.
func NewStore() *Store {
	s := &Store{}
	s.current.Store(&Snapshot{
		cells:   map[string]model.SafetyCell{},
		weights: model.DefaultFactorWeights(),
		builtAt: time.Time{},
	})
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Snapshot {
	return s.current.Load()
}

// Swap publishes a new snapshot.
func (s *Store) Swap(snap *Snapshot) {
	s.current.Store(snap)
}
