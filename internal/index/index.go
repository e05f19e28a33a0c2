// Package index holds the persistent vector index: an append-only set of
// embedded chunks with nearest-neighbor search and snapshot persistence.
package index

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/domain"
)

// State is the lifecycle state of the index handle.
type State int

const (
	// StateAbsent means no records are loaded and no artifact has been
	// created yet, or the artifact on disk has not been loaded.
	StateAbsent State = iota
	// StateLoaded means the in-memory record set is authoritative.
	StateLoaded
)

// DefaultOverFetchFactor is the multiplier applied to k when a documentID
// filter is supplied. Filtering happens after the global top candidates are
// taken, so a document sparsely represented among them may return fewer
// than k results. Bounded recall is the accepted trade-off; the index never
// re-queries to compensate.
const DefaultOverFetchFactor = 2

// Index is an explicit handle over the record set and its on-disk artifact.
// One writer at a time: Add runs load-mutate-persist as a single critical
// section. Readers see the previous record set until a save succeeds.
type Index struct {
	mu      sync.RWMutex
	path    string
	state   State
	dim     int
	records []domain.IndexRecord
	logger  *zap.Logger
}

// Open creates an index handle for the artifact at dir/name without
// touching disk. Call Initialize (or let the first Add/Search do it) to
// load any existing artifact.
func Open(dir, name string, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		path:   filepath.Join(dir, name),
		logger: logger,
	}
}

// Path returns the artifact path.
func (ix *Index) Path() string { return ix.path }

// State returns the current lifecycle state.
func (ix *Index) State() State {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.state
}

// Len returns the number of records currently in memory.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// Dimension returns the vector dimension, or 0 before the first record.
func (ix *Index) Dimension() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Initialize loads the on-disk artifact if one exists. Idempotent: a
// loaded index is left untouched, and a missing artifact leaves the index
// Absent — creation is deferred to the first Add so no empty artifact is
// ever written.
func (ix *Index) Initialize(_ context.Context) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.initializeLocked()
}

func (ix *Index) initializeLocked() error {
	if ix.state == StateLoaded {
		return nil
	}
	if !artifactExists(ix.path) {
		return nil
	}

	dim, records, err := loadSnapshot(ix.path)
	if err != nil {
		return fmt.Errorf("load index %s: %w", ix.path, err)
	}

	ix.dim = dim
	ix.records = records
	ix.state = StateLoaded

	ix.logger.Info("index loaded",
		zap.String("path", ix.path),
		zap.Int("records", len(records)),
		zap.Int("dimension", dim),
	)
	return nil
}

// Add appends records and persists the full snapshot. The in-memory record
// set is swapped only after the snapshot is durably written, so a failed
// save leaves the index exactly as before the call. The first Add on an
// absent index creates the artifact in the same operation.
func (ix *Index) Add(_ context.Context, records []domain.IndexRecord) error {
	if len(records) == 0 {
		return fmt.Errorf("no records to add: %w", domain.ErrValidation)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	// A restarted process may find an artifact on disk before anything
	// was loaded: pick it up so the append does not clobber prior state.
	if err := ix.initializeLocked(); err != nil {
		return err
	}

	dim := ix.dim
	for i, r := range records {
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %d has empty vector: %w", i, domain.ErrValidation)
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim {
			return fmt.Errorf(
				"record %d dimension %d does not match index dimension %d: %w",
				i, len(r.Vector), dim, domain.ErrValidation,
			)
		}
	}

	combined := make([]domain.IndexRecord, 0, len(ix.records)+len(records))
	combined = append(combined, ix.records...)
	combined = append(combined, records...)

	if err := saveSnapshot(ix.path, dim, combined); err != nil {
		return fmt.Errorf("persist index %s: %w", ix.path, err)
	}

	ix.dim = dim
	ix.records = combined
	ix.state = StateLoaded
	return nil
}

// Search returns the top-k records by cosine similarity to vector,
// best-first. With a non-empty documentID the global top 2*k candidates
// are filtered to that document and truncated to k. An index with no
// ingested records returns an empty result, never an error.
func (ix *Index) Search(ctx context.Context, vector []float32, k int, documentID string) ([]domain.Match, error) {
	if k <= 0 {
		return nil, nil
	}
	if err := ix.Initialize(ctx); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.state == StateAbsent || len(ix.records) == 0 {
		return nil, nil
	}
	if len(vector) != ix.dim {
		return nil, fmt.Errorf(
			"query dimension %d does not match index dimension %d: %w",
			len(vector), ix.dim, domain.ErrValidation,
		)
	}

	fetch := k
	if documentID != "" {
		fetch = k * DefaultOverFetchFactor
	}

	order := make([]int, len(ix.records))
	scores := make([]float64, len(ix.records))
	for i := range ix.records {
		order[i] = i
		scores[i] = cosineSimilarity(vector, ix.records[i].Vector)
	}
	// Stable sort keeps insertion order for equal scores, so ranking is
	// deterministic for a fixed index state and query.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	if fetch > len(order) {
		fetch = len(order)
	}

	matches := make([]domain.Match, 0, k)
	for _, i := range order[:fetch] {
		if documentID != "" && ix.records[i].Metadata.DocumentID != documentID {
			continue
		}
		matches = append(matches, domain.Match{Record: ix.records[i], Score: scores[i]})
		if len(matches) == k {
			break
		}
	}
	return matches, nil
}

// cosineSimilarity computes the cosine of the angle between a and b.
// Zero-magnitude vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
