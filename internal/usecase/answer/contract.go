package answer

import (
	"context"

	"github.com/askdoc/askdoc/internal/domain"
)

// Searcher runs nearest-neighbor search over the vector index. An empty
// documentID means no per-document filtering.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int, documentID string) ([]domain.Match, error)
}
