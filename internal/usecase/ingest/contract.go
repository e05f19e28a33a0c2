package ingest

import (
	"context"

	"github.com/askdoc/askdoc/internal/domain"
)

// Splitter cuts extracted text into chunks.
type Splitter interface {
	Split(text string) []string
}

// Indexer appends records to the vector index and persists them.
type Indexer interface {
	Add(ctx context.Context, records []domain.IndexRecord) error
}

// Registry records successfully ingested documents.
type Registry interface {
	Record(ctx context.Context, info domain.DocumentInfo) error
}
