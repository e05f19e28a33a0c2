// Package ingest turns extracted document text into persisted index records.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/domain"
)

// Service handles document ingestion: chunk, embed, index, register.
type Service struct {
	split    Splitter
	embed    domain.Embedder
	index    Indexer
	registry Registry
	logger   *zap.Logger
}

// New creates an ingestion service. registry may be nil (SDK usage without
// a registry); logger may be nil.
func New(split Splitter, embed domain.Embedder, index Indexer, registry Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{split: split, embed: embed, index: index, registry: registry, logger: logger}
}

// AddDocument chunks text, embeds every chunk in order, appends the
// resulting records to the index, and registers the document. Returns the
// documentID unchanged as confirmation. A failure at any step leaves the
// index exactly as before the call.
func (s *Service) AddDocument(ctx context.Context, text, documentID, filename string) (string, error) {
	if documentID == "" {
		return "", fmt.Errorf("document id is required: %w", domain.ErrValidation)
	}
	if text == "" {
		return "", fmt.Errorf("document text is required: %w", domain.ErrValidation)
	}

	chunks := s.split.Split(text)
	if len(chunks) == 0 {
		return "", fmt.Errorf("document %s has no usable text: %w", documentID, domain.ErrNoContent)
	}

	res, err := s.batchEmbed(ctx, chunks)
	if err != nil {
		return "", fmt.Errorf("embed chunks: %w", err)
	}
	if len(res.Embeddings) != len(chunks) {
		return "", fmt.Errorf(
			"got %d embeddings for %d chunks: %w",
			len(res.Embeddings), len(chunks), domain.ErrEmbeddingProviderError,
		)
	}

	records := make([]domain.IndexRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = domain.IndexRecord{
			Vector:      res.Embeddings[i],
			PageContent: chunk,
			Metadata: domain.ChunkMetadata{
				DocumentID:  documentID,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			},
		}
	}

	if err := s.index.Add(ctx, records); err != nil {
		return "", fmt.Errorf("index document %s: %w", documentID, err)
	}

	if s.registry != nil {
		info := domain.DocumentInfo{ID: documentID, Filename: filename, ChunkCount: len(chunks)}
		if err := s.registry.Record(ctx, info); err != nil {
			// The records are already durable; a registry failure must not
			// mask that, only make the document invisible to listings.
			return "", fmt.Errorf("register document %s: %w", documentID, err)
		}
	}

	s.logger.Info("document ingested",
		zap.String("document_id", documentID),
		zap.String("filename", filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("embedding_tokens", res.TotalTokens),
	)

	return documentID, nil
}

func (s *Service) batchEmbed(ctx context.Context, chunks []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embed.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, chunks)
	}
	return domain.BatchFallback(ctx, s.embed, chunks)
}
