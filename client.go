package askdoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/chunker"
	"github.com/askdoc/askdoc/internal/domain"
	"github.com/askdoc/askdoc/internal/index"
	"github.com/askdoc/askdoc/internal/registry"
	openaiTransport "github.com/askdoc/askdoc/internal/transport/openai"
	answeruc "github.com/askdoc/askdoc/internal/usecase/answer"
	ingestuc "github.com/askdoc/askdoc/internal/usecase/ingest"
)

// Client is the in-process askdoc entry point: the same engine the HTTP
// server exposes, without the server.
type Client struct {
	registry  *registry.Store
	ingestSvc *ingestuc.Service
	answerSvc *answeruc.Service
}

// New creates an askdoc Client, opening the index artifact and document
// registry under the configured data directory.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		dataDir:         "./vector_store",
		indexName:       "documents.idx",
		embeddingModel:  "text-embedding-3-small",
		completionModel: "gpt-4o-mini",
		temperature:     0.7,
		chunkSize:       chunker.DefaultSize,
		chunkOverlap:    chunker.DefaultOverlap,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("askdoc: API key required (use WithOpenAI or WithEmbedder)")
	}

	logger := cfg.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	splitter, err := chunker.New(cfg.chunkSize, cfg.chunkOverlap, logger)
	if err != nil {
		return nil, fmt.Errorf("askdoc: %w", err)
	}

	idx := index.Open(cfg.dataDir, cfg.indexName, logger)
	if err := idx.Initialize(context.Background()); err != nil {
		return nil, fmt.Errorf("askdoc: open index: %w", err)
	}

	reg, err := registry.New(cfg.dataDir)
	if err != nil {
		return nil, fmt.Errorf("askdoc: open registry: %w", err)
	}

	embedder := buildEmbedder(cfg, logger)
	completer := buildCompleter(cfg, logger)

	return &Client{
		registry:  reg,
		ingestSvc: ingestuc.New(splitter, embedder, idx, reg, logger),
		answerSvc: answeruc.New(embedder, idx, completer, logger).WithTopK(cfg.topK),
	}, nil
}

func buildEmbedder(cfg *clientConfig, logger *zap.Logger) domain.Embedder {
	if cfg.embedder != nil {
		return &embedderAdapter{inner: cfg.embedder}
	}
	return openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.apiKey,
		BaseURL:    cfg.baseURL,
		Model:      cfg.embeddingModel,
		Dimensions: cfg.dimensions,
		Logger:     logger,
	})
}

func buildCompleter(cfg *clientConfig, logger *zap.Logger) domain.Completer {
	if cfg.completer != nil {
		return &completerAdapter{inner: cfg.completer}
	}
	return openaiTransport.NewCompleter(&openaiTransport.CompleterConfig{
		APIKey:      cfg.apiKey,
		BaseURL:     cfg.baseURL,
		Model:       cfg.completionModel,
		Temperature: cfg.temperature,
		Logger:      logger,
	})
}

// Close releases the registry connection. The index holds no open handles
// between operations.
func (c *Client) Close() error {
	if c.registry != nil {
		if err := c.registry.Close(); err != nil {
			return fmt.Errorf("close registry: %w", err)
		}
	}
	return nil
}

// AddDocument chunks, embeds and indexes text, and returns the generated
// document id. The filename is kept for listings only.
func (c *Client) AddDocument(ctx context.Context, text, filename string) (string, error) {
	documentID := uuid.NewString()
	return c.ingestSvc.AddDocument(ctx, text, documentID, filename)
}

// Ask answers a question from the indexed chunks. An empty documentID
// searches across all documents.
func (c *Client) Ask(ctx context.Context, question, documentID string) (string, error) {
	return c.answerSvc.Answer(ctx, question, documentID)
}

// Search returns the chunks most similar to question without generating an
// answer. An empty documentID searches across all documents.
func (c *Client) Search(ctx context.Context, question string, k int, documentID string) ([]Match, error) {
	matches, err := c.answerSvc.Retrieve(ctx, question, k, documentID)
	if err != nil {
		return nil, err
	}

	out := make([]Match, len(matches))
	for i, m := range matches {
		out[i] = Match{
			DocumentID: m.Record.Metadata.DocumentID,
			ChunkIndex: m.Record.Metadata.ChunkIndex,
			Content:    m.Record.PageContent,
			Score:      m.Score,
		}
	}
	return out, nil
}

// Documents lists all ingested documents, oldest first.
func (c *Client) Documents(ctx context.Context) ([]DocumentInfo, error) {
	docs, err := c.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		out[i] = DocumentInfo{
			ID:         d.ID,
			Filename:   d.Filename,
			ChunkCount: d.ChunkCount,
			CreatedAt:  d.CreatedAt,
		}
	}
	return out, nil
}

// embedderAdapter wraps a public Embedder to satisfy domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// completerAdapter wraps a public Completer to satisfy domain.Completer.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, prompt string) (domain.CompletionResult, error) {
	r, err := a.inner.Complete(ctx, prompt)
	if err != nil {
		return domain.CompletionResult{}, fmt.Errorf("complete: %w", err)
	}
	return domain.CompletionResult{
		Text:         r.Text,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
