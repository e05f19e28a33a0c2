package askdoc

import (
	"context"
	"time"
)

// EmbeddingResult is one embedding vector with token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// Embedder converts text into an embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// CompletionResult is a generated answer with token usage.
type CompletionResult struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// Completer generates an answer from a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (CompletionResult, error)
}

// Match is one retrieved chunk with its similarity score.
type Match struct {
	DocumentID string
	ChunkIndex int
	Content    string
	Score      float64
}

// DocumentInfo describes one ingested document.
type DocumentInfo struct {
	ID         string
	Filename   string
	ChunkCount int
	CreatedAt  time.Time
}
