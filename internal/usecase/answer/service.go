// Package answer orchestrates retrieval-augmented answering: embed the
// question, retrieve the best-matching chunks, and ask the completion
// provider to answer from them.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdoc/askdoc/internal/domain"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Fallback is returned when retrieval finds nothing; the completion
// provider is not called in that case.
const Fallback = "I couldn't find any relevant information in the uploaded documents to answer your question."

const promptTemplate = `You are a helpful assistant that answers questions based on the following context from documents.

Context:
%s

Question: %s

Provide a detailed answer based strictly on the context provided. If the context doesn't contain enough information to answer the question, say so explicitly.`

// Service answers questions from indexed document chunks.
type Service struct {
	embed    domain.Embedder
	search   Searcher
	complete domain.Completer
	topK     int
	logger   *zap.Logger
}

// New creates an answering service. logger may be nil.
func New(embed domain.Embedder, search Searcher, complete domain.Completer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embed:    embed,
		search:   search,
		complete: complete,
		topK:     DefaultTopK,
		logger:   logger,
	}
}

// WithTopK overrides the number of retrieved chunks.
func (s *Service) WithTopK(k int) *Service {
	if k > 0 {
		s.topK = k
	}
	return s
}

// Answer retrieves the chunks most similar to question (optionally pinned
// to one documentID) and generates a grounded answer. Zero matches yield
// the fixed Fallback response without touching the completion provider.
func (s *Service) Answer(ctx context.Context, question, documentID string) (string, error) {
	matches, err := s.Retrieve(ctx, question, s.topK, documentID)
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		s.logger.Debug("no matches for question",
			zap.String("document_id", documentID),
		)
		return Fallback, nil
	}

	contents := make([]string, len(matches))
	for i, m := range matches {
		contents[i] = m.Record.PageContent
	}
	contextText := strings.Join(contents, "\n\n")

	prompt := fmt.Sprintf(promptTemplate, contextText, question)

	res, err := s.complete.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Info("question answered",
		zap.String("document_id", documentID),
		zap.Int("matches", len(matches)),
		zap.Int("completion_tokens", res.TotalTokens),
	)

	return strings.TrimSpace(res.Text), nil
}

// Retrieve embeds the question and returns the top-k matches, best-first.
func (s *Service) Retrieve(ctx context.Context, question string, k int, documentID string) ([]domain.Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("question is required: %w", domain.ErrValidation)
	}

	embRes, err := s.embed.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("vectorize question: %w", err)
	}

	matches, err := s.search.Search(ctx, embRes.Embedding, k, documentID)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return matches, nil
}
