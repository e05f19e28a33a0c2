package domain

import "errors"

var (
	// ErrValidation signals invalid caller input, rejected before any external call.
	ErrValidation = errors.New("validation failed")
	// ErrNoContent signals a document that produced zero chunks.
	ErrNoContent = errors.New("no extractable content")
	// ErrDocumentNotFound signals an unknown document identifier.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrQuotaExceeded signals an exhausted provider API quota (embedding or completion).
	ErrQuotaExceeded = errors.New("provider quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrCompletionProviderError signals a completion provider failure.
	ErrCompletionProviderError = errors.New("completion provider error")
	// ErrPersistence signals a failed index load or save.
	ErrPersistence = errors.New("index persistence failure")
)
