package askdoc

import "github.com/askdoc/askdoc/internal/domain"

// Sentinel errors returned by Client operations. Match with errors.Is.
var (
	// ErrValidation marks rejected input: empty text, bad parameters,
	// mismatched vector dimensions.
	ErrValidation = domain.ErrValidation

	// ErrNoContent marks a document that yielded no usable chunks.
	ErrNoContent = domain.ErrNoContent

	// ErrDocumentNotFound marks a lookup of an unknown document id.
	ErrDocumentNotFound = domain.ErrDocumentNotFound

	// ErrRateLimited marks a provider 429 without a quota cause.
	ErrRateLimited = domain.ErrRateLimited

	// ErrQuotaExceeded marks an exhausted provider quota or billing limit.
	ErrQuotaExceeded = domain.ErrQuotaExceeded

	// ErrEmbeddingProviderError marks any other embedding provider failure.
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError

	// ErrCompletionProviderError marks any other completion provider failure.
	ErrCompletionProviderError = domain.ErrCompletionProviderError

	// ErrPersistence marks a failed index snapshot write or load.
	ErrPersistence = domain.ErrPersistence
)
