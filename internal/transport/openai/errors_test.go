package openai

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdoc/askdoc/internal/domain"
)

func TestClassifyAPIError_QuotaExceeded(t *testing.T) {
	err := classifyAPIError(&openai.APIError{
		HTTPStatusCode: http.StatusTooManyRequests,
		Code:           "insufficient_quota",
		Message:        "You exceeded your current quota",
	}, domain.ErrEmbeddingProviderError)

	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
	if errors.Is(err, domain.ErrRateLimited) {
		t.Error("quota exhaustion must not match ErrRateLimited")
	}
}

func TestClassifyAPIError_RateLimited(t *testing.T) {
	err := classifyAPIError(&openai.APIError{
		HTTPStatusCode: http.StatusTooManyRequests,
		Message:        "Rate limit reached for requests",
	}, domain.ErrEmbeddingProviderError)

	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClassifyAPIError_PaymentRequired(t *testing.T) {
	err := classifyAPIError(&openai.APIError{
		HTTPStatusCode: http.StatusPaymentRequired,
		Code:           "insufficient_quota",
		Message:        "billing hard limit reached",
	}, domain.ErrCompletionProviderError)

	if !errors.Is(err, domain.ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded, got %v", err)
	}
}

func TestClassifyAPIError_GenericAPIError(t *testing.T) {
	err := classifyAPIError(&openai.APIError{
		HTTPStatusCode: http.StatusInternalServerError,
		Message:        "server had an error",
	}, domain.ErrEmbeddingProviderError)

	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "server had an error") {
		t.Errorf("message lost: %v", err)
	}
}

func TestClassifyAPIError_RequestErrorWithDetail(t *testing.T) {
	err := classifyAPIError(&openai.RequestError{
		HTTPStatusCode: http.StatusBadGateway,
		Body:           []byte(`{"detail": "upstream unavailable"}`),
		Err:            errors.New("bad gateway"),
	}, domain.ErrCompletionProviderError)

	if !errors.Is(err, domain.ErrCompletionProviderError) {
		t.Errorf("expected ErrCompletionProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("detail lost: %v", err)
	}
}

func TestClassifyAPIError_RequestErrorRateLimit(t *testing.T) {
	err := classifyAPIError(&openai.RequestError{
		HTTPStatusCode: http.StatusTooManyRequests,
		Body:           []byte("too many requests"),
		Err:            errors.New("429"),
	}, domain.ErrEmbeddingProviderError)

	if !errors.Is(err, domain.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestClassifyAPIError_PlainError(t *testing.T) {
	err := classifyAPIError(errors.New("dial tcp: connection refused"), domain.ErrEmbeddingProviderError)

	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
	// The transport-level cause must survive for diagnosis.
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("underlying error lost: %v", err)
	}
}
