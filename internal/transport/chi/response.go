package chi

import (
	"encoding/json"
	"net/http"
)

// errorCode is the machine-readable error tag in API error responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeNoContent          errorCode = "no_extractable_content"
	codeDocumentNotFound   errorCode = "document_not_found"
	codeRateLimited        errorCode = "rate_limited"
	codeQuotaExceeded      errorCode = "quota_exceeded"
	codeEmbeddingProvider  errorCode = "embedding_provider_error"
	codeCompletionProvider errorCode = "completion_provider_error"
	codePersistence        errorCode = "index_persistence_error"
	codeInternal           errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
