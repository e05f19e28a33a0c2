package openai

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdoc/askdoc/internal/domain"
)

// classifyAPIError extracts a human-readable error from the API response
// and tags it with the matching domain sentinel. Quota exhaustion and rate
// limiting are distinguished from generic provider failure so callers can
// surface an actionable message; everything else wraps providerErr.
func classifyAPIError(err error, providerErr error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("provider API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message,
			sentinelForStatus(apiErr.HTTPStatusCode, errorCode(apiErr), providerErr))
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("provider API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail,
			sentinelForStatus(reqErr.HTTPStatusCode, detail, providerErr))
	}

	return fmt.Errorf("provider request failed: %v: %w", err, providerErr)
}

// sentinelForStatus maps an upstream status to the domain error taxonomy.
// 429 with an insufficient-quota code means billing quota, not transient
// rate pressure; the two demand different caller reactions.
func sentinelForStatus(status int, code string, providerErr error) error {
	if status == http.StatusTooManyRequests || status == http.StatusPaymentRequired {
		if strings.Contains(strings.ToLower(code), "quota") {
			return domain.ErrQuotaExceeded
		}
		return domain.ErrRateLimited
	}
	return providerErr
}

// errorCode flattens the APIError code/type fields into one matchable string.
func errorCode(apiErr *openai.APIError) string {
	parts := []string{apiErr.Type, apiErr.Message}
	if code, ok := apiErr.Code.(string); ok {
		parts = append(parts, code)
	}
	return strings.Join(parts, " ")
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
