// Package errors defines unified error types for provider operations.
// Provider-specific failures are mapped to LLMError, and every failure can be
// reduced to an ErrorKind that drives degraded-mode decisions.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// LLMError represents a standardized error from a chat or embedding provider.
type LLMError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Provider   string `json:"provider"`
	Model      string `json:"model"`
}

// Error implements the error interface.
// The status code is part of the text so substring classification still works
// after the error has been flattened to a string.
func (e *LLMError) Error() string {
	return fmt.Sprintf("[%s] %s (provider=%s, model=%s, code=%d)",
		e.Type, e.Message, e.Provider, e.Model, e.StatusCode)
}

// Common error types as constants for consistency.
const (
	TypeAuthentication     = "authentication_error"
	TypeRateLimit          = "rate_limit_error"
	TypeInvalidRequest     = "invalid_request_error"
	TypeNotFound           = "not_found_error"
	TypeTimeout            = "timeout_error"
	TypeServiceUnavailable = "service_unavailable_error"
	TypeInternalError      = "internal_error"
)

func newError(status int, typ, provider, model, message string) *LLMError {
	return &LLMError{
		StatusCode: status,
		Message:    message,
		Type:       typ,
		Provider:   provider,
		Model:      model,
	}
}

// NewAuthenticationError creates an authentication error (401).
func NewAuthenticationError(provider, model, message string) *LLMError {
	return newError(http.StatusUnauthorized, TypeAuthentication, provider, model, message)
}

// NewRateLimitError creates a rate limit error (429).
func NewRateLimitError(provider, model, message string) *LLMError {
	return newError(http.StatusTooManyRequests, TypeRateLimit, provider, model, message)
}

// NewInvalidRequestError creates an invalid request error (400).
func NewInvalidRequestError(provider, model, message string) *LLMError {
	return newError(http.StatusBadRequest, TypeInvalidRequest, provider, model, message)
}

// NewNotFoundError creates a not found error (404).
func NewNotFoundError(provider, model, message string) *LLMError {
	return newError(http.StatusNotFound, TypeNotFound, provider, model, message)
}

// NewTimeoutError creates a timeout error (408).
func NewTimeoutError(provider, model, message string) *LLMError {
	return newError(http.StatusRequestTimeout, TypeTimeout, provider, model, message)
}

// NewServiceUnavailableError creates a service unavailable error (503).
func NewServiceUnavailableError(provider, model, message string) *LLMError {
	return newError(http.StatusServiceUnavailable, TypeServiceUnavailable, provider, model, message)
}

// NewInternalError creates an internal server error (500).
func NewInternalError(provider, model, message string) *LLMError {
	return newError(http.StatusInternalServerError, TypeInternalError, provider, model, message)
}

// FromStatus maps an HTTP status code returned by a provider to an LLMError.
func FromStatus(provider, model string, statusCode int, message string) *LLMError {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewAuthenticationError(provider, model, message)
	case http.StatusTooManyRequests:
		return NewRateLimitError(provider, model, message)
	case http.StatusBadRequest:
		return NewInvalidRequestError(provider, model, message)
	case http.StatusNotFound:
		return NewNotFoundError(provider, model, message)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return NewTimeoutError(provider, model, message)
	case http.StatusServiceUnavailable, http.StatusBadGateway:
		return NewServiceUnavailableError(provider, model, message)
	default:
		return NewInternalError(provider, model, message)
	}
}

// ErrorKind is the coarse failure class used by callers to pick a degraded path.
type ErrorKind int

const (
	// KindNone means no error.
	KindNone ErrorKind = iota
	// KindQuotaExceeded is a rate or quota signal from the provider.
	KindQuotaExceeded
	// KindProviderUnavailable means missing credentials or no adapter at construction.
	KindProviderUnavailable
	// KindMalformedResponse is a structured-answer parse failure.
	KindMalformedResponse
	// KindGenericProviderError is anything else from the backend.
	KindGenericProviderError
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindProviderUnavailable:
		return "provider_unavailable"
	case KindMalformedResponse:
		return "malformed_response"
	case KindGenericProviderError:
		return "generic_provider_error"
	default:
		return "unknown"
	}
}

// ClassifyProviderError classifies raw provider error text.
// It is a best-effort heuristic: "429", "quota" or "rate limit" anywhere in the
// text (case-insensitive for the words) means the quota was exhausted.
func ClassifyProviderError(text string) ErrorKind {
	if text == "" {
		return KindNone
	}
	lower := strings.ToLower(text)
	if strings.Contains(text, "429") || strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") {
		return KindQuotaExceeded
	}
	return KindGenericProviderError
}

// Classify reduces err to an ErrorKind.
// A structured LLMError is trusted first; otherwise the error text is matched.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.Type == TypeRateLimit {
		return KindQuotaExceeded
	}
	return ClassifyProviderError(err.Error())
}
