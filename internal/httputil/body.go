// Package httputil provides helpers for reading provider HTTP payloads safely.
package httputil

import (
	"errors"
	"io"
)

const (
	// DefaultMaxResponseBodyBytes caps successful provider responses to 10MB.
	DefaultMaxResponseBodyBytes int64 = 10 * 1024 * 1024

	// MaxErrorBodyBytes caps error bodies kept for error mapping and logs.
	MaxErrorBodyBytes int64 = 64 * 1024
)

// ErrResponseBodyTooLarge is returned when a body exceeds its cap.
var ErrResponseBodyTooLarge = errors.New("response body too large")

// ReadLimitedBody reads up to maxBytes from reader. The truncated prefix is
// returned together with ErrResponseBodyTooLarge when the limit is exceeded.
func ReadLimitedBody(reader io.Reader, maxBytes int64) ([]byte, error) {
	if maxBytes <= 0 {
		return io.ReadAll(reader)
	}

	body, err := io.ReadAll(io.LimitReader(reader, maxBytes+1))
	if err != nil {
		return body, err
	}
	if int64(len(body)) > maxBytes {
		return body[:maxBytes], ErrResponseBodyTooLarge
	}
	return body, nil
}

// ReadResponse reads a provider response body under the default cap.
func ReadResponse(reader io.Reader) ([]byte, error) {
	return ReadLimitedBody(reader, DefaultMaxResponseBodyBytes)
}
