// Package embedding turns text into vectors. Embedder implementations talk to
// an embedding provider; Service adds the cache-first lookup, failure
// classification and miss coalescing used by the rest of the system.
package embedding

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
)

// Embedder defines the interface for generating text embeddings.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch generates embeddings for multiple texts in a single request.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Model returns the name of the embedding model being used.
	Model() string

	// Dimension returns the expected vector length, 0 if any length is accepted.
	Dimension() int
}

// mapHTTPError builds an LLMError from a failed embedding response.
// Both Google ({"error":{"message"}}) and OpenAI-style bodies carry error.message.
func mapHTTPError(provider, model string, status int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	message := fmt.Sprintf("embedding failed with status %d", status)
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}
	return llmerrors.FromStatus(provider, model, status, message)
}
