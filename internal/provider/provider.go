// Package provider defines the chat adapter contract and the router that
// binds one configured provider behind a provider-neutral chat call.
// Each backend (Gemini, Groq, Cohere) implements Adapter to translate the
// neutral request into its own wire format.
package provider

import (
	"context"
	"net/http"
	"time"

	"github.com/blueberrycongee/recall/pkg/types"
)

// Request is the provider-neutral chat request handed to adapters.
// Messages have already been split into system instruction, history and prompt.
type Request struct {
	Model       string
	System      string
	History     []types.Message
	Prompt      string
	MultiTurn   bool
	Temperature float64
	MaxTokens   int
}

// Response is what an adapter extracts from a successful provider reply.
type Response struct {
	Content string
	// Tokens is the usage reported by the provider, 0 when it reports none.
	Tokens int
}

// Adapter translates chat requests to and from one provider's HTTP API.
type Adapter interface {
	// Name returns the provider identifier (e.g., "gemini", "groq").
	Name() string

	// BuildRequest transforms a neutral Request into a provider-specific HTTP request.
	BuildRequest(ctx context.Context, req *Request) (*http.Request, error)

	// ParseResponse extracts the reply text and usage from a 2xx response.
	ParseResponse(resp *http.Response) (*Response, error)

	// MapError converts a provider error response into a standardized LLMError.
	MapError(statusCode int, body []byte) error
}

// Config contains adapter construction settings.
type Config struct {
	Name    string
	APIKey  string
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// Factory creates adapter instances from configuration.
type Factory func(cfg Config) (Adapter, error)
