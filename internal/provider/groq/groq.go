// Package groq implements the Groq chat adapter.
// Groq serves open-weight models (Llama, Mixtral) behind an OpenAI-compatible API.
// API Reference: https://console.groq.com/docs/api-reference
package groq

import (
	"github.com/blueberrycongee/recall/internal/provider"
	"github.com/blueberrycongee/recall/internal/provider/openailike"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "groq"

	// DefaultBaseURL is the default Groq API endpoint.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultModel is used when neither caller nor configuration picks one.
	DefaultModel = "llama-3.3-70b-versatile"
)

// Models lists the advertised Groq models.
var Models = []string{
	"llama-3.3-70b-versatile",
	"llama-3.1-8b-instant",
	"mixtral-8x7b-32768",
}

// Spec describes the Groq provider for the registry.
func Spec() provider.Spec {
	return provider.Spec{
		Name:         ProviderName,
		DefaultModel: DefaultModel,
		Models:       Models,
		FreeTier:     "30 req/min, 14,400/day",
		BestFor:      "Very fast responses, generous limits",
		Factory:      New,
	}
}

// New creates a new Groq adapter.
func New(cfg provider.Config) (provider.Adapter, error) {
	return openailike.New(cfg, openailike.ProviderInfo{
		Name:           ProviderName,
		DefaultBaseURL: DefaultBaseURL,
	})
}
