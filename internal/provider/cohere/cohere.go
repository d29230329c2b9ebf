// Package cohere implements the Cohere chat adapter.
// It targets the v1 chat endpoint: the prompt goes in "message", prior turns
// in "chat_history" with USER/CHATBOT roles and the system instruction in "preamble".
// API Reference: https://docs.cohere.com/reference/chat
package cohere

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/recall/internal/httputil"
	"github.com/blueberrycongee/recall/internal/provider"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
	"github.com/blueberrycongee/recall/pkg/types"
)

const (
	// ProviderName is the identifier for this provider.
	ProviderName = "cohere"

	// DefaultBaseURL is the default Cohere API endpoint.
	DefaultBaseURL = "https://api.cohere.ai/v1"

	// DefaultModel is used when neither caller nor configuration picks one.
	DefaultModel = "command-r-08-2024"
)

// Models lists the advertised Cohere models.
var Models = []string{
	"command-r-08-2024",
	"command-r-plus-08-2024",
	"command-r7b-12-2024",
}

// Spec describes the Cohere provider for the registry.
func Spec() provider.Spec {
	return provider.Spec{
		Name:         ProviderName,
		DefaultModel: DefaultModel,
		Models:       Models,
		FreeTier:     "100 req/min (trial)",
		BestFor:      "High rate limits",
		Factory:      New,
	}
}

// Provider implements the Cohere API adapter.
type Provider struct {
	apiKey  string
	baseURL string
}

// New creates a new Cohere adapter.
func New(cfg provider.Config) (provider.Adapter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

type cohereRequest struct {
	Message     string          `json:"message"`
	ChatHistory []cohereMessage `json:"chat_history,omitempty"`
	Preamble    string          `json:"preamble,omitempty"`
	Model       string          `json:"model"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type cohereMessage struct {
	Role    string `json:"role"` // USER, CHATBOT
	Message string `json:"message"`
}

type cohereResponse struct {
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
	Meta         *struct {
		BilledUnits *struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"billed_units,omitempty"`
	} `json:"meta,omitempty"`
}

// BuildRequest creates a /chat request.
func (p *Provider) BuildRequest(ctx context.Context, req *provider.Request) (*http.Request, error) {
	body, err := json.Marshal(transformRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	return httpReq, nil
}

func transformRequest(req *provider.Request) *cohereRequest {
	temperature := req.Temperature
	cr := &cohereRequest{
		Message:     req.Prompt,
		Preamble:    req.System,
		Model:       req.Model,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.MultiTurn {
		for _, m := range req.History {
			cr.ChatHistory = append(cr.ChatHistory, cohereMessage{
				Role:    mapRole(m.Role),
				Message: m.Content,
			})
		}
	}
	return cr
}

func mapRole(r types.Role) string {
	if r == types.RoleAssistant {
		return "CHATBOT"
	}
	return "USER"
}

// ParseResponse extracts the reply text and billed units.
func (p *Provider) ParseResponse(resp *http.Response) (*provider.Response, error) {
	body, err := httputil.ReadResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var cr cohereResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	out := &provider.Response{Content: cr.Text}
	if cr.Meta != nil && cr.Meta.BilledUnits != nil {
		out.Tokens = cr.Meta.BilledUnits.InputTokens + cr.Meta.BilledUnits.OutputTokens
	}
	return out, nil
}

// MapError converts a Cohere error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Message string `json:"message"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Message != "" {
		message = errResp.Message
	}

	return llmerrors.FromStatus(ProviderName, "", statusCode, message)
}
