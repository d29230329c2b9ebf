// Package openailike provides a base adapter for OpenAI-compatible chat APIs.
// Providers that speak /chat/completions (Groq, and any self-hosted gateway)
// only need to supply a ProviderInfo.
package openailike

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
)

// ProviderInfo contains provider-specific configuration.
type ProviderInfo struct {
	// Name is the provider identifier (e.g., "groq")
	Name string

	// DefaultBaseURL is the default API endpoint
	DefaultBaseURL string

	// ChatEndpoint is the path for chat completions
	// Default: "/chat/completions"
	ChatEndpoint string

	// ExtraHeaders are additional headers to include in requests
	ExtraHeaders map[string]string
}

// Provider implements a generic OpenAI-compatible chat adapter.
type Provider struct {
	info    ProviderInfo
	apiKey  string
	baseURL string
	headers map[string]string
}

// New creates a new OpenAI-like adapter.
func New(cfg provider.Config, info ProviderInfo) (provider.Adapter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = info.DefaultBaseURL
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%s: base URL is required", info.Name)
	}

	headers := make(map[string]string, len(info.ExtraHeaders)+len(cfg.Headers))
	for k, v := range info.ExtraHeaders {
		headers[k] = v
	}
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Provider{
		info:    info,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		headers: headers,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return p.info.Name
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
}

// BuildRequest creates a /chat/completions request.
func (p *Provider) BuildRequest(ctx context.Context, req *provider.Request) (*http.Request, error) {
	body, err := json.Marshal(transformRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := p.info.ChatEndpoint
	if endpoint == "" {
		endpoint = "/chat/completions"
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		httpReq.Header.Set(k, v)
	}

	return httpReq, nil
}

func transformRequest(req *provider.Request) *chatRequest {
	temperature := req.Temperature
	cr := &chatRequest{
		Model:       req.Model,
		Temperature: &temperature,
		MaxTokens:   req.MaxTokens,
	}

	if req.System != "" {
		cr.Messages = append(cr.Messages, chatMessage{Role: "system", Content: req.System})
	}
	if req.MultiTurn {
		for _, m := range req.History {
			cr.Messages = append(cr.Messages, chatMessage{Role: m.Role.String(), Content: m.Content})
		}
	}
	cr.Messages = append(cr.Messages, chatMessage{Role: "user", Content: req.Prompt})

	return cr
}

// ParseResponse extracts the first choice and reported usage.
func (p *Provider) ParseResponse(resp *http.Response) (*provider.Response, error) {
	body, err := httputil.ReadResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var cr chatResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return nil, llmerrors.NewInternalError(p.info.Name, "", "no choices returned")
	}

	out := &provider.Response{Content: cr.Choices[0].Message.Content}
	if cr.Usage != nil {
		out.Tokens = cr.Usage.TotalTokens
	}
	return out, nil
}

// MapError converts an OpenAI-style error body to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    string `json:"code"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return llmerrors.FromStatus(p.info.Name, "", statusCode, message)
}
