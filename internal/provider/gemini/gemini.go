// Package gemini implements the Google Gemini chat adapter.
// It maps neutral requests onto the generateContent REST API: the system
// instruction goes to systemInstruction and assistant turns use the "model" role.
package gemini

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
	ProviderName = "gemini"

	// DefaultBaseURL is the default Google AI Studio API endpoint.
	DefaultBaseURL = "https://generativelanguage.googleapis.com"

	// DefaultAPIVersion is the default Gemini API version.
	DefaultAPIVersion = "v1beta"

	// DefaultModel is used when neither caller nor configuration picks one.
	DefaultModel = "models/gemini-2.5-flash"
)

// Models lists the advertised Gemini chat models.
var Models = []string{
	"models/gemini-2.5-flash",
	"models/gemini-2.0-flash",
	"models/gemini-pro-latest",
}

// Spec describes the Gemini provider for the registry.
func Spec() provider.Spec {
	return provider.Spec{
		Name:         ProviderName,
		DefaultModel: DefaultModel,
		Models:       Models,
		FreeTier:     "60 req/min, 1500/day",
		BestFor:      "Balanced performance and features",
		Factory:      New,
	}
}

// Provider implements the Gemini API adapter.
type Provider struct {
	apiKey     string
	baseURL    string
	apiVersion string
}

// New creates a new Gemini adapter.
func New(cfg provider.Config) (provider.Adapter, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Provider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiVersion: DefaultAPIVersion,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return ProviderName
}

type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates     []candidate     `json:"candidates"`
	UsageMetadata  *usageMetadata  `json:"usageMetadata,omitempty"`
	PromptFeedback *promptFeedback `json:"promptFeedback,omitempty"`
}

type candidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type promptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// BuildRequest creates an HTTP request for generateContent.
func (p *Provider) BuildRequest(ctx context.Context, req *provider.Request) (*http.Request, error) {
	body, err := json.Marshal(transformRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	// Model names are advertised with the "models/" resource prefix; the path adds its own.
	model := strings.TrimPrefix(req.Model, "models/")
	url := fmt.Sprintf("%s/%s/models/%s:generateContent", p.baseURL, p.apiVersion, model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", p.apiKey)

	return httpReq, nil
}

func transformRequest(req *provider.Request) *geminiRequest {
	gr := &geminiRequest{
		GenerationConfig: &generationConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}
	temperature := req.Temperature
	gr.GenerationConfig.Temperature = &temperature

	if req.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	if req.MultiTurn {
		for _, m := range req.History {
			gr.Contents = append(gr.Contents, geminiContent{
				Role:  mapRole(m.Role),
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}
	gr.Contents = append(gr.Contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: req.Prompt}},
	})

	return gr
}

func mapRole(r types.Role) string {
	if r == types.RoleAssistant {
		return "model"
	}
	return "user"
}

// ParseResponse extracts the first candidate's text.
func (p *Provider) ParseResponse(resp *http.Response) (*provider.Response, error) {
	body, err := httputil.ReadResponse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var gr geminiResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(gr.Candidates) == 0 {
		reason := "no candidates returned"
		if gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
			reason = "prompt blocked: " + gr.PromptFeedback.BlockReason
		}
		return nil, llmerrors.NewInvalidRequestError(ProviderName, "", reason)
	}

	var text strings.Builder
	for _, part := range gr.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}

	out := &provider.Response{Content: text.String()}
	if gr.UsageMetadata != nil {
		out.Tokens = gr.UsageMetadata.TotalTokenCount
	}
	return out, nil
}

// MapError converts a Gemini error response to a standardized error.
func (p *Provider) MapError(statusCode int, body []byte) error {
	var errResp struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}

	message := "unknown error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		message = errResp.Error.Message
	}

	return llmerrors.FromStatus(ProviderName, "", statusCode, message)
}
