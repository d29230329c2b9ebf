package embedding

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/blueberrycongee/recall/internal/httputil"
)

const geminiProvider = "gemini"

// GeminiEmbedder implements Embedder using the Gemini embedContent API.
type GeminiEmbedder struct {
	client    *http.Client
	apiKey    string
	apiBase   string
	model     string
	taskType  string
	dimension int
}

// GeminiConfig holds configuration for the Gemini embedder.
type GeminiConfig struct {
	APIKey    string
	APIBase   string
	Model     string
	TaskType  string
	Dimension int
	Timeout   time.Duration
}

// DefaultGeminiConfig returns sensible defaults for the Gemini embedder.
func DefaultGeminiConfig() GeminiConfig {
	return GeminiConfig{
		APIBase:  "https://generativelanguage.googleapis.com/v1beta",
		Model:    "models/text-embedding-004",
		TaskType: "RETRIEVAL_DOCUMENT",
		Timeout:  30 * time.Second,
	}
}

// NewGeminiEmbedder creates a new Gemini embedder.
func NewGeminiEmbedder(cfg GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api_key is required")
	}
	defaults := DefaultGeminiConfig()
	if cfg.APIBase == "" {
		cfg.APIBase = defaults.APIBase
	}
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if !strings.HasPrefix(cfg.Model, "models/") {
		cfg.Model = "models/" + cfg.Model
	}
	if cfg.TaskType == "" {
		cfg.TaskType = defaults.TaskType
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &GeminiEmbedder{
		client:    &http.Client{Timeout: cfg.Timeout},
		apiKey:    cfg.APIKey,
		apiBase:   strings.TrimSuffix(cfg.APIBase, "/"),
		model:     cfg.Model,
		taskType:  cfg.TaskType,
		dimension: cfg.Dimension,
	}, nil
}

// Embed generates an embedding for a single text.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(e.request(text))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp geminiEmbedResponse
	if err := e.post(ctx, "embedContent", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return resp.Embedding.Values, nil
}

// EmbedBatch generates embeddings for multiple texts with batchEmbedContents.
func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	batch := geminiBatchRequest{Requests: make([]geminiEmbedRequest, len(texts))}
	for i, t := range texts {
		batch.Requests[i] = e.request(t)
	}
	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var resp geminiBatchResponse
	if err := e.post(ctx, "batchEmbedContents", body, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	out := make([][]float64, len(texts))
	for i, emb := range resp.Embeddings {
		out[i] = emb.Values
	}
	return out, nil
}

func (e *GeminiEmbedder) request(text string) geminiEmbedRequest {
	return geminiEmbedRequest{
		Model:    e.model,
		Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
		TaskType: e.taskType,
	}
}

func (e *GeminiEmbedder) post(ctx context.Context, action string, body []byte, out any) error {
	url := fmt.Sprintf("%s/%s:%s", e.apiBase, e.model, action)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("embedding request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := httputil.ReadLimitedBody(resp.Body, httputil.MaxErrorBodyBytes) //nolint:errcheck // best-effort error body
		return mapHTTPError(geminiProvider, e.model, resp.StatusCode, errBody)
	}

	respBody, err := httputil.ReadResponse(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Model returns the embedding model name.
func (e *GeminiEmbedder) Model() string {
	return e.model
}

// Dimension returns the configured vector length, 0 when unchecked.
func (e *GeminiEmbedder) Dimension() int {
	return e.dimension
}

// Gemini API types

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiEmbedRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"taskType,omitempty"`
}

type geminiBatchRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

type geminiValues struct {
	Values []float64 `json:"values"`
}

type geminiEmbedResponse struct {
	Embedding geminiValues `json:"embedding"`
}

type geminiBatchResponse struct {
	Embeddings []geminiValues `json:"embeddings"`
}
