package provider

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/blueberrycongee/recall/internal/httputil"
	"github.com/blueberrycongee/recall/internal/metrics"
	"github.com/blueberrycongee/recall/internal/observability"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
	"github.com/blueberrycongee/recall/pkg/types"
)

// Router is one bound provider. Chat never returns an error: failures are
// reported in ChatResult.Error.
type Router struct {
	name     string
	model    string
	adapter  Adapter
	client   *http.Client
	timeout  time.Duration
	defaults ChatDefaults
	logger   *slog.Logger
}

// NewRouterWithAdapter binds an already constructed adapter.
func NewRouterWithAdapter(adapter Adapter, model string, client *http.Client, logger *slog.Logger) *Router {
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		name:     adapter.Name(),
		model:    model,
		adapter:  adapter,
		client:   client,
		defaults: DefaultChatDefaults(),
		logger:   logger,
	}
}

// Name returns the bound provider name.
func (r *Router) Name() string {
	return r.name
}

// Model returns the model used for chat calls.
func (r *Router) Model() string {
	return r.model
}

type chatOptions struct {
	temperature *float64
	maxTokens   int
}

// ChatOption adjusts a single chat call.
type ChatOption func(*chatOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) ChatOption {
	return func(o *chatOptions) {
		o.temperature = &t
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int) ChatOption {
	return func(o *chatOptions) {
		o.maxTokens = n
	}
}

// Chat sends messages to the bound provider.
func (r *Router) Chat(ctx context.Context, messages []types.Message, opts ...ChatOption) types.ChatResult {
	start := time.Now()

	o := chatOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	temperature := r.defaults.Temperature
	if o.temperature != nil {
		temperature = *o.temperature
	}
	maxTokens := r.defaults.MaxTokens
	if o.maxTokens > 0 {
		maxTokens = o.maxTokens
	}

	system, history, prompt, multiTurn := SplitTurns(messages)
	req := &Request{
		Model:       r.model,
		System:      system,
		History:     history,
		Prompt:      prompt,
		MultiTurn:   multiTurn,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	ctx, span := observability.StartChatSpan(ctx, observability.ChatSpanAttributes{
		Provider:    r.name,
		Model:       r.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	defer span.End()

	resp, err := r.do(ctx, req)
	elapsed := time.Since(start)

	result := types.ChatResult{
		ProcessingTimeMs: elapsed.Milliseconds(),
		Model:            r.model,
		Provider:         r.name,
	}
	metrics.ChatLatency.WithLabelValues(r.name).Observe(elapsed.Seconds())

	if err == nil && resp.Content == "" {
		err = llmerrors.NewInternalError(r.name, r.model, "empty response")
	}
	if err != nil {
		status := metrics.StatusError
		if llmerrors.Classify(err) == llmerrors.KindQuotaExceeded {
			status = metrics.StatusQuota
		}
		metrics.ChatRequests.WithLabelValues(r.name, status).Inc()
		observability.RecordError(span, err)
		r.logger.Warn("chat request failed",
			"provider", r.name,
			"model", r.model,
			"duration_ms", result.ProcessingTimeMs,
			"error", err,
		)
		result.Error = err.Error()
		return result
	}

	result.Content = resp.Content
	result.Tokens = resp.Tokens
	if result.Tokens <= 0 {
		result.Tokens = EstimateTokens(resp.Content)
	}
	metrics.ChatRequests.WithLabelValues(r.name, metrics.StatusSuccess).Inc()
	metrics.RecordChatTokens(r.name, r.model, result.Tokens)
	observability.RecordTokens(span, result.Tokens)
	return result
}

func (r *Router) do(ctx context.Context, req *Request) (*Response, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	httpReq, err := r.adapter.BuildRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := httputil.ReadLimitedBody(resp.Body, httputil.MaxErrorBodyBytes) //nolint:errcheck // best-effort error body
		return nil, r.adapter.MapError(resp.StatusCode, body)
	}

	return r.adapter.ParseResponse(resp)
}

// TestResult is the outcome of a provider self-test.
type TestResult struct {
	Success          bool   `json:"success"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	Response         string `json:"response,omitempty"`
	Error            string `json:"error,omitempty"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	Tokens           int    `json:"tokens"`
}

const testPreviewLength = 100

// Test performs a one-message round trip to verify credentials and model.
func (r *Router) Test(ctx context.Context) TestResult {
	res := r.Chat(ctx, []types.Message{
		types.UserMessage("Say 'Hello! I am working correctly.' in one sentence."),
	}, WithMaxTokens(50))

	out := TestResult{
		Success:          !res.Failed(),
		Provider:         r.name,
		Model:            r.model,
		Error:            res.Error,
		ProcessingTimeMs: res.ProcessingTimeMs,
		Tokens:           res.Tokens,
	}
	if !res.Failed() {
		out.Response = truncate(res.Content, testPreviewLength)
	}
	return out
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
