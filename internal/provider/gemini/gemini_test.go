package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/provider"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
	"github.com/blueberrycongee/recall/pkg/types"
)

func newAdapter(t *testing.T, baseURL string) provider.Adapter {
	t.Helper()
	a, err := New(provider.Config{APIKey: "test-api-key", BaseURL: baseURL})
	require.NoError(t, err)
	return a
}

func TestBuildRequest_URL(t *testing.T) {
	a := newAdapter(t, "https://generativelanguage.googleapis.com/")

	httpReq, err := a.BuildRequest(context.Background(), &provider.Request{
		Model:  "models/gemini-2.5-flash",
		Prompt: "Hello",
	})
	require.NoError(t, err)

	assert.Equal(t,
		"https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent",
		httpReq.URL.String())
	assert.Equal(t, "test-api-key", httpReq.Header.Get("x-goog-api-key"))
	assert.Equal(t, http.MethodPost, httpReq.Method)
}

func TestBuildRequest_SingleShot(t *testing.T) {
	gr := transformRequest(&provider.Request{
		System:      "be brief",
		Prompt:      "Hello",
		Temperature: 0.7,
		MaxTokens:   2048,
	})

	require.NotNil(t, gr.SystemInstruction)
	assert.Equal(t, "be brief", gr.SystemInstruction.Parts[0].Text)
	require.Len(t, gr.Contents, 1)
	assert.Equal(t, "user", gr.Contents[0].Role)
	assert.Equal(t, "Hello", gr.Contents[0].Parts[0].Text)
	assert.Equal(t, 2048, gr.GenerationConfig.MaxOutputTokens)
	assert.InDelta(t, 0.7, *gr.GenerationConfig.Temperature, 1e-9)
}

func TestBuildRequest_MultiTurnMapsRoles(t *testing.T) {
	gr := transformRequest(&provider.Request{
		History: []types.Message{
			types.UserMessage("Hi"),
			types.AssistantMessage("Hello there"),
		},
		Prompt:    "How are you?",
		MultiTurn: true,
	})

	require.Len(t, gr.Contents, 3)
	assert.Equal(t, "user", gr.Contents[0].Role)
	assert.Equal(t, "model", gr.Contents[1].Role)
	assert.Equal(t, "user", gr.Contents[2].Role)
	assert.Equal(t, "How are you?", gr.Contents[2].Parts[0].Text)
	assert.Nil(t, gr.SystemInstruction)
}

func TestRouter_ChatRoundTrip(t *testing.T) {
	capturedCh := make(chan geminiRequest, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent"))
		body, _ := io.ReadAll(r.Body)
		var captured geminiRequest
		assert.NoError(t, json.Unmarshal(body, &captured))
		capturedCh <- captured
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Paris"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	router := provider.NewRouterWithAdapter(newAdapter(t, server.URL), DefaultModel, server.Client(), nil)
	res := router.Chat(context.Background(), []types.Message{
		types.SystemMessage("geography"),
		types.UserMessage("Capital of France?"),
	})

	require.False(t, res.Failed(), res.Error)
	assert.Equal(t, "Paris", res.Content)
	assert.Equal(t, 1, res.Tokens) // estimated: len("Paris") / 4
	assert.Equal(t, ProviderName, res.Provider)
	assert.Equal(t, DefaultModel, res.Model)
	captured := <-capturedCh
	require.NotNil(t, captured.SystemInstruction)
	assert.Equal(t, "geography", captured.SystemInstruction.Parts[0].Text)
}

func TestRouter_TransportErrorHidesKey(t *testing.T) {
	const key = "AIzaSECRETKEY1234567890"
	a, err := New(provider.Config{APIKey: key, BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	res := provider.NewRouterWithAdapter(a, DefaultModel, nil, nil).Chat(context.Background(), []types.Message{
		types.UserMessage("hi"),
	})

	require.True(t, res.Failed())
	assert.NotContains(t, res.Error, key)
}

func TestParseResponse_UsesReportedUsage(t *testing.T) {
	a := newAdapter(t, "")
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(
		`{"candidates":[{"content":{"parts":[{"text":"a"},{"text":"b"}]}}],"usageMetadata":{"totalTokenCount":17}}`,
	))}

	out, err := a.ParseResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, "ab", out.Content)
	assert.Equal(t, 17, out.Tokens)
}

func TestParseResponse_Blocked(t *testing.T) {
	a := newAdapter(t, "")
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(`{"promptFeedback":{"blockReason":"SAFETY"}}`))}

	_, err := a.ParseResponse(resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestMapError(t *testing.T) {
	a := newAdapter(t, "")
	err := a.MapError(http.StatusTooManyRequests, []byte(`{"error":{"code":429,"message":"Resource has been exhausted (e.g. check quota).","status":"RESOURCE_EXHAUSTED"}}`))

	var llmErr *llmerrors.LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, llmerrors.TypeRateLimit, llmErr.Type)
	assert.Equal(t, llmerrors.KindQuotaExceeded, llmerrors.Classify(err))
}
