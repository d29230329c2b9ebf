package intelligence

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/blueberrycongee/recall/internal/embedding"
	"github.com/blueberrycongee/recall/internal/provider"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
	"github.com/blueberrycongee/recall/pkg/types"
)

type fakeChat struct {
	mu      sync.Mutex
	reply   func(prompt string) types.ChatResult
	prompts []string
	systems []string
}

func replyWith(content string) func(string) types.ChatResult {
	return func(string) types.ChatResult {
		return types.ChatResult{Content: content, Provider: "fake", Model: "fake-1"}
	}
}

func failWith(msg string) func(string) types.ChatResult {
	return func(string) types.ChatResult {
		return types.ChatResult{Error: msg, Provider: "fake", Model: "fake-1"}
	}
}

func (f *fakeChat) Name() string  { return "fake" }
func (f *fakeChat) Model() string { return "fake-1" }

func (f *fakeChat) Chat(ctx context.Context, messages []types.Message, opts ...provider.ChatOption) types.ChatResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	var prompt string
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			f.systems = append(f.systems, m.Content)
		case types.RoleUser:
			prompt = m.Content
		}
	}
	f.prompts = append(f.prompts, prompt)
	return f.reply(prompt)
}

func (f *fakeChat) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeChat) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

// topicEmbedder maps text onto a fixed axis per keyword, so similarity is
// fully determined by which keyword a text mentions.
type topicEmbedder struct {
	mu      sync.Mutex
	axes    []string
	fail    error
	texts   []string
	batches int
}

func (e *topicEmbedder) Embed(ctx context.Context, text string, opts ...embedding.EmbedOption) ([]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.texts = append(e.texts, text)
	if strings.TrimSpace(text) == "" {
		return nil, embedding.ErrEmptyText
	}
	if e.fail != nil {
		return nil, &embedding.UnavailableError{Kind: llmerrors.Classify(e.fail), Err: e.fail}
	}

	vec := make([]float64, len(e.axes)+1)
	vec[len(e.axes)] = 0.1
	lower := strings.ToLower(text)
	for i, axis := range e.axes {
		if strings.Contains(lower, axis) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func (e *topicEmbedder) EmbedBatch(ctx context.Context, texts []string, opts ...embedding.EmbedOption) [][]float64 {
	e.mu.Lock()
	e.batches++
	e.mu.Unlock()
	out := make([][]float64, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text, opts...)
	}
	return out
}

func (e *topicEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.texts)
}

var errQuota = errors.New("429 Quota exceeded for embed_content_free_tier_requests")
