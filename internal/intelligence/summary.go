package intelligence

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/blueberrycongee/recall/internal/observability"
	"github.com/blueberrycongee/recall/pkg/types"
)

// ErrorSummary is the placeholder summary stored when generation fails.
// Summaries starting with "Error" are never used as retrieval text.
const ErrorSummary = "Error generating summary"

// Depth selects how much analysis Summarize asks for.
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthDetailed      Depth = "detailed"
	DepthComprehensive Depth = "comprehensive"
)

// ParseDepth maps a name to a Depth. Unknown names mean DepthDetailed.
func ParseDepth(s string) Depth {
	switch Depth(strings.ToLower(strings.TrimSpace(s))) {
	case DepthBasic:
		return DepthBasic
	case DepthComprehensive:
		return DepthComprehensive
	default:
		return DepthDetailed
	}
}

// Summary is the structured analysis of a conversation.
// Decisions and UnresolvedItems are only asked for at DepthComprehensive.
type Summary struct {
	Summary         string   `json:"summary"`
	KeyPoints       []string `json:"key_points"`
	Topics          []string `json:"topics"`
	Decisions       []string `json:"decisions,omitempty"`
	Sentiment       string   `json:"sentiment,omitempty"`
	UnresolvedItems []string `json:"unresolved_items,omitempty"`
}

func emptySummary(text string) *Summary {
	return &Summary{Summary: text, KeyPoints: []string{}, Topics: []string{}}
}

const summarySystemPrompt = "You are an expert conversation analyzer. Provide concise, accurate analysis."

// Summarize analyzes messages at the given depth. It never fails: a chat
// error yields ErrorSummary and an unstructured answer becomes the summary text.
func (s *Service) Summarize(ctx context.Context, messages []types.Message, depth Depth) *Summary {
	if len(messages) == 0 {
		return emptySummary("")
	}

	ctx, span := observability.Tracer().Start(ctx, "intelligence.summarize")
	defer span.End()
	span.SetAttributes(
		attribute.String("recall.summary.depth", string(depth)),
		attribute.Int("recall.summary.messages", len(messages)),
	)

	res := s.ask(ctx, summarySystemPrompt, summaryPrompt(transcript(messages), depth))
	if res.Failed() {
		s.logger.Warn("summary generation failed", "provider", res.Provider, "error", res.Error)
		return emptySummary(ErrorSummary)
	}

	var raw map[string]any
	if err := decodeStructured(res.Content, &raw); err != nil || raw == nil {
		s.logger.Debug("summary answer was not JSON, using raw text", "provider", res.Provider)
		return emptySummary(strings.TrimSpace(res.Content))
	}

	return &Summary{
		Summary:         stringValue(raw["summary"]),
		KeyPoints:       stringList(raw["key_points"]),
		Topics:          stringList(raw["topics"]),
		Decisions:       optionalList(raw, "decisions"),
		Sentiment:       stringValue(raw["sentiment"]),
		UnresolvedItems: optionalList(raw, "unresolved_items"),
	}
}

func optionalList(raw map[string]any, key string) []string {
	v, ok := raw[key]
	if !ok {
		return nil
	}
	return stringList(v)
}

func summaryPrompt(conversation string, depth Depth) string {
	switch depth {
	case DepthBasic:
		return fmt.Sprintf(`Provide a brief 2-3 sentence summary of this conversation.

Conversation:
%s

Provide your answer in JSON format with key: summary`, conversation)
	case DepthComprehensive:
		return fmt.Sprintf(`Analyze this conversation comprehensively and provide:
1. A detailed summary (3-5 sentences)
2. Key points discussed (bullet points)
3. Main topics covered
4. Important decisions or action items
5. Overall tone and sentiment
6. Any unresolved questions or concerns

Conversation:
%s

Provide your analysis in JSON format with keys: summary, key_points, topics, decisions, sentiment, unresolved_items`, conversation)
	default:
		return fmt.Sprintf(`Analyze this conversation and provide:
1. A summary (2-4 sentences)
2. Key points discussed
3. Main topics covered
4. Overall sentiment

Conversation:
%s

Provide your analysis in JSON format with keys: summary, key_points, topics, sentiment`, conversation)
	}
}

// transcript renders messages as "role: content" lines.
func transcript(messages []types.Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.Role.String())
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}
