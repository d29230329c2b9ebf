package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/blueberrycongee/recall/internal/metrics"
	"github.com/blueberrycongee/recall/internal/observability"
	"github.com/blueberrycongee/recall/internal/similarity"
	"github.com/blueberrycongee/recall/pkg/types"
)

const (
	// DefaultTopK is used when QueryConversations is given a non-positive topK.
	DefaultTopK = 5
	// QueryThreshold is the minimum similarity for a conversation to ground an answer.
	QueryThreshold = 0.5
	// KeywordConfidence is the fixed confidence of keyword-path answers.
	KeywordConfidence = 0.5

	candidateMessages = 10
	candidateChars    = 1000
	contextMessages   = 5
	contextChars      = 200
)

// SearchMethod records which path served a query.
type SearchMethod string

const (
	SearchNone     SearchMethod = metrics.MethodNone
	SearchSemantic SearchMethod = metrics.MethodSemantic
	SearchKeyword  SearchMethod = metrics.MethodKeyword
)

// Canned answers.
const (
	AnswerNoConversations = "No past conversations found."
	AnswerNoneRelevant    = "No relevant conversations found for your query."
	AnswerError           = "Error generating answer."
	noSummary             = "No summary available"
)

// RelatedConversation is one conversation that grounded an answer.
type RelatedConversation struct {
	ID         string    `json:"id"`
	Similarity float64   `json:"similarity"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryResult is the answer to a natural-language query over past conversations.
type QueryResult struct {
	QueryID          string                `json:"query_id"`
	Answer           string                `json:"answer"`
	Related          []RelatedConversation `json:"related_conversations"`
	Confidence       float64               `json:"confidence"`
	SearchMethod     SearchMethod          `json:"search_method"`
	Note             string                `json:"note,omitempty"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
}

// QueryConversations answers query from the conversations most similar to it.
// When the query cannot be embedded it falls back to keyword matching.
// Provider failures are reported in the answer, never returned.
func (s *Service) QueryConversations(ctx context.Context, query string, conversations []types.Conversation, topK int) *QueryResult {
	start := time.Now()
	ctx, queryID := observability.EnsureOperationID(ctx)
	if topK <= 0 {
		topK = DefaultTopK
	}

	ctx, span := observability.Tracer().Start(ctx, "intelligence.query_conversations")
	defer span.End()
	span.SetAttributes(
		attribute.String("recall.query.id", queryID),
		attribute.Int("recall.query.candidates", len(conversations)),
		attribute.Int("recall.query.top_k", topK),
	)

	var res *QueryResult
	switch {
	case len(conversations) == 0:
		res = &QueryResult{Answer: AnswerNoConversations, SearchMethod: SearchNone}
	default:
		queryVec, err := s.embed(ctx, query)
		if err != nil {
			s.logger.Info("falling back to keyword search, embeddings unavailable",
				"query_id", queryID, "error", err)
			res = s.keywordQuery(ctx, query, conversations, topK)
		} else {
			res = s.semanticQuery(ctx, query, queryVec, conversations, topK)
		}
	}

	if res.Related == nil {
		res.Related = []RelatedConversation{}
	}
	res.QueryID = queryID
	res.ProcessingTimeMs = time.Since(start).Milliseconds()

	metrics.QuerySearches.WithLabelValues(string(res.SearchMethod)).Inc()
	span.SetAttributes(
		attribute.String("recall.query.method", string(res.SearchMethod)),
		attribute.Int("recall.query.related", len(res.Related)),
		attribute.Float64("recall.query.confidence", res.Confidence),
	)
	return res
}

func (s *Service) embed(ctx context.Context, text string) ([]float64, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no embedder configured")
	}
	return s.embedder.Embed(ctx, text)
}

func (s *Service) semanticQuery(ctx context.Context, query string, queryVec []float64, conversations []types.Conversation, topK int) *QueryResult {
	ranked := s.rank(queryVec, s.candidates(ctx, conversations), topK, QueryThreshold)
	if len(ranked) == 0 {
		return &QueryResult{Answer: AnswerNoneRelevant, SearchMethod: SearchSemantic}
	}

	matched := make([]types.Conversation, len(ranked))
	for i, r := range ranked {
		matched[i] = r.Item
	}

	prompt := fmt.Sprintf(`Based on the following past conversations, answer this query:

Query: %s

Relevant Conversations:
%s

Provide a helpful, specific answer based on the conversation history. If the query cannot be answered from the given conversations, clearly state that the information is not available in the conversation history.`,
		query, contextBlock(matched, true))

	chat := s.ask(ctx, "You are a helpful assistant that answers questions about past conversations accurately.", prompt)
	if chat.Failed() {
		s.logger.Error("answer generation failed", "provider", chat.Provider, "error", chat.Error)
		return &QueryResult{Answer: AnswerError, SearchMethod: SearchSemantic}
	}

	related := make([]RelatedConversation, len(ranked))
	for i, r := range ranked {
		related[i] = relatedFrom(r.Item, r.Similarity)
	}
	return &QueryResult{
		Answer:       refineAnswer(query, chat.Content),
		Related:      related,
		Confidence:   ranked[0].Similarity,
		SearchMethod: SearchSemantic,
	}
}

// candidates embeds every conversation's retrieval text in one batch,
// skipping those without text or whose embedding fails.
func (s *Service) candidates(ctx context.Context, conversations []types.Conversation) []similarity.Candidate[types.Conversation] {
	if s.embedder == nil {
		return nil
	}
	convs := make([]types.Conversation, 0, len(conversations))
	texts := make([]string, 0, len(conversations))
	for _, conv := range conversations {
		text := candidateText(conv)
		if strings.TrimSpace(text) == "" {
			continue
		}
		convs = append(convs, conv)
		texts = append(texts, text)
	}
	if len(texts) == 0 {
		return nil
	}

	vectors := s.embedder.EmbedBatch(ctx, texts)
	out := make([]similarity.Candidate[types.Conversation], 0, len(texts))
	for i, vec := range vectors {
		if vec == nil {
			s.logger.Debug("skipping conversation, embedding failed", "conversation_id", convs[i].ID)
			continue
		}
		out = append(out, similarity.Candidate[types.Conversation]{
			ID:         convs[i].ID,
			Vector:     vec,
			SourceText: texts[i],
			Item:       convs[i],
		})
	}
	return out
}

// usableSummary reports whether a stored summary can stand in for the conversation.
func usableSummary(summary string) bool {
	summary = strings.TrimSpace(summary)
	return summary != "" && !strings.HasPrefix(summary, "Error")
}

// candidateText is the text embedded for a conversation: its summary, or
// the opening messages when the summary is missing or an error marker.
func candidateText(conv types.Conversation) string {
	if usableSummary(conv.Summary) {
		return conv.Summary
	}
	msgs := conv.Messages
	if len(msgs) > candidateMessages {
		msgs = msgs[:candidateMessages]
	}
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = m.Content
	}
	return truncate(strings.Join(parts, " "), candidateChars)
}

// contextBlock renders conversations for an answer prompt.
func contextBlock(conversations []types.Conversation, withDates bool) string {
	parts := make([]string, len(conversations))
	for i, conv := range conversations {
		header := "Conversation " + conv.ID
		if withDates {
			header += fmt.Sprintf(" (created: %s)", formatDate(conv.CreatedAt))
		}

		switch {
		case usableSummary(conv.Summary):
			parts[i] = header + ":\nSummary: " + conv.Summary
		case len(conv.Messages) > 0:
			msgs := conv.Messages
			if len(msgs) > contextMessages {
				msgs = msgs[:contextMessages]
			}
			lines := make([]string, len(msgs))
			for j, m := range msgs {
				lines[j] = m.Role.String() + ": " + truncate(m.Content, contextChars)
			}
			parts[i] = header + ":\n" + strings.Join(lines, "\n")
		default:
			parts[i] = header + ":\nNo content available"
		}
	}
	return strings.Join(parts, "\n\n")
}

var refusalPhrases = []string{"cannot be answered", "not available", "no information"}

// refineAnswer replaces a generic refusal with one naming the query.
func refineAnswer(query, answer string) string {
	lower := strings.ToLower(answer)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return fmt.Sprintf("I couldn't find specific information about '%s' in your past conversations. "+
				"The conversations I found don't contain relevant details about this topic.", query)
		}
	}
	return answer
}

func relatedFrom(conv types.Conversation, sim float64) RelatedConversation {
	summary := noSummary
	if usableSummary(conv.Summary) {
		summary = conv.Summary
	}
	return RelatedConversation{
		ID:         conv.ID,
		Similarity: sim,
		Summary:    summary,
		CreatedAt:  conv.CreatedAt,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format(time.RFC3339)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
