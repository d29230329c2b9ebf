package intelligence

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/blueberrycongee/recall/pkg/types"
)

const (
	keywordNote   = "Results based on keyword matching. Semantic search unavailable."
	noMatchesNote = "No keyword matches found"
)

type keywordMatch struct {
	conv  types.Conversation
	score int
}

// keywordQuery ranks conversations by how many distinct query words they
// contain. It never embeds anything and never consults the ranker.
func (s *Service) keywordQuery(ctx context.Context, query string, conversations []types.Conversation, topK int) *QueryResult {
	queryWords := wordSet(query)
	if len(queryWords) == 0 {
		return &QueryResult{Answer: AnswerNoneRelevant, SearchMethod: SearchKeyword, Note: noMatchesNote}
	}

	var matches []keywordMatch
	for _, conv := range conversations {
		words := wordSet(keywordText(conv))
		score := 0
		for w := range queryWords {
			if _, ok := words[w]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, keywordMatch{conv: conv, score: score})
		}
	}
	if len(matches) == 0 {
		return &QueryResult{Answer: AnswerNoneRelevant, SearchMethod: SearchKeyword, Note: noMatchesNote}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	matched := make([]types.Conversation, len(matches))
	related := make([]RelatedConversation, len(matches))
	for i, m := range matches {
		matched[i] = m.conv
		related[i] = relatedFrom(m.conv, float64(m.score)/float64(len(queryWords)))
	}

	prompt := fmt.Sprintf(`Based on these past conversations, answer this query:

Query: %s

Relevant Conversations:
%s

Note: Semantic search is currently unavailable, so results are based on keyword matching.

Provide a helpful answer based on the conversation history. If the information is not available, clearly state that.`,
		query, contextBlock(matched, false))

	answer := AnswerError
	chat := s.ask(ctx, "You are a helpful assistant.", prompt)
	if chat.Failed() {
		s.logger.Error("keyword answer generation failed", "provider", chat.Provider, "error", chat.Error)
	} else {
		answer = chat.Content
	}

	return &QueryResult{
		Answer:       answer,
		Related:      related,
		Confidence:   KeywordConfidence,
		SearchMethod: SearchKeyword,
		Note:         keywordNote,
	}
}

// keywordText is the lowercased text searched for a conversation.
func keywordText(conv types.Conversation) string {
	var b strings.Builder
	if usableSummary(conv.Summary) {
		b.WriteString(conv.Summary)
	}
	msgs := conv.Messages
	if len(msgs) > candidateMessages {
		msgs = msgs[:candidateMessages]
	}
	for _, m := range msgs {
		b.WriteByte(' ')
		b.WriteString(m.Content)
	}
	return b.String()
}

// wordSet splits text on anything that is not a letter or digit and
// returns the distinct lowercase words.
func wordSet(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}
