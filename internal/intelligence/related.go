package intelligence

import (
	"context"

	"github.com/blueberrycongee/recall/pkg/types"
)

const (
	// DefaultSuggestions is used when SuggestRelated is given a non-positive topK.
	DefaultSuggestions = 3
	// RelatedThreshold is the minimum similarity for a suggestion.
	RelatedThreshold = 0.6
)

// SuggestRelated returns past conversations similar to currentText, best
// first. It returns an empty list when currentText cannot be embedded.
func (s *Service) SuggestRelated(ctx context.Context, currentText string, past []types.Conversation, topK int) []RelatedConversation {
	if len(past) == 0 {
		return []RelatedConversation{}
	}
	if topK <= 0 {
		topK = DefaultSuggestions
	}

	vec, err := s.embed(ctx, currentText)
	if err != nil {
		s.logger.Debug("no suggestions, embedding unavailable", "error", err)
		return []RelatedConversation{}
	}

	ranked := s.rank(vec, s.candidates(ctx, past), topK, RelatedThreshold)
	out := make([]RelatedConversation, len(ranked))
	for i, r := range ranked {
		out[i] = relatedFrom(r.Item, r.Similarity)
	}
	return out
}
