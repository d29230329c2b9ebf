package intelligence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/pkg/types"
)

func TestSuggestRelated(t *testing.T) {
	emb := &topicEmbedder{axes: []string{"pricing", "offsite"}}
	s := New(&fakeChat{reply: replyWith("unused")}, emb)

	got := s.SuggestRelated(context.Background(), "Let's revisit pricing", pricingConversations(), 0)
	require.Len(t, got, 1)
	assert.Equal(t, "conv-pricing", got[0].ID)
}

func TestSuggestRelated_Threshold(t *testing.T) {
	// A text mentioning both axes scores ~0.70 against each single-axis summary.
	emb := &topicEmbedder{axes: []string{"pricing", "offsite"}}
	s := New(&fakeChat{reply: replyWith("unused")}, emb)

	got := s.SuggestRelated(context.Background(), "pricing for the offsite", pricingConversations(), 5)
	assert.Len(t, got, 2)
	for _, r := range got {
		assert.GreaterOrEqual(t, r.Similarity, RelatedThreshold)
	}
}

func TestSuggestRelated_EmbeddingUnavailable(t *testing.T) {
	s := New(&fakeChat{reply: replyWith("unused")}, &topicEmbedder{fail: errQuota})
	assert.Equal(t, []RelatedConversation{}, s.SuggestRelated(context.Background(), "pricing", pricingConversations(), 3))
}

func TestSuggestRelated_NoPast(t *testing.T) {
	emb := &topicEmbedder{}
	s := New(&fakeChat{reply: replyWith("unused")}, emb)

	assert.Equal(t, []RelatedConversation{}, s.SuggestRelated(context.Background(), "pricing", []types.Conversation{}, 3))
	assert.Zero(t, emb.calls())
}
