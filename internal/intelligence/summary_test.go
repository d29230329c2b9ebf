package intelligence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blueberrycongee/recall/pkg/types"
)

var pricingChat = []types.Message{
	types.UserMessage("How much is the pro plan?"),
	types.AssistantMessage("The pro plan is $20 per month, with a 10% discount for annual billing."),
}

func TestSummarize_Empty(t *testing.T) {
	chat := &fakeChat{reply: replyWith("unused")}
	s := New(chat, nil)

	got := s.Summarize(context.Background(), nil, DepthDetailed)
	assert.Equal(t, &Summary{KeyPoints: []string{}, Topics: []string{}}, got)
	assert.Zero(t, chat.calls())
}

func TestSummarize_Structured(t *testing.T) {
	chat := &fakeChat{reply: replyWith("```json\n" + `{
		"summary": "Pricing of the pro plan.",
		"key_points": ["$20 per month", "10% annual discount"],
		"topics": ["pricing"],
		"sentiment": "neutral"
	}` + "\n```")}
	s := New(chat, nil)

	got := s.Summarize(context.Background(), pricingChat, DepthDetailed)
	assert.Equal(t, "Pricing of the pro plan.", got.Summary)
	assert.Equal(t, []string{"$20 per month", "10% annual discount"}, got.KeyPoints)
	assert.Equal(t, []string{"pricing"}, got.Topics)
	assert.Equal(t, "neutral", got.Sentiment)
	assert.Nil(t, got.Decisions)

	prompt := chat.lastPrompt()
	assert.Contains(t, prompt, "user: How much is the pro plan?")
	assert.Contains(t, prompt, "assistant: The pro plan is $20 per month")
	assert.Contains(t, prompt, "keys: summary, key_points, topics, sentiment")
}

func TestSummarize_Comprehensive(t *testing.T) {
	chat := &fakeChat{reply: replyWith(`{"summary":"s","key_points":[],"topics":[],"decisions":["ship it"],"sentiment":"positive","unresolved_items":[]}`)}
	s := New(chat, nil)

	got := s.Summarize(context.Background(), pricingChat, DepthComprehensive)
	assert.Equal(t, []string{"ship it"}, got.Decisions)
	assert.Equal(t, []string{}, got.UnresolvedItems)
	assert.Contains(t, chat.lastPrompt(), "unresolved_items")
}

func TestSummarize_RawTextFallback(t *testing.T) {
	chat := &fakeChat{reply: replyWith("  They talked about the pro plan price.  ")}
	s := New(chat, nil)

	got := s.Summarize(context.Background(), pricingChat, DepthBasic)
	assert.Equal(t, "They talked about the pro plan price.", got.Summary)
	assert.Equal(t, []string{}, got.KeyPoints)
	assert.Equal(t, []string{}, got.Topics)
	assert.Contains(t, chat.lastPrompt(), "2-3 sentence summary")
}

func TestSummarize_ChatError(t *testing.T) {
	chat := &fakeChat{reply: failWith("[rate_limit_error] quota (code=429)")}
	s := New(chat, nil)

	got := s.Summarize(context.Background(), pricingChat, DepthDetailed)
	assert.Equal(t, ErrorSummary, got.Summary)
	assert.Empty(t, got.KeyPoints)
}

func TestParseDepth(t *testing.T) {
	assert.Equal(t, DepthBasic, ParseDepth("Basic"))
	assert.Equal(t, DepthComprehensive, ParseDepth(" comprehensive "))
	assert.Equal(t, DepthDetailed, ParseDepth("detailed"))
	assert.Equal(t, DepthDetailed, ParseDepth("whatever"))
}
