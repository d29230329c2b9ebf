package intelligence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blueberrycongee/recall/pkg/types"
)

func TestExtractTopics(t *testing.T) {
	chat := &fakeChat{reply: replyWith("1. Pricing tiers\n- Annual discounts\n\n• Billing cycle\n* Refund policy\n2) Team seats\n3D printing")}
	s := New(chat, nil)

	msgs := append([]types.Message{types.SystemMessage("hidden instructions")}, pricingChat...)
	got := s.ExtractTopics(context.Background(), msgs, 4)

	assert.Equal(t, []string{"Pricing tiers", "Annual discounts", "Billing cycle", "Refund policy"}, got)
	assert.Contains(t, chat.lastPrompt(), "Extract the 4 main topics")
	assert.NotContains(t, chat.lastPrompt(), "hidden instructions")
}

func TestExtractTopics_DefaultLimit(t *testing.T) {
	chat := &fakeChat{reply: replyWith("a\nb\nc\nd\ne\nf\ng")}
	s := New(chat, nil)

	got := s.ExtractTopics(context.Background(), pricingChat, 0)
	assert.Len(t, got, DefaultMaxTopics)
	assert.Contains(t, chat.lastPrompt(), "Extract the 5 main topics")
}

func TestExtractTopics_Failures(t *testing.T) {
	chat := &fakeChat{reply: failWith("boom")}
	s := New(chat, nil)

	assert.Equal(t, []string{}, s.ExtractTopics(context.Background(), pricingChat, 3))
	assert.Equal(t, []string{}, s.ExtractTopics(context.Background(), nil, 3))
	assert.Equal(t, 1, chat.calls())
}

func TestParseTopics_KeepsLeadingDigitsInWords(t *testing.T) {
	assert.Equal(t, []string{"3D printing", "Budget"}, parseTopics("3D printing\n10. Budget", 5))
}
