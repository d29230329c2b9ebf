package intelligence

import (
	"context"
	"fmt"
	"strings"

	"github.com/blueberrycongee/recall/pkg/types"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
	SentimentMixed    = "mixed"
)

// Sentiment is the overall sentiment verdict for a conversation.
type Sentiment struct {
	Label      string  `json:"sentiment"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

// AnalyzeSentiment classifies the overall sentiment of messages. Answers that
// are not valid JSON are scanned for sentiment words instead.
func (s *Service) AnalyzeSentiment(ctx context.Context, messages []types.Message) Sentiment {
	if len(messages) == 0 {
		return Sentiment{Label: SentimentNeutral}
	}

	prompt := fmt.Sprintf(`Analyze the overall sentiment of this conversation.
Classify it as: positive, negative, neutral, or mixed.
Also provide a confidence score (0-1).

Conversation:
%s

Respond in JSON format with keys: sentiment, confidence, reasoning`, transcript(messages))

	res := s.ask(ctx, "You are a sentiment analysis expert.", prompt)
	if res.Failed() {
		s.logger.Warn("sentiment analysis failed", "provider", res.Provider, "error", res.Error)
		return Sentiment{Label: SentimentNeutral}
	}

	var out Sentiment
	if err := decodeStructured(res.Content, &out); err == nil {
		out.Label = strings.ToLower(strings.TrimSpace(out.Label))
		if validSentiment(out.Label) {
			out.Confidence = clamp01(out.Confidence)
			return out
		}
	}
	return scanSentiment(res.Content)
}

// scanSentiment checks for sentiment words in a fixed order.
func scanSentiment(text string) Sentiment {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, SentimentPositive):
		return Sentiment{Label: SentimentPositive, Confidence: 0.7}
	case strings.Contains(lower, SentimentNegative):
		return Sentiment{Label: SentimentNegative, Confidence: 0.7}
	case strings.Contains(lower, SentimentMixed):
		return Sentiment{Label: SentimentMixed, Confidence: 0.6}
	default:
		return Sentiment{Label: SentimentNeutral, Confidence: 0.6}
	}
}

func validSentiment(label string) bool {
	switch label {
	case SentimentPositive, SentimentNegative, SentimentNeutral, SentimentMixed:
		return true
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
