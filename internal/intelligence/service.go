// Package intelligence turns past conversations into summaries, topics,
// sentiment verdicts and grounded answers. It is the only package that
// combines chat providers with embeddings.
package intelligence

import (
	"context"
	"log/slog"

	"github.com/blueberrycongee/recall/internal/embedding"
	"github.com/blueberrycongee/recall/internal/provider"
	"github.com/blueberrycongee/recall/internal/similarity"
	"github.com/blueberrycongee/recall/pkg/types"
)

// ChatClient is a bound chat provider. *provider.Router satisfies it.
type ChatClient interface {
	Name() string
	Model() string
	Chat(ctx context.Context, messages []types.Message, opts ...provider.ChatOption) types.ChatResult
}

// Embedder produces embeddings. *embedding.Service satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string, opts ...embedding.EmbedOption) ([]float64, error)
	// EmbedBatch returns one vector per text, nil where a text could not be embedded.
	EmbedBatch(ctx context.Context, texts []string, opts ...embedding.EmbedOption) [][]float64
}

type rankFunc func(query []float64, candidates []similarity.Candidate[types.Conversation], topK int, threshold float64) []similarity.Ranked[types.Conversation]

// Service is the conversation intelligence service.
type Service struct {
	chat     ChatClient
	embedder Embedder
	rank     rankFunc
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Service. A nil embedder makes every query take the keyword path.
func New(chat ChatClient, embedder Embedder, opts ...Option) *Service {
	s := &Service{
		chat:     chat,
		embedder: embedder,
		rank:     similarity.FindSimilar[types.Conversation],
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider returns the name of the bound chat provider.
func (s *Service) Provider() string {
	return s.chat.Name()
}

func (s *Service) ask(ctx context.Context, system, prompt string) types.ChatResult {
	return s.chat.Chat(ctx, []types.Message{
		types.SystemMessage(system),
		types.UserMessage(prompt),
	})
}
