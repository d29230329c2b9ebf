package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/metrics"
	llmerrors "github.com/blueberrycongee/recall/pkg/errors"
)

// ErrEmptyText is returned for empty or whitespace-only input. No cache or
// provider call is made for it.
var ErrEmptyText = errors.New("embedding: empty text")

// UnavailableError reports that the embedding provider could not produce a
// vector. Kind tells quota exhaustion apart from other provider failures;
// callers treat both as "embedding unavailable".
type UnavailableError struct {
	Kind llmerrors.ErrorKind
	Err  error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("embedding unavailable (%s): %v", e.Kind, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind carried by err, or KindNone.
func KindOf(err error) llmerrors.ErrorKind {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	if err == nil {
		return llmerrors.KindNone
	}
	return llmerrors.Classify(err)
}

// Service is the cache-first embedding service.
type Service struct {
	embedder Embedder
	cache    *embedcache.Cache
	logger   *slog.Logger
	flights  singleflight.Group
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service. A nil cache disables caching entirely.
func NewService(embedder Embedder, cache *embedcache.Cache, opts ...ServiceOption) *Service {
	s := &Service{
		embedder: embedder,
		cache:    cache,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the embedding model used for cache keys.
func (s *Service) Model() string {
	return s.embedder.Model()
}

type embedOptions struct {
	useCache bool
}

// EmbedOption adjusts a single Embed call.
type EmbedOption func(*embedOptions)

// NoCache bypasses the cache for reads and writes.
func NoCache() EmbedOption {
	return func(o *embedOptions) {
		o.useCache = false
	}
}

// Embed returns the embedding of text. Cached vectors are returned without a
// provider call. Concurrent misses for the same text share one provider call;
// a caller whose ctx ends stops waiting without failing the others.
// The returned slice may be shared with other callers and must not be modified.
func (s *Service) Embed(ctx context.Context, text string, opts ...EmbedOption) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}

	o := s.options(opts)
	model := s.embedder.Model()
	if o.useCache {
		entry, err := s.cache.Get(ctx, text, model)
		if err != nil {
			s.logger.Warn("embedding cache read failed", "model", model, "error", err)
		} else if entry != nil {
			return entry.Vector, nil
		}
	}

	key := embedcache.KeyFor(text, model).String()
	if !o.useCache {
		key += "|nocache"
	}
	// The shared fetch outlives any single caller; the embedder's HTTP
	// timeout still bounds it.
	flight := context.WithoutCancel(ctx)
	ch := s.flights.DoChan(key, func() (any, error) {
		return s.fetch(flight, text, model, o.useCache)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]float64), nil
	}
}

func (s *Service) options(opts []EmbedOption) embedOptions {
	o := embedOptions{useCache: s.cache != nil}
	for _, opt := range opts {
		opt(&o)
	}
	if s.cache == nil {
		o.useCache = false
	}
	return o
}

// unavailable classifies a provider failure, records it and wraps it.
func (s *Service) unavailable(model string, err error) *UnavailableError {
	kind := llmerrors.Classify(err)
	if kind == llmerrors.KindQuotaExceeded {
		metrics.EmbeddingProviderCalls.WithLabelValues(metrics.StatusQuota).Inc()
		s.logger.Warn("embedding quota exceeded, semantic search degraded", "model", model, "error", err)
	} else {
		kind = llmerrors.KindGenericProviderError
		metrics.EmbeddingProviderCalls.WithLabelValues(metrics.StatusError).Inc()
		s.logger.Error("embedding provider error", "model", model, "error", err)
	}
	return &UnavailableError{Kind: kind, Err: err}
}

// checkVector rejects empty vectors and, when the embedder declares a
// dimension, vectors of any other length.
func (s *Service) checkVector(model string, vector []float64) error {
	if len(vector) == 0 {
		return llmerrors.NewInternalError("", model, "empty embedding returned")
	}
	if dim := s.embedder.Dimension(); dim > 0 && len(vector) != dim {
		return llmerrors.NewInternalError("", model,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(vector), dim))
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, text, model string, useCache bool) ([]float64, error) {
	vector, err := s.embedder.Embed(ctx, text)
	if err == nil {
		err = s.checkVector(model, vector)
	}
	if err != nil {
		return nil, s.unavailable(model, err)
	}
	metrics.EmbeddingProviderCalls.WithLabelValues(metrics.StatusSuccess).Inc()

	if useCache {
		if _, err := s.cache.Put(ctx, text, model, vector); err != nil {
			s.logger.Warn("embedding cache write failed", "model", model, "error", err)
		}
	}
	return vector, nil
}

// EmbedBatch embeds texts positionally. Entries for empty texts or failed
// embeddings are nil. Cached texts are served from the cache and the
// remaining distinct texts go to the provider in one batch request.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, opts ...EmbedOption) [][]float64 {
	out := make([][]float64, len(texts))
	o := s.options(opts)
	model := s.embedder.Model()

	found := make(map[string][]float64, len(texts))
	var missing []string
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			continue
		}
		if _, seen := found[text]; seen {
			continue
		}
		found[text] = nil
		if o.useCache {
			entry, err := s.cache.Get(ctx, text, model)
			if err != nil {
				s.logger.Warn("embedding cache read failed", "model", model, "error", err)
			} else if entry != nil {
				found[text] = entry.Vector
				continue
			}
		}
		missing = append(missing, text)
	}

	if len(missing) > 0 {
		vectors, err := s.fetchBatch(ctx, missing, model, o.useCache)
		if err != nil {
			s.logger.Debug("batch not embedded", "texts", len(missing), "error", err)
		}
		for i, v := range vectors {
			found[missing[i]] = v
		}
	}

	for i, text := range texts {
		out[i] = found[text]
	}
	return out
}

func (s *Service) fetchBatch(ctx context.Context, texts []string, model string, useCache bool) ([][]float64, error) {
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = llmerrors.NewInternalError("", model,
			fmt.Sprintf("batch returned %d embeddings for %d texts", len(vectors), len(texts)))
	}
	if err != nil {
		return nil, s.unavailable(model, err)
	}
	metrics.EmbeddingProviderCalls.WithLabelValues(metrics.StatusSuccess).Inc()

	for i, vector := range vectors {
		if err := s.checkVector(model, vector); err != nil {
			s.logger.Warn("discarding batch embedding", "index", i, "error", err)
			vectors[i] = nil
			continue
		}
		if useCache {
			if _, err := s.cache.Put(ctx, texts[i], model, vector); err != nil {
				s.logger.Warn("embedding cache write failed", "model", model, "error", err)
			}
		}
	}
	return vectors, nil
}
