package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blueberrycongee/recall/internal/config"
	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/embedding"
	"github.com/blueberrycongee/recall/internal/intelligence"
	"github.com/blueberrycongee/recall/internal/observability"
	"github.com/blueberrycongee/recall/internal/provider"
	"github.com/blueberrycongee/recall/internal/provider/providers"
	"github.com/blueberrycongee/recall/internal/settings"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath  string
	userID      string
	provider    string
	model       string
	apiKey      string
	metricsAddr string
}

// app holds the wired components for one command invocation.
type app struct {
	cfg      *config.Config
	logger   *observability.Logger
	registry *provider.Registry
	users    settings.Store
	cache    *embedcache.Cache
	embedder *embedding.Service
	tracer   *observability.TracerProvider
	metrics  *http.Server
	flags    globalFlags
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	cfg := config.DefaultConfig()
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func newApp(ctx context.Context, flags globalFlags) (*app, error) {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	level, _ := observability.ParseLevel(cfg.Logging.Level) //nolint:errcheck // validated by config
	logger := observability.NewLogger(observability.LoggerConfig{
		Level:      level,
		Output:     os.Stderr,
		JSONFormat: cfg.Logging.Format == "json",
	}, observability.NewRedactor())

	a := &app{cfg: cfg, logger: logger, flags: flags}

	a.tracer, err = observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	a.registry = providers.NewRegistry(
		provider.WithLogger(logger.Slog()),
		provider.WithChatDefaults(provider.ChatDefaults{
			Temperature: cfg.Chat.Temperature,
			MaxTokens:   cfg.Chat.MaxTokens,
		}),
	)
	for name, p := range cfg.Providers.ByName() {
		a.registry.Configure(name, provider.Settings{
			APIKey:  p.APIKey,
			Model:   p.Model,
			BaseURL: p.BaseURL,
			Timeout: p.Timeout,
		})
	}
	a.users = settings.NewCachedStore(settings.NewStaticStore(cfg.Users), settings.DefaultCacheTTL)

	addr := flags.metricsAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}
	if addr != "" {
		a.metrics = serveMetrics(addr, cfg.Metrics.Path, logger)
	}
	return a, nil
}

// preferences returns the overrides of the user named by --user, or nil.
func (a *app) preferences(ctx context.Context) (*settings.UserSettings, error) {
	if a.flags.userID == "" {
		return nil, nil
	}
	return a.users.Get(ctx, a.flags.userID)
}

// router binds the chat provider for this invocation: --provider, then the
// user's preferred provider, then chat.provider, then the recommendation.
func (a *app) router(ctx context.Context) (*provider.Router, error) {
	prefs, err := a.preferences(ctx)
	if err != nil {
		return nil, err
	}

	name := a.flags.provider
	if name == "" {
		name = prefs.Provider()
	}
	if name == "" {
		name = a.cfg.Chat.Provider
	}

	sel := provider.Selection{APIKey: a.flags.apiKey, Model: a.flags.model}
	if prefs != nil {
		sel.Preferences = prefs
	}
	return intelligence.SelectRouter(a.registry, name, sel, a.logger.Slog())
}

// embeddings lazily builds the cache and the embedding service. Without an
// embedding key it returns nil and queries use keyword search.
func (a *app) embeddings(ctx context.Context) (*embedding.Service, error) {
	if a.embedder != nil {
		return a.embedder, nil
	}

	embedder, err := newEmbedder(a.cfg.Embedding)
	if err != nil {
		a.logger.Warn("embeddings disabled", "error", err)
		return nil, nil
	}

	cache, err := a.embeddingCache(ctx)
	if err != nil {
		return nil, err
	}
	a.embedder = embedding.NewService(embedder, cache, embedding.WithLogger(a.logger.Slog()))
	return a.embedder, nil
}

// embeddingCache opens the configured cache once. It returns nil when
// caching is disabled.
func (a *app) embeddingCache(ctx context.Context) (*embedcache.Cache, error) {
	if a.cache != nil || !a.cfg.Cache.Enabled {
		return a.cache, nil
	}
	store, err := openCacheStore(ctx, a.cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("open embedding cache: %w", err)
	}
	cache, err := embedcache.New(store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.cache = cache
	return cache, nil
}

func (a *app) intelligenceService(ctx context.Context) (*intelligence.Service, error) {
	router, err := a.router(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := a.embeddings(ctx)
	if err != nil {
		return nil, err
	}

	var embedder intelligence.Embedder
	if emb != nil {
		embedder = emb
	}
	return intelligence.New(router, embedder, intelligence.WithLogger(a.logger.Slog())), nil
}

func newEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			APIKey:    cfg.APIKey,
			APIBase:   cfg.BaseURL,
			Model:     cfg.Model,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	default:
		return embedding.NewGeminiEmbedder(embedding.GeminiConfig{
			APIKey:    cfg.APIKey,
			APIBase:   cfg.BaseURL,
			Model:     cfg.Model,
			TaskType:  cfg.TaskType,
			Dimension: cfg.Dimension,
			Timeout:   cfg.Timeout,
		})
	}
}

func serveMetrics(addr, path string, logger *observability.Logger) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle("GET "+path, promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr, "path", path)
	return srv
}

// Close releases the cache, flushes traces and stops the metrics server.
func (a *app) Close(ctx context.Context) {
	if a.cache != nil {
		if st := a.cache.Stats(); st.Hits+st.Misses > 0 {
			a.logger.Info("embedding cache stats",
				"hits", st.Hits,
				"misses", st.Misses,
				"puts", st.Puts,
				"errors", st.Errors,
				"hit_rate", st.HitRate,
			)
		}
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close embedding cache", "error", err)
		}
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			a.logger.Warn("shutdown tracing", "error", err)
		}
	}
	if a.metrics != nil {
		_ = a.metrics.Shutdown(ctx)
	}
}
