package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/blueberrycongee/recall/pkg/types"
)

var (
	// ErrUnknownProvider is returned for provider names the registry has never seen.
	ErrUnknownProvider = errors.New("unknown provider")
	// ErrProviderUnavailable is returned when a provider has no adapter or no API key.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Priority is the fixed recommendation order, best free tier first.
var Priority = []string{"groq", "gemini", "cohere"}

// DefaultRecommendation is recommended when no provider is available.
const DefaultRecommendation = "gemini"

// Spec is the static description of one provider.
type Spec struct {
	Name         string
	DefaultModel string
	Models       []string
	FreeTier     string
	BestFor      string
	// Factory builds the adapter. A nil factory marks the adapter as not installed.
	Factory Factory
}

// Settings are the process-wide settings of one provider.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Preferences exposes one user's provider overrides.
// Empty strings mean "no override".
type Preferences interface {
	APIKey(provider string) string
	PreferredModel(provider string) string
}

// ChatDefaults apply when a chat call does not set temperature or max tokens.
type ChatDefaults struct {
	Temperature float64
	MaxTokens   int
}

// DefaultChatDefaults returns the stock sampling defaults.
func DefaultChatDefaults() ChatDefaults {
	return ChatDefaults{Temperature: 0.7, MaxTokens: 2048}
}

// Selection carries the per-call inputs of router construction.
type Selection struct {
	// APIKey overrides every other key source when set.
	APIKey string
	// Model overrides every other model source when set.
	Model string
	// Preferences holds user-level overrides; may be nil.
	Preferences Preferences
}

// Registry is the capability registry of chat providers. It is built once at
// start-up and is read-only afterwards apart from Register/Configure.
type Registry struct {
	mu       sync.RWMutex
	specs    map[string]Spec
	order    []string
	system   map[string]Settings
	defaults ChatDefaults
	client   *http.Client
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithHTTPClient sets the HTTP client shared by all routers.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Registry) {
		r.client = c
	}
}

// WithLogger sets the logger handed to routers.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithChatDefaults overrides the sampling defaults.
func WithChatDefaults(d ChatDefaults) Option {
	return func(r *Registry) {
		r.defaults = d
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		specs:    make(map[string]Spec),
		system:   make(map[string]Settings),
		defaults: DefaultChatDefaults(),
		client:   &http.Client{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces a provider spec.
func (r *Registry) Register(spec Spec) {
	name := normalize(spec.Name)
	spec.Name = name

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.specs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.specs[name] = spec
}

// Configure sets the system-level settings of a provider.
func (r *Registry) Configure(name string, s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.system[normalize(name)] = s
}

// Names returns provider names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Spec returns the spec registered under name.
func (r *Registry) Spec(name string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[normalize(name)]
	return s, ok
}

// ResolveKey picks the API key: explicit, then user override, then system default.
func (r *Registry) ResolveKey(name, explicit string, prefs Preferences) string {
	if explicit != "" {
		return explicit
	}
	name = normalize(name)
	if prefs != nil {
		if k := prefs.APIKey(name); k != "" {
			return k
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.system[name].APIKey
}

// ResolveModel picks the model: explicit, then user preference, then the
// configured system model, then the provider default.
func (r *Registry) ResolveModel(name, explicit string, prefs Preferences) string {
	if explicit != "" {
		return explicit
	}
	name = normalize(name)
	if prefs != nil {
		if m := prefs.PreferredModel(name); m != "" {
			return m
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m := r.system[name].Model; m != "" {
		return m
	}
	return r.specs[name].DefaultModel
}

// Available reports whether the provider's adapter is installed and a key resolves.
func (r *Registry) Available(name string, prefs Preferences) bool {
	spec, ok := r.Spec(name)
	if !ok || spec.Factory == nil {
		return false
	}
	return r.ResolveKey(name, "", prefs) != ""
}

// Descriptors describes every registered provider in registration order.
func (r *Registry) Descriptors(prefs Preferences) []types.ProviderDescriptor {
	names := r.Names()
	out := make([]types.ProviderDescriptor, 0, len(names))
	for _, name := range names {
		spec, _ := r.Spec(name)
		out = append(out, types.ProviderDescriptor{
			Name:         name,
			Available:    r.Available(name, prefs),
			Models:       append([]string(nil), spec.Models...),
			DefaultModel: spec.DefaultModel,
			FreeTier:     spec.FreeTier,
			BestFor:      spec.BestFor,
		})
	}
	return out
}

// Recommended returns the first available provider in Priority order,
// or DefaultRecommendation when none is available.
func (r *Registry) Recommended(prefs Preferences) string {
	for _, name := range Priority {
		if r.Available(name, prefs) {
			return name
		}
	}
	return DefaultRecommendation
}

// NewRouter binds the named provider. It fails when the provider is unknown,
// its adapter is not installed or no API key resolves; it never substitutes
// another provider.
func (r *Registry) NewRouter(name string, sel Selection) (*Router, error) {
	name = normalize(name)
	spec, ok := r.Spec(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if spec.Factory == nil {
		return nil, fmt.Errorf("%w: %s adapter is not installed", ErrProviderUnavailable, name)
	}

	key := r.ResolveKey(name, sel.APIKey, sel.Preferences)
	if key == "" {
		return nil, fmt.Errorf("%w: no API key configured for %s", ErrProviderUnavailable, name)
	}

	r.mu.RLock()
	system := r.system[name]
	r.mu.RUnlock()

	adapter, err := spec.Factory(Config{
		Name:    name,
		APIKey:  key,
		BaseURL: system.BaseURL,
		Timeout: system.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create provider %s: %w", name, err)
	}

	router := NewRouterWithAdapter(adapter, r.ResolveModel(name, sel.Model, sel.Preferences), r.client, r.logger)
	router.name = name
	router.timeout = system.Timeout
	router.defaults = r.defaults
	return router, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
