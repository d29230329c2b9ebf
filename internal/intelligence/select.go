package intelligence

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/blueberrycongee/recall/internal/provider"
)

// SelectRouter binds the preferred provider, or the recommended one when
// preferred is empty. If that fails it tries the recommended provider and
// then the rest in priority order. Explicit key and model only apply to the
// provider that was asked for.
func SelectRouter(reg *provider.Registry, preferred string, sel provider.Selection, logger *slog.Logger) (*provider.Router, error) {
	if logger == nil {
		logger = slog.Default()
	}
	preferred = strings.ToLower(strings.TrimSpace(preferred))
	if preferred == "" {
		preferred = reg.Recommended(sel.Preferences)
	}

	router, err := reg.NewRouter(preferred, sel)
	if err == nil {
		return router, nil
	}
	firstErr := err

	fallback := provider.Selection{Preferences: sel.Preferences}
	tried := map[string]bool{preferred: true}
	order := append([]string{reg.Recommended(sel.Preferences)}, provider.Priority...)
	for _, name := range order {
		if tried[name] {
			continue
		}
		tried[name] = true

		router, err = reg.NewRouter(name, fallback)
		if err != nil {
			continue
		}
		logger.Warn("preferred provider unavailable, using fallback",
			"preferred", preferred,
			"provider", name,
			"error", firstErr,
		)
		return router, nil
	}

	return nil, fmt.Errorf("no chat provider available: %w", firstErr)
}
