// Package providers assembles the registry of built-in chat providers.
package providers

import (
	"github.com/blueberrycongee/recall/internal/provider"
	"github.com/blueberrycongee/recall/internal/provider/cohere"
	"github.com/blueberrycongee/recall/internal/provider/gemini"
	"github.com/blueberrycongee/recall/internal/provider/groq"
)

// Specs returns the built-in provider specs in display order.
func Specs() []provider.Spec {
	return []provider.Spec{
		gemini.Spec(),
		groq.Spec(),
		cohere.Spec(),
	}
}

// NewRegistry returns a registry with every built-in provider registered.
func NewRegistry(opts ...provider.Option) *provider.Registry {
	r := provider.NewRegistry(opts...)
	for _, spec := range Specs() {
		r.Register(spec)
	}
	return r
}
