package groq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/provider"
)

func TestNew(t *testing.T) {
	a, err := New(provider.Config{APIKey: "gsk_test"})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, a.Name())

	req, err := a.BuildRequest(context.Background(), &provider.Request{Model: DefaultModel, Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "https://api.groq.com/openai/v1/chat/completions", req.URL.String())
	assert.Equal(t, "Bearer gsk_test", req.Header.Get("Authorization"))
}

func TestSpec(t *testing.T) {
	s := Spec()
	assert.Equal(t, "groq", s.Name)
	assert.Equal(t, "llama-3.3-70b-versatile", s.DefaultModel)
	assert.Contains(t, s.Models, s.DefaultModel)
	assert.NotNil(t, s.Factory)
}
