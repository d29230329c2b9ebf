package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueberrycongee/recall/internal/config"
	"github.com/blueberrycongee/recall/internal/embedcache"
	"github.com/blueberrycongee/recall/internal/intelligence"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "GROQ_API_KEY", "COHERE_API_KEY", "GROQ_MODEL", "COHERE_MODEL"} {
		t.Setenv(k, "")
	}
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestProvidersCommand(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("COHERE_API_KEY", "co-test")

	out, err := run(t, "", "providers")
	require.NoError(t, err)

	var got struct {
		Providers []struct {
			Name      string `json:"name"`
			Available bool   `json:"available"`
		} `json:"providers"`
		Recommended string `json:"recommended"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "cohere", got.Recommended)
	require.Len(t, got.Providers, 3)
	for _, p := range got.Providers {
		assert.Equal(t, p.Name == "cohere", p.Available, p.Name)
	}
}

func TestQueryCommand_KeywordFallback(t *testing.T) {
	clearProviderEnv(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer gsk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"You covered pricing tiers."}}],"usage":{"total_tokens":9}}`))
	}))
	defer server.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "recall.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
providers:
  groq:
    api_key: gsk-test
    base_url: `+server.URL+`
chat:
  provider: groq
logging:
  level: error
`), 0o600))

	convs := `[
		{"id":"c1","summary":"We discussed pricing tiers and discounts"},
		{"id":"c2","summary":"Offsite planning"}
	]`
	out, err := run(t, convs, "query", "--config", cfgPath, "What", "about", "pricing?")
	require.NoError(t, err)

	var res intelligence.QueryResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, intelligence.SearchKeyword, res.SearchMethod)
	assert.Equal(t, "You covered pricing tiers.", res.Answer)
	assert.Equal(t, intelligence.KeywordConfidence, res.Confidence)
	require.Len(t, res.Related, 1)
	assert.Equal(t, "c1", res.Related[0].ID)
}

func TestChatCommand_NoProvider(t *testing.T) {
	clearProviderEnv(t)

	_, err := run(t, "", "chat", "hello")
	assert.ErrorContains(t, err, "no chat provider available")
}

func TestCacheStatsCommand(t *testing.T) {
	clearProviderEnv(t)

	dir := t.TempDir()
	dsn := filepath.Join(dir, "cache.db")
	cfgPath := filepath.Join(dir, "recall.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
cache:
  enabled: true
  backend: sqlite
  sql:
    dsn: `+dsn+`
    table: embedding_cache
logging:
  level: error
`), 0o600))

	ctx := context.Background()
	store, err := openCacheStore(ctx, config.CacheConfig{
		Backend: config.BackendSQLite,
		SQL:     config.SQLConfig{DSN: dsn, Table: "embedding_cache"},
	})
	require.NoError(t, err)
	cache, err := embedcache.New(store)
	require.NoError(t, err)
	_, err = cache.Put(ctx, "we discussed pricing", "models/text-embedding-004", []float64{0.1, 0.2})
	require.NoError(t, err)
	require.NoError(t, cache.Close())

	out, err := run(t, "", "cache", "stats", "--config", cfgPath)
	require.NoError(t, err)

	var got struct {
		Backend string           `json:"backend"`
		Entries int64            `json:"entries"`
		Stats   embedcache.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, config.BackendSQLite, got.Backend)
	assert.EqualValues(t, 1, got.Entries)
	assert.Zero(t, got.Stats.Hits)
}

func TestCacheStatsCommand_Disabled(t *testing.T) {
	clearProviderEnv(t)

	cfgPath := filepath.Join(t.TempDir(), "recall.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("cache:\n  enabled: false\nlogging:\n  level: error\n"), 0o600))

	_, err := run(t, "", "cache", "stats", "--config", cfgPath)
	assert.ErrorContains(t, err, "embedding cache is disabled")
}
