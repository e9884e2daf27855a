package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{"database": {"driver": "sqlite", "path": "/tmp/x.db"}, "ai": {"provider": "gemini"}}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, DriverSQLite, cfg.VectorIndex.Type)
	require.Equal(t, "gemini", cfg.AI.EmbedProvider)
	require.Equal(t, 1000, cfg.Chunker.TargetSize)
	require.Equal(t, 200, cfg.Chunker.Overlap)
	require.Equal(t, 168, cfg.Retriever.CacheTTLHour)
	require.Equal(t, 100, cfg.DNA.CacheSize)
	require.Equal(t, 60, cfg.DNA.CacheTTLMinutes)
	require.Equal(t, "empty", cfg.Insight.PlaceholderPolicy)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing driver", body: `{}`},
		{name: "sqlite without path", body: `{"database": {"driver": "sqlite"}}`},
		{name: "postgres without host", body: `{"database": {"driver": "postgres"}}`},
		{name: "bad index", body: `{"database": {"driver": "sqlite", "path": "a"}, "vector_index": {"type": "faiss"}}`},
		{name: "index on other driver", body: `{"database": {"driver": "sqlite", "path": "a"}, "vector_index": {"type": "postgres"}}`},
		{name: "fallback without provider", body: `{"database": {"driver": "sqlite", "path": "a"}, "ai": {"fallbacks": [{"model": "m"}]}}`},
		{name: "fallback without model", body: `{"database": {"driver": "sqlite", "path": "a"}, "ai": {"fallbacks": [{"provider": "openai"}]}}`},
		{name: "bad policy", body: `{"database": {"driver": "sqlite", "path": "a"}, "insight": {"placeholder_policy": "guess"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DOCMIND_DB_DSN", "postgres://x")
	t.Setenv("DOCMIND_AI_API_KEY", "secret")
	cfg, err := Load(writeConfig(t, `{"database": {"driver": "postgres"}}`))
	require.NoError(t, err)
	require.Equal(t, "postgres://x", cfg.Database.DSN)
	require.Equal(t, map[string]string{"api_key": "secret", "base_url": ""}, cfg.AI.ProviderArgs())
}

func TestLoadAIFallbacks(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{"database": {"driver": "sqlite", "path": "a"},
		"ai": {"provider": "gemini", "model": "g", "fallbacks": [{"provider": "openrouter", "model": "r", "api_key": "k"}]}}`))
	require.NoError(t, err)
	require.Len(t, cfg.AI.Fallbacks, 1)
	require.Equal(t, map[string]string{"api_key": "k", "base_url": ""}, cfg.AI.Fallbacks[0].ProviderArgs())
}
