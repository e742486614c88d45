package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ownlingo/gamelingo/config"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	f, err := config.Load(filepath.Join(t.TempDir(), config.FileName))
	require.NoError(t, err)
	require.Equal(t, config.ProviderOpenAI, f.Provider.Name)
	require.Equal(t, "OPENAI_API_KEY", f.Provider.APIKeyEnv)
	require.Equal(t, 0.8, f.Translation.Limit)
	require.Equal(t, 3, f.Translation.Attempts)
	require.Equal(t, 50, f.Translation.ChunkLines)
	require.False(t, f.Summary.Enabled)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.FileName)
	require.NoError(t, os.WriteFile(path, []byte(`
provider:
  name: Anthropic
  model: claude-sonnet-4-20250514
  rpm: 10
fallback:
  - name: openai
    api_key_env: MY_OPENAI_KEY
translation:
  language: German
  limit: 0.5
  chunk_lines: 20
  call_timeout: 90s
  sentence_boundary: '(?<=[.!?])\s+'
summary:
  enabled: true
  max_length: 500
names: names.properties
lore: [world.txt, /abs/chars.txt]
cache: cache.db
`), 0o644))

	f, err := config.Load(path)
	require.NoError(t, err)

	require.Equal(t, "anthropic", f.Provider.Name)
	require.Equal(t, "ANTHROPIC_API_KEY", f.Provider.APIKeyEnv)
	require.Equal(t, 10, f.Provider.RPM)
	require.Len(t, f.Fallback, 1)
	require.Equal(t, "MY_OPENAI_KEY", f.Fallback[0].APIKeyEnv)

	require.Equal(t, "German", f.Translation.Language)
	require.Equal(t, 0.5, f.Translation.Limit)
	require.Equal(t, 3, f.Translation.Attempts, "unset fields keep defaults")
	require.Equal(t, 20, f.Translation.ChunkLines)
	require.Equal(t, 90*time.Second, f.Translation.CallTimeout)
	require.Equal(t, `(?<=[.!?])\s+`, f.Translation.SentenceBoundary)
	require.Equal(t, config.Summary{Enabled: true, MaxLength: 500}, f.Summary)

	require.Equal(t, filepath.Join(dir, "names.properties"), f.Names)
	require.Equal(t, []string{filepath.Join(dir, "world.txt"), "/abs/chars.txt"}, f.Lore)
	require.Equal(t, filepath.Join(dir, "cache.db"), f.Cache)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown provider", "provider: {name: mystery}"},
		{"limit above one", "translation: {limit: 1.5}"},
		{"zero attempts", "translation: {attempts: -1}"},
		{"zero concurrency", "translation: {concurrency: -2}"},
		{"bad yaml", "provider: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestProviderAPIKey(t *testing.T) {
	t.Setenv("GAMELINGO_TEST_KEY", "secret")
	key, err := config.Provider{Name: "openai", APIKeyEnv: "GAMELINGO_TEST_KEY"}.APIKey()
	require.NoError(t, err)
	require.Equal(t, "secret", key)

	_, err = config.Provider{Name: "openai", APIKeyEnv: "GAMELINGO_TEST_UNSET"}.APIKey()
	require.Error(t, err)
}
