package gemini_test

import (
	"context"
	"testing"

	"github.com/ownlingo/gamelingo/translator/providers/gemini"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := gemini.DefaultConfig("test-api-key")
	require.Equal(t, "test-api-key", config.APIKey)
	require.NotEmpty(t, config.Model)
	require.Positive(t, config.TPM)
	require.Positive(t, config.RPM)
	require.NotNil(t, config.RetryConfig)
}

func TestNewProvider(t *testing.T) {
	provider, err := gemini.NewProvider(context.Background(), gemini.DefaultConfig("test-api-key"))
	require.NoError(t, err)
	defer provider.Close()
	require.Equal(t, "gemini", provider.Name())
}

func TestNewProviderNilConfig(t *testing.T) {
	_, err := gemini.NewProvider(context.Background(), nil)
	require.Error(t, err)
}
