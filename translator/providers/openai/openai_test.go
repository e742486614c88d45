package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ownlingo/gamelingo/translator"
	"github.com/ownlingo/gamelingo/translator/providers/openai"
	"github.com/ownlingo/gamelingo/translator/retry"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testConfig(url string) *openai.Config {
	config := openai.DefaultConfig("test-api-key")
	config.BaseURL = url + "/v1"
	config.TPM, config.RPM = 0, 0
	config.RetryConfig = &retry.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
	return config
}

func TestDefaultConfig(t *testing.T) {
	config := openai.DefaultConfig("test-api-key")
	require.Equal(t, "test-api-key", config.APIKey)
	require.NotEmpty(t, config.Model)
	require.Positive(t, config.TPM)
	require.Positive(t, config.RPM)
	require.NotNil(t, config.RetryConfig)
}

func TestNewProvider(t *testing.T) {
	provider := openai.NewProvider(openai.DefaultConfig("test-api-key"))
	require.Equal(t, "openai", provider.Name())
	require.Panics(t, func() { openai.NewProvider(nil) })
}

func TestComplete(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "gpt-4o",
			"choices": []map[string]any{{"index": 0, "message": map[string]any{"role": "assistant", "content": "Привет"}, "finish_reason": "stop"}},
			"usage":   map[string]any{"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	provider := openai.NewProvider(testConfig(srv.URL))
	resp, err := provider.Complete(context.Background(), &translator.CompletionRequest{
		Text:              "Hello",
		SystemInstruction: "Translate to Russian.",
	})
	require.NoError(t, err)
	require.Equal(t, "Привет", resp.Text)
	require.Equal(t, "openai", resp.Provider)
	require.Equal(t, 15, resp.TokensUsed.TotalTokens)
	require.Positive(t, resp.Cost.Amount)

	messages := gjson.GetBytes(body, "messages").Array()
	require.Len(t, messages, 2)
	require.Equal(t, "system", messages[0].Get("role").String())
	require.Equal(t, "Translate to Russian.", messages[0].Get("content").String())
	require.Equal(t, "Hello", messages[1].Get("content").String())
}

func TestCompleteWithoutSystemInstruction(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	_, err := openai.NewProvider(testConfig(srv.URL)).Complete(context.Background(), &translator.CompletionRequest{Text: "Hello"})
	require.NoError(t, err)
	require.Len(t, gjson.GetBytes(body, "messages").Array(), 1)
}

func TestCompleteRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = io.WriteString(w, `{"error":{"message":"slow down","type":"rate_limit_exceeded"}}`)
			return
		}
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`)
	}))
	defer srv.Close()

	resp, err := openai.NewProvider(testConfig(srv.URL)).Complete(context.Background(), &translator.CompletionRequest{Text: "Hello"})
	require.NoError(t, err)
	require.Equal(t, "ok", resp.Text)
	require.EqualValues(t, 2, calls.Load())
}

func TestCompleteDoesNotRetryAuthErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	_, err := openai.NewProvider(testConfig(srv.URL)).Complete(context.Background(), &translator.CompletionRequest{Text: "Hello"})
	require.Error(t, err)
	require.EqualValues(t, 1, calls.Load())

	var te *translator.TransportError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "openai", te.Provider)
}
