package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, provider string, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		Providers: map[string]ProviderConfig{
			provider: {Endpoint: srv.URL, APIKey: "test-key"},
		},
	})
}

func TestCompleteOpenAI(t *testing.T) {
	t.Run("round trips a completion", func(t *testing.T) {
		client := newTestClient(t, ProviderOpenAI, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "gpt-4o", body["model"])

			_ = json.NewEncoder(w).Encode(map[string]any{
				"model": "gpt-4o",
				"choices": []map[string]any{
					{"message": map[string]any{"content": `{"score": 8}`}},
				},
				"usage": map[string]any{"total_tokens": 42},
			})
		})

		resp, err := client.Complete(context.Background(), Request{
			Provider:   ProviderOpenAI,
			Model:      "gpt-4o",
			UserPrompt: "grade this",
		})

		require.NoError(t, err)
		assert.Equal(t, `{"score": 8}`, resp.Content)
		assert.Equal(t, int64(42), resp.TokensUsed)
	})

	t.Run("empty choices map to ErrNoContent", func(t *testing.T) {
		client := newTestClient(t, ProviderOpenAI, func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
		})

		_, err := client.Complete(context.Background(), Request{Provider: ProviderOpenAI, Model: "gpt-4o"})
		assert.ErrorIs(t, err, ErrNoContent)
	})

	t.Run("provider error carries the status code", func(t *testing.T) {
		client := newTestClient(t, ProviderOpenAI, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limited"},
			})
		})

		_, err := client.Complete(context.Background(), Request{Provider: ProviderOpenAI, Model: "gpt-4o"})
		var pe *ProviderError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, http.StatusTooManyRequests, pe.StatusCode)
		assert.Equal(t, "rate limited", pe.Message)
		assert.True(t, pe.IsRetryable())
	})
}

func TestCompleteAnthropic(t *testing.T) {
	client := newTestClient(t, ProviderAnthropic, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"model": "claude-3-5-sonnet",
			"content": []map[string]any{
				{"type": "text", "text": "first "},
				{"type": "text", "text": "second"},
			},
			"usage": map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	})

	resp, err := client.Complete(context.Background(), Request{
		Provider:   ProviderAnthropic,
		Model:      "claude-3-5-sonnet",
		UserPrompt: "grade this",
	})

	require.NoError(t, err)
	assert.Equal(t, "first second", resp.Content, "text blocks concatenate")
	assert.Equal(t, int64(15), resp.TokensUsed)
}

func TestCompleteGoogle(t *testing.T) {
	client := newTestClient(t, ProviderGoogle, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "models/gemini-1.5-pro:generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{{"text": "arbitrated"}}}},
			},
			"usageMetadata": map[string]any{"totalTokenCount": 7},
		})
	})

	resp, err := client.Complete(context.Background(), Request{
		Provider:   ProviderGoogle,
		Model:      "gemini-1.5-pro",
		UserPrompt: "arbitrate this",
	})

	require.NoError(t, err)
	assert.Equal(t, "arbitrated", resp.Content)
}

func TestCompleteUnknownProvider(t *testing.T) {
	client := NewClient(Config{})

	_, err := client.Complete(context.Background(), Request{Provider: "nope"})
	assert.ErrorIs(t, err, ErrUnknownProvider)
}
