// internal/llmclient/client_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/doctrail/api/schemas"
	"github.com/xkilldash9x/doctrail/internal/config"
)

func geminiSuccessBody(text string) string {
	payload := map[string]any{
		"candidates": []map[string]any{
			{
				"content": map[string]any{
					"parts": []map[string]string{{"text": text}},
					"role":  "model",
				},
				"finishReason": "STOP",
			},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestGoogleClientGenerate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns candidate text on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

			var payload geminiRequestPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "analyze this page", payload.Contents[0].Parts[0].Text)
			assert.Equal(t, "application/json", payload.GenerationConfig.ResponseMimeType)

			w.Write([]byte(geminiSuccessBody(`{"actions":[]}`)))
		}))
		defer server.Close()

		client, err := NewGoogleClient(config.LLMConfig{
			APIKey:     "test-key",
			Endpoint:   server.URL,
			Model:      "gemini-2.5-flash",
			APITimeout: 5 * time.Second,
		}, logger)
		require.NoError(t, err)

		res, err := client.Generate(context.Background(), schemas.GenerationRequest{
			SystemPrompt: "you are an analyst",
			UserPrompt:   "analyze this page",
			Options:      schemas.GenerationOptions{ForceJSONFormat: true},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"actions":[]}`, res)
	})

	t.Run("retries transient server errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) <= 2 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte(geminiSuccessBody("recovered")))
		}))
		defer server.Close()

		client, err := NewGoogleClient(config.LLMConfig{
			APIKey:     "test-key",
			Endpoint:   server.URL,
			APITimeout: 5 * time.Second,
		}, logger)
		require.NoError(t, err)

		res, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
		require.NoError(t, err)
		assert.Equal(t, "recovered", res)
		assert.Equal(t, int32(3), calls.Load())
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"bad request"}`))
		}))
		defer server.Close()

		client, err := NewGoogleClient(config.LLMConfig{
			APIKey:     "test-key",
			Endpoint:   server.URL,
			APITimeout: 5 * time.Second,
		}, logger)
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 400")
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("requires api key", func(t *testing.T) {
		_, err := NewGoogleClient(config.LLMConfig{}, logger)
		require.Error(t, err)
	})
}

func TestOllamaClientGenerate(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns response text on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/generate", r.URL.Path)

			var payload ollamaRequestPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "qwen2.5:14b", payload.Model)
			assert.Equal(t, "json", payload.Format)
			assert.False(t, payload.Stream)

			json.NewEncoder(w).Encode(ollamaResponsePayload{
				Response: `{"analysis":"done"}`,
				Done:     true,
			})
		}))
		defer server.Close()

		client, err := NewOllamaClient(config.LLMConfig{
			Endpoint:   server.URL,
			Model:      "qwen2.5:14b",
			APITimeout: 5 * time.Second,
		}, logger)
		require.NoError(t, err)

		res, err := client.Generate(context.Background(), schemas.GenerationRequest{
			UserPrompt: "hi",
			Options:    schemas.GenerationOptions{ForceJSONFormat: true},
		})
		require.NoError(t, err)
		assert.Equal(t, `{"analysis":"done"}`, res)
	})

	t.Run("treats 404 as permanent", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"model not found"}`))
		}))
		defer server.Close()

		client, err := NewOllamaClient(config.LLMConfig{
			Endpoint:   server.URL,
			Model:      "missing",
			APITimeout: 5 * time.Second,
		}, logger)
		require.NoError(t, err)

		_, err = client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "hi"})
		require.Error(t, err)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("requires endpoint", func(t *testing.T) {
		_, err := NewOllamaClient(config.LLMConfig{}, logger)
		require.Error(t, err)
	})
}

func TestNewClient(t *testing.T) {
	logger := zap.NewNop()

	t.Run("builds google client", func(t *testing.T) {
		c, err := NewClient(config.LLMConfig{Provider: config.ProviderGoogle, APIKey: "k"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &GoogleClient{}, c)
	})

	t.Run("builds ollama client", func(t *testing.T) {
		c, err := NewClient(config.LLMConfig{Provider: config.ProviderOllama, Endpoint: "http://localhost:11434"}, logger)
		require.NoError(t, err)
		assert.IsType(t, &OllamaClient{}, c)
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		_, err := NewClient(config.LLMConfig{Provider: "openai"}, logger)
		require.Error(t, err)
	})
}
