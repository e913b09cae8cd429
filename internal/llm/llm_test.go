package llm

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

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/retry"
)

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestNewService(t *testing.T) {
	t.Run("creates Ollama service", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "ollama"

		svc, err := NewService(cfg, testPolicy())
		require.NoError(t, err)
		assert.Equal(t, ProviderOllama, svc.Provider())
		assert.Equal(t, "llama3", svc.ModelName())
	})

	t.Run("OpenAI requires API key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "openai"

		_, err := NewService(cfg, testPolicy())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("Anthropic requires API key", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "anthropic"

		_, err := NewService(cfg, testPolicy())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "API key")
	})

	t.Run("rejects unknown provider", func(t *testing.T) {
		cfg := config.DefaultConfig()
		cfg.LLM.Provider = "bogus"

		_, err := NewService(cfg, testPolicy())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported")
	})
}

func TestOllamaComplete(t *testing.T) {
	var gotReq ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "the answer"},
			Done:    true,
		})
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3", testPolicy())
	require.NoError(t, err)

	answer, err := svc.Complete(context.Background(), []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
	}, CompletionOptions{Temperature: 0.3, MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "the answer", answer)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.False(t, gotReq.Stream)
	assert.Equal(t, 100, gotReq.Options.NumPredict)
}

func TestOllamaCompleteRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(ollamaChatResponse{
			Message: ollamaMessage{Role: "assistant", Content: "recovered"},
		})
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3", testPolicy())
	require.NoError(t, err)

	answer, err := svc.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionOptions{})
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOllamaCompleteExhaustsRetryBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	svc, err := NewOllamaService(server.URL, "llama3", testPolicy())
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAnthropicComplete(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "claude says hi"}},
		})
	}))
	defer server.Close()

	svc, err := NewAnthropicService("test-key", "claude-3-haiku-20240307", testPolicy())
	require.NoError(t, err)
	svc.apiURL = server.URL

	answer, err := svc.Complete(context.Background(), []Message{
		{Role: "system", Content: "be helpful"},
		{Role: "user", Content: "hello"},
	}, CompletionOptions{MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, "claude says hi", answer)

	// The system prompt moves out of the message list.
	assert.Equal(t, "be helpful", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)
}

func TestAnthropicCompleteDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	svc, err := NewAnthropicService("test-key", "claude-3-haiku-20240307", testPolicy())
	require.NoError(t, err)
	svc.apiURL = server.URL

	_, err = svc.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, CompletionOptions{})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
