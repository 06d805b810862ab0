package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystaldolphin/blockhand/internal/schema"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIProvider(Params{
		APIKey:       "sk-test",
		APIBase:      srv.URL,
		DefaultModel: "deepseek-chat",
		ProviderName: "deepseek",
		Backoff:      time.Millisecond,
	})
}

func conversation() schema.Messages {
	m := schema.NewMessages()
	m.AddSystem("you are a helper")
	m.AddUser("hi")
	return m
}

func TestComplete_SendsJSONModeRequest(t *testing.T) {
	var got map[string]any
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"reply\":\"hi\",\"action\":null}"}}]}`))
	})

	out, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("deepseek/deepseek-chat", 2000, 0.3))
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"hi","action":null}`, out)

	assert.Equal(t, "deepseek-chat", got["model"])
	assert.Equal(t, float64(2000), got["max_tokens"])
	assert.Equal(t, 0.3, got["temperature"])
	assert.Equal(t, map[string]any{"type": "json_object"}, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "you are a helper"}, msgs[0])
}

func TestComplete_StripsThinkBlocks(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"<think>hmm</think>{\"reply\":\"ok\"}"}}]}`))
	})
	out, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"ok"}`, out)
}

func TestComplete_NullContentIsEmpty(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null}}]}`))
	})
	out, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestComplete_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"done"}}]}`))
	})
	out, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("", 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_RateLimitExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("", 0, 0))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.True(t, te.IsRateLimited())
	assert.False(t, te.IsServerError())
	assert.Equal(t, int32(DefaultMaxRetries), calls.Load())
}

func TestComplete_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	})
	_, err := p.Complete(context.Background(), conversation(), schema.NewChatOptions("", 0, 0))

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.Contains(t, te.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_ContextCancelled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Complete(ctx, conversation(), schema.NewChatOptions("", 0, 0))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestComplete_Anthropic(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{\"reply\":"},{"type":"text","text":"\"ok\"}"}]}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(Params{APIKey: "sk-ant", APIBase: srv.URL, ProviderName: "anthropic", DefaultModel: "claude-x"})
	m := conversation()
	m.AddUser("again")
	out, err := p.Complete(context.Background(), m, schema.NewChatOptions("", 100, 0.3))
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"ok"}`, out)
	assert.Equal(t, "you are a helper", got["system"])
	assert.Nil(t, got["response_format"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi\n\nagain", msgs[0].(map[string]any)["content"])
}

func TestResolveModel(t *testing.T) {
	tests := []struct {
		provider, model, want string
	}{
		{"deepseek", "deepseek/deepseek-chat", "deepseek-chat"},
		{"deepseek", "deepseek-chat", "deepseek-chat"},
		{"openrouter", "openrouter/anthropic/claude", "anthropic/claude"},
		{"openai", "groq/llama3", "llama3"},
	}
	for _, tt := range tests {
		p := NewOpenAIProvider(Params{ProviderName: tt.provider, APIBase: "http://x"})
		if got := p.resolveModel(tt.model); got != tt.want {
			t.Errorf("resolveModel(%q) with %s: expected %q, got %q", tt.model, tt.provider, tt.want, got)
		}
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	assert.Equal(t, "configured", ResolveAPIKey("deepseek", "configured"))
	assert.Equal(t, "from-env", ResolveAPIKey("deepseek", ""))
	assert.Equal(t, "", ResolveAPIKey("custom", ""))
}
