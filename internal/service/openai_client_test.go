package service

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"decision-server/internal/config"
	"decision-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chatCompletionBody(content string) string {
	resp := map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func newTestOpenAIClient(t *testing.T, handler http.HandlerFunc) CompletionClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := &config.Config{
		AIAPIKey:      "sk-test",
		AIBaseURL:     srv.URL + "/v1",
		AIModel:       "gpt-4",
		AITemperature: 0.3,
		AIMaxTokens:   1000,
		AITimeout:     2 * time.Second,
	}
	return NewOpenAIClient(cfg, nil, zap.NewNop())
}

func TestOpenAIClientComplete(t *testing.T) {
	var captured map[string]any
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody("```json\n{\"ok\":true}\n```"))
	})

	text, err := client.Complete(context.Background(), "hello", GenerationParams{MaxTokens: intPtr(50)})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, text)

	assert.Equal(t, "gpt-4", captured["model"])
	assert.InDelta(t, 0.3, captured["temperature"], 1e-6)
	assert.EqualValues(t, 50, captured["max_tokens"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "user", messages[0].(map[string]any)["role"])
	assert.Equal(t, "hello", messages[0].(map[string]any)["content"])
}

func TestOpenAIClientErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests"}}`, model.ErrRateLimited},
		{"auth", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key","type":"invalid_request_error"}}`, model.ErrAuthFailure},
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom","type":"server_error"}}`, model.ErrTransport},
		{"unparseable error", http.StatusBadGateway, `<html>bad gateway</html>`, model.ErrTransport},
		{"no choices", http.StatusOK, `{"id":"x","object":"chat.completion","choices":[]}`, model.ErrEmptyResponse},
		{"empty content", http.StatusOK, chatCompletionBody("   "), model.ErrEmptyResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := client.Complete(context.Background(), "hello", GenerationParams{})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestOpenAIClientTimeout(t *testing.T) {
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	timeout := 50 * time.Millisecond
	_, err := client.Complete(context.Background(), "hello", GenerationParams{Timeout: &timeout})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrTimeout)
	assert.Equal(t, model.KindTimeout, model.KindOf(err))
}

func TestOpenAIClientRejectsEmptyPrompt(t *testing.T) {
	called := false
	client := newTestOpenAIClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := client.Complete(context.Background(), "  ", GenerationParams{})
	assert.ErrorIs(t, err, model.ErrInvalidRequest)
	assert.False(t, called)
}
