package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1715000000,
  "model": "gpt-4o",
  "choices": [{"index": 0, "message": {"role": "assistant", "content": "  Try design.  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
}`

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role string `json:"role"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "gpt-4-turbo", payload.Model)
		if assert.Len(t, payload.Messages, 2) {
			assert.Equal(t, "system", payload.Messages[0].Role)
			assert.Equal(t, "user", payload.Messages[1].Role)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "sk-test", BaseURL: server.URL, Temperature: 0.7, MaxTokens: 100})
	require.NoError(t, err)
	require.True(t, client.Configured())

	text, err := client.Complete(context.Background(), "gpt-4-turbo", "system text", "user text")
	require.NoError(t, err)
	assert.Equal(t, "Try design.", text)
}

func TestCompleteRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"Rate limit reached for gpt-4o","type":"requests","code":"rate_limit_exceeded"}}`)
	}))
	defer server.Close()

	client, err := NewClient(Options{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), "gpt-4o", "s", "u")
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "rate limit")
}

func TestUnconfiguredClient(t *testing.T) {
	client, err := NewClient(Options{})
	require.NoError(t, err)
	assert.False(t, client.Configured())

	_, err = client.Complete(context.Background(), "gpt-4o", "s", "u")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestToAPIError(t *testing.T) {
	err := toAPIError(errors.New("API returned unexpected status code: 429: You exceeded your current quota"))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 429, apiErr.HTTPStatus())
	assert.Contains(t, apiErr.Error(), "exceeded your current quota")

	plain := errors.New("connection refused")
	assert.Same(t, plain, toAPIError(plain))

	assert.ErrorIs(t, toAPIError(context.Canceled), context.Canceled)
}
