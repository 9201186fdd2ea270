package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/arima-bot/types"
)

func TestChatCompletion_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4.1", body["model"])
		assert.InDelta(t, 0.7, body["temperature"], 1e-9)
		_, hasMax := body["max_tokens"]
		assert.False(t, hasMax)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "secret", ChatURL: srv.URL + "/v1/"})
	out, err := c.ChatCompletion(context.Background(), ChatRequest{
		Model:       "gpt-4.1",
		Messages:    []types.ChatMessage{{Role: types.RoleUser, Content: "hi"}},
		Temperature: 0.7,
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestChatCompletion_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		kind    Kind
		display string
	}{
		{
			name: "status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model overloaded", http.StatusServiceUnavailable)
			},
			kind:    KindStatus,
			display: "Error: 503",
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>oops</html>`))
			},
			kind:    KindInvalidJSON,
			display: "Invalid JSON",
		},
		{
			name: "empty choices",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"choices":[]}`))
			},
			kind:    KindEmpty,
			display: "Error: empty response",
		},
		{
			name: "timeout",
			handler: func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
			},
			kind:    KindTimeout,
			display: "Error: timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := New(Config{ChatURL: srv.URL, Timeout: 50 * time.Millisecond})
			_, err := c.ChatCompletion(context.Background(), ChatRequest{Model: "m"})
			require.Error(t, err)

			var apiErr *Error
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.kind, apiErr.Kind)
			assert.Equal(t, tt.display, Display(err))
		})
	}
}

func TestChatCompletion_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(Config{ChatURL: url}).ChatCompletion(context.Background(), ChatRequest{Model: "m"})
	assert.Equal(t, KindConnection, KindOf(err))
	assert.Equal(t, "Connection Error", Display(err))
}

func TestGenerateImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		var body ImageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "url", body.ResponseFormat)
		assert.Equal(t, "1024x1024", body.Size)
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/1.png"}]}`))
	}))
	defer srv.Close()

	c := New(Config{ChatURL: "http://unused", ImageURL: srv.URL})
	url, err := c.GenerateImage(context.Background(), ImageRequest{Model: "gpt-image-1", Prompt: "cat", Size: "1024x1024"})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example/1.png", url)
}

func TestDisplay_Fallback(t *testing.T) {
	err := errors.New("a very long and rather unhelpful message coming from somewhere deep")
	assert.Equal(t, "Error: a very long and rather unhelpful message coming fr", Display(err))
	assert.Equal(t, KindOther, KindOf(err))
	assert.Equal(t, "OK", Display(nil))
}
