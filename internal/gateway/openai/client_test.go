package openai

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

	"github.com/wvf-labs/docparse/internal/common"
	"github.com/wvf-labs/docparse/internal/gateway"
)

func completionBody(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		Model:       "text-model",
		VisionModel: "vision-model",
		Temperature: 0.1,
		Timeout:     5 * time.Second,
	}, nil)
	return c, srv
}

func TestCompleteText(t *testing.T) {
	var captured map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("  {\"document_type\": \"invoice\"}  ")))
	})

	got, err := c.Complete(context.Background(), gateway.ChatRequest{
		System: "you are an extractor",
		User:   gateway.UserContent{Text: "page content"},
	})
	require.NoError(t, err)
	// Surrounding whitespace is trimmed.
	assert.Equal(t, `{"document_type": "invoice"}`, got)

	assert.Equal(t, "text-model", captured["model"])
	assert.Equal(t, 4000.0, captured["max_tokens"])
	msgs := captured["messages"].([]any)
	require.Len(t, msgs, 2)
	system := msgs[0].(map[string]any)
	assert.Equal(t, "system", system["role"])
	assert.Equal(t, "you are an extractor", system["content"])
	user := msgs[1].(map[string]any)
	// Text-only requests send the content as a bare string.
	assert.Equal(t, "page content", user["content"])
}

func TestCompleteVisionSelectsVisionModel(t *testing.T) {
	var captured map[string]any
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(completionBody("ok")))
	})

	_, err := c.Complete(context.Background(), gateway.ChatRequest{
		System: "vision system",
		User: gateway.UserContent{
			Text:         "analyze this page",
			ImageDataURL: "data:image/jpeg;base64,/9j/",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "vision-model", captured["model"])
	user := captured["messages"].([]any)[1].(map[string]any)
	parts := user["content"].([]any)
	require.Len(t, parts, 2)
	text := parts[0].(map[string]any)
	assert.Equal(t, "text", text["type"])
	assert.Equal(t, "analyze this page", text["text"])
	image := parts[1].(map[string]any)
	assert.Equal(t, "image_url", image["type"])
	assert.Equal(t, "data:image/jpeg;base64,/9j/", image["image_url"].(map[string]any)["url"])
}

func TestCompleteNon2xx(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "rate limit exceeded"}`, http.StatusTooManyRequests)
	})

	_, err := c.Complete(context.Background(), gateway.ChatRequest{
		User: gateway.UserContent{Text: "page"},
	})
	require.Error(t, err)

	var gwErr *gateway.Error
	require.True(t, errors.As(err, &gwErr))
	assert.Equal(t, http.StatusTooManyRequests, gwErr.StatusCode)
	assert.True(t, errors.Is(err, common.ErrGateway))
}

func TestCompleteNoChoices(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	})

	_, err := c.Complete(context.Background(), gateway.ChatRequest{
		User: gateway.UserContent{Text: "page"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGateway))
}

func TestCompleteMalformedResponse(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	})

	_, err := c.Complete(context.Background(), gateway.ChatRequest{
		User: gateway.UserContent{Text: "page"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGateway))
}

func TestCompleteTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	c := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Timeout: 50 * time.Millisecond,
	}, nil)

	_, err := c.Complete(context.Background(), gateway.ChatRequest{
		User: gateway.UserContent{Text: "page"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrGateway))
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil)
	assert.Equal(t, "https://api.groq.com/openai/v1", c.cfg.BaseURL)
	assert.Equal(t, "llama3-70b-8192", c.cfg.Model)
	assert.Equal(t, "meta-llama/llama-4-scout-17b-16e-instruct", c.cfg.VisionModel)
	assert.Equal(t, 4000, c.cfg.MaxTokens)
	assert.Equal(t, 60*time.Second, c.cfg.Timeout)
}
