package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiClientComplete(t *testing.T) {
	var gotPath, gotKey string
	var gotBody geminiRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]},"finishReason":"STOP"}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("secret", WithBaseURL(srv.URL+"/"), WithModel("test-model"))
	out, err := c.Complete(context.Background(), Prompt{Text: "hi", Schema: SuggestionSchema})
	require.NoError(t, err)

	assert.Equal(t, "hello world", out)
	assert.Equal(t, "/models/test-model:generateContent", gotPath)
	assert.Equal(t, "secret", gotKey)
	require.Len(t, gotBody.Contents, 1)
	assert.Equal(t, "hi", gotBody.Contents[0].Parts[0].Text)
	require.NotNil(t, gotBody.GenerationConfig)
	assert.Equal(t, "application/json", gotBody.GenerationConfig.ResponseMimeType)
	assert.Equal(t, "ARRAY", gotBody.GenerationConfig.ResponseSchema.Type)
	assert.Equal(t, []string{"low", "medium", "high"}, gotBody.GenerationConfig.ResponseSchema.Items.Properties["priority"].Enum)
}

func TestGeminiClientPlainPromptHasNoGenerationConfig(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &raw)
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer srv.Close()

	c := NewGeminiClient("k", WithBaseURL(srv.URL))
	_, err := c.Complete(context.Background(), Prompt{Text: "hi"})
	require.NoError(t, err)
	_, ok := raw["generationConfig"]
	assert.False(t, ok)
}

func TestGeminiClientErrors(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		_, err := NewGeminiClient("").Complete(context.Background(), Prompt{Text: "hi"})
		assert.Error(t, err)
	})

	t.Run("api error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota exhausted","status":"RESOURCE_EXHAUSTED"}}`))
		}))
		defer srv.Close()

		_, err := NewGeminiClient("k", WithBaseURL(srv.URL)).Complete(context.Background(), Prompt{Text: "hi"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota exhausted")
	})

	t.Run("no candidates", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"candidates":[]}`))
		}))
		defer srv.Close()

		_, err := NewGeminiClient("k", WithBaseURL(srv.URL)).Complete(context.Background(), Prompt{Text: "hi"})
		assert.Error(t, err)
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		url := srv.URL
		srv.Close()

		g := New(NewGeminiClient("k", WithBaseURL(url)))
		assert.Empty(t, g.SuggestTasks(context.Background(), "p", "d"))
		assert.Equal(t, Apology, g.Ask(context.Background(), "q", "c"))
	})
}
