package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sola-scriptura-chat-api/pkg/schema/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomEmbedderEmbed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		var req customEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "do not worry", req.Text)
		assert.Equal(t, taskInstructions[TaskTypeQuery], req.Instruction)
		_ = json.NewEncoder(w).Encode(customEmbeddingResponse{Embedding: []float64{0.1, 0.2}})
	}))
	defer srv.Close()

	e := NewCustomEmbedder(&config.Config{EmbeddingServiceURL: srv.URL + "/"})
	got, err := e.Embed(context.Background(), "do not worry", TaskTypeQuery)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.2}, got)
}

func TestCustomEmbedderBatchCountMismatch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed/batch", r.URL.Path)
		_ = json.NewEncoder(w).Encode(customBatchEmbeddingResponse{Embeddings: [][]float64{{1}}})
	}))
	defer srv.Close()

	e := NewCustomEmbedder(&config.Config{EmbeddingServiceURL: srv.URL})
	_, err := e.EmbedBatch(context.Background(), []string{"a", "b"}, TaskTypeDocument)
	assert.ErrorContains(t, err, "got 1 embeddings for 2 texts")
}

func TestCustomEmbedderUpstreamError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	e := NewCustomEmbedder(&config.Config{EmbeddingServiceURL: srv.URL})
	_, err := e.Embed(context.Background(), "x", TaskTypeDocument)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model loading")
}

func TestNewEmbeddingsServiceDisabled(t *testing.T) {
	t.Parallel()

	svc, err := NewEmbeddingsService(context.Background(), &config.Config{EmbeddingProvider: "none"})
	require.NoError(t, err)
	assert.Nil(t, svc)
}

func TestOpenAIGenerator(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		assert.Equal(t, 400, req.MaxTokens)
		assert.InDelta(t, 0.7, req.Temperature, 1e-6)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)

		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Be still."}}],"usage":{"total_tokens":42}}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(&config.Config{
		GenerationServiceURL: srv.URL + "/v1",
		GenerationAPIKey:     "sk-test",
		GenerationModel:      "gpt-4o-mini",
		GenerationMaxTokens:  1000,
		GenerationTemp:       0.7,
		GenerationTimeout:    5 * time.Second,
	})
	require.NoError(t, err)

	res, err := g.Generate(context.Background(), GenerateRequest{System: "sys", Prompt: "hello", MaxTokens: 400})
	require.NoError(t, err)
	assert.Equal(t, "Be still.", res.Text)
	assert.Equal(t, 42, res.TokensUsed)
}

func TestOpenAIGeneratorRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewOpenAIGenerator(&config.Config{})
	assert.Error(t, err)
}

func TestNewGeneratorUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := NewGenerator(context.Background(), &config.Config{GenerationProvider: "llama"})
	assert.ErrorContains(t, err, "unknown generation provider")
}
