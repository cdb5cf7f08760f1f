package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// CustomEmbedder implements Embedder against a self-hosted HTTP embedding service
type CustomEmbedder struct {
	baseURL    string
	httpClient *http.Client
}

// NewCustomEmbedder creates a new custom HTTP embedder
func NewCustomEmbedder(cfg *config.Config) *CustomEmbedder {
	return &CustomEmbedder{
		baseURL:    strings.TrimRight(cfg.EmbeddingServiceURL, "/"),
		httpClient: &http.Client{},
	}
}

var taskInstructions = map[TaskType]string{
	TaskTypeQuery:    "Represent the question for retrieving relevant Bible verses: ",
	TaskTypeDocument: "Represent the Bible verse for retrieval: ",
}

func instructionFor(taskType TaskType) string {
	if s, ok := taskInstructions[taskType]; ok {
		return s
	}
	return taskInstructions[TaskTypeDocument]
}

type customEmbeddingRequest struct {
	Text        string `json:"text"`
	Instruction string `json:"instruction"`
}

type customEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

type customBatchEmbeddingRequest struct {
	Texts       []string `json:"texts"`
	Instruction string   `json:"instruction"`
}

type customBatchEmbeddingResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed generates an embedding for a single text
func (e *CustomEmbedder) Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error) {
	var out customEmbeddingResponse
	req := customEmbeddingRequest{Text: text, Instruction: instructionFor(taskType)}
	if err := postJSON(ctx, e.httpClient, e.baseURL+"/embed", nil, req, &out); err != nil {
		return nil, fmt.Errorf("custom embed: %w", err)
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("custom embed: empty embedding")
	}
	return out.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts
func (e *CustomEmbedder) EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	var out customBatchEmbeddingResponse
	req := customBatchEmbeddingRequest{Texts: texts, Instruction: instructionFor(taskType)}
	if err := postJSON(ctx, e.httpClient, e.baseURL+"/embed/batch", nil, req, &out); err != nil {
		return nil, fmt.Errorf("custom embed batch: %w", err)
	}
	if len(out.Embeddings) != len(texts) {
		return nil, fmt.Errorf("custom embed batch: got %d embeddings for %d texts", len(out.Embeddings), len(texts))
	}
	return out.Embeddings, nil
}
