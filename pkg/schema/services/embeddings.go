package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// TaskType tells the embedding model whether it is encoding a search query or a verse to
// be searched. Vertex embeds the two asymmetrically; the custom service ignores it.
type TaskType string

const (
	TaskTypeQuery    TaskType = "RETRIEVAL_QUERY"
	TaskTypeDocument TaskType = "RETRIEVAL_DOCUMENT"
)

// Embedder is an embedding backend. EmbedBatch returns vectors in input order.
type Embedder interface {
	Embed(ctx context.Context, text string, taskType TaskType) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string, taskType TaskType) ([][]float64, error)
}

// EmbeddingsService handles text embedding operations using a pluggable backend
type EmbeddingsService struct {
	embedder Embedder
}

var (
	embeddingsService *EmbeddingsService
	embeddingsOnce    sync.Once
	initErr           error
)

// NewEmbeddingsService builds the service for the configured provider.
// It returns nil with no error when embeddings are disabled.
func NewEmbeddingsService(ctx context.Context, cfg *config.Config) (*EmbeddingsService, error) {
	var embedder Embedder
	switch cfg.EmbeddingProvider {
	case "none", "":
		return nil, nil
	case "vertex":
		v, err := NewVertexEmbedder(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("create Vertex AI embedder: %w", err)
		}
		embedder = v
	default:
		embedder = NewCustomEmbedder(cfg)
	}
	return NewEmbeddingsServiceWith(embedder), nil
}

// NewEmbeddingsServiceWith wraps an existing embedder
func NewEmbeddingsServiceWith(embedder Embedder) *EmbeddingsService {
	return &EmbeddingsService{embedder: embedder}
}

// GetEmbeddingsService returns the singleton embeddings service, nil when disabled
func GetEmbeddingsService() *EmbeddingsService {
	embeddingsOnce.Do(func() {
		cfg := config.GetConfig()
		if cfg == nil {
			initErr = fmt.Errorf("embeddings: %w", config.LoadError())
			return
		}
		embeddingsService, initErr = NewEmbeddingsService(context.Background(), cfg)
	})
	return embeddingsService
}

// GetInitError returns any error that occurred during initialization
func GetInitError() error {
	return initErr
}

// EmbedQuery embeds a query for retrieval
func (s *EmbeddingsService) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return s.embedder.Embed(ctx, query, TaskTypeQuery)
}

// EmbedVerse embeds a verse as a document for retrieval
func (s *EmbeddingsService) EmbedVerse(ctx context.Context, text string) ([]float64, error) {
	return s.embedder.Embed(ctx, text, TaskTypeDocument)
}

// EmbedVerses embeds many verse texts as documents, in input order
func (s *EmbeddingsService) EmbedVerses(ctx context.Context, texts []string) ([][]float64, error) {
	return s.embedder.EmbedBatch(ctx, texts, TaskTypeDocument)
}

// Close releases the embedder's client, if it holds one
func (s *EmbeddingsService) Close() error {
	if c, ok := s.embedder.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
