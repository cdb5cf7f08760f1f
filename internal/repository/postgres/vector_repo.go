package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

// VectorSearchRepository implements repository.VectorSearchRepository for PostgreSQL with pgvector
type VectorSearchRepository struct {
	db *sqlx.DB
}

// NewVectorSearchRepository creates a new PostgreSQL vector search repository
func NewVectorSearchRepository(db *sqlx.DB) repository.VectorSearchRepository {
	return &VectorSearchRepository{db: db}
}

// SearchVersesByEmbedding ranks verses of one translation by cosine similarity
func (r *VectorSearchRepository) SearchVersesByEmbedding(ctx context.Context, embedding []float64, topK int, translation string) ([]models.ScoredVerse, error) {
	vec := pgvector.NewVector(float32Slice(embedding))

	results := []models.ScoredVerse{}
	err := r.db.SelectContext(ctx, &results, `
		SELECT id, book, chapter, verse, text, translation, testament,
		       1 - (embedding <=> $1::vector) AS score
		FROM verses
		WHERE embedding IS NOT NULL AND translation = $3
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, vec, topK, translation)
	if err != nil {
		return nil, fmt.Errorf("vector search verses: %w", err)
	}
	return results, nil
}

// float32Slice converts []float64 to []float32 for pgvector
func float32Slice(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
