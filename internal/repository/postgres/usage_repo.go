package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

// UsageRepository implements repository.UsageRepository for PostgreSQL
type UsageRepository struct {
	db *sqlx.DB
}

// NewUsageRepository creates a new PostgreSQL usage repository
func NewUsageRepository(db *sqlx.DB) repository.UsageRepository {
	return &UsageRepository{db: db}
}

// Record appends one api_usage row
func (r *UsageRepository) Record(ctx context.Context, rec models.UsageRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_usage (api_key_id, endpoint, tokens_used, response_time_ms, status_code)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.APIKeyID, rec.Endpoint, rec.TokensUsed, rec.ResponseTimeMs, rec.StatusCode)
	if err != nil {
		return fmt.Errorf("record api usage: %w", err)
	}
	return nil
}
