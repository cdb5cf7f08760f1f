package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

const apiKeyColumns = `id, key_prefix, key_hash, COALESCE(name, '') AS name, tier, monthly_limit,
	current_usage, is_active, expires_at, created_at`

// APIKeyRepository implements repository.APIKeyRepository for PostgreSQL
type APIKeyRepository struct {
	db *sqlx.DB
}

var _ repository.APIKeyRepository = (*APIKeyRepository)(nil)

// NewAPIKeyRepository creates a new PostgreSQL API key repository
func NewAPIKeyRepository(db *sqlx.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// Create inserts a key and fills in its id and creation time
func (r *APIKeyRepository) Create(ctx context.Context, key *models.APIKey) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO api_keys (key_prefix, key_hash, name, tier, monthly_limit, current_usage, is_active, expires_at)
		VALUES ($1, $2, $3, $4, $5, 0, TRUE, $6)
		RETURNING id, created_at
	`, key.KeyPrefix, key.KeyHash, key.Name, key.Tier, key.MonthlyLimit, key.ExpiresAt).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		return fmt.Errorf("create api key: %w", err)
	}
	key.IsActive = true
	return nil
}

// FindByPrefix returns the active keys issued with the given public prefix
func (r *APIKeyRepository) FindByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error) {
	keys := []models.APIKey{}
	err := r.db.SelectContext(ctx, &keys, `
		SELECT `+apiKeyColumns+`
		FROM api_keys
		WHERE key_prefix = $1 AND is_active = TRUE
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("find api keys by prefix: %w", err)
	}
	return keys, nil
}

// FindByID loads one key
func (r *APIKeyRepository) FindByID(ctx context.Context, id int64) (*models.APIKey, error) {
	var k models.APIKey
	err := r.db.GetContext(ctx, &k, `SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find api key %d: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find api key: %w", err)
	}
	return &k, nil
}

// IncrementUsage adds amount to the key's monthly usage counter
func (r *APIKeyRepository) IncrementUsage(ctx context.Context, id int64, amount int) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE api_keys SET current_usage = current_usage + $2 WHERE id = $1
	`, id, amount); err != nil {
		return fmt.Errorf("increment api key usage: %w", err)
	}
	return nil
}

// Deactivate marks a key inactive
func (r *APIKeyRepository) Deactivate(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deactivate api key: %w", err)
	}
	return nil
}

// ResetMonthlyUsage zeroes every usage counter and returns how many keys changed
func (r *APIKeyRepository) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE api_keys SET current_usage = 0 WHERE current_usage > 0`)
	if err != nil {
		return 0, fmt.Errorf("reset api key usage: %w", err)
	}
	return res.RowsAffected()
}
