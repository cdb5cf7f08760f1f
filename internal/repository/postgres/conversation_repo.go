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

// ConversationRepository implements repository.ConversationRepository for PostgreSQL
type ConversationRepository struct {
	db *sqlx.DB
}

// NewConversationRepository creates a new PostgreSQL conversation repository
func NewConversationRepository(db *sqlx.DB) repository.ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append upserts the conversation and concatenates messages onto its JSONB log.
// A conversation owned by another key is left untouched.
func (r *ConversationRepository) Append(ctx context.Context, id string, apiKeyID int64, messages models.Messages) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, api_key_id, messages)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (id) DO UPDATE
		SET messages = conversations.messages || EXCLUDED.messages,
		    updated_at = NOW()
		WHERE conversations.api_key_id = EXCLUDED.api_key_id
	`, id, apiKeyID, messages)
	if err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append conversation: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("append conversation %s: %w", id, apperr.ErrForbidden)
	}
	return nil
}

// Get loads a conversation owned by the key
func (r *ConversationRepository) Get(ctx context.Context, id string, apiKeyID int64) (*models.Conversation, error) {
	var c models.Conversation
	err := r.db.GetContext(ctx, &c, `
		SELECT id, api_key_id, messages, created_at, updated_at
		FROM conversations
		WHERE id = $1 AND api_key_id = $2
	`, id, apiKeyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find conversation %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	return &c, nil
}
