package repository

import (
	"context"

	"github.com/sola-scriptura-chat-api/internal/models"
)

// VerseRepository defines verse store operations. Single-row lookups return an error
// wrapping apperr.ErrNotFound when nothing matches.
type VerseRepository interface {
	FindByReference(ctx context.Context, book string, chapter, verse int, translation string) (*models.Verse, error)
	FindRange(ctx context.Context, book string, chapter, start, end int, translation string) ([]models.Verse, error)
	// Search runs a full-text search ranked by ts_rank.
	Search(ctx context.Context, query string, limit int, translation string) ([]models.ScoredVerse, error)
	// FindByTopic returns verses linked to a topic ordered by association relevance.
	FindByTopic(ctx context.Context, topicID int64, limit int, translation string) ([]models.ScoredVerse, error)
	Random(ctx context.Context, translation string) (*models.Verse, error)
	// FindNeighbors returns the verses immediately before and after one verse in its
	// chapter; either is nil at a chapter boundary.
	FindNeighbors(ctx context.Context, book string, chapter, verse int, translation string) (prev, next *models.Verse, err error)
	// BulkInsert skips rows that already exist and returns the number inserted.
	BulkInsert(ctx context.Context, verses []models.Verse) (int64, error)
	// ListWithoutEmbedding pages through verses whose embedding column is empty.
	ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]models.Verse, error)
	SetEmbedding(ctx context.Context, verseID int64, embedding []float64) error
}

// VectorSearchRepository defines operations for vector similarity search
type VectorSearchRepository interface {
	// SearchVersesByEmbedding performs vector similarity search on verses
	SearchVersesByEmbedding(ctx context.Context, embedding []float64, topK int, translation string) ([]models.ScoredVerse, error)
}

// TopicRepository defines operations for topical index data access
type TopicRepository interface {
	FindByName(ctx context.Context, name string) (*models.Topic, error)
	// SearchByWords searches topics by keyword matching
	SearchByWords(ctx context.Context, words []string, topK int) ([]models.ScoredTopic, error)
	List(ctx context.Context, limit int) ([]models.Topic, error)
	Upsert(ctx context.Context, topic models.Topic) (int64, error)
	AddVerse(ctx context.Context, link models.TopicVerse) error
}

// CrossReferenceRepository looks up verses linked to a verse.
type CrossReferenceRepository interface {
	FindByVerse(ctx context.Context, book string, chapter, verse int) ([]string, error)
}

// APIKeyRepository persists issued API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *models.APIKey) error
	// FindByPrefix returns active keys sharing the public prefix.
	FindByPrefix(ctx context.Context, prefix string) ([]models.APIKey, error)
	FindByID(ctx context.Context, id int64) (*models.APIKey, error)
	IncrementUsage(ctx context.Context, id int64, amount int) error
	Deactivate(ctx context.Context, id int64) error
	ResetMonthlyUsage(ctx context.Context) (int64, error)
}

// UsageRepository records per-request usage rows.
type UsageRepository interface {
	Record(ctx context.Context, rec models.UsageRecord) error
}

// ConversationRepository stores chat logs.
type ConversationRepository interface {
	// Append creates the conversation if needed and appends messages in order.
	Append(ctx context.Context, id string, apiKeyID int64, messages models.Messages) error
	Get(ctx context.Context, id string, apiKeyID int64) (*models.Conversation, error)
}
