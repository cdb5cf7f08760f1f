package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

// TopicRepository implements repository.TopicRepository for PostgreSQL
type TopicRepository struct {
	db *sqlx.DB
}

// NewTopicRepository creates a new PostgreSQL topic repository
func NewTopicRepository(db *sqlx.DB) repository.TopicRepository {
	return &TopicRepository{db: db}
}

// FindByName looks a topic up case-insensitively
func (r *TopicRepository) FindByName(ctx context.Context, name string) (*models.Topic, error) {
	var t models.Topic
	err := r.db.GetContext(ctx, &t, `
		SELECT id, topic, COALESCE(category, '') AS category,
		       COALESCE(related_topics, '{}') AS related_topics
		FROM topics
		WHERE LOWER(topic) = LOWER($1)
	`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find topic %q: %w", name, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find topic: %w", err)
	}
	return &t, nil
}

// SearchByWords searches topics whose name contains any of the words
func (r *TopicRepository) SearchByWords(ctx context.Context, words []string, topK int) ([]models.ScoredTopic, error) {
	if len(words) == 0 {
		return []models.ScoredTopic{}, nil
	}

	lowered := make([]string, len(words))
	prefixes := make([]string, len(words))
	contains := make([]string, len(words))
	for i, w := range words {
		w = strings.ToLower(w)
		lowered[i] = w
		prefixes[i] = w + "%"
		contains[i] = "%" + w + "%"
	}

	rows, err := r.db.QueryxContext(ctx, `
		SELECT t.id, t.topic, COALESCE(t.category, '') AS category,
		       (SELECT COUNT(*) FROM topic_verses tv WHERE tv.topic_id = t.id) AS verse_count,
		       CASE
		           WHEN LOWER(t.topic) = ANY($1) THEN 1.0
		           WHEN LOWER(t.topic) LIKE ANY($2) THEN 0.9
		           ELSE 0.7
		       END AS score
		FROM topics t
		WHERE t.topic ILIKE ANY($3)
		ORDER BY score DESC, verse_count DESC, t.topic ASC
		LIMIT $4
	`, pq.Array(lowered), pq.Array(prefixes), pq.Array(contains), topK)
	if err != nil {
		return nil, fmt.Errorf("search topics by words: %w", err)
	}
	defer rows.Close()

	results := []models.ScoredTopic{}
	for rows.Next() {
		var row struct {
			ID         int64   `db:"id"`
			Name       string  `db:"topic"`
			Category   string  `db:"category"`
			VerseCount int     `db:"verse_count"`
			Score      float64 `db:"score"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("scan topic result: %w", err)
		}
		name := strings.ToLower(row.Name)
		var matched []string
		for _, w := range lowered {
			if strings.Contains(name, w) {
				matched = append(matched, w)
			}
		}
		results = append(results, models.ScoredTopic{
			ID:           row.ID,
			Name:         row.Name,
			Category:     row.Category,
			VerseCount:   row.VerseCount,
			Score:        row.Score,
			MatchedWords: matched,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic results: %w", err)
	}
	return results, nil
}

// List returns topics in alphabetical order
func (r *TopicRepository) List(ctx context.Context, limit int) ([]models.Topic, error) {
	topics := []models.Topic{}
	err := r.db.SelectContext(ctx, &topics, `
		SELECT id, topic, COALESCE(category, '') AS category,
		       COALESCE(related_topics, '{}') AS related_topics
		FROM topics
		ORDER BY topic ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// Upsert inserts or updates a topic by name and returns its id
func (r *TopicRepository) Upsert(ctx context.Context, topic models.Topic) (int64, error) {
	var id int64
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO topics (topic, category, related_topics)
		VALUES ($1, $2, $3)
		ON CONFLICT (topic) DO UPDATE
		SET category = EXCLUDED.category, related_topics = EXCLUDED.related_topics
		RETURNING id
	`, topic.Name, topic.Category, pq.Array([]string(topic.RelatedTopics))).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert topic %q: %w", topic.Name, err)
	}
	return id, nil
}

// AddVerse links a verse to a topic, updating the score of an existing link
func (r *TopicRepository) AddVerse(ctx context.Context, link models.TopicVerse) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO topic_verses (topic_id, verse_id, relevance_score)
		VALUES ($1, $2, $3)
		ON CONFLICT (topic_id, verse_id) DO UPDATE SET relevance_score = EXCLUDED.relevance_score
	`, link.TopicID, link.VerseID, link.RelevanceScore)
	if err != nil {
		return fmt.Errorf("add verse to topic: %w", err)
	}
	return nil
}
