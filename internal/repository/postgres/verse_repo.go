package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

const verseColumns = `id, book, chapter, verse, text, translation, testament`

// bulkInsertBatch keeps each INSERT well under the 65535 bind parameter limit.
const bulkInsertBatch = 1000

// VerseRepository implements repository.VerseRepository for PostgreSQL
type VerseRepository struct {
	db *sqlx.DB
}

var _ repository.VerseRepository = (*VerseRepository)(nil)

// NewVerseRepository creates a new PostgreSQL verse repository
func NewVerseRepository(db *sqlx.DB) *VerseRepository {
	return &VerseRepository{db: db}
}

// FindByReference looks up one verse in one translation
func (r *VerseRepository) FindByReference(ctx context.Context, book string, chapter, verse int, translation string) (*models.Verse, error) {
	var v models.Verse
	err := r.db.GetContext(ctx, &v, `
		SELECT `+verseColumns+`
		FROM verses
		WHERE book = $1 AND chapter = $2 AND verse = $3 AND translation = $4
	`, book, chapter, verse, translation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find verse %s %d:%d (%s): %w", book, chapter, verse, translation, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find verse: %w", err)
	}
	return &v, nil
}

// FindRange returns verses start..end of a chapter in verse order
func (r *VerseRepository) FindRange(ctx context.Context, book string, chapter, start, end int, translation string) ([]models.Verse, error) {
	verses := []models.Verse{}
	err := r.db.SelectContext(ctx, &verses, `
		SELECT `+verseColumns+`
		FROM verses
		WHERE book = $1 AND chapter = $2 AND verse BETWEEN $3 AND $4 AND translation = $5
		ORDER BY verse ASC
	`, book, chapter, start, end, translation)
	if err != nil {
		return nil, fmt.Errorf("find verse range: %w", err)
	}
	return verses, nil
}

// Search runs an English full-text search over verse text
func (r *VerseRepository) Search(ctx context.Context, query string, limit int, translation string) ([]models.ScoredVerse, error) {
	results := []models.ScoredVerse{}
	if query == "" || limit <= 0 {
		return results, nil
	}
	err := r.db.SelectContext(ctx, &results, `
		SELECT `+verseColumns+`,
		       ts_rank(to_tsvector('english', text), plainto_tsquery('english', $1)) AS score
		FROM verses
		WHERE translation = $3
		  AND to_tsvector('english', text) @@ plainto_tsquery('english', $1)
		ORDER BY score DESC, id ASC
		LIMIT $2
	`, query, limit, translation)
	if err != nil {
		return nil, fmt.Errorf("search verses: %w", err)
	}
	return results, nil
}

// FindByTopic returns verses associated with a topic, most relevant first
func (r *VerseRepository) FindByTopic(ctx context.Context, topicID int64, limit int, translation string) ([]models.ScoredVerse, error) {
	results := []models.ScoredVerse{}
	if limit <= 0 {
		return results, nil
	}
	err := r.db.SelectContext(ctx, &results, `
		SELECT v.id, v.book, v.chapter, v.verse, v.text, v.translation, v.testament,
		       tv.relevance_score AS score
		FROM verses v
		JOIN topic_verses tv ON v.id = tv.verse_id
		WHERE tv.topic_id = $1 AND v.translation = $2
		ORDER BY tv.relevance_score DESC, v.id ASC
		LIMIT $3
	`, topicID, translation, limit)
	if err != nil {
		return nil, fmt.Errorf("find verses by topic: %w", err)
	}
	return results, nil
}

// Random picks one verse of a translation
func (r *VerseRepository) Random(ctx context.Context, translation string) (*models.Verse, error) {
	var v models.Verse
	err := r.db.GetContext(ctx, &v, `
		SELECT `+verseColumns+`
		FROM verses
		WHERE translation = $1
		ORDER BY RANDOM()
		LIMIT 1
	`, translation)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("random verse (%s): %w", translation, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("random verse: %w", err)
	}
	return &v, nil
}

// FindNeighbors returns the previous and next verse of the chapter
func (r *VerseRepository) FindNeighbors(ctx context.Context, book string, chapter, verse int, translation string) (*models.Verse, *models.Verse, error) {
	rows, err := r.FindRange(ctx, book, chapter, verse-1, verse+1, translation)
	if err != nil {
		return nil, nil, fmt.Errorf("find neighbouring verses: %w", err)
	}

	var prev, next *models.Verse
	for i := range rows {
		switch rows[i].Verse {
		case verse - 1:
			prev = &rows[i]
		case verse + 1:
			next = &rows[i]
		}
	}
	return prev, next, nil
}

// BulkInsert inserts verses in batches, ignoring rows that already exist
func (r *VerseRepository) BulkInsert(ctx context.Context, verses []models.Verse) (int64, error) {
	var total int64
	for i := 0; i < len(verses); i += bulkInsertBatch {
		end := min(i+bulkInsertBatch, len(verses))
		res, err := r.db.NamedExecContext(ctx, `
			INSERT INTO verses (book, chapter, verse, text, translation, testament)
			VALUES (:book, :chapter, :verse, :text, :translation, :testament)
			ON CONFLICT (book, chapter, verse, translation) DO NOTHING
		`, verses[i:end])
		if err != nil {
			return total, fmt.Errorf("insert verses batch %d: %w", i/bulkInsertBatch, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("count inserted verses: %w", err)
		}
		total += n
	}
	return total, nil
}

// ListWithoutEmbedding pages through verses that still need an embedding
func (r *VerseRepository) ListWithoutEmbedding(ctx context.Context, afterID int64, limit int) ([]models.Verse, error) {
	verses := []models.Verse{}
	err := r.db.SelectContext(ctx, &verses, `
		SELECT `+verseColumns+`
		FROM verses
		WHERE embedding IS NULL AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("list verses without embedding: %w", err)
	}
	return verses, nil
}

// SetEmbedding stores a verse embedding in the pgvector column
func (r *VerseRepository) SetEmbedding(ctx context.Context, verseID int64, embedding []float64) error {
	vec := pgvector.NewVector(float32Slice(embedding))
	if _, err := r.db.ExecContext(ctx, `UPDATE verses SET embedding = $1 WHERE id = $2`, vec, verseID); err != nil {
		return fmt.Errorf("set verse embedding: %w", err)
	}
	return nil
}
