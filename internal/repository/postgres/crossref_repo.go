package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

const maxCrossReferences = 20

// CrossReferenceRepository implements repository.CrossReferenceRepository for PostgreSQL
type CrossReferenceRepository struct {
	db *sqlx.DB
}

// NewCrossReferenceRepository creates a new PostgreSQL cross-reference repository
func NewCrossReferenceRepository(db *sqlx.DB) repository.CrossReferenceRepository {
	return &CrossReferenceRepository{db: db}
}

// FindByVerse returns the references linked from a verse in any translation
func (r *CrossReferenceRepository) FindByVerse(ctx context.Context, book string, chapter, verse int) ([]string, error) {
	var rows []models.Verse
	err := r.db.SelectContext(ctx, &rows, `
		SELECT DISTINCT rv.book, rv.chapter, rv.verse
		FROM cross_references cr
		JOIN verses v ON v.id = cr.verse_id
		JOIN verses rv ON rv.id = cr.referenced_verse_id
		WHERE v.book = $1 AND v.chapter = $2 AND v.verse = $3
		ORDER BY rv.book, rv.chapter, rv.verse
		LIMIT $4
	`, book, chapter, verse, maxCrossReferences)
	if err != nil {
		return nil, fmt.Errorf("find cross references: %w", err)
	}

	refs := make([]string, len(rows))
	for i, v := range rows {
		refs[i] = v.Ref()
	}
	return refs, nil
}
