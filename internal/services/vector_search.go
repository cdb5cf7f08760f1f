package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"github.com/sola-scriptura-chat-api/internal/scripture"
	"golang.org/x/sync/errgroup"
)

// QueryEmbedder turns a search query into an embedding
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
}

// VerseSearcher is the full-text search the search service filters and falls back to
type VerseSearcher interface {
	Search(ctx context.Context, query string, limit int, translation string) ([]models.VerseWithRelevance, error)
}

// SearchService handles filtered full-text search, semantic search and topic search
type SearchService struct {
	verses     VerseSearcher
	vectorRepo repository.VectorSearchRepository
	topicRepo  repository.TopicRepository
	embedder   QueryEmbedder
	log        *logger.Logger
}

// NewSearchService creates a new search service. A nil embedder makes semantic search
// fall back to full-text search.
func NewSearchService(
	verses VerseSearcher,
	vectorRepo repository.VectorSearchRepository,
	topicRepo repository.TopicRepository,
	embedder QueryEmbedder,
	log *logger.Logger,
) *SearchService {
	return &SearchService{
		verses:     verses,
		vectorRepo: vectorRepo,
		topicRepo:  topicRepo,
		embedder:   embedder,
		log:        log,
	}
}

// BibleSearch is a filtered full-text search
type BibleSearch struct {
	Query       string
	Book        string
	Testament   string
	Translation string
	Limit       int
}

// SearchBible runs a full-text search, optionally narrowed to one book or testament.
// Filtered searches over-fetch so filtering still leaves up to Limit results.
func (s *SearchService) SearchBible(ctx context.Context, p BibleSearch) ([]models.VerseWithRelevance, error) {
	testament := normalizeTestament(p.Testament)
	book := ""
	if p.Book != "" {
		canonical, ok := scripture.CanonicalBook(p.Book)
		if !ok {
			return []models.VerseWithRelevance{}, nil
		}
		book = canonical
	}

	fetch := p.Limit
	if book != "" || testament != "" {
		fetch = p.Limit * 2
	}

	verses, err := s.verses.Search(ctx, p.Query, fetch, p.Translation)
	if err != nil {
		return nil, err
	}

	out := make([]models.VerseWithRelevance, 0, min(len(verses), p.Limit))
	for _, v := range verses {
		if len(out) == p.Limit {
			break
		}
		if book != "" && v.Book != book {
			continue
		}
		if testament != "" && scripture.TestamentOf(v.Book) != testament {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeTestament(t string) string {
	switch strings.ToLower(t) {
	case "old", "ot":
		return scripture.OldTestament
	case "new", "nt":
		return scripture.NewTestament
	default:
		return ""
	}
}

// SemanticSearch embeds the query and ranks verses by vector similarity. When no embedder
// is configured, or embedding or vector search fails, it falls back to full-text search and
// reports fallback as true.
func (s *SearchService) SemanticSearch(ctx context.Context, query string, topK int, translation string) (citations []models.Citation, fallback bool, err error) {
	if s.embedder != nil && s.vectorRepo != nil {
		scored, err := s.searchVectors(ctx, query, topK, translation)
		if err == nil {
			return scoredToCitations(scored), false, nil
		}
		s.log.Warn("semantic search failed, falling back to text search", "query", query, "error", err)
	}

	verses, err := s.verses.Search(ctx, query, topK, translation)
	if err != nil {
		return nil, true, err
	}
	return relevanceToCitations(verses), true, nil
}

func (s *SearchService) searchVectors(ctx context.Context, query string, topK int, translation string) ([]models.ScoredVerse, error) {
	embedding, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.vectorRepo.SearchVersesByEmbedding(ctx, embedding, topK, translation)
}

// SearchTopics searches topics by keywords
func (s *SearchService) SearchTopics(ctx context.Context, query string, topK int) ([]models.ScoredTopic, error) {
	words := tokenizeWords(query)
	if len(words) == 0 {
		return []models.ScoredTopic{}, nil
	}
	return s.topicRepo.SearchByWords(ctx, words, topK)
}

// HybridSearch runs semantic verse search and topic search side by side. A failed topic
// search is logged and yields no topics.
func (s *SearchService) HybridSearch(ctx context.Context, query string, verseLimit, topicLimit int, translation string) (*models.HybridSearchResponse, error) {
	var citations []models.Citation
	topics := []models.ScoredTopic{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		citations, _, err = s.SemanticSearch(gctx, query, verseLimit, translation)
		return err
	})
	g.Go(func() error {
		found, err := s.SearchTopics(gctx, query, topicLimit)
		if err != nil {
			s.log.Warn("topic search failed", "query", query, "error", err)
			return nil
		}
		topics = found
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.HybridSearchResponse{
		Query:  query,
		Verses: citations,
		Topics: topics,
	}, nil
}

func scoredToCitations(rows []models.ScoredVerse) []models.Citation {
	out := make([]models.Citation, len(rows))
	for i, v := range rows {
		score := v.Score
		out[i] = citation(v.Verse, &score)
	}
	return out
}

func relevanceToCitations(rows []models.VerseWithRelevance) []models.Citation {
	out := make([]models.Citation, len(rows))
	for i, v := range rows {
		score := v.Relevance
		out[i] = citation(v.Verse, &score)
	}
	return out
}

func citation(v models.Verse, score *float64) models.Citation {
	return models.Citation{
		Reference:      v.Ref(),
		Text:           v.Text,
		Book:           v.Book,
		Chapter:        v.Chapter,
		Verse:          v.Verse,
		Translation:    v.Translation,
		RelevanceScore: score,
	}
}
