package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"github.com/sola-scriptura-chat-api/internal/scripture"
)

// CacheTTLs are the lifetimes used for cached lookups
type CacheTTLs struct {
	Medium time.Duration
	Long   time.Duration
	Day    time.Duration
}

// DefaultCacheTTLs mirrors the cache package tiers
var DefaultCacheTTLs = CacheTTLs{Medium: cache.TTLMedium, Long: cache.TTLLong, Day: cache.TTLDay}

// fallbackCrossReferences covers well-known verses when the cross_references table has
// nothing for them.
var fallbackCrossReferences = map[string][]string{
	"John 3:16":       {"Romans 5:8", "1 John 4:9-10", "Ephesians 2:4-5"},
	"Romans 8:28":     {"Genesis 50:20", "James 1:2-4", "Ephesians 1:11"},
	"Philippians 4:6": {"1 Peter 5:7", "Matthew 6:25-34", "Psalms 55:22"},
}

// VerseService is the cache-backed read path over the verse store
type VerseService struct {
	verses    repository.VerseRepository
	topics    repository.TopicRepository
	crossRefs repository.CrossReferenceRepository
	cache     cache.Cache
	ttl       CacheTTLs
	log       *logger.Logger
	now       func() time.Time
}

// NewVerseService creates a new verse service. A nil cache disables caching.
func NewVerseService(
	verses repository.VerseRepository,
	topics repository.TopicRepository,
	crossRefs repository.CrossReferenceRepository,
	c cache.Cache,
	ttl CacheTTLs,
	log *logger.Logger,
) *VerseService {
	if c == nil {
		c = cache.Noop{}
	}
	return &VerseService{
		verses:    verses,
		topics:    topics,
		crossRefs: crossRefs,
		cache:     c,
		ttl:       ttl,
		log:       log,
		now:       time.Now,
	}
}

func notFound(ref string) error {
	return apperr.NotFound(fmt.Sprintf("Verse not found: %s", ref))
}

// GetByReference resolves a "Book Chapter:Verse" string. For a range the first verse is
// returned. Unparseable references are not found.
func (s *VerseService) GetByReference(ctx context.Context, reference, translation string) (*models.Verse, error) {
	ref, ok := scripture.Parse(reference)
	if !ok {
		return nil, notFound(reference)
	}
	return s.lookup(ctx, ref.Book, ref.Chapter, ref.Verse, translation)
}

func (s *VerseService) lookup(ctx context.Context, book string, chapter, verse int, translation string) (*models.Verse, error) {
	key := fmt.Sprintf("verse:%s:%d:%d:%s", book, chapter, verse, translation)

	var cached models.Verse
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	v, err := s.verses.FindByReference(ctx, book, chapter, verse, translation)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, notFound(scripture.Format(book, chapter, verse))
	}
	if err != nil {
		return nil, fmt.Errorf("get verse: %w", err)
	}

	cache.SetJSON(ctx, s.cache, key, v, s.ttl.Day)
	return v, nil
}

// Exists reports whether a verse is stored in the translation
func (s *VerseService) Exists(ctx context.Context, book string, chapter, verse int, translation string) (bool, error) {
	_, err := s.lookup(ctx, book, chapter, verse, translation)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetRange resolves a reference to its verses. A single-verse reference yields one verse.
func (s *VerseService) GetRange(ctx context.Context, reference, translation string) ([]models.Verse, error) {
	ref, ok := scripture.Parse(reference)
	if !ok {
		return nil, notFound(reference)
	}
	if !ref.IsRange() {
		v, err := s.lookup(ctx, ref.Book, ref.Chapter, ref.Verse, translation)
		if err != nil {
			return nil, err
		}
		return []models.Verse{*v}, nil
	}

	key := fmt.Sprintf("verse:range:%s:%d:%d-%d:%s", ref.Book, ref.Chapter, ref.Verse, ref.End(), translation)
	var cached []models.Verse
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	verses, err := s.verses.FindRange(ctx, ref.Book, ref.Chapter, ref.Verse, ref.End(), translation)
	if err != nil {
		return nil, fmt.Errorf("get verse range: %w", err)
	}
	if len(verses) == 0 {
		return nil, apperr.NotFound(fmt.Sprintf("Verses not found: %s", ref))
	}

	cache.SetJSON(ctx, s.cache, key, verses, s.ttl.Day)
	return verses, nil
}

// Search runs a full-text search. Verses without a text rank get the default relevance.
func (s *VerseService) Search(ctx context.Context, query string, limit int, translation string) ([]models.VerseWithRelevance, error) {
	key := fmt.Sprintf("verse:search:%s:%d:%s", query, limit, translation)
	var cached []models.VerseWithRelevance
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	rows, err := s.verses.Search(ctx, query, limit, translation)
	if err != nil {
		return nil, fmt.Errorf("search verses: %w", err)
	}

	out := scoredToRelevance(rows)
	cache.SetJSON(ctx, s.cache, key, out, s.ttl.Medium)
	return out, nil
}

// GetByTopic returns the verses of a named topic. An unknown topic yields no verses.
func (s *VerseService) GetByTopic(ctx context.Context, topic string, limit int, translation string) ([]models.VerseWithRelevance, error) {
	t, err := s.topics.FindByName(ctx, topic)
	if errors.Is(err, apperr.ErrNotFound) {
		return []models.VerseWithRelevance{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get topic: %w", err)
	}

	key := fmt.Sprintf("verse:topic:%s:%d:%s", strings.ToLower(topic), limit, translation)
	var cached []models.VerseWithRelevance
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached, nil
	}

	rows, err := s.verses.FindByTopic(ctx, t.ID, limit, translation)
	if err != nil {
		return nil, fmt.Errorf("get verses by topic: %w", err)
	}

	out := scoredToRelevance(rows)
	cache.SetJSON(ctx, s.cache, key, out, s.ttl.Long)
	return out, nil
}

// Random returns an uncached random verse
func (s *VerseService) Random(ctx context.Context, translation string) (*models.Verse, error) {
	v, err := s.verses.Random(ctx, translation)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("No verse found")
	}
	if err != nil {
		return nil, fmt.Errorf("get random verse: %w", err)
	}
	return v, nil
}

// Daily returns the verse of the day, picked at random once per day and translation
func (s *VerseService) Daily(ctx context.Context, translation string) (*models.Verse, error) {
	key := fmt.Sprintf("verse:daily:%s:%s", s.now().UTC().Format(time.DateOnly), translation)

	var cached models.Verse
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return &cached, nil
	}

	v, err := s.Random(ctx, translation)
	if err != nil {
		return nil, err
	}
	cache.SetJSON(ctx, s.cache, key, v, s.ttl.Day)
	return v, nil
}

// Context returns a verse with its chapter neighbours
func (s *VerseService) Context(ctx context.Context, reference, translation string) (*models.VerseContext, error) {
	ref, ok := scripture.Parse(reference)
	if !ok {
		return nil, notFound(reference)
	}

	current, err := s.lookup(ctx, ref.Book, ref.Chapter, ref.Verse, translation)
	if err != nil {
		return nil, err
	}

	prev, next, err := s.verses.FindNeighbors(ctx, ref.Book, ref.Chapter, ref.Verse, translation)
	if err != nil {
		return nil, fmt.Errorf("get verse context: %w", err)
	}

	return &models.VerseContext{
		Previous:       prev,
		Current:        current,
		Next:           next,
		ChapterContext: chapterContext(ref, prev, next),
	}, nil
}

func chapterContext(ref scripture.Reference, prev, next *models.Verse) string {
	first, last := ref.Verse, ref.Verse
	if prev != nil {
		first = prev.Verse
	}
	if next != nil {
		last = next.Verse
	}
	if first == last {
		return fmt.Sprintf("%s chapter %d, verse %d", ref.Book, ref.Chapter, first)
	}
	return fmt.Sprintf("%s chapter %d, verses %d-%d", ref.Book, ref.Chapter, first, last)
}

// CrossReferences lists references linked to a verse, falling back to a built-in map
// when the store has none. Store failures are logged and treated as empty.
func (s *VerseService) CrossReferences(ctx context.Context, reference string) []string {
	ref, ok := scripture.Parse(reference)
	if !ok {
		return []string{}
	}

	key := fmt.Sprintf("verse:xref:%s:%d:%d", ref.Book, ref.Chapter, ref.Verse)
	var cached []string
	if cache.GetJSON(ctx, s.cache, key, &cached) {
		return cached
	}

	refs, err := s.crossRefs.FindByVerse(ctx, ref.Book, ref.Chapter, ref.Verse)
	if err != nil {
		s.log.Warn("cross reference lookup failed", "reference", ref.String(), "error", err)
	}
	if len(refs) == 0 {
		refs = fallbackCrossReferences[scripture.Format(ref.Book, ref.Chapter, ref.Verse)]
	}
	if refs == nil {
		refs = []string{}
	}

	if err == nil {
		cache.SetJSON(ctx, s.cache, key, refs, s.ttl.Day)
	}
	return refs
}

func scoredToRelevance(rows []models.ScoredVerse) []models.VerseWithRelevance {
	out := make([]models.VerseWithRelevance, len(rows))
	for i, r := range rows {
		rel := r.Score
		if rel <= 0 {
			rel = defaultRelevance
		}
		out[i] = models.WithRelevance(r.Verse, clamp01(rel))
	}
	return out
}
