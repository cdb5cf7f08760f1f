package services

import (
	"context"
	"errors"
	"testing"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	err error
}

func (f fakeEmbedder) EmbedQuery(context.Context, string) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float64{0.1, 0.2, 0.3}, nil
}

type fakeVectorRepo struct {
	rows []models.ScoredVerse
	err  error
	got  []float64
}

func (f *fakeVectorRepo) SearchVersesByEmbedding(_ context.Context, embedding []float64, topK int, _ string) ([]models.ScoredVerse, error) {
	f.got = embedding
	if f.err != nil {
		return nil, f.err
	}
	return f.rows[:min(topK, len(f.rows))], nil
}

type searcherFunc func(ctx context.Context, query string, limit int, translation string) ([]models.VerseWithRelevance, error)

func (f searcherFunc) Search(ctx context.Context, query string, limit int, translation string) ([]models.VerseWithRelevance, error) {
	return f(ctx, query, limit, translation)
}

func TestSemanticSearch(t *testing.T) {
	t.Parallel()

	verses := newTestVerseService(newFakeVerseRepo())
	ctx := context.Background()

	t.Run("vector", func(t *testing.T) {
		t.Parallel()
		vectors := &fakeVectorRepo{rows: []models.ScoredVerse{{Verse: testVerses[6], Score: 0.91}}}
		svc := NewSearchService(verses, vectors, newFakeTopicRepo(), fakeEmbedder{}, logger.Nop())

		got, fallback, err := svc.SemanticSearch(ctx, "when I am afraid", 5, "NIV")
		require.NoError(t, err)
		assert.False(t, fallback)
		require.Len(t, got, 1)
		assert.Equal(t, "Isaiah 41:10", got[0].Reference)
		require.NotNil(t, got[0].RelevanceScore)
		assert.InDelta(t, 0.91, *got[0].RelevanceScore, 1e-9)
		assert.Equal(t, []float64{0.1, 0.2, 0.3}, vectors.got)
	})

	t.Run("embedding failure falls back", func(t *testing.T) {
		t.Parallel()
		svc := NewSearchService(verses, &fakeVectorRepo{}, newFakeTopicRepo(), fakeEmbedder{err: errors.New("quota")}, logger.Nop())

		got, fallback, err := svc.SemanticSearch(ctx, "shepherd", 5, "NIV")
		require.NoError(t, err)
		assert.True(t, fallback)
		require.Len(t, got, 1)
		assert.Equal(t, "Psalms 23:1", got[0].Reference)
	})

	t.Run("no embedder", func(t *testing.T) {
		t.Parallel()
		svc := NewSearchService(verses, nil, newFakeTopicRepo(), nil, logger.Nop())

		got, fallback, err := svc.SemanticSearch(ctx, "world", 5, "NIV")
		require.NoError(t, err)
		assert.True(t, fallback)
		assert.Len(t, got, 2)
	})
}

func TestSearchBibleFilters(t *testing.T) {
	t.Parallel()

	verses := newTestVerseService(newFakeVerseRepo())
	svc := NewSearchService(verses, nil, newFakeTopicRepo(), nil, logger.Nop())
	ctx := context.Background()

	got, err := svc.SearchBible(ctx, BibleSearch{Query: "your", Testament: "old", Translation: "NIV", Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Proverbs 3:5", got[0].Reference)
	assert.Equal(t, "Isaiah 41:10", got[1].Reference)

	got, err = svc.SearchBible(ctx, BibleSearch{Query: "your", Book: "philippians", Translation: "NIV", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Philippians 4:6", got[0].Reference)

	got, err = svc.SearchBible(ctx, BibleSearch{Query: "your", Book: "Hezekiah", Translation: "NIV", Limit: 5})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchBibleOverFetchesWhenFiltered(t *testing.T) {
	t.Parallel()

	var limits []int
	searcher := searcherFunc(func(_ context.Context, _ string, limit int, _ string) ([]models.VerseWithRelevance, error) {
		limits = append(limits, limit)
		return nil, nil
	})
	svc := NewSearchService(searcher, nil, newFakeTopicRepo(), nil, logger.Nop())
	ctx := context.Background()

	_, err := svc.SearchBible(ctx, BibleSearch{Query: "love", Limit: 10})
	require.NoError(t, err)
	_, err = svc.SearchBible(ctx, BibleSearch{Query: "love", Testament: "NT", Limit: 10})
	require.NoError(t, err)

	assert.Equal(t, []int{10, 20}, limits)
}

func TestHybridSearch(t *testing.T) {
	t.Parallel()

	verses := newTestVerseService(newFakeVerseRepo())
	ctx := context.Background()

	svc := NewSearchService(verses, nil, newFakeTopicRepo(), nil, logger.Nop())
	res, err := svc.HybridSearch(ctx, "peace and trust", 5, 5, "NIV")
	require.NoError(t, err)
	assert.Equal(t, "peace and trust", res.Query)
	require.Len(t, res.Topics, 2)
	assert.Equal(t, "Peace", res.Topics[0].Name)
	assert.Equal(t, "Trust", res.Topics[1].Name)
	require.Len(t, res.Verses, 2)

	svc = NewSearchService(verses, nil, &fakeTopicRepo{err: errStore}, nil, logger.Nop())
	res, err = svc.HybridSearch(ctx, "peace", 5, 5, "NIV")
	require.NoError(t, err)
	assert.NotNil(t, res.Topics)
	assert.Empty(t, res.Topics)
	assert.Len(t, res.Verses, 1)

	failing := searcherFunc(func(context.Context, string, int, string) ([]models.VerseWithRelevance, error) {
		return nil, errStore
	})
	svc = NewSearchService(failing, nil, newFakeTopicRepo(), nil, logger.Nop())
	_, err = svc.HybridSearch(ctx, "peace", 5, 5, "NIV")
	assert.ErrorIs(t, err, errStore)
}
