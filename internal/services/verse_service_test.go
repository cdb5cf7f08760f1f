package services

import (
	"context"
	"testing"
	"time"

	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerseServiceGetByReference(t *testing.T) {
	t.Parallel()

	repo := newFakeVerseRepo()
	c, mr := newTestCache(t)
	svc := NewVerseService(repo, newFakeTopicRepo(), &fakeCrossRefRepo{}, c, DefaultCacheTTLs, logger.Nop())
	ctx := context.Background()

	v, err := svc.GetByReference(ctx, "john 3:16", "NIV")
	require.NoError(t, err)
	assert.Equal(t, "For God so loved the world that he gave his one and only Son", v.Text)
	assert.True(t, mr.Exists("verse:John:3:16:NIV"))

	_, err = svc.GetByReference(ctx, "John 3:16", "NIV")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.callCount("FindByReference"), "second lookup should be served from cache")

	_, err = svc.GetByReference(ctx, "Hesitations 3:14", "NIV")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.GetByReference(ctx, "John 3:99", "NIV")
	require.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Equal(t, "Verse not found: John 3:99", apperr.Message(err, ""))
}

func TestVerseServiceExists(t *testing.T) {
	t.Parallel()

	repo := newFakeVerseRepo()
	svc := newTestVerseService(repo)
	ctx := context.Background()

	ok, err := svc.Exists(ctx, "Proverbs", 3, 5, "NIV")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, "Proverbs", 3, 5, "KJV")
	require.NoError(t, err)
	assert.False(t, ok)

	repo.findErr = errStore
	_, err = svc.Exists(ctx, "Proverbs", 3, 5, "NIV")
	assert.ErrorIs(t, err, errStore)
}

func TestVerseServiceGetRange(t *testing.T) {
	t.Parallel()

	svc := newTestVerseService(newFakeVerseRepo())
	ctx := context.Background()

	verses, err := svc.GetRange(ctx, "John 3:15-17", "NIV")
	require.NoError(t, err)
	require.Len(t, verses, 3)
	assert.Equal(t, 15, verses[0].Verse)
	assert.Equal(t, 17, verses[2].Verse)

	verses, err = svc.GetRange(ctx, "Psalms 23:1", "NIV")
	require.NoError(t, err)
	assert.Len(t, verses, 1)

	_, err = svc.GetRange(ctx, "John 5:1-4", "NIV")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestVerseServiceGetByTopic(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	svc := NewVerseService(newFakeVerseRepo(), newFakeTopicRepo(), &fakeCrossRefRepo{}, c, DefaultCacheTTLs, logger.Nop())
	ctx := context.Background()

	got, err := svc.GetByTopic(ctx, "PEACE", 5, "NIV")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Philippians 4:7", got[0].Reference)
	assert.InDelta(t, 0.9, got[0].Relevance, 1e-9)
	assert.True(t, mr.Exists("verse:topic:peace:5:NIV"))
	assert.Equal(t, time.Hour, mr.TTL("verse:topic:peace:5:NIV"))

	got, err = svc.GetByTopic(ctx, "astrology", 5, "NIV")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NotNil(t, got)
}

func TestVerseServiceSearch(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	svc := NewVerseService(newFakeVerseRepo(), newFakeTopicRepo(), &fakeCrossRefRepo{}, c, DefaultCacheTTLs, logger.Nop())

	got, err := svc.Search(context.Background(), "shepherd", 5, "NIV")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Psalms 23:1", got[0].Reference)
	assert.InDelta(t, 0.1, got[0].Relevance, 1e-9)
	assert.Equal(t, 5*time.Minute, mr.TTL("verse:search:shepherd:5:NIV"))
}

func TestVerseServiceDailyIsStable(t *testing.T) {
	t.Parallel()

	repo := newFakeVerseRepo()
	c, mr := newTestCache(t)
	svc := NewVerseService(repo, newFakeTopicRepo(), &fakeCrossRefRepo{}, c, DefaultCacheTTLs, logger.Nop())
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	first, err := svc.Daily(ctx, "NIV")
	require.NoError(t, err)
	second, err := svc.Daily(ctx, "NIV")
	require.NoError(t, err)

	assert.Equal(t, first.Ref(), second.Ref())
	assert.Equal(t, 1, repo.callCount("Random"))
	assert.True(t, mr.Exists("verse:daily:2026-10-19:NIV"))

	svc.now = func() time.Time { return time.Date(2026, 10, 20, 1, 0, 0, 0, time.UTC) }
	_, err = svc.Daily(ctx, "NIV")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.callCount("Random"))
}

func TestVerseServiceContext(t *testing.T) {
	t.Parallel()

	svc := newTestVerseService(newFakeVerseRepo())
	ctx := context.Background()

	vc, err := svc.Context(ctx, "John 3:16", "NIV")
	require.NoError(t, err)
	require.NotNil(t, vc.Previous)
	require.NotNil(t, vc.Next)
	assert.Equal(t, 15, vc.Previous.Verse)
	assert.Equal(t, 17, vc.Next.Verse)
	assert.Equal(t, "John chapter 3, verses 15-17", vc.ChapterContext)

	vc, err = svc.Context(ctx, "Psalms 23:1", "NIV")
	require.NoError(t, err)
	assert.Nil(t, vc.Previous)
	assert.Nil(t, vc.Next)
	assert.Equal(t, "Psalms chapter 23, verse 1", vc.ChapterContext)
}

func TestVerseServiceCrossReferences(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("stored", func(t *testing.T) {
		t.Parallel()
		xrefs := &fakeCrossRefRepo{refs: map[string][]string{"Isaiah 41:10": {"Deuteronomy 31:6"}}}
		svc := NewVerseService(newFakeVerseRepo(), newFakeTopicRepo(), xrefs, nil, DefaultCacheTTLs, logger.Nop())
		assert.Equal(t, []string{"Deuteronomy 31:6"}, svc.CrossReferences(ctx, "Isaiah 41:10"))
	})

	t.Run("fallback", func(t *testing.T) {
		t.Parallel()
		svc := newTestVerseService(newFakeVerseRepo())
		assert.Equal(t, []string{"Romans 5:8", "1 John 4:9-10", "Ephesians 2:4-5"}, svc.CrossReferences(ctx, "John 3:16"))
	})

	t.Run("store error is not cached", func(t *testing.T) {
		t.Parallel()
		c, mr := newTestCache(t)
		svc := NewVerseService(newFakeVerseRepo(), newFakeTopicRepo(), &fakeCrossRefRepo{err: errStore}, c, DefaultCacheTTLs, logger.Nop())
		assert.Equal(t, []string{"Romans 5:8", "1 John 4:9-10", "Ephesians 2:4-5"}, svc.CrossReferences(ctx, "John 3:16"))
		assert.False(t, mr.Exists("verse:xref:John:3:16"))
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		svc := newTestVerseService(newFakeVerseRepo())
		got := svc.CrossReferences(ctx, "Obadiah 1:3")
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}
