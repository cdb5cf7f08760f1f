package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	pkgservices "github.com/sola-scriptura-chat-api/pkg/schema/services"
)

var errStore = errors.New("connection refused")

var testVerses = []models.Verse{
	{ID: 1, Book: "John", Chapter: 3, Verse: 15, Text: "That whosoever believeth in him should not perish", Translation: "NIV", Testament: "NT"},
	{ID: 2, Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world that he gave his one and only Son", Translation: "NIV", Testament: "NT"},
	{ID: 3, Book: "John", Chapter: 3, Verse: 17, Text: "For God did not send his Son into the world to condemn the world", Translation: "NIV", Testament: "NT"},
	{ID: 4, Book: "Philippians", Chapter: 4, Verse: 6, Text: "Do not be anxious about anything, but in every situation, by prayer and petition, present your requests to God", Translation: "NIV", Testament: "NT"},
	{ID: 5, Book: "Philippians", Chapter: 4, Verse: 7, Text: "And the peace of God, which transcends all understanding, will guard your hearts", Translation: "NIV", Testament: "NT"},
	{ID: 6, Book: "Proverbs", Chapter: 3, Verse: 5, Text: "Trust in the LORD with all your heart and lean not on your own understanding", Translation: "NIV", Testament: "OT"},
	{ID: 7, Book: "Isaiah", Chapter: 41, Verse: 10, Text: "So do not fear, for I am with you; do not be dismayed, for I am your God", Translation: "NIV", Testament: "OT"},
	{ID: 8, Book: "Psalms", Chapter: 23, Verse: 1, Text: "The LORD is my shepherd, I lack nothing", Translation: "NIV", Testament: "OT"},
	{ID: 9, Book: "Hebrews", Chapter: 11, Verse: 1, Text: "Now faith is confidence in what we hope for and assurance about what we do not see", Translation: "NIV", Testament: "NT"},
	{ID: 10, Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world, that he gave his only begotten Son", Translation: "KJV", Testament: "NT"},
}

// fakeVerseRepo answers from testVerses. Search matches verses containing any query word.
type fakeVerseRepo struct {
	mu        sync.Mutex
	verses    []models.Verse
	topicRows map[int64][]models.ScoredVerse
	searchErr error
	findErr   error
	calls     map[string]int
}

func newFakeVerseRepo() *fakeVerseRepo {
	return &fakeVerseRepo{
		verses: testVerses,
		topicRows: map[int64][]models.ScoredVerse{
			1: {{Verse: testVerses[4], Score: 0.9}},
			2: {{Verse: testVerses[5], Score: 0.8}},
			3: {{Verse: testVerses[8], Score: 0.7}},
		},
		calls: map[string]int{},
	}
}

func (f *fakeVerseRepo) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeVerseRepo) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeVerseRepo) FindByReference(_ context.Context, book string, chapter, verse int, translation string) (*models.Verse, error) {
	f.count("FindByReference")
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, v := range f.verses {
		if v.Book == book && v.Chapter == chapter && v.Verse == verse && v.Translation == translation {
			v := v
			return &v, nil
		}
	}
	return nil, fmt.Errorf("find verse: %w", apperr.ErrNotFound)
}

func (f *fakeVerseRepo) FindRange(_ context.Context, book string, chapter, start, end int, translation string) ([]models.Verse, error) {
	out := []models.Verse{}
	for _, v := range f.verses {
		if v.Book == book && v.Chapter == chapter && v.Verse >= start && v.Verse <= end && v.Translation == translation {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeVerseRepo) Search(_ context.Context, query string, limit int, translation string) ([]models.ScoredVerse, error) {
	f.count("Search")
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	words := strings.Fields(strings.ToLower(query))
	out := []models.ScoredVerse{}
	for _, v := range f.verses {
		if len(out) == limit {
			break
		}
		if v.Translation != translation {
			continue
		}
		text := strings.ToLower(v.Text)
		for _, w := range words {
			if len(w) > 3 && strings.Contains(text, w) {
				out = append(out, models.ScoredVerse{Verse: v, Score: 0.1})
				break
			}
		}
	}
	return out, nil
}

func (f *fakeVerseRepo) FindByTopic(_ context.Context, topicID int64, limit int, translation string) ([]models.ScoredVerse, error) {
	rows := f.topicRows[topicID]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (f *fakeVerseRepo) Random(_ context.Context, translation string) (*models.Verse, error) {
	f.count("Random")
	for _, v := range f.verses {
		if v.Translation == translation {
			v := v
			return &v, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeVerseRepo) FindNeighbors(ctx context.Context, book string, chapter, verse int, translation string) (*models.Verse, *models.Verse, error) {
	rows, _ := f.FindRange(ctx, book, chapter, verse-1, verse+1, translation)
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

func (f *fakeVerseRepo) BulkInsert(context.Context, []models.Verse) (int64, error) { return 0, nil }

func (f *fakeVerseRepo) ListWithoutEmbedding(context.Context, int64, int) ([]models.Verse, error) {
	return nil, nil
}

func (f *fakeVerseRepo) SetEmbedding(context.Context, int64, []float64) error { return nil }

type fakeTopicRepo struct {
	topics []models.Topic
	err    error
}

func newFakeTopicRepo() *fakeTopicRepo {
	return &fakeTopicRepo{topics: []models.Topic{
		{ID: 1, Name: "Peace", Category: "Emotions", RelatedTopics: []string{"Rest", "Trust"}},
		{ID: 2, Name: "Trust", Category: "Faith"},
		{ID: 3, Name: "Faith", Category: "Faith"},
	}}
}

func (f *fakeTopicRepo) FindByName(_ context.Context, name string) (*models.Topic, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, t := range f.topics {
		if strings.EqualFold(t.Name, name) {
			t := t
			return &t, nil
		}
	}
	return nil, fmt.Errorf("find topic: %w", apperr.ErrNotFound)
}

func (f *fakeTopicRepo) SearchByWords(_ context.Context, words []string, topK int) ([]models.ScoredTopic, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := []models.ScoredTopic{}
	for _, t := range f.topics {
		for _, w := range words {
			if strings.EqualFold(t.Name, w) {
				out = append(out, models.ScoredTopic{ID: t.ID, Name: t.Name, Score: 1, MatchedWords: []string{w}})
			}
		}
	}
	return out, nil
}

func (f *fakeTopicRepo) List(_ context.Context, limit int) ([]models.Topic, error) {
	return f.topics, nil
}

func (f *fakeTopicRepo) Upsert(context.Context, models.Topic) (int64, error) { return 0, nil }

func (f *fakeTopicRepo) AddVerse(context.Context, models.TopicVerse) error { return nil }

type fakeCrossRefRepo struct {
	refs map[string][]string
	err  error
}

func (f *fakeCrossRefRepo) FindByVerse(_ context.Context, book string, chapter, verse int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.refs[fmt.Sprintf("%s %d:%d", book, chapter, verse)], nil
}

// fakeGenerator returns a fixed reply and records prompts
type fakeGenerator struct {
	mu       sync.Mutex
	reply    string
	tokens   int
	err      error
	requests []pkgservices.GenerateRequest
}

func (f *fakeGenerator) Generate(_ context.Context, req pkgservices.GenerateRequest) (*pkgservices.GenerateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &pkgservices.GenerateResult{Text: f.reply, TokensUsed: f.tokens}, nil
}

func (f *fakeGenerator) Close() error { return nil }

func (f *fakeGenerator) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

type fakeAPIKeyRepo struct {
	mu          sync.Mutex
	keys        []models.APIKey
	increments  map[int64]int
	deactivated []int64
}

func newFakeAPIKeyRepo() *fakeAPIKeyRepo {
	return &fakeAPIKeyRepo{increments: map[int64]int{}}
}

func (f *fakeAPIKeyRepo) Create(_ context.Context, key *models.APIKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key.ID = int64(len(f.keys) + 1)
	key.IsActive = true
	f.keys = append(f.keys, *key)
	return nil
}

func (f *fakeAPIKeyRepo) FindByPrefix(_ context.Context, prefix string) ([]models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.APIKey{}
	for _, k := range f.keys {
		if k.KeyPrefix == prefix && k.IsActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeAPIKeyRepo) FindByID(_ context.Context, id int64) (*models.APIKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range f.keys {
		if k.ID == id {
			k := k
			return &k, nil
		}
	}
	return nil, apperr.ErrNotFound
}

func (f *fakeAPIKeyRepo) IncrementUsage(_ context.Context, id int64, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.increments[id] += amount
	return nil
}

func (f *fakeAPIKeyRepo) Deactivate(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated = append(f.deactivated, id)
	for i := range f.keys {
		if f.keys[i].ID == id {
			f.keys[i].IsActive = false
		}
	}
	return nil
}

func (f *fakeAPIKeyRepo) ResetMonthlyUsage(context.Context) (int64, error) { return 0, nil }

type fakeUsageRepo struct {
	mu      sync.Mutex
	records []models.UsageRecord
}

func (f *fakeUsageRepo) Record(_ context.Context, rec models.UsageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

type fakeConversationRepo struct {
	mu    sync.Mutex
	convs map[string]*models.Conversation
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{convs: map[string]*models.Conversation{}}
}

func (f *fakeConversationRepo) Append(_ context.Context, id string, apiKeyID int64, msgs models.Messages) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		c = &models.Conversation{ID: id, APIKeyID: apiKeyID}
		f.convs[id] = c
	}
	if c.APIKeyID != apiKeyID {
		return apperr.ErrForbidden
	}
	c.Messages = append(c.Messages, msgs...)
	return nil
}

func (f *fakeConversationRepo) Get(_ context.Context, id string, apiKeyID int64) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok || c.APIKeyID != apiKeyID {
		return nil, apperr.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func newTestVerseService(repo *fakeVerseRepo) *VerseService {
	return NewVerseService(repo, newFakeTopicRepo(), &fakeCrossRefRepo{}, nil, DefaultCacheTTLs, logger.Nop())
}

func newTestCache(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return cache.NewRedisFromClient(rdb, logger.Nop()), mr
}
