package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/middleware"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/services"
	"github.com/stretchr/testify/require"
)

const (
	paidKey = "bca_paid"
	freeKey = "bca_free"
)

type testAuth struct{}

func (testAuth) Authenticate(_ context.Context, raw string) (*models.APIKey, error) {
	switch raw {
	case paidKey:
		return &models.APIKey{ID: 7, Name: "paid", Tier: models.TierPaid, MonthlyLimit: 10000, IsActive: true}, nil
	case freeKey:
		return &models.APIKey{ID: 8, Name: "free", Tier: models.TierFree, MonthlyLimit: 1000, IsActive: true}, nil
	}
	return nil, apperr.Unauthorized("Invalid API key")
}

type recorder struct {
	records []models.UsageRecord
}

func (r *recorder) Track(rec models.UsageRecord) bool {
	r.records = append(r.records, rec)
	return true
}

// newTestServer mounts one handler's routes behind key auth and usage tracking
func newTestServer(register func(g *echo.Group, m ...echo.MiddlewareFunc), extra ...echo.MiddlewareFunc) (*echo.Echo, *recorder) {
	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger.Nop(), false)
	e.Validator = middleware.NewRequestValidator()

	rec := &recorder{}
	m := append([]echo.MiddlewareFunc{
		middleware.RequireAPIKey(testAuth{}, logger.Nop()),
		middleware.TrackUsage(rec),
	}, extra...)
	register(e.Group("/api/v1"), m...)
	return e, rec
}

func do(e *echo.Echo, method, target, key, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if key != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[middleware.ErrorResponse](t, rec).Message
}

type fakeAssistant struct {
	called     bool
	chatKey    int64
	chatReq    models.ChatRequest
	historyKey int64
	historyID  string
	explainReq models.ExplainRequest
	dailyReq   models.DailyRequest
	listLimit  int
	topicReq   models.TopicRequest
	counselReq models.CounselRequest
	err        error
}

func (f *fakeAssistant) Chat(_ context.Context, apiKeyID int64, req models.ChatRequest) (*models.ChatResponse, error) {
	f.called, f.chatKey, f.chatReq = true, apiKeyID, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ChatResponse{
		Response:       "Peace comes from trusting God.",
		ConversationID: "5f0c7a9e-3b7e-4d8b-9c51-0f6b2d1a7e44",
		Metadata:       models.ChatMetadata{TokensUsed: 42, Mode: req.Mode},
	}, nil
}

func (f *fakeAssistant) History(_ context.Context, apiKeyID int64, convID string) (*models.Conversation, error) {
	f.called, f.historyKey, f.historyID = true, apiKeyID, convID
	if f.err != nil {
		return nil, f.err
	}
	return &models.Conversation{
		ID:       convID,
		Messages: models.Messages{{Role: models.RoleUser, Content: "hello"}},
	}, nil
}

func (f *fakeAssistant) Explain(_ context.Context, req models.ExplainRequest) (*models.ExplainResponse, error) {
	f.called, f.explainReq = true, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.ExplainResponse{Explanation: "God's love is universal.", TokensUsed: 120}, nil
}

func (f *fakeAssistant) Daily(_ context.Context, req models.DailyRequest) (*models.DailyResponse, error) {
	f.called, f.dailyReq = true, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.DailyResponse{Reflection: "Rest in Him.", TokensUsed: 30}, nil
}

func (f *fakeAssistant) Topics(_ context.Context, limit int) (*models.TopicListResponse, error) {
	f.called, f.listLimit = true, limit
	if f.err != nil {
		return nil, f.err
	}
	topics := []models.Topic{{ID: 1, Name: "Peace"}, {ID: 2, Name: "Trust"}}
	return &models.TopicListResponse{Topics: topics, Count: len(topics)}, nil
}

func (f *fakeAssistant) Topic(_ context.Context, req models.TopicRequest) (*models.TopicResponse, error) {
	f.called, f.topicReq = true, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.TopicResponse{Topic: req.Topic, Overview: "Peace is a gift.", TokensUsed: 60}, nil
}

func (f *fakeAssistant) Counsel(_ context.Context, req models.CounselRequest) (*models.CounselResponse, error) {
	f.called, f.counselReq = true, req
	if f.err != nil {
		return nil, f.err
	}
	return &models.CounselResponse{Guidance: "Bring it to God in prayer.", TokensUsed: 200}, nil
}

type fakeLookup struct {
	reference   string
	translation string
	err         error
}

func (f *fakeLookup) GetByReference(_ context.Context, reference, translation string) (*models.Verse, error) {
	f.reference, f.translation = reference, translation
	if f.err != nil {
		return nil, f.err
	}
	return &models.Verse{ID: 1, Book: "John", Chapter: 3, Verse: 16, Text: "For God so loved the world", Translation: translation}, nil
}

func (f *fakeLookup) GetRange(_ context.Context, reference, translation string) ([]models.Verse, error) {
	f.reference, f.translation = reference, translation
	if f.err != nil {
		return nil, f.err
	}
	return []models.Verse{
		{ID: 1, Book: "John", Chapter: 3, Verse: 16, Translation: translation},
		{ID: 2, Book: "John", Chapter: 3, Verse: 17, Translation: translation},
		{ID: 3, Book: "John", Chapter: 3, Verse: 18, Translation: translation},
	}, nil
}

type fakeSearcher struct {
	bible       services.BibleSearch
	query       string
	translation string
	limits      []int
	fallback    bool
	err         error
}

func (f *fakeSearcher) SearchBible(_ context.Context, p services.BibleSearch) ([]models.VerseWithRelevance, error) {
	f.bible = p
	if f.err != nil {
		return nil, f.err
	}
	return []models.VerseWithRelevance{
		models.WithRelevance(models.Verse{ID: 1, Book: "John", Chapter: 3, Verse: 16}, 0.9),
	}, nil
}

func (f *fakeSearcher) SemanticSearch(_ context.Context, query string, topK int, translation string) ([]models.Citation, bool, error) {
	f.query, f.translation, f.limits = query, translation, []int{topK}
	if f.err != nil {
		return nil, false, f.err
	}
	return []models.Citation{}, f.fallback, nil
}

func (f *fakeSearcher) HybridSearch(_ context.Context, query string, verseLimit, topicLimit int, translation string) (*models.HybridSearchResponse, error) {
	f.query, f.translation, f.limits = query, translation, []int{verseLimit, topicLimit}
	if f.err != nil {
		return nil, f.err
	}
	return &models.HybridSearchResponse{Query: query, Verses: []models.Citation{}, Topics: []models.ScoredTopic{}}, nil
}

// statusOK keeps assertion messages readable when a handler unexpectedly fails
func statusOK(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
