package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	counselVerses     = 7
	defaultTopicLimit = 10
	defaultTopicList  = 100
	dailyApplication  = "Consider how this verse applies to your life today."
	commonAnswer      = "Explore this question through prayer and study"
	counselDisclaimer = "This is biblical guidance for spiritual growth. For serious personal issues, please consult with a pastor, licensed counselor, or appropriate professional."
	originalLangNote  = "Greek/Hebrew analysis would require additional linguistic resources"
	commentaryRequest = "Include brief commentary on the historical and literary context of the verses you cite."
)

var counselSteps = []string{
	"Pray about this situation daily",
	"Study the provided verses in context",
	"Seek wisdom from trusted spiritual advisors",
	"Take one small step of faith today",
	"Trust God's timing and plan",
}

var counselResources = []models.Resource{
	{Title: "Local Church", Type: "Community", Description: "Connect with a local church for in-person support"},
	{Title: "Christian Counselor", Type: "Professional", Description: "Consider speaking with a Christian counselor"},
	{Title: "Bible Study Group", Type: "Community", Description: "Join a Bible study group for ongoing support"},
}

// Assistant composes retrieval, generation and validation into the API's answers
type Assistant struct {
	verses        *VerseService
	retriever     *Retriever
	generator     *ResponseGenerator
	validator     *Validator
	topics        repository.TopicRepository
	conversations repository.ConversationRepository
	log           *logger.Logger
	now           func() time.Time
}

// NewAssistant creates an assistant. A nil conversation repository disables history.
func NewAssistant(
	verses *VerseService,
	retriever *Retriever,
	generator *ResponseGenerator,
	validator *Validator,
	topics repository.TopicRepository,
	conversations repository.ConversationRepository,
	log *logger.Logger,
) *Assistant {
	return &Assistant{
		verses:        verses,
		retriever:     retriever,
		generator:     generator,
		validator:     validator,
		topics:        topics,
		conversations: conversations,
		log:           log,
		now:           time.Now,
	}
}

// Chat answers a question grounded in retrieved verses and appends the exchange to the
// conversation log.
func (a *Assistant) Chat(ctx context.Context, apiKeyID int64, req models.ChatRequest) (*models.ChatResponse, error) {
	start := a.now()

	convID := req.ConversationID
	if convID == "" {
		convID = uuid.NewString()
	}

	enhanced := EnhanceQuery(req.Message)
	verses := a.retriever.Retrieve(ctx, enhanced.Query, req.MaxVerses, req.Translation)
	a.log.Info("retrieved verses for chat", "count", len(verses), "topics", enhanced.Topics)

	extra := req.Context
	if req.IncludeCommentary {
		extra = strings.TrimSpace(extra + "\n" + commentaryRequest)
	}

	gen, err := a.generator.GenerateResponse(ctx, GenerationInput{
		Question: req.Message,
		Context:  extra,
		Verses:   verses,
		Mode:     req.Mode,
	})
	if err != nil {
		return nil, err
	}

	answer := a.validated(ctx, gen.Response, req.Message)
	a.storeExchange(ctx, convID, apiKeyID, req.Message, answer)

	return &models.ChatResponse{
		Response:          answer,
		Verses:            verses,
		FollowUpQuestions: gen.FollowUpQuestions,
		RelatedTopics:     dedupeStrings(append(append([]string{}, enhanced.Topics...), gen.RelatedTopics...)),
		ConversationID:    convID,
		Metadata: models.ChatMetadata{
			Confidence:     gen.Confidence,
			TokensUsed:     gen.TokensUsed,
			ResponseTimeMs: a.now().Sub(start).Milliseconds(),
			Mode:           req.Mode,
		},
	}, nil
}

// validated runs the validator over a generated answer, logs what it found and appends
// any corrections.
func (a *Assistant) validated(ctx context.Context, answer, question string) string {
	res := a.validator.Validate(ctx, answer, question)
	if !res.IsValid {
		a.log.Warn("response validation had issues", "issues", res.Issues)
	}
	if len(res.Warnings) > 0 {
		a.log.Info("response validation warnings", "warnings", res.Warnings)
	}
	if len(res.Corrections) > 0 {
		answer += "\n\n" + strings.Join(res.Corrections, "\n")
	}
	return answer
}

func (a *Assistant) storeExchange(ctx context.Context, convID string, apiKeyID int64, question, answer string) {
	if a.conversations == nil {
		return
	}
	now := a.now().UTC()
	msgs := models.Messages{
		{Role: models.RoleUser, Content: question, Timestamp: now},
		{Role: models.RoleAssistant, Content: answer, Timestamp: now},
	}
	if err := a.conversations.Append(ctx, convID, apiKeyID, msgs); err != nil {
		a.log.Error("failed to store conversation", "conversation_id", convID, "error", err)
	}
}

// History returns a conversation owned by the key
func (a *Assistant) History(ctx context.Context, apiKeyID int64, convID string) (*models.Conversation, error) {
	if a.conversations == nil {
		return nil, apperr.NotFound("Conversation not found")
	}
	conv, err := a.conversations.Get(ctx, convID, apiKeyID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Conversation not found")
	}
	return conv, err
}

// Explain explains a verse, with its surrounding verses and cross references when
// requested, and suggests an application.
func (a *Assistant) Explain(ctx context.Context, req models.ExplainRequest) (*models.ExplainResponse, error) {
	verse, err := a.verses.GetByReference(ctx, req.Reference, req.Translation)
	if err != nil {
		return nil, err
	}

	resp := &models.ExplainResponse{
		Verse:           models.VerseWithReference{Verse: *verse, Reference: verse.Ref()},
		CrossReferences: []string{},
	}
	if req.IncludeContext != nil && *req.IncludeContext {
		vc, err := a.verses.Context(ctx, req.Reference, req.Translation)
		if err != nil {
			return nil, err
		}
		resp.Context = vc
		resp.CrossReferences = a.verses.CrossReferences(ctx, req.Reference)
	}
	if req.IncludeGreek {
		resp.OriginalLanguage = map[string]string{"note": originalLangNote}
	}

	var explanationTokens, applicationTokens int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.generator.ExplainVerse(gctx, *verse, req.Depth, req.IncludeGreek)
		if err != nil {
			return err
		}
		resp.Explanation = res.Text
		explanationTokens = res.TokensUsed
		return nil
	})
	g.Go(func() error {
		res, err := a.generator.GenerateResponse(gctx, GenerationInput{
			Question: fmt.Sprintf("How can someone apply %s in their daily life?", verse.Ref()),
			Verses:   []models.VerseWithRelevance{models.WithRelevance(*verse, 1)},
			Mode:     models.ModeSimple,
		})
		if err != nil {
			return err
		}
		resp.Application = res.Response
		applicationTokens = res.TokensUsed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	resp.TokensUsed = explanationTokens + applicationTokens
	return resp, nil
}

// Daily picks a verse for the day, or one matching a mood or situation, with a reflection
// and a prayer.
func (a *Assistant) Daily(ctx context.Context, req models.DailyRequest) (*models.DailyResponse, error) {
	verse, err := a.dailyVerse(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &models.DailyResponse{
		Verse:       models.VerseWithReference{Verse: *verse, Reference: verse.Ref()},
		Application: dailyApplication,
	}

	topic := req.Mood
	if topic == "" {
		topic = "daily guidance"
	}

	var reflectionTokens, prayerTokens int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.generator.GenerateResponse(gctx, GenerationInput{
			Question: fmt.Sprintf("Provide a brief reflection on %s", verse.Ref()),
			Context:  req.Situation,
			Verses:   []models.VerseWithRelevance{models.WithRelevance(*verse, 1)},
			Mode:     models.ModeDevotional,
		})
		if err != nil {
			return err
		}
		resp.Reflection = res.Response
		reflectionTokens = res.TokensUsed
		return nil
	})
	g.Go(func() error {
		res, err := a.generator.GeneratePrayer(gctx, topic, req.Situation)
		if err != nil {
			return err
		}
		resp.Prayer = res.Text
		prayerTokens = res.TokensUsed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	resp.TokensUsed = reflectionTokens + prayerTokens
	return resp, nil
}

func (a *Assistant) dailyVerse(ctx context.Context, req models.DailyRequest) (*models.Verse, error) {
	query := strings.TrimSpace(req.Mood + " " + req.Situation)
	if query == "" {
		return a.verses.Daily(ctx, req.Translation)
	}

	found, err := a.verses.Search(ctx, query, 1, req.Translation)
	if err != nil {
		a.log.Warn("daily verse search failed, using a random verse", "query", query, "error", err)
	}
	if len(found) > 0 {
		return &found[0].Verse, nil
	}
	return a.verses.Random(ctx, req.Translation)
}

// Topics lists the topical index
func (a *Assistant) Topics(ctx context.Context, limit int) (*models.TopicListResponse, error) {
	if limit <= 0 {
		limit = defaultTopicList
	}
	topics, err := a.topics.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &models.TopicListResponse{Topics: topics, Count: len(topics)}, nil
}

// Topic describes a topic with its key verses and a generated overview
func (a *Assistant) Topic(ctx context.Context, req models.TopicRequest) (*models.TopicResponse, error) {
	topic, err := a.topics.FindByName(ctx, req.Topic)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Topic not found")
	}
	if err != nil {
		return nil, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultTopicLimit
	}
	depth := req.Depth
	if depth == "" {
		depth = "basic"
	}

	verses, err := a.verses.GetByTopic(ctx, topic.Name, limit, req.Translation)
	if err != nil {
		return nil, err
	}

	overview, err := a.generator.GenerateResponse(ctx, GenerationInput{
		Question: fmt.Sprintf("Provide a %s overview of the biblical topic of %s", depth, topic.Name),
		Verses:   verses,
		Mode:     models.ModeStudy,
	})
	if err != nil {
		return nil, err
	}

	questions := make([]models.QuestionAnswer, len(overview.FollowUpQuestions))
	for i, q := range overview.FollowUpQuestions {
		questions[i] = models.QuestionAnswer{Question: q, Answer: commonAnswer}
	}

	subtopics := []string(topic.RelatedTopics)
	if subtopics == nil {
		subtopics = []string{}
	}

	name := strings.ToLower(topic.Name)
	return &models.TopicResponse{
		Topic:     topic.Name,
		Category:  topic.Category,
		Overview:  overview.Response,
		KeyVerses: verses,
		Subtopics: subtopics,
		PracticalSteps: []string{
			fmt.Sprintf("Study the key verses about %s", name),
			fmt.Sprintf("Reflect on how %s applies to your life", name),
			fmt.Sprintf("Practice %s in your daily walk", name),
		},
		CommonQuestions: questions,
		TokensUsed:      overview.TokensUsed,
	}, nil
}

// Counsel gives biblical guidance for a described situation
func (a *Assistant) Counsel(ctx context.Context, req models.CounselRequest) (*models.CounselResponse, error) {
	query := strings.TrimSpace(req.Situation + " " + strings.Join(req.SpecificIssues, " "))
	verses := a.retriever.Retrieve(ctx, query, counselVerses, req.Translation)

	prayerTopic := req.Category
	if prayerTopic == "" {
		prayerTopic = "guidance"
	}

	var guidance *models.GeneratedResponse
	var prayerText string
	var prayerTokens int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		guidance, err = a.generator.GenerateResponse(gctx, GenerationInput{
			Question: counselPrompt(req),
			Verses:   verses,
			Mode:     models.ModeConversational,
		})
		return err
	})
	g.Go(func() error {
		res, err := a.generator.GeneratePrayer(gctx, prayerTopic, req.Situation)
		if err != nil {
			return err
		}
		prayerText, prayerTokens = res.Text, res.TokensUsed
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.CounselResponse{
		Guidance:         a.validated(ctx, guidance.Response, req.Situation),
		RelevantVerses:   verses,
		PracticalSteps:   append([]string{}, counselSteps...),
		PrayerSuggestion: prayerText,
		Disclaimer:       counselDisclaimer,
		Resources:        append([]models.Resource{}, counselResources...),
		TokensUsed:       guidance.TokensUsed + prayerTokens,
	}, nil
}

func counselPrompt(req models.CounselRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Provide biblical counseling for someone in this situation: %s.", req.Situation)
	if req.Category != "" {
		fmt.Fprintf(&sb, "\nCategory: %s.", req.Category)
	}
	if len(req.SpecificIssues) > 0 {
		fmt.Fprintf(&sb, "\nSpecific issues: %s.", strings.Join(req.SpecificIssues, ", "))
	}
	if req.Denomination != "" {
		fmt.Fprintf(&sb, "\nFrom a %s perspective.", req.Denomination)
	} else {
		sb.WriteString("\nFrom a non-denominational Christian perspective.")
	}
	return sb.String()
}
