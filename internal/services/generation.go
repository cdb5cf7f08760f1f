package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/cache"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	pkgservices "github.com/sola-scriptura-chat-api/pkg/schema/services"
)

const systemPrompt = `You are a biblical counselor AI that provides scripturally accurate responses based on Christian theology.

CRITICAL RULES:
1. ONLY cite actual Bible verses that exist. NEVER fabricate or invent verses.
2. Always provide accurate verse references in the format "Book Chapter:Verse" with the translation.
3. Remain non-denominational Christian unless a specific denomination is requested.
4. Be compassionate, understanding, and encouraging.
5. Include practical application of biblical principles.
6. Never claim to be God or speak for God directly.
7. Suggest pastoral or professional counseling for serious personal issues.
8. If unsure about a verse reference, say so. Never guess.
9. When verses are provided as context, use them in your response.

Your responses should be grounded in biblical truth, show empathy, offer hope and practical guidance, and be appropriate for all ages.`

var modePrompts = map[string]string{
	models.ModeConversational: "Respond in a warm, conversational tone as if talking to a friend seeking guidance.",
	models.ModeStudy:          "Provide an educational response suitable for Bible study, including context and deeper meaning.",
	models.ModeDevotional:     "Craft a devotional response that inspires reflection and spiritual growth.",
	models.ModeSimple:         "Use simple language suitable for children or those new to the Bible.",
}

var depthPrompts = map[string]string{
	"simple":    "Explain this verse in simple, easy-to-understand language suitable for children or new believers.",
	"moderate":  "Provide a balanced explanation with context and practical application.",
	"scholarly": "Provide an in-depth theological analysis including historical context and cross-references.",
}

// relatedTopicWords are reported back as related topics when a response mentions them
var relatedTopicWords = []string{"faith", "love", "hope", "prayer", "forgiveness", "grace", "peace", "wisdom"}

const (
	explainMaxTokens    = 800
	prayerMaxTokens     = 400
	prayerTemperature   = 0.8
	maxFollowUps        = 3
	maxRelatedTopics    = 5
	responseCachePrefix = "ai:response:"
	prayerCachePrefix   = "ai:prayer:"
)

var (
	questionPattern = regexp.MustCompile(`[^.!?]*\?`)
	blankRunPattern = regexp.MustCompile(`\n{3,}`)
)

// GenerationInput is one question for the response generator
type GenerationInput struct {
	Question string
	Context  string
	Verses   []models.VerseWithRelevance
	Mode     string
}

// ResponseGenerator builds prompts around retrieved verses, calls the language model and
// post-processes its answer.
type ResponseGenerator struct {
	gen   pkgservices.Generator
	cache cache.Cache
	ttl   GenerationTTLs
	log   *logger.Logger
}

// GenerationTTLs sets how long generated text is cached. A zero Prayer disables prayer
// caching.
type GenerationTTLs struct {
	Response time.Duration
	// Prayer applies to GeneratePrayer results
	Prayer time.Duration
}

// NewResponseGenerator creates a generator. A nil cache disables caching.
func NewResponseGenerator(gen pkgservices.Generator, c cache.Cache, ttl GenerationTTLs, log *logger.Logger) *ResponseGenerator {
	if c == nil {
		c = cache.Noop{}
	}
	return &ResponseGenerator{gen: gen, cache: c, ttl: ttl, log: log}
}

// GenerateResponse answers a question using the supplied verses as context
func (g *ResponseGenerator) GenerateResponse(ctx context.Context, in GenerationInput) (*models.GeneratedResponse, error) {
	system := systemPrompt + "\n\n" + modePrompt(in.Mode)
	user := buildUserPrompt(in.Question, in.Context, in.Verses)
	key := responseCacheKey(system, user)

	var cached models.GeneratedResponse
	if cache.GetJSON(ctx, g.cache, key, &cached) {
		g.log.Debug("using cached generated response", "key", key)
		return &cached, nil
	}

	res, err := g.gen.Generate(ctx, pkgservices.GenerateRequest{System: system, Prompt: user})
	if err != nil {
		g.log.Error("generation failed", "mode", in.Mode, "error", err)
		return nil, apperr.Upstream("generation failed", err)
	}

	followUps, topics := extractMetadata(res.Text)
	out := &models.GeneratedResponse{
		Response:          CleanResponse(res.Text),
		VersesUsed:        nonNilVerses(in.Verses),
		Confidence:        Confidence(res.Text, in.Verses),
		FollowUpQuestions: followUps,
		RelatedTopics:     topics,
		TokensUsed:        res.TokensUsed,
	}

	cache.SetJSON(ctx, g.cache, key, out, g.ttl.Response)
	return out, nil
}

// ExplainVerse asks for an explanation of one verse at the given depth
func (g *ResponseGenerator) ExplainVerse(ctx context.Context, verse models.Verse, depth string, includeGreek bool) (*pkgservices.GenerateResult, error) {
	depthPrompt, ok := depthPrompts[depth]
	if !ok {
		depthPrompt = depthPrompts["moderate"]
	}
	if includeGreek {
		depthPrompt += " Include relevant Greek or Hebrew word meanings where appropriate."
	}

	prompt := fmt.Sprintf(`Please explain the following Bible verse:

"%s" - %s (%s)

%s

Include:
1. What this verse means
2. The context in which it was written
3. How it applies to life today`, verse.Text, verse.Ref(), verse.Translation, depthPrompt)

	return g.complete(ctx, pkgservices.GenerateRequest{System: systemPrompt, Prompt: prompt, MaxTokens: explainMaxTokens})
}

// GeneratePrayer writes a short prayer about topic, optionally for a situation
func (g *ResponseGenerator) GeneratePrayer(ctx context.Context, topic, situation string) (*pkgservices.GenerateResult, error) {
	subject := topic
	if situation != "" {
		subject += " for someone in this situation: " + situation
	}

	prompt := fmt.Sprintf(`Generate a biblical prayer about %s.

The prayer should:
- Be grounded in Scripture
- Be sincere and heartfelt
- Include relevant Bible promises
- Be encouraging and faith-building
- Be appropriate for all denominations`, subject)

	key := cacheKey(prayerCachePrefix, systemPrompt, prompt)
	if g.ttl.Prayer > 0 {
		var cached pkgservices.GenerateResult
		if cache.GetJSON(ctx, g.cache, key, &cached) {
			return &cached, nil
		}
	}

	res, err := g.complete(ctx, pkgservices.GenerateRequest{
		System:      systemPrompt,
		Prompt:      prompt,
		MaxTokens:   prayerMaxTokens,
		Temperature: prayerTemperature,
	})
	if err != nil {
		return nil, err
	}
	if g.ttl.Prayer > 0 {
		cache.SetJSON(ctx, g.cache, key, res, g.ttl.Prayer)
	}
	return res, nil
}

func (g *ResponseGenerator) complete(ctx context.Context, req pkgservices.GenerateRequest) (*pkgservices.GenerateResult, error) {
	res, err := g.gen.Generate(ctx, req)
	if err != nil {
		g.log.Error("generation failed", "error", err)
		return nil, apperr.Upstream("generation failed", err)
	}
	res.Text = CleanResponse(res.Text)
	return res, nil
}

func modePrompt(mode string) string {
	if p, ok := modePrompts[mode]; ok {
		return p
	}
	return modePrompts[models.ModeConversational]
}

func buildUserPrompt(question, extra string, verses []models.VerseWithRelevance) string {
	var sb strings.Builder
	sb.WriteString(question)
	if extra != "" {
		sb.WriteString("\n\nAdditional context: ")
		sb.WriteString(extra)
	}
	if vc := verseContext(verses); vc != "" {
		sb.WriteString("\n\n")
		sb.WriteString(vc)
	}
	return sb.String()
}

func verseContext(verses []models.VerseWithRelevance) string {
	if len(verses) == 0 {
		return ""
	}
	lines := make([]string, len(verses))
	for i, v := range verses {
		ref := v.Reference
		if ref == "" {
			ref = v.Ref()
		}
		lines[i] = fmt.Sprintf(`"%s" - %s (%s)`, v.Text, ref, v.Translation)
	}
	return "Here are relevant Bible verses for context:\n\n" +
		strings.Join(lines, "\n\n") +
		"\n\nPlease incorporate these verses into your response where appropriate."
}

func responseCacheKey(system, user string) string {
	return cacheKey(responseCachePrefix, system, user)
}

func cacheKey(prefix, system, user string) string {
	sum := sha256.Sum256([]byte(system + "\x00" + user))
	return prefix + hex.EncodeToString(sum[:])
}

// CleanResponse strips markdown emphasis and collapses runs of blank lines
func CleanResponse(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "__", "")
	s = blankRunPattern.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// Confidence scores a response from the relevance of its verses and simple quality signals
func Confidence(response string, verses []models.VerseWithRelevance) float64 {
	confidence := 0.7
	if len(verses) > 0 {
		var sum float64
		for _, v := range verses {
			sum += v.Relevance
		}
		confidence = min(0.95, confidence+sum/float64(len(verses))*0.25)
	}
	if len(response) > 200 {
		confidence += 0.05
	}
	if strings.Contains(response, "Bible") || strings.Contains(response, "Scripture") {
		confidence += 0.05
	}
	return min(0.99, confidence)
}

func extractMetadata(response string) (followUps, topics []string) {
	followUps = []string{}
	for _, q := range questionPattern.FindAllString(response, maxFollowUps) {
		if q = strings.TrimSpace(q); q != "" && q != "?" {
			followUps = append(followUps, q)
		}
	}

	topics = []string{}
	lower := strings.ToLower(response)
	for _, t := range relatedTopicWords {
		if len(topics) == maxRelatedTopics {
			break
		}
		if strings.Contains(lower, t) {
			topics = append(topics, strings.ToUpper(t[:1])+t[1:])
		}
	}
	return followUps, topics
}

func nonNilVerses(v []models.VerseWithRelevance) []models.VerseWithRelevance {
	if v == nil {
		return []models.VerseWithRelevance{}
	}
	return v
}
