package services

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"golang.org/x/sync/errgroup"
)

// VerseSource is the verse lookup surface retrieval draws candidates from
type VerseSource interface {
	Search(ctx context.Context, query string, limit int, translation string) ([]models.VerseWithRelevance, error)
	GetByTopic(ctx context.Context, topic string, limit int, translation string) ([]models.VerseWithRelevance, error)
}

// popularVerses get a small ranking boost
var popularVerses = map[string]bool{
	"John 3:16":        true,
	"Philippians 4:13": true,
	"Romans 8:28":      true,
	"Jeremiah 29:11":   true,
	"Proverbs 3:5":     true,
	"Psalms 23:1":      true,
}

const (
	defaultRelevance = 0.5
	phraseBoost      = 0.3
	keywordBoost     = 0.2
	popularBoost     = 0.1
)

// Retriever finds verses relevant to a free-text query by combining direct text search,
// topic lookup and keyword search.
type Retriever struct {
	source VerseSource
	log    *logger.Logger
}

// NewRetriever creates a retriever over source
func NewRetriever(source VerseSource, log *logger.Logger) *Retriever {
	return &Retriever{source: source, log: log}
}

// Retrieve returns at most maxVerses verses, unique by book, chapter and verse, in
// descending relevance. Failed sub-searches are logged and contribute nothing.
func (r *Retriever) Retrieve(ctx context.Context, query string, maxVerses int, translation string) []models.VerseWithRelevance {
	if maxVerses <= 0 || strings.TrimSpace(query) == "" {
		return []models.VerseWithRelevance{}
	}

	topics := ExtractTopics(query)
	keywords := ExtractKeywords(query)

	var direct, byTopic, byKeyword []models.VerseWithRelevance
	var g errgroup.Group
	g.Go(func() error {
		direct = r.search(ctx, "direct", query, ceilDiv(maxVerses, 2), translation)
		return nil
	})
	g.Go(func() error {
		byTopic = r.searchTopics(ctx, topics, ceilDiv(maxVerses, 3), translation)
		return nil
	})
	g.Go(func() error {
		if len(keywords) > 0 {
			byKeyword = r.search(ctx, "keyword", strings.Join(keywords, " "), ceilDiv(maxVerses, 3), translation)
		}
		return nil
	})
	_ = g.Wait()

	candidates := make([]models.VerseWithRelevance, 0, len(direct)+len(byTopic)+len(byKeyword))
	candidates = append(candidates, direct...)
	candidates = append(candidates, byTopic...)
	candidates = append(candidates, byKeyword...)

	ranked := RankVerses(DedupeVerses(candidates), query)
	if len(ranked) > maxVerses {
		ranked = ranked[:maxVerses]
	}
	return ranked
}

func (r *Retriever) search(ctx context.Context, kind, query string, limit int, translation string) []models.VerseWithRelevance {
	verses, err := r.source.Search(ctx, query, limit, translation)
	if err != nil {
		r.log.Warn("retrieval sub-search failed", "search", kind, "query", query, "error", err)
		return nil
	}
	return verses
}

// searchTopics spreads limit evenly across topics and looks each up concurrently.
// Results keep topic order.
func (r *Retriever) searchTopics(ctx context.Context, topics []string, limit int, translation string) []models.VerseWithRelevance {
	if len(topics) == 0 {
		return nil
	}
	perTopic := ceilDiv(limit, len(topics))

	results := make([][]models.VerseWithRelevance, len(topics))
	var g errgroup.Group
	for i, topic := range topics {
		g.Go(func() error {
			verses, err := r.source.GetByTopic(ctx, topic, perTopic, translation)
			if err != nil {
				r.log.Warn("topic lookup failed", "topic", topic, "error", err)
				return nil
			}
			results[i] = verses
			return nil
		})
	}
	_ = g.Wait()

	var out []models.VerseWithRelevance
	for _, verses := range results {
		out = append(out, verses...)
	}
	return out
}

// DedupeVerses drops later entries sharing book, chapter and verse with an earlier one.
// Translation is not part of the key.
func DedupeVerses(verses []models.VerseWithRelevance) []models.VerseWithRelevance {
	seen := make(map[string]struct{}, len(verses))
	out := make([]models.VerseWithRelevance, 0, len(verses))
	for _, v := range verses {
		key := v.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}

// RankVerses rescores verses against the query and stable-sorts them by descending
// relevance. Scores are clamped to [0,1]. The input slice is not modified.
func RankVerses(verses []models.VerseWithRelevance, query string) []models.VerseWithRelevance {
	queryLower := strings.ToLower(query)
	keywords := ExtractKeywords(query)

	ranked := make([]models.VerseWithRelevance, len(verses))
	for i, v := range verses {
		score := v.Relevance
		if score <= 0 {
			score = defaultRelevance
		}

		text := strings.ToLower(v.Text)
		if queryLower != "" && strings.Contains(text, queryLower) {
			score += phraseBoost
		}

		if len(keywords) > 0 {
			matched := 0
			for _, kw := range keywords {
				if strings.Contains(text, kw) {
					matched++
				}
			}
			score += float64(matched) / float64(len(keywords)) * keywordBoost
		}

		ref := v.Reference
		if ref == "" {
			ref = v.Ref()
		}
		if popularVerses[ref] {
			score += popularBoost
		}

		v.Reference = ref
		v.Relevance = clamp01(score)
		ranked[i] = v
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})
	return ranked
}

func clamp01(f float64) float64 {
	return math.Max(0, math.Min(1, f))
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
