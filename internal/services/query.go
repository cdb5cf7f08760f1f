package services

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// topicVocabulary is the fixed list of topics recognised in free text
var topicVocabulary = []string{
	"love", "faith", "hope", "prayer", "forgiveness",
	"peace", "joy", "wisdom", "strength", "healing",
	"salvation", "grace", "mercy", "trust", "patience",
	"kindness", "compassion", "truth", "righteousness",
	"worship", "praise", "thanksgiving", "humility",
	"courage", "perseverance", "discipline", "obedience",
}

// topicExpansion maps situational words to the topics that address them
var topicExpansion = []struct {
	triggers []string
	topics   []string
}{
	{[]string{"anxious", "anxiety", "worry", "worried"}, []string{"peace", "trust", "faith"}},
	{[]string{"depressed", "depression"}, []string{"hope", "joy", "comfort"}},
	{[]string{"anger", "angry"}, []string{"forgiveness", "patience", "love"}},
	{[]string{"fear", "afraid", "scared"}, []string{"courage", "faith", "strength"}},
	{[]string{"marriage", "married", "spouse"}, []string{"love", "unity", "commitment"}},
	{[]string{"money", "finances", "debt"}, []string{"stewardship", "contentment", "provision"}},
	{[]string{"work", "job", "career"}, []string{"diligence", "purpose", "service"}},
}

// queryContext is appended to an enhanced query when its key appears
var queryContext = []struct {
	key     string
	context string
}{
	{"anxious", "anxiety worry peace trust"},
	{"depressed", "depression sadness hope joy comfort"},
	{"angry", "anger forgiveness patience self-control"},
	{"afraid", "fear courage strength faith"},
	{"lonely", "loneliness companionship God's presence"},
	{"sick", "healing health restoration prayer"},
	{"relationship", "love marriage unity communication"},
	{"money", "finances stewardship provision contentment"},
	{"work", "labor diligence purpose calling"},
	{"family", "parents children household unity"},
}

// stopWords contains common words to exclude from keyword extraction
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true, "from": true, "as": true, "is": true, "was": true,
	"are": true, "were": true, "been": true, "be": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true, "would": true,
	"could": true, "should": true, "may": true, "might": true, "must": true, "can": true,
	"what": true, "how": true, "when": true, "where": true, "why": true, "who": true,
	"which": true, "this": true, "that": true, "these": true, "those": true,
	"i": true, "me": true, "my": true, "we": true, "us": true, "our": true,
	"you": true, "your": true,
}

var nonWord = regexp.MustCompile(`[^\w\s]`)

// EnhancedQuery is a query widened with situational vocabulary
type EnhancedQuery struct {
	Query    string   `json:"query"`
	Topics   []string `json:"topics"`
	Keywords []string `json:"keywords"`
}

// ExtractTopics returns vocabulary topics found in the query followed by situational
// expansions, without duplicates and in first-seen order.
func ExtractTopics(query string) []string {
	lower := strings.ToLower(query)

	var found []string
	for _, topic := range topicVocabulary {
		if strings.Contains(lower, topic) {
			found = append(found, topic)
			continue
		}
		if len(topic) >= 4 && strings.Contains(lower, topic[:len(topic)-1]) {
			found = append(found, topic)
		}
	}

	for _, exp := range topicExpansion {
		for _, trigger := range exp.triggers {
			if strings.Contains(lower, trigger) {
				found = append(found, exp.topics...)
				break
			}
		}
	}

	return dedupeStrings(found)
}

// ExtractKeywords lowercases, strips punctuation and drops stop words and short tokens
func ExtractKeywords(query string) []string {
	cleaned := nonWord.ReplaceAllString(strings.ToLower(query), " ")

	var words []string
	for _, w := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(w) > 2 && !stopWords[w] {
			words = append(words, w)
		}
	}
	return dedupeStrings(words)
}

// EnhanceQuery appends situational vocabulary to the query text and reports the
// topics and keywords of the original query.
func EnhanceQuery(query string) EnhancedQuery {
	lower := strings.ToLower(query)

	var sb strings.Builder
	sb.WriteString(query)
	for _, qc := range queryContext {
		if strings.Contains(lower, qc.key) {
			sb.WriteByte(' ')
			sb.WriteString(qc.context)
		}
	}

	return EnhancedQuery{
		Query:    sb.String(),
		Topics:   nonNil(ExtractTopics(query)),
		Keywords: nonNil(ExtractKeywords(query)),
	}
}

// tokenizeWords splits a query into lowercase alphanumeric words for topic name matching
func tokenizeWords(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(c rune) bool {
		return !((c >= 'a' && c <= 'z') || (c >= '0' && c <= '9'))
	})

	filtered := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) >= 2 && !stopWords[word] {
			filtered = append(filtered, word)
		}
	}
	return filtered
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
