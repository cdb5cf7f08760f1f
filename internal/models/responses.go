package models

import "time"

// GeneratedResponse is the post-processed output of one generation call.
type GeneratedResponse struct {
	Response          string               `json:"response"`
	VersesUsed        []VerseWithRelevance `json:"verses_used"`
	Confidence        float64              `json:"confidence"`
	FollowUpQuestions []string             `json:"follow_up_questions"`
	RelatedTopics     []string             `json:"related_topics"`
	TokensUsed        int                  `json:"tokens_used"`
}

// ChatMetadata accompanies a chat answer.
type ChatMetadata struct {
	Confidence     float64 `json:"confidence"`
	TokensUsed     int     `json:"tokens_used"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	Mode           string  `json:"mode"`
}

// ChatResponse is the body returned by POST /chat.
type ChatResponse struct {
	Response          string               `json:"response"`
	Verses            []VerseWithRelevance `json:"verses"`
	FollowUpQuestions []string             `json:"follow_up_questions"`
	RelatedTopics     []string             `json:"related_topics"`
	ConversationID    string               `json:"conversation_id"`
	Metadata          ChatMetadata         `json:"metadata"`
}

// ExplainResponse is the body returned by POST /verses/explain.
type ExplainResponse struct {
	Verse            VerseWithReference `json:"verse"`
	Explanation      string             `json:"explanation"`
	Context          *VerseContext      `json:"context,omitempty"`
	Application      string             `json:"application"`
	CrossReferences  []string           `json:"cross_references"`
	OriginalLanguage map[string]string  `json:"original_language,omitempty"`
	TokensUsed       int                `json:"-"`
}

// VerseSearchResponse is the body returned by GET /verses/search.
type VerseSearchResponse struct {
	Query   string               `json:"query"`
	Results []VerseWithRelevance `json:"results"`
	Count   int                  `json:"count"`
}

// VerseRangeResponse is the body returned by GET /verses/range/:reference.
type VerseRangeResponse struct {
	Reference string  `json:"reference"`
	Verses    []Verse `json:"verses"`
	Count     int     `json:"count"`
}

// DailyResponse is the body returned by GET /daily.
type DailyResponse struct {
	Verse       VerseWithReference `json:"verse"`
	Reflection  string             `json:"reflection"`
	Prayer      string             `json:"prayer"`
	Application string             `json:"application"`
	TokensUsed  int                `json:"-"`
}

// QuestionAnswer is a suggested study question.
type QuestionAnswer struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// TopicResponse is the body returned by GET /topics/:topic.
type TopicResponse struct {
	Topic           string               `json:"topic"`
	Category        string               `json:"category,omitempty"`
	Overview        string               `json:"overview"`
	KeyVerses       []VerseWithRelevance `json:"key_verses"`
	Subtopics       []string             `json:"subtopics"`
	PracticalSteps  []string             `json:"practical_steps"`
	CommonQuestions []QuestionAnswer     `json:"common_questions"`
	TokensUsed      int                  `json:"-"`
}

// TopicListResponse is the body returned by GET /topics.
type TopicListResponse struct {
	Topics []Topic `json:"topics"`
	Count  int     `json:"count"`
}

// Resource points a counselee at further help.
type Resource struct {
	Title       string `json:"title"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CounselResponse is the body returned by POST /counsel.
type CounselResponse struct {
	Guidance         string               `json:"guidance"`
	RelevantVerses   []VerseWithRelevance `json:"relevant_verses"`
	PracticalSteps   []string             `json:"practical_steps"`
	PrayerSuggestion string               `json:"prayer_suggestion"`
	Disclaimer       string               `json:"disclaimer"`
	Resources        []Resource           `json:"resources"`
	TokensUsed       int                  `json:"-"`
}

// UsageResponse is the body returned by GET /account/usage.
type UsageResponse struct {
	UsageStats
	ResetDate time.Time `json:"reset_date"`
}

// SemanticSearchResponse is the body returned by POST /search.
type SemanticSearchResponse struct {
	Query    string     `json:"query"`
	Results  []Citation `json:"results"`
	Fallback bool       `json:"fallback,omitempty"`
}

// HybridSearchResponse is the body returned by POST /search/hybrid.
type HybridSearchResponse struct {
	Query  string        `json:"query"`
	Verses []Citation    `json:"verses"`
	Topics []ScoredTopic `json:"topics"`
}
