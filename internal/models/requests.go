package models

// Response modes accepted by the generation pipeline.
const (
	ModeConversational = "conversational"
	ModeStudy          = "study"
	ModeDevotional     = "devotional"
	ModeSimple         = "simple"
)

// Translations lists the supported translation codes.
var Translations = []string{"NIV", "ESV", "KJV", "NLT", "NASB", "NKJV"}

// DefaultMaxVerses is used when a chat request does not ask for a specific count.
const DefaultMaxVerses = 5

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Message           string `json:"message" validate:"required,min=1,max=1000"`
	Context           string `json:"context" validate:"max=500"`
	ConversationID    string `json:"conversation_id" validate:"omitempty,uuid"`
	Mode              string `json:"mode" validate:"omitempty,oneof=conversational study devotional simple"`
	Translation       string `json:"translation" validate:"omitempty,translation"`
	IncludeCommentary bool   `json:"include_commentary"`
	MaxVerses         int    `json:"max_verses" validate:"omitempty,min=1,max=10"`
}

// Defaults fills optional fields.
func (r *ChatRequest) Defaults(translation string) {
	if r.Mode == "" {
		r.Mode = ModeConversational
	}
	if r.Translation == "" {
		r.Translation = translation
	}
	if r.MaxVerses == 0 {
		r.MaxVerses = DefaultMaxVerses
	}
}

// ExplainRequest is the body of POST /verses/explain.
type ExplainRequest struct {
	Reference      string `json:"reference" validate:"required,reference"`
	Depth          string `json:"depth" validate:"omitempty,oneof=simple moderate scholarly"`
	IncludeContext *bool  `json:"include_context"`
	IncludeGreek   bool   `json:"include_greek"`
	Translation    string `json:"translation" validate:"omitempty,translation"`
}

// Defaults fills optional fields.
func (r *ExplainRequest) Defaults(translation string) {
	if r.Depth == "" {
		r.Depth = "moderate"
	}
	if r.IncludeContext == nil {
		include := true
		r.IncludeContext = &include
	}
	if r.Translation == "" {
		r.Translation = translation
	}
}

// VerseSearchRequest carries the query string of GET /verses/search.
type VerseSearchRequest struct {
	Query       string `query:"query" validate:"required,max=200"`
	Q           string `query:"q"`
	Limit       int    `query:"limit" validate:"omitempty,min=1,max=50"`
	Translation string `query:"translation" validate:"omitempty,translation"`
	Book        string `query:"book"`
	Testament   string `query:"testament" validate:"omitempty,oneof=old new OT NT"`
}

// VerseLookupRequest carries the path and query of the single-verse and range routes.
type VerseLookupRequest struct {
	Reference   string `param:"reference"`
	Translation string `query:"translation" validate:"omitempty,translation"`
}

// DailyRequest carries the query string of GET /daily.
type DailyRequest struct {
	Mood        string `query:"mood" validate:"max=50"`
	Situation   string `query:"situation" validate:"max=200"`
	Translation string `query:"translation" validate:"omitempty,translation"`
}

// TopicRequest carries the path and query of GET /topics/:topic.
type TopicRequest struct {
	Topic       string `param:"topic" validate:"required,max=100"`
	Depth       string `query:"depth" validate:"omitempty,oneof=basic comprehensive"`
	Limit       int    `query:"limit" validate:"omitempty,min=1,max=20"`
	Translation string `query:"translation" validate:"omitempty,translation"`
}

// CounselRequest is the body of POST /counsel.
type CounselRequest struct {
	Situation      string   `json:"situation" validate:"required,min=10,max=1000"`
	Category       string   `json:"category" validate:"max=100"`
	SpecificIssues []string `json:"specific_issues" validate:"max=5,dive,max=200"`
	Denomination   string   `json:"denomination" validate:"max=100"`
	Translation    string   `json:"translation" validate:"omitempty,translation"`
}

// SemanticSearchRequest is the body of POST /search.
type SemanticSearchRequest struct {
	Query       string `json:"query" validate:"required,max=500"`
	Limit       int    `json:"limit" validate:"omitempty,min=1,max=50"`
	Translation string `json:"translation" validate:"omitempty,translation"`
}

// HybridSearchRequest is the body of POST /search/hybrid.
type HybridSearchRequest struct {
	Query       string `json:"query" validate:"required,max=500"`
	VerseLimit  int    `json:"verse_limit" validate:"omitempty,min=1,max=50"`
	TopicLimit  int    `json:"topic_limit" validate:"omitempty,min=1,max=50"`
	Translation string `json:"translation" validate:"omitempty,translation"`
}
