package models

import "fmt"

// Verse is a single stored verse in one translation.
type Verse struct {
	ID          int64  `json:"id,omitempty" db:"id"`
	Book        string `json:"book" db:"book"`
	Chapter     int    `json:"chapter" db:"chapter"`
	Verse       int    `json:"verse" db:"verse"`
	Text        string `json:"text" db:"text"`
	Translation string `json:"translation" db:"translation"`
	Testament   string `json:"testament" db:"testament"`
}

// Ref formats the verse locator as "Book Chapter:Verse".
func (v Verse) Ref() string {
	return fmt.Sprintf("%s %d:%d", v.Book, v.Chapter, v.Verse)
}

// Key identifies the verse independent of translation.
func (v Verse) Key() string {
	return fmt.Sprintf("%s-%d-%d", v.Book, v.Chapter, v.Verse)
}

// ScoredVerse is a verse with a store-provided score (text rank, topic relevance or
// vector similarity).
type ScoredVerse struct {
	Verse
	Score float64 `json:"score" db:"score"`
}

// VerseWithRelevance decorates a verse with its reference and a relevance in [0,1].
type VerseWithRelevance struct {
	Verse
	Reference string  `json:"reference"`
	Relevance float64 `json:"relevance"`
}

// WithRelevance builds a VerseWithRelevance for v.
func WithRelevance(v Verse, relevance float64) VerseWithRelevance {
	return VerseWithRelevance{Verse: v, Reference: v.Ref(), Relevance: relevance}
}

// VerseWithReference is the public shape of a single looked-up verse.
type VerseWithReference struct {
	Verse
	Reference string `json:"reference"`
}

// Citation is a verse returned from semantic search.
type Citation struct {
	Reference      string   `json:"reference"`
	Text           string   `json:"text"`
	Book           string   `json:"book"`
	Chapter        int      `json:"chapter"`
	Verse          int      `json:"verse"`
	Translation    string   `json:"translation"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
}

// VerseContext is the neighbourhood of a verse within its chapter.
type VerseContext struct {
	Previous       *Verse `json:"previous_verse,omitempty"`
	Current        *Verse `json:"current_verse,omitempty"`
	Next           *Verse `json:"next_verse,omitempty"`
	ChapterContext string `json:"chapter_context"`
}
