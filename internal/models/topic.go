package models

import "github.com/lib/pq"

// Topic is an entry in the topical index.
type Topic struct {
	ID            int64          `json:"id" db:"id"`
	Name          string         `json:"name" db:"topic"`
	Category      string         `json:"category,omitempty" db:"category"`
	RelatedTopics pq.StringArray `json:"related_topics" db:"related_topics"`
}

// ScoredTopic is a topic matched by a keyword search.
type ScoredTopic struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	Category     string   `json:"category,omitempty"`
	VerseCount   int      `json:"verse_count"`
	Score        float64  `json:"score"`
	MatchedWords []string `json:"matched_words,omitempty"`
}

// TopicVerse links a verse to a topic with a relevance score in [0,1].
type TopicVerse struct {
	TopicID        int64   `json:"topic_id" db:"topic_id"`
	VerseID        int64   `json:"verse_id" db:"verse_id"`
	RelevanceScore float64 `json:"relevance_score" db:"relevance_score"`
}
