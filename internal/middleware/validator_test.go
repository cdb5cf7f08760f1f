package middleware

import (
	"strings"
	"testing"

	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestValidator(t *testing.T) {
	t.Parallel()

	v := NewRequestValidator()

	tests := []struct {
		name    string
		req     interface{}
		message string
	}{
		{"valid chat", &models.ChatRequest{Message: "What is grace?", Translation: "kjv"}, ""},
		{"missing message", &models.ChatRequest{}, "message is required"},
		{"long message", &models.ChatRequest{Message: strings.Repeat("a", 1001)}, "message must be at most 1000 characters"},
		{"bad mode", &models.ChatRequest{Message: "hi", Mode: "sermon"}, "mode must be one of: conversational, study, devotional, simple"},
		{"bad translation", &models.ChatRequest{Message: "hi", Translation: "MSG"}, "translation must be one of: NIV, ESV, KJV, NLT, NASB, NKJV"},
		{"bad conversation id", &models.ChatRequest{Message: "hi", ConversationID: "abc"}, "conversation_id must be a valid UUID"},
		{"too many verses", &models.ChatRequest{Message: "hi", MaxVerses: 11}, "max_verses must be at most 10"},
		{"valid explain", &models.ExplainRequest{Reference: "1 John 4:8"}, ""},
		{"bad reference", &models.ExplainRequest{Reference: "John three sixteen"}, `reference must look like "Book Chapter:Verse"`},
		{"short situation", &models.CounselRequest{Situation: "sad"}, "situation must be at least 10 characters"},
		{"too many issues", &models.CounselRequest{Situation: "I lost my job last week", SpecificIssues: []string{"a", "b", "c", "d", "e", "f"}}, "specific_issues must have at most 5 items"},
		{"daily mood", &models.DailyRequest{Mood: strings.Repeat("x", 51)}, "mood must be at most 50 characters"},
		{"topic depth", &models.TopicRequest{Topic: "grace", Depth: "deep"}, "depth must be one of: basic, comprehensive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Validate(tt.req)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, apperr.ErrValidation)
			assert.Equal(t, tt.message, apperr.Message(err, ""))
		})
	}
}
