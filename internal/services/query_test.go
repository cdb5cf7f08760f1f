package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTopics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"anxiety expands", "I am anxious about my future", []string{"peace", "trust", "faith"}},
		{"vocabulary word", "Tell me about grace", []string{"grace"}},
		{"stem match", "How do I keep loving my neighbour", []string{"love"}},
		{"vocabulary then expansion", "I need hope because I'm so depressed", []string{"hope", "joy", "comfort"}},
		{"no topics", "Tell me about Moses", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExtractTopics(tt.query))
		})
	}
}

func TestExtractKeywords(t *testing.T) {
	t.Parallel()

	got := ExtractKeywords("What does the Bible say about FEAR, fear and worry?")
	assert.Equal(t, []string{"bible", "say", "about", "fear", "worry"}, got)

	assert.Empty(t, ExtractKeywords("is it to me?"))
}

func TestEnhanceQuery(t *testing.T) {
	t.Parallel()

	eq := EnhanceQuery("I feel anxious and lonely")
	assert.Equal(t, "I feel anxious and lonely anxiety worry peace trust loneliness companionship God's presence", eq.Query)
	assert.Equal(t, []string{"peace", "trust", "faith"}, eq.Topics)
	assert.Equal(t, []string{"feel", "anxious", "lonely"}, eq.Keywords)

	plain := EnhanceQuery("Psalm 23")
	assert.Equal(t, "Psalm 23", plain.Query)
	assert.NotNil(t, plain.Topics)
	assert.NotNil(t, plain.Keywords)
}

func TestTokenizeWords(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"god", "peace", "anxiety"}, tokenizeWords("God's peace, for anxiety!"))
}
