package services

import (
	"net/http"
	"testing"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestUsageTrackerDrainsOnClose(t *testing.T) {
	t.Parallel()

	keys := newFakeAPIKeyRepo()
	usage := &fakeUsageRepo{}
	tracker := NewUsageTracker(keys, usage, 16, logger.Nop())

	assert.True(t, tracker.Track(models.UsageRecord{APIKeyID: 1, Endpoint: "/api/v1/chat", StatusCode: http.StatusOK, TokensUsed: 90}))
	assert.True(t, tracker.Track(models.UsageRecord{APIKeyID: 1, Endpoint: "/api/v1/verse/explain", StatusCode: http.StatusNotFound}))
	assert.True(t, tracker.Track(models.UsageRecord{APIKeyID: 2, Endpoint: "/api/v1/daily", StatusCode: http.StatusCreated}))

	tracker.Close()

	assert.Len(t, usage.records, 3)
	assert.Equal(t, map[int64]int{1: 1, 2: 1}, keys.increments, "failed requests are not counted against the quota")

	assert.False(t, tracker.Track(models.UsageRecord{APIKeyID: 1}), "closed tracker rejects records")
	tracker.Close()
}
