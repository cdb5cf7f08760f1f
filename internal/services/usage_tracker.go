package services

import (
	"context"
	"sync"
	"time"

	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
)

const usageWriteTimeout = 5 * time.Second

// UsageTracker records API usage off the request path on a single background worker.
// Records are dropped, with a warning, when the queue is full.
type UsageTracker struct {
	keys  repository.APIKeyRepository
	usage repository.UsageRepository
	log   *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan models.UsageRecord
	done   chan struct{}
}

// NewUsageTracker starts the worker. Close must be called to drain it.
func NewUsageTracker(keys repository.APIKeyRepository, usage repository.UsageRepository, queueSize int, log *logger.Logger) *UsageTracker {
	if queueSize <= 0 {
		queueSize = 1
	}
	t := &UsageTracker{
		keys:  keys,
		usage: usage,
		log:   log,
		queue: make(chan models.UsageRecord, queueSize),
		done:  make(chan struct{}),
	}
	go t.run()
	return t
}

// Track enqueues a record and reports whether it was accepted
func (t *UsageTracker) Track(rec models.UsageRecord) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return false
	}

	select {
	case t.queue <- rec:
		return true
	default:
		t.log.Warn("usage queue full, dropping record", "key_id", rec.APIKeyID, "endpoint", rec.Endpoint)
		return false
	}
}

// Close stops accepting records and waits for queued ones to be written
func (t *UsageTracker) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.queue)
	}
	t.mu.Unlock()
	<-t.done
}

func (t *UsageTracker) run() {
	defer close(t.done)
	for rec := range t.queue {
		t.write(rec)
	}
}

// write counts successful requests against the monthly quota and logs every request
func (t *UsageTracker) write(rec models.UsageRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), usageWriteTimeout)
	defer cancel()

	if rec.StatusCode < 400 {
		if err := t.keys.IncrementUsage(ctx, rec.APIKeyID, 1); err != nil {
			t.log.Error("failed to increment api key usage", "key_id", rec.APIKeyID, "error", err)
		}
	}
	if err := t.usage.Record(ctx, rec); err != nil {
		t.log.Error("failed to record api usage", "key_id", rec.APIKeyID, "endpoint", rec.Endpoint, "error", err)
	}
}
