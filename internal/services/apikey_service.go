package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sola-scriptura-chat-api/internal/apperr"
	"github.com/sola-scriptura-chat-api/internal/logger"
	"github.com/sola-scriptura-chat-api/internal/models"
	"github.com/sola-scriptura-chat-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	// APIKeyPrefix starts every issued key
	APIKeyPrefix = "bca_"
	// keyPrefixLen is how much of a key is stored in clear for lookup
	keyPrefixLen = 12
	apiKeyLen    = len(APIKeyPrefix) + 32
)

// APIKeyService issues and authenticates API keys
type APIKeyService struct {
	repo repository.APIKeyRepository
	log  *logger.Logger
	now  func() time.Time
	cost int
}

// NewAPIKeyService creates a new API key service
func NewAPIKeyService(repo repository.APIKeyRepository, log *logger.Logger) *APIKeyService {
	return &APIKeyService{repo: repo, log: log, now: time.Now, cost: bcrypt.DefaultCost}
}

// CreateKeyParams describes a key to issue
type CreateKeyParams struct {
	Name         string
	Tier         models.Tier
	MonthlyLimit int
	ExpiresAt    *time.Time
}

// Create issues a key and returns its plaintext, which is not stored anywhere
func (s *APIKeyService) Create(ctx context.Context, p CreateKeyParams) (string, *models.APIKey, error) {
	if p.Tier == "" {
		p.Tier = models.TierFree
	}
	if p.MonthlyLimit <= 0 {
		p.MonthlyLimit = models.DefaultMonthlyLimit(p.Tier)
	}

	plain := APIKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key: %w", err)
	}

	key := &models.APIKey{
		KeyPrefix:    plain[:keyPrefixLen],
		KeyHash:      string(hash),
		Name:         p.Name,
		Tier:         p.Tier,
		MonthlyLimit: p.MonthlyLimit,
		ExpiresAt:    p.ExpiresAt,
	}
	if err := s.repo.Create(ctx, key); err != nil {
		return "", nil, err
	}
	return plain, key, nil
}

// Authenticate resolves a presented key. Expired keys are deactivated on sight.
func (s *APIKeyService) Authenticate(ctx context.Context, raw string) (*models.APIKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Unauthorized("API key required")
	}
	if !strings.HasPrefix(raw, APIKeyPrefix) || len(raw) != apiKeyLen {
		return nil, apperr.Unauthorized("Invalid API key")
	}

	candidates, err := s.repo.FindByPrefix(ctx, raw[:keyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("authenticate api key: %w", err)
	}

	var key *models.APIKey
	for i := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidates[i].KeyHash), []byte(raw)) == nil {
			key = &candidates[i]
			break
		}
	}
	if key == nil || !key.IsActive {
		return nil, apperr.Unauthorized("Invalid API key")
	}

	if key.Expired(s.now()) {
		if err := s.repo.Deactivate(ctx, key.ID); err != nil {
			s.log.Error("failed to deactivate expired api key", "key_id", key.ID, "error", err)
		}
		return nil, apperr.Unauthorized("API key has expired")
	}

	if key.QuotaExhausted() {
		return nil, apperr.New(apperr.ErrQuotaExceeded, "Monthly API limit exceeded")
	}
	return key, nil
}

// Usage reports the monthly consumption of a key
func (s *APIKeyService) Usage(ctx context.Context, id int64) (*models.UsageResponse, error) {
	key, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.NotFound("Usage data not found")
	}
	if err != nil {
		return nil, err
	}
	return &models.UsageResponse{
		UsageStats: models.NewUsageStats(key),
		ResetDate:  NextResetDate(s.now()),
	}, nil
}

// ResetMonthlyUsage zeroes all usage counters
func (s *APIKeyService) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	return s.repo.ResetMonthlyUsage(ctx)
}

// NextResetDate is midnight on the first day of the month after now
func NextResetDate(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}
