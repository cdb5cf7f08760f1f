package models

import (
	"strings"
	"time"
)

// Tier is an API key usage class.
type Tier string

const (
	TierFree    Tier = "free"
	TierPaid    Tier = "paid"
	TierPremium Tier = "premium"
)

// Level orders tiers: free < paid < premium. Unknown tiers rank below free.
func (t Tier) Level() int {
	switch t {
	case TierFree:
		return 1
	case TierPaid:
		return 2
	case TierPremium:
		return 3
	default:
		return 0
	}
}

// Allows reports whether t meets the required tier.
func (t Tier) Allows(required Tier) bool {
	return t.Level() >= required.Level()
}

// ParseTier returns the tier named by s.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToLower(strings.TrimSpace(s)))
	return t, t.Level() > 0
}

// DefaultMonthlyLimit is the monthly request quota issued with a new key of tier t.
func DefaultMonthlyLimit(t Tier) int {
	switch t {
	case TierPaid:
		return 10000
	case TierPremium:
		return 100000
	default:
		return 1000
	}
}

// APIKey is an issued client credential. KeyHash holds the bcrypt hash; the plain key is
// only ever returned once, at creation.
type APIKey struct {
	ID           int64      `json:"id" db:"id"`
	KeyPrefix    string     `json:"key_prefix" db:"key_prefix"`
	KeyHash      string     `json:"-" db:"key_hash"`
	Name         string     `json:"name" db:"name"`
	Tier         Tier       `json:"tier" db:"tier"`
	MonthlyLimit int        `json:"monthly_limit" db:"monthly_limit"`
	CurrentUsage int        `json:"current_usage" db:"current_usage"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the key has an expiry before now.
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// QuotaExhausted reports whether the monthly limit has been reached.
func (k *APIKey) QuotaExhausted() bool {
	return k.CurrentUsage >= k.MonthlyLimit
}

// UsageStats summarises a key's monthly consumption.
type UsageStats struct {
	Name           string  `json:"name"`
	Tier           Tier    `json:"tier"`
	MonthlyLimit   int     `json:"monthly_limit"`
	CurrentUsage   int     `json:"current_usage"`
	RemainingCalls int     `json:"remaining_calls"`
	PercentUsed    float64 `json:"percent_used"`
}

// NewUsageStats derives remaining and percent-used figures from a key.
func NewUsageStats(k *APIKey) UsageStats {
	remaining := k.MonthlyLimit - k.CurrentUsage
	if remaining < 0 {
		remaining = 0
	}
	var pct float64
	if k.MonthlyLimit > 0 {
		pct = float64(k.CurrentUsage) / float64(k.MonthlyLimit) * 100
	}
	return UsageStats{
		Name:           k.Name,
		Tier:           k.Tier,
		MonthlyLimit:   k.MonthlyLimit,
		CurrentUsage:   k.CurrentUsage,
		RemainingCalls: remaining,
		PercentUsed:    pct,
	}
}

// UsageRecord is one row of the api_usage log.
type UsageRecord struct {
	APIKeyID       int64     `db:"api_key_id"`
	Endpoint       string    `db:"endpoint"`
	TokensUsed     int       `db:"tokens_used"`
	ResponseTimeMs int64     `db:"response_time_ms"`
	StatusCode     int       `db:"status_code"`
	CreatedAt      time.Time `db:"created_at"`
}
