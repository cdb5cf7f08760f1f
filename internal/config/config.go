package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all API configuration.
type Config struct {
	// API Settings
	APITitle    string `env:"API_TITLE" env-default:"Sola Scriptura Chat API"`
	APIVersion  string `env:"API_VERSION" env-default:"1.0.0"`
	APIPrefix   string `env:"API_PREFIX" env-default:"/api/v1"`
	Port        string `env:"PORT" env-default:"8081"`
	Environment string `env:"APP_ENV" env-default:"development"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info"`

	// CORS, either a JSON array or a comma separated list
	CORSOriginsRaw string   `env:"CORS_ORIGINS" env-default:"http://localhost:5173,http://localhost:3000"`
	CORSOrigins    []string `env:"-"`

	DefaultTranslation string `env:"DEFAULT_TRANSLATION" env-default:"NIV"`

	// Redis cache; empty disables caching and rate limiting
	RedisURL         string        `env:"REDIS_URL" env-default:""`
	RedisDialTimeout time.Duration `env:"REDIS_DIAL_TIMEOUT" env-default:"5s"`

	CacheTTLShort  time.Duration `env:"CACHE_TTL_SHORT" env-default:"1m"`
	CacheTTLMedium time.Duration `env:"CACHE_TTL_MEDIUM" env-default:"5m"`
	CacheTTLLong   time.Duration `env:"CACHE_TTL_LONG" env-default:"1h"`
	CacheTTLDay    time.Duration `env:"CACHE_TTL_DAY" env-default:"24h"`

	// Requests per window by tier
	RateLimitWindow  time.Duration `env:"RATE_LIMIT_WINDOW" env-default:"1h"`
	RateLimitFree    int           `env:"RATE_LIMIT_FREE" env-default:"100"`
	RateLimitPaid    int           `env:"RATE_LIMIT_PAID" env-default:"1000"`
	RateLimitPremium int           `env:"RATE_LIMIT_PREMIUM" env-default:"10000"`

	UsageQueueSize int `env:"USAGE_QUEUE_SIZE" env-default:"256"`

	// Vector Search Backend: "pgvector" or "vertex"
	VectorBackend string `env:"VECTOR_BACKEND" env-default:"pgvector"`

	// Vertex AI Vector Search settings (used when VectorBackend = "vertex")
	VertexProjectID            string `env:"VERTEX_PROJECT_ID"`
	VertexLocation             string `env:"VERTEX_LOCATION" env-default:"us-central1"`
	VertexIndexEndpointID      string `env:"VERTEX_INDEX_ENDPOINT_ID"`
	VertexDeployedIndexID      string `env:"VERTEX_DEPLOYED_INDEX_ID"`
	VertexPublicEndpointDomain string `env:"VERTEX_PUBLIC_ENDPOINT_DOMAIN"`
}

var (
	config  *Config
	loadErr error
	once    sync.Once
)

// GetConfig returns the singleton configuration instance. It is nil when loading failed;
// see LoadError.
func GetConfig() *Config {
	once.Do(func() {
		config, loadErr = Load()
	})
	return config
}

// LoadError returns the error, if any, from the first GetConfig call.
func LoadError() error {
	GetConfig()
	return loadErr
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	cfg.CORSOrigins = parseCORSOrigins(cfg.CORSOriginsRaw)
	cfg.DefaultTranslation = strings.ToUpper(cfg.DefaultTranslation)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

var supportedTranslations = []string{"NIV", "ESV", "KJV", "NLT", "NASB", "NKJV"}

// Validate checks cross-field constraints that tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(supportedTranslations, c.DefaultTranslation) {
		errs = append(errs, fmt.Errorf("DEFAULT_TRANSLATION %q is not supported", c.DefaultTranslation))
	}
	if c.VectorBackend != "pgvector" && c.VectorBackend != "vertex" {
		errs = append(errs, fmt.Errorf("VECTOR_BACKEND must be pgvector or vertex, got %q", c.VectorBackend))
	}
	if c.VectorBackend == "vertex" && (c.VertexProjectID == "" || c.VertexIndexEndpointID == "" || c.VertexDeployedIndexID == "") {
		errs = append(errs, errors.New("vertex vector backend needs VERTEX_PROJECT_ID, VERTEX_INDEX_ENDPOINT_ID and VERTEX_DEPLOYED_INDEX_ID"))
	}
	if c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_WINDOW must be positive"))
	}
	if c.RateLimitFree <= 0 || c.RateLimitPaid <= 0 || c.RateLimitPremium <= 0 {
		errs = append(errs, errors.New("rate limits must be positive"))
	}
	if c.UsageQueueSize <= 0 {
		errs = append(errs, errors.New("USAGE_QUEUE_SIZE must be positive"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether internal error details may be shown to clients.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development") || strings.EqualFold(c.Environment, "dev")
}

func parseCORSOrigins(value string) []string {
	var origins []string
	if err := json.Unmarshal([]byte(value), &origins); err == nil {
		return origins
	}
	parts := strings.Split(value, ",")
	origins = make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
