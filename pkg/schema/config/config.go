package config

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds configuration for database and AI provider operations
type Config struct {
	// PostgreSQL
	PostgresURI string `env:"POSTGRES_URI"`

	// Embeddings: "vertex", "custom" or "none"
	EmbeddingProvider   string `env:"EMBEDDING_PROVIDER" env-default:"none"`
	EmbeddingServiceURL string `env:"EMBEDDING_SERVICE_URL" env-default:"http://localhost:8001"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" env-default:"768"`

	// Generation: "vertex" or "openai"
	GenerationProvider   string        `env:"GENERATION_PROVIDER" env-default:"vertex"`
	GenerationModel      string        `env:"GENERATION_MODEL" env-default:"gemini-2.0-flash"`
	GenerationServiceURL string        `env:"GENERATION_SERVICE_URL" env-default:"https://api.openai.com/v1"`
	GenerationAPIKey     string        `env:"GENERATION_API_KEY"`
	GenerationMaxTokens  int           `env:"GENERATION_MAX_TOKENS" env-default:"1000"`
	GenerationTemp       float32       `env:"GENERATION_TEMPERATURE" env-default:"0.7"`
	GenerationTimeout    time.Duration `env:"GENERATION_TIMEOUT" env-default:"60s"`

	// Vertex AI
	GCPProjectID   string `env:"GCP_PROJECT_ID"`
	GCPLocation    string `env:"GCP_LOCATION" env-default:"us-central1"`
	VertexModel    string `env:"VERTEX_MODEL" env-default:"text-embedding-005"`
	GeminiLocation string `env:"GEMINI_LOCATION" env-default:"us-central1"`
}

var (
	config  *Config
	loadErr error
	once    sync.Once
)

// GetConfig returns the singleton configuration instance
func GetConfig() *Config {
	once.Do(func() {
		config, loadErr = Load()
	})
	return config
}

// LoadError returns the error, if any, from the first GetConfig call
func LoadError() error {
	GetConfig()
	return loadErr
}

// Load reads the database and provider settings from the environment
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("schema config: read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("schema config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks provider selections
func (c *Config) Validate() error {
	var errs []error
	switch c.EmbeddingProvider {
	case "vertex", "custom", "none":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be vertex, custom or none, got %q", c.EmbeddingProvider))
	}
	switch c.GenerationProvider {
	case "vertex", "openai":
	default:
		errs = append(errs, fmt.Errorf("GENERATION_PROVIDER must be vertex or openai, got %q", c.GenerationProvider))
	}
	if c.GenerationMaxTokens <= 0 {
		errs = append(errs, errors.New("GENERATION_MAX_TOKENS must be positive"))
	}
	return errors.Join(errs...)
}
