package services

import (
	"context"
	"fmt"

	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// GenerateRequest is one completion call against a language model
type GenerateRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float32
}

// GenerateResult is the model's text and its token accounting
type GenerateResult struct {
	Text       string
	TokensUsed int
}

// Generator defines the interface for text generation backends
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
	Close() error
}

// NewGenerator builds the configured generation backend
func NewGenerator(ctx context.Context, cfg *config.Config) (Generator, error) {
	switch cfg.GenerationProvider {
	case "openai":
		return NewOpenAIGenerator(cfg)
	case "vertex":
		return NewVertexGenerator(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.GenerationProvider)
	}
}

// withDefaults fills unset limits from configuration
func (r GenerateRequest) withDefaults(cfg *config.Config) GenerateRequest {
	if r.MaxTokens <= 0 {
		r.MaxTokens = cfg.GenerationMaxTokens
	}
	if r.Temperature <= 0 {
		r.Temperature = cfg.GenerationTemp
	}
	return r
}
