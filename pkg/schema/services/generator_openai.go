package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// OpenAIGenerator implements Generator against an OpenAI-compatible chat completions API
type OpenAIGenerator struct {
	cfg        *config.Config
	url        string
	httpClient *http.Client
}

// NewOpenAIGenerator creates a chat completions client
func NewOpenAIGenerator(cfg *config.Config) (*OpenAIGenerator, error) {
	if cfg.GenerationAPIKey == "" {
		return nil, errors.New("GENERATION_API_KEY is required for the openai generation provider")
	}
	return &OpenAIGenerator{
		cfg:        cfg,
		url:        strings.TrimRight(cfg.GenerationServiceURL, "/") + "/chat/completions",
		httpClient: &http.Client{Timeout: cfg.GenerationTimeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float32       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Generate sends a system and user message and returns the first choice
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req = req.withDefaults(g.cfg)

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	var out chatCompletionResponse
	err := postJSON(ctx, g.httpClient, g.url,
		map[string]string{"Authorization": "Bearer " + g.cfg.GenerationAPIKey},
		chatCompletionRequest{
			Model:       g.cfg.GenerationModel,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		}, &out)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, errors.New("chat completion: empty response")
	}

	return &GenerateResult{
		Text:       out.Choices[0].Message.Content,
		TokensUsed: out.Usage.TotalTokens,
	}, nil
}

// Close is a no-op
func (g *OpenAIGenerator) Close() error {
	return nil
}
