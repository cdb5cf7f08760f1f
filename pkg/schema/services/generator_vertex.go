package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/sola-scriptura-chat-api/pkg/schema/config"
)

// VertexGenerator implements Generator with Gemini models on Vertex AI
type VertexGenerator struct {
	cfg    *config.Config
	client *genai.Client
}

// NewVertexGenerator creates a Gemini client using application default credentials
func NewVertexGenerator(ctx context.Context, cfg *config.Config) (*VertexGenerator, error) {
	if cfg.GCPProjectID == "" {
		return nil, errors.New("GCP_PROJECT_ID is required for Vertex AI generation")
	}
	client, err := genai.NewClient(ctx, cfg.GCPProjectID, cfg.GeminiLocation)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &VertexGenerator{cfg: cfg, client: client}, nil
}

// Generate runs one GenerateContent call. A model handle is built per call
// because the system instruction differs between requests.
func (g *VertexGenerator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	req = req.withDefaults(g.cfg)

	ctx, cancel := context.WithTimeout(ctx, g.cfg.GenerationTimeout)
	defer cancel()

	model := g.client.GenerativeModel(g.cfg.GenerationModel)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	model.SetTemperature(req.Temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, errors.New("gemini generate: empty response")
	}

	result := &GenerateResult{Text: text}
	if resp.UsageMetadata != nil {
		result.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}
	return result, nil
}

// Close closes the genai client
func (g *VertexGenerator) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}
