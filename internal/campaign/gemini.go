package campaign

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrisw65/market-profile/internal/assert"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini generates ideas with a hosted Gemini model.
type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (Gemini, error) {
	assert.NotEmptyStr(apiKey, "gemini api key")

	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return Gemini{}, fmt.Errorf("gemini: create client: %w", err)
	}
	return Gemini{client: client, model: model}, nil
}

func (g Gemini) Generate(ctx context.Context, input Input) (string, error) {
	ctx, span := tracer.Start(ctx, "gemini:Generate")
	defer span.End()
	span.SetAttributes(attribute.String("model", g.model))

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(BuildPrompt(input)), nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate content failed")
		return "", fmt.Errorf("gemini: %w", err)
	}

	if result == nil ||
		len(result.Candidates) == 0 ||
		result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	ideas := strings.TrimSpace(sb.String())
	if ideas == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return ideas, nil
}
