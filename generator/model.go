package generator

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Model turns a prompt into the raw JSON text of a batch of cards.
type Model interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Gemini is a Model backed by the Google Gen AI API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini model. The client is shared by every request.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY or GOOGLE_API_KEY must be set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Name reports the model identifier.
func (g *Gemini) Name() string {
	return g.model
}

// Generate sends prompt and returns the concatenated text parts of the first
// candidate.
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.8),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
