package backend

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"
)

// GeminiBackend wraps google.golang.org/genai for cloud sub-agents whose
// base_model contains "gemini", mirroring the Python original's
// GeminiAgent, which requires a GEMINI_KEY environment variable and raises
// if it is absent.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

// NewGeminiBackend constructs a backend for model, reading the API key from
// GEMINI_KEY. Returns an error if the variable is unset, the
// same validation the Python GeminiAgent constructor performs.
func NewGeminiBackend(ctx context.Context, model string) (*GeminiBackend, error) {
	key := os.Getenv("GEMINI_KEY")
	if key == "" {
		return nil, fmt.Errorf("gemini backend: GEMINI_KEY is not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini backend: create client: %w", err)
	}
	return &GeminiBackend{client: client, model: model}, nil
}

// Ask issues a single-turn generate-content call combining the system
// prompt and user message, since the sub-agent interface has no persistent
// session state of its own.
func (g *GeminiBackend) Ask(ctx context.Context, systemPrompt, message string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(message), config)
	if err != nil {
		return "", fmt.Errorf("gemini backend: generate content: %w", err)
	}
	return resp.Text(), nil
}

// CountTokens delegates to the shared word-count estimator; the genai
// client's own CountTokens call would require a round trip per estimate,
// which the expense-charging path cannot afford on every turn.
func (g *GeminiBackend) CountTokens(text string) int { return EstimateTokens(text) }
