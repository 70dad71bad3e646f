package backend

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBackend reuses the OpenAI-compatible go-openai client pointed at
// Groq's base URL, since Groq exposes an OpenAI-compatible chat completions
// API and no dedicated Groq SDK appears in the example corpus. Mirrors the
// Python original's GroqAgent, which requires GROQ_API_KEY.
type GroqBackend struct {
	client *openai.Client
	model  string
}

const groqBaseURL = "https://api.groq.com/openai/v1"

// NewGroqBackend constructs a backend for model, reading the API key from
// GROQ_API_KEY. Returns an error if the variable is unset.
func NewGroqBackend(model string) (*GroqBackend, error) {
	key := os.Getenv("GROQ_API_KEY")
	if key == "" {
		return nil, fmt.Errorf("groq backend: GROQ_API_KEY is not set")
	}
	config := openai.DefaultConfig(key)
	config.BaseURL = groqBaseURL
	return &GroqBackend{client: openai.NewClientWithConfig(config), model: model}, nil
}

// Ask issues a single chat completion request.
func (g *GroqBackend) Ask(ctx context.Context, systemPrompt, message string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err != nil {
		return "", fmt.Errorf("groq backend: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("groq backend: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CountTokens delegates to the shared word-count estimator.
func (g *GroqBackend) CountTokens(text string) int { return EstimateTokens(text) }
