// Package openai adapts github.com/sashabaranov/go-openai to
// chatbackend.Backend, usable both as the top-level manager-loop model and
// (via a custom BaseURL) as a Groq-compatible backend.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	sdk "github.com/sashabaranov/go-openai"

	"github.com/kunpai/hashiru/internal/chatbackend"
	"github.com/kunpai/hashiru/pkg/models"
)

// Backend streams chat completions from an OpenAI-compatible endpoint.
type Backend struct {
	client *sdk.Client
	model  string
}

// New constructs a Backend reading OPENAI_API_KEY from the environment.
func New(model string) *Backend {
	return &Backend{client: sdk.NewClient(apiKeyFromEnv()), model: model}
}

// NewWithBaseURL constructs a Backend against a custom OpenAI-compatible
// endpoint and API key, for providers other than OpenAI itself.
func NewWithBaseURL(model, apiKey, baseURL string) *Backend {
	config := sdk.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &Backend{client: sdk.NewClientWithConfig(config), model: model}
}

func (b *Backend) Name() string { return "openai" }

func (b *Backend) CountTokens(_ context.Context, text string) (int, error) {
	// go-openai has no token-counting endpoint; callers needing an exact
	// count should use a tokenizer library. The orchestrator only uses this
	// for coarse expense estimation, so a word-count proxy is acceptable
	// here (see DESIGN.md).
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t'
		if !isSpace && !inWord {
			count++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return count, nil
}

func (b *Backend) Stream(ctx context.Context, req chatbackend.Request) (<-chan chatbackend.Chunk, error) {
	messages := toChatMessages(req.System, req.History)
	tools := toChatTools(req.Tools)

	stream, err := b.client.CreateChatCompletionStream(ctx, sdk.ChatCompletionRequest{
		Model:    b.model,
		Messages: messages,
		Tools:    tools,
		Stream:   true,
	})
	if err != nil {
		return nil, &chatbackend.APIError{Backend: "openai", Retryable: isRetryable(err), Cause: err}
	}

	out := make(chan chatbackend.Chunk, 8)
	go func() {
		defer close(out)
		defer stream.Close()

		toolCallArgs := map[int]*sdk.ToolCall{}
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				out <- chatbackend.Chunk{Kind: chatbackend.ChunkError, Err: &chatbackend.APIError{Backend: "openai", Retryable: isRetryable(err), Cause: err}}
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.Content != "" {
				out <- chatbackend.Chunk{Kind: chatbackend.ChunkText, Text: delta.Content}
			}
			for _, tc := range delta.ToolCalls {
				idx := 0
				if tc.Index != nil {
					idx = *tc.Index
				}
				acc, ok := toolCallArgs[idx]
				if !ok {
					acc = &sdk.ToolCall{Function: sdk.FunctionCall{Name: tc.Function.Name}}
					toolCallArgs[idx] = acc
				}
				acc.Function.Arguments += tc.Function.Arguments
			}
		}

		for _, tc := range toolCallArgs {
			out <- chatbackend.Chunk{
				Kind: chatbackend.ChunkFunctionCall,
				FunctionCall: &models.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: json.RawMessage(tc.Function.Arguments),
				},
			}
		}
		out <- chatbackend.Chunk{Kind: chatbackend.ChunkDone}
	}()
	return out, nil
}

func toChatMessages(system string, history []models.ModelContent) []sdk.ChatCompletionMessage {
	messages := make([]sdk.ChatCompletionMessage, 0, len(history)+1)
	if system != "" {
		messages = append(messages, sdk.ChatCompletionMessage{Role: sdk.ChatMessageRoleSystem, Content: system})
	}
	for _, content := range history {
		role := sdk.ChatMessageRoleUser
		if content.Role == models.RoleAssistant || content.Role == models.RoleFuncCall {
			role = sdk.ChatMessageRoleAssistant
		} else if content.Role == models.RoleTool {
			role = sdk.ChatMessageRoleTool
		}
		for _, part := range content.Parts {
			switch part.Kind {
			case models.PartText:
				messages = append(messages, sdk.ChatCompletionMessage{Role: role, Content: part.Text})
			case models.PartFunctionResponse:
				messages = append(messages, sdk.ChatCompletionMessage{
					Role:       sdk.ChatMessageRoleTool,
					Name:       part.Response.Name,
					Content:    resultText(part.Response),
					ToolCallID: part.Response.Name,
				})
			}
		}
	}
	return messages
}

func resultText(resp *models.FunctionResponse) string {
	if resp.Result.Message != "" {
		return resp.Result.Message
	}
	return string(resp.Result.Output)
}

func toChatTools(tools []chatbackend.Tool) []sdk.Tool {
	out := make([]sdk.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, sdk.Tool{
			Type: sdk.ToolTypeFunction,
			Function: &sdk.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  json.RawMessage(t.Parameters),
			},
		})
	}
	return out
}

func isRetryable(err error) bool {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	return false
}

func apiKeyFromEnv() string {
	return os.Getenv("OPENAI_API_KEY")
}
