// Package anthropic adapts anthropics/anthropic-sdk-go to chatbackend.Backend
// for use as HASHIRU's manager-loop model.
package anthropic

import (
	"context"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kunpai/hashiru/internal/chatbackend"
	"github.com/kunpai/hashiru/pkg/models"
)

// Backend streams Claude completions, translating ModelContent history and
// chatbackend.Tool declarations into the SDK's message and tool-use shapes.
type Backend struct {
	client sdk.Client
	model  sdk.Model
}

// New constructs a Backend for model, reading ANTHROPIC_API_KEY from the
// environment the same way the SDK's default client option does.
func New(model string) *Backend {
	client := sdk.NewClient(option.WithEnvironmentVariables())
	return &Backend{client: client, model: sdk.Model(model)}
}

func (b *Backend) Name() string { return "anthropic" }

// CountTokens uses the API's dedicated token-counting endpoint rather than
// a local estimate, since Anthropic exposes one.
func (b *Backend) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := b.client.Messages.CountTokens(ctx, sdk.MessageCountTokensParams{
		Model: b.model,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("anthropic: count tokens: %w", err)
	}
	return int(resp.InputTokens), nil
}

// Stream issues a streamed messages.create call and translates each event
// into chatbackend.Chunk values.
func (b *Backend) Stream(ctx context.Context, req chatbackend.Request) (<-chan chatbackend.Chunk, error) {
	params := sdk.MessageNewParams{
		Model:     b.model,
		MaxTokens: 8192,
		System:    []sdk.TextBlockParam{{Text: req.System}},
		Messages:  toMessageParams(req.History),
		Tools:     toToolParams(req.Tools),
	}

	stream := b.client.Messages.NewStreaming(ctx, params)
	out := make(chan chatbackend.Chunk, 8)

	go func() {
		defer close(out)
		message := sdk.Message{}
		for stream.Next() {
			event := stream.Current()
			if err := message.Accumulate(event); err != nil {
				out <- chatbackend.Chunk{Kind: chatbackend.ChunkError, Err: fmt.Errorf("anthropic: accumulate event: %w", err)}
				return
			}
			switch variant := event.AsAny().(type) {
			case sdk.ContentBlockDeltaEvent:
				if delta, ok := variant.Delta.AsAny().(sdk.TextDelta); ok && delta.Text != "" {
					out <- chatbackend.Chunk{Kind: chatbackend.ChunkText, Text: delta.Text}
				}
			}
		}
		if err := stream.Err(); err != nil {
			out <- chatbackend.Chunk{Kind: chatbackend.ChunkError, Err: classifyError(err)}
			return
		}

		for _, block := range message.Content {
			if toolUse, ok := block.AsAny().(sdk.ToolUseBlock); ok {
				out <- chatbackend.Chunk{
					Kind: chatbackend.ChunkFunctionCall,
					FunctionCall: &models.FunctionCall{
						Name:      toolUse.Name,
						Arguments: toolUse.Input,
					},
				}
			}
		}
		out <- chatbackend.Chunk{
			Kind:         chatbackend.ChunkDone,
			InputTokens:  int(message.Usage.InputTokens),
			OutputTokens: int(message.Usage.OutputTokens),
		}
	}()
	return out, nil
}

func toMessageParams(history []models.ModelContent) []sdk.MessageParam {
	params := make([]sdk.MessageParam, 0, len(history))
	for _, content := range history {
		var blocks []sdk.ContentBlockParamUnion
		for _, part := range content.Parts {
			switch part.Kind {
			case models.PartText:
				blocks = append(blocks, sdk.NewTextBlock(part.Text))
			case models.PartFunctionResponse:
				blocks = append(blocks, sdk.NewToolResultBlock(part.Response.Name, resultText(part.Response), part.Response.Result.Status == models.StatusError))
			}
		}
		if content.Role == models.RoleAssistant || content.Role == models.RoleFuncCall {
			params = append(params, sdk.NewAssistantMessage(blocks...))
		} else {
			params = append(params, sdk.NewUserMessage(blocks...))
		}
	}
	return params
}

func resultText(resp *models.FunctionResponse) string {
	if resp.Result.Message != "" {
		return resp.Result.Message
	}
	return string(resp.Result.Output)
}

func toToolParams(tools []chatbackend.Tool) []sdk.ToolUnionParam {
	params := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, tool := range tools {
		params = append(params, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        tool.Name,
				Description: sdk.String(tool.Description),
			},
		})
	}
	return params
}

func classifyError(err error) error {
	return &chatbackend.APIError{Backend: "anthropic", Retryable: isRetryable(err), Cause: err}
}

func isRetryable(err error) bool {
	var apiErr *sdk.Error
	if castErr, ok := err.(*sdk.Error); ok {
		apiErr = castErr
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
