package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kunpai/hashiru/internal/chatbackend"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/kunpai/hashiru/pkg/models"
)

// toolSchema projects every loaded tool (including the native
// AgentCreator/AskAgent/FireAgent/GetAgents/GetBudget/MemoryManager
// built-ins, which are registered into the same ToolRegistry) into the
// backend-neutral declarations a ChatBackend needs to offer function
// calling for this turn (spec.md §4.6: "a tool/agent schema list obtained
// from ToolRegistry").
func toolSchema(tools *toolregistry.Registry) []chatbackend.Tool {
	descs := tools.List()
	out := make([]chatbackend.Tool, 0, len(descs))
	for _, d := range descs {
		out = append(out, chatbackend.Tool{
			Name:        d.Manifest.Name,
			Description: d.Manifest.Description,
			Parameters:  d.Manifest.Parameters,
		})
	}
	return out
}

// dispatchCalls runs each function call in calls strictly in order
// (spec.md invariant I6 / property P6: responses appear in the same order
// as their calls), appending a pending thinking-bubble message before each
// call and a done one after, then a single RoleTool message carrying every
// FunctionResponse in call order.
//
// If ctx is cancelled partway through, every call not yet dispatched is
// given a synthesized error response rather than being silently dropped, so
// the conversation never ends with an unanswered function_call (invariant
// I6).
func dispatchCalls(ctx context.Context, conv *models.Conversation, tools *toolregistry.Registry, calls []models.FunctionCall) {
	conv.Append(&models.Message{
		ID:            uuid.NewString(),
		Role:          models.RoleFuncCall,
		FunctionCalls: calls,
		CreatedAt:     time.Now(),
	})

	responses := make([]models.FunctionResponse, len(calls))
	for i, call := range calls {
		if ctx.Err() != nil {
			responses[i] = models.FunctionResponse{
				Name:   call.Name,
				Result: models.ErrorResult(fmt.Sprintf("turn was cancelled before %s could run", call.Name), nil),
			}
			continue
		}

		bubbleID := uuid.NewString()
		conv.Append(&models.Message{
			ID:       bubbleID,
			Role:     models.RoleAssistant,
			Content:  fmt.Sprintf("Invoking `%s`", call.Name),
			Metadata: &models.Metadata{Title: call.Name, ID: bubbleID, Status: models.StatusPending},
		})

		// The result already encodes success/failure as a FunctionResult;
		// the error return only matters to callers deciding on retries.
		result, _ := tools.Execute(ctx, call.Name, call.Arguments)

		conv.Append(&models.Message{
			ID:       uuid.NewString(),
			Role:     models.RoleAssistant,
			Content:  fmt.Sprintf("Invoking `%s`", call.Name),
			Metadata: &models.Metadata{Title: call.Name, ID: bubbleID, Status: models.StatusDone},
		})

		responses[i] = models.FunctionResponse{Name: call.Name, Result: result}
	}

	conv.Append(&models.Message{
		ID:                uuid.NewString(),
		Role:              models.RoleTool,
		FunctionResponses: responses,
		CreatedAt:         time.Now(),
	})
}

