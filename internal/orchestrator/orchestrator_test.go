package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/chatbackend"
	"github.com/kunpai/hashiru/internal/chatbackend/fakebackend"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/kunpai/hashiru/pkg/models"
)

func newTestOrchestrator(t *testing.T, fb *fakebackend.Backend) (*Orchestrator, *toolregistry.Registry) {
	t.Helper()
	b := budget.New(1000, 10, nil)
	m := modes.DefaultModeSet()
	tools := toolregistry.New(t.TempDir(), t.TempDir(), b, m, toolregistry.NoopInstaller{}, nil)

	schema := json.RawMessage(`{"type":"object","properties":{"message":{"type":"string"}},"required":["message"]}`)
	err := tools.RegisterNative("Echo", "echoes a message", schema, toolregistry.Costs{},
		func(ctx context.Context, args json.RawMessage) (models.FunctionResult, error) {
			var p struct {
				Message string `json:"message"`
			}
			_ = json.Unmarshal(args, &p)
			return models.SuccessResult(p.Message, nil), nil
		})
	if err != nil {
		t.Fatalf("unexpected error registering native tool: %v", err)
	}

	return New(fb, tools, b, m), tools
}

func TestTurn_PureTextEndsImmediately(t *testing.T) {
	fb := fakebackend.New(fakebackend.Turn{Text: "hello there"})
	o, _ := newTestOrchestrator(t, fb)

	conv := &models.Conversation{}
	if err := o.Turn(context.Background(), conv, "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	last := conv.Last()
	if last.Role != models.RoleAssistant || last.Content != "hello there" {
		t.Errorf("expected final assistant text message, got %+v", last)
	}
}

func TestTurn_ToolCallRoundTrip(t *testing.T) {
	fb := fakebackend.New(
		fakebackend.Turn{FunctionCall: &chatbackend.Chunk{
			Kind:         chatbackend.ChunkFunctionCall,
			FunctionCall: &models.FunctionCall{Name: "Echo", Arguments: json.RawMessage(`{"message":"pong"}`)},
		}},
		fakebackend.Turn{Text: "done"},
	)
	o, _ := newTestOrchestrator(t, fb)

	conv := &models.Conversation{}
	if err := o.Turn(context.Background(), conv, "ping"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sawFuncCall, sawToolResponse bool
	var funcCallIdx, toolIdx int
	for i, msg := range conv.Messages {
		if msg.Role == models.RoleFuncCall {
			sawFuncCall = true
			funcCallIdx = i
		}
		if msg.Role == models.RoleTool {
			sawToolResponse = true
			toolIdx = i
			if len(msg.FunctionResponses) != 1 || msg.FunctionResponses[0].Name != "Echo" {
				t.Errorf("expected one Echo function response, got %+v", msg.FunctionResponses)
			}
		}
	}
	if !sawFuncCall || !sawToolResponse {
		t.Fatal("expected both a function_call message and a tool response message")
	}
	if toolIdx < funcCallIdx {
		t.Error("tool response must come after its function call")
	}

	last := conv.Last()
	if last.Role != models.RoleAssistant || last.Content != "done" {
		t.Errorf("expected turn to end with final assistant text, got %+v", last)
	}
}

func TestTurn_ChargesGenerationExpense(t *testing.T) {
	fb := fakebackend.New(fakebackend.Turn{Text: "ok"})
	o, _ := newTestOrchestrator(t, fb)

	conv := &models.Conversation{}
	if err := o.Turn(context.Background(), conv, "hi"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := o.budget.Snapshot().UsedExpense; got == 0 {
		t.Error("expected generation to charge nonzero expense from reported token usage")
	}
}

func TestTurn_GenerateErrorEndsTurnWithErrorMessage(t *testing.T) {
	fb := fakebackend.New(fakebackend.Turn{Err: &chatbackend.APIError{Backend: "fake", Retryable: false, Cause: errors.New("boom")}})
	o, _ := newTestOrchestrator(t, fb)

	conv := &models.Conversation{}
	err := o.Turn(context.Background(), conv, "hi")
	if err == nil {
		t.Fatal("expected Turn to return an error when generation fails")
	}
	var loopErr *LoopError
	if !errors.As(err, &loopErr) || loopErr.Phase != PhaseGenerate {
		t.Fatalf("expected a PhaseGenerate LoopError, got %v", err)
	}

	last := conv.Last()
	if last.Role != models.RoleAssistant || last.Metadata == nil || last.Metadata.Title != "Error generating response" {
		t.Errorf("expected a conversation-visible error message, got %+v", last)
	}
}

func TestTurn_MemoryDisabledSkipsInjection(t *testing.T) {
	fb := fakebackend.New(fakebackend.Turn{Text: "ok"})
	o, tools := newTestOrchestrator(t, fb)
	_ = tools

	snap := o.modeSet.Snapshot()
	snap.EnableMemory = false
	o.modeSet.Set(snap)

	conv := &models.Conversation{}
	if err := o.Turn(context.Background(), conv, "what's my pet's name?"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, msg := range conv.Messages {
		if msg.Role == models.RoleMemories {
			t.Error("memory should not be injected when ENABLE_MEMORY is false")
		}
	}
}
