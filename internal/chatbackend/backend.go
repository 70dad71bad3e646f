// Package chatbackend defines the streaming completion interface the
// orchestrator drives, mirroring the teacher's LLMProvider/CompletionChunk
// shape in internal/agent/provider_types.go but generalized for a single
// manager-loop backend rather than per-message-role routing across many
// providers (spec.md §3 ChatBackend, §4.6).
package chatbackend

import (
	"context"
	"errors"

	"github.com/kunpai/hashiru/pkg/models"
)

// Tool is the backend-facing declaration of a callable function: name,
// description, and a JSON Schema for its parameters. The Orchestrator
// projects every ToolRegistry descriptor (agent-management built-ins
// included) into this shape before a turn.
type Tool struct {
	Name        string
	Description string
	Parameters  []byte // raw JSON Schema
}

// Request is a single generate-content call: the full running history plus
// the tool declarations available this turn.
type Request struct {
	Model   string
	System  string
	History []models.ModelContent
	Tools   []Tool
}

// ChunkKind tags what a streamed Chunk carries.
type ChunkKind int

const (
	ChunkText ChunkKind = iota
	ChunkFunctionCall
	ChunkDone
	ChunkError
)

// Chunk is one element of a streamed response: interleaved text and
// function-call parts, terminated by a ChunkDone or ChunkError.
type Chunk struct {
	Kind         ChunkKind
	Text         string
	FunctionCall *models.FunctionCall
	Err          error
	InputTokens  int
	OutputTokens int
}

// Backend generates a streamed completion and counts tokens for a piece of
// text without a full round trip, used to estimate invocation expense.
type Backend interface {
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
	CountTokens(ctx context.Context, text string) (int, error)
	Name() string
}

// ErrRetryable marks an APIError as worth retrying with backoff (spec.md
// §4.6 step 8: 3x exponential backoff on retryable errors only).
var ErrRetryable = errors.New("retryable backend error")

// APIError wraps a backend failure with a retryability classification.
type APIError struct {
	Backend   string
	Retryable bool
	Cause     error
}

func (e *APIError) Error() string {
	return e.Backend + ": " + e.Cause.Error()
}

func (e *APIError) Unwrap() error {
	if e.Retryable {
		return errors.Join(ErrRetryable, e.Cause)
	}
	return e.Cause
}
