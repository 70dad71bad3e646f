// Package orchestrator implements the manager-loop turn state machine:
// memory injection, history formatting, streamed generation with retry,
// sequential function-call dispatch, and the decision to close a turn
// (spec.md §3 Orchestrator, §4.6, §8 "Tool-call round-trip").
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kunpai/hashiru/internal/budget"
	"github.com/kunpai/hashiru/internal/chatbackend"
	"github.com/kunpai/hashiru/internal/memoryretriever"
	"github.com/kunpai/hashiru/internal/modes"
	"github.com/kunpai/hashiru/internal/telemetry"
	"github.com/kunpai/hashiru/internal/toolregistry"
	"github.com/kunpai/hashiru/pkg/models"
)

// maxTurnIterations bounds the recursive tool-call loop so a model that
// never stops calling tools can't run forever; exceeding it ends the turn
// with an error rather than spinning indefinitely.
const maxTurnIterations = 25

// Orchestrator drives a single conversation's manager loop against one
// ChatBackend, dispatching function calls through a ToolRegistry (which, for
// the AskAgent/AgentCreator/FireAgent built-ins, itself reaches into an
// AgentRegistry).
type Orchestrator struct {
	backend   chatbackend.Backend
	tools     *toolregistry.Registry
	retriever *memoryretriever.Retriever
	budget    *budget.Controller
	modeSet   *modes.ModeSet
	logger    *slog.Logger

	memoryK         int
	memoryThreshold float32
	systemPrompt    string

	metrics *telemetry.Metrics
}

// SetMetrics attaches a telemetry.Metrics bundle so every Turn call reports
// its iteration count. Optional: a nil bundle just means Turn skips it.
func (o *Orchestrator) SetMetrics(m *telemetry.Metrics) {
	o.metrics = m
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithMemory enables memory injection with the given top-k and similarity
// threshold, using retriever to recall prior memories.
func WithMemory(retriever *memoryretriever.Retriever, k int, threshold float32) Option {
	return func(o *Orchestrator) {
		o.retriever = retriever
		o.memoryK = k
		o.memoryThreshold = threshold
	}
}

// WithSystemPrompt sets the system instruction sent with every generation.
func WithSystemPrompt(prompt string) Option {
	return func(o *Orchestrator) { o.systemPrompt = prompt }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New constructs an Orchestrator over backend and tools, gated by modeSet
// and charging generation cost against budgetController.
func New(backend chatbackend.Backend, tools *toolregistry.Registry, budgetController *budget.Controller, modeSet *modes.ModeSet, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		backend: backend,
		tools:   tools,
		budget:  budgetController,
		modeSet: modeSet,
		logger:  slog.Default(),
		memoryK: 5,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Turn appends userInput to conv as a user message, then drives the
// manager loop until the backend produces a turn-ending response (pure
// text, no function calls) or the iteration cap is reached.
func (o *Orchestrator) Turn(ctx context.Context, conv *models.Conversation, userInput string) error {
	conv.Append(models.NewMessage(uuid.NewString(), models.RoleUser, userInput))

	for iteration := 0; iteration < maxTurnIterations; iteration++ {
		if o.modeSet.Snapshot().EnableMemory {
			injectMemory(ctx, conv, o.retriever, o.memoryK, o.memoryThreshold)
		}

		history := formatHistory(conv)

		text, calls, err := o.generate(ctx, history)
		if err != nil {
			// Plumbing failures (retries exhausted, history formatting)
			// end the turn by appending an error message rather than
			// leaving the conversation dangling mid-turn (spec.md §7
			// propagation policy).
			conv.Append(&models.Message{
				ID:       uuid.NewString(),
				Role:     models.RoleAssistant,
				Content:  fmt.Sprintf("Error generating response: %v", err),
				Metadata: &models.Metadata{Title: "Error generating response"},
			})
			o.observeIterations(iteration + 1)
			return &LoopError{Phase: PhaseGenerate, Iteration: iteration, Cause: err}
		}

		if text != "" {
			conv.Append(models.NewMessage(uuid.NewString(), models.RoleAssistant, text))
		}

		if len(calls) == 0 {
			// Pure text with no function calls ends the turn (spec.md
			// §4.6 step 9: "a turn ends when a response carries no
			// function calls").
			o.observeIterations(iteration + 1)
			return nil
		}

		dispatchCalls(ctx, conv, o.tools, calls)
	}

	o.observeIterations(maxTurnIterations)
	return &LoopError{Phase: PhaseDispatch, Iteration: maxTurnIterations, Cause: errTurnIterationLimit}
}

func (o *Orchestrator) observeIterations(n int) {
	if o.metrics != nil {
		o.metrics.RecordTurnIterations(n)
	}
}

// generate streams one completion, retrying retryable backend errors with
// exponential backoff, and charges its token usage against the expense
// budget once the stream completes.
func (o *Orchestrator) generate(ctx context.Context, history []models.ModelContent) (string, []models.FunctionCall, error) {
	var text string
	var calls []models.FunctionCall

	err := chatbackend.WithRetry(ctx, func() error {
		text, calls = "", nil

		stream, err := o.backend.Stream(ctx, chatbackend.Request{
			System:  o.systemPrompt,
			History: history,
			Tools:   toolSchema(o.tools),
		})
		if err != nil {
			return err
		}

		for chunk := range stream {
			switch chunk.Kind {
			case chatbackend.ChunkText:
				text += chunk.Text
			case chatbackend.ChunkFunctionCall:
				if chunk.FunctionCall != nil {
					calls = append(calls, *chunk.FunctionCall)
				}
			case chatbackend.ChunkError:
				return chunk.Err
			case chatbackend.ChunkDone:
				o.chargeGeneration(chunk.InputTokens, chunk.OutputTokens)
			}
		}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return text, calls, nil
}

// chargeGeneration reserves expense for a completed generation based on its
// reported token usage. Failing to admit the charge is logged, not fatal:
// the tokens were already spent by the backend by the time usage is known.
func (o *Orchestrator) chargeGeneration(inputTokens, outputTokens int) {
	if inputTokens == 0 && outputTokens == 0 {
		return
	}
	expense := float64(inputTokens+outputTokens) / 1_000_000
	if err := o.budget.Reserve(0, expense); err != nil {
		o.logger.Warn("generation expense exceeded budget after the call completed", "error", err)
	}
}

var errTurnIterationLimit = &iterationLimitError{}

type iterationLimitError struct{}

func (e *iterationLimitError) Error() string {
	return "turn exceeded the maximum number of function-call iterations without producing a final text response"
}
