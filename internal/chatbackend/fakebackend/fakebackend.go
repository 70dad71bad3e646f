// Package fakebackend is a scripted chatbackend.Backend test double used by
// orchestrator tests, grounded on the teacher's pattern of hand-written
// provider fakes rather than a mocking library (no mock framework appears
// in the example corpus).
package fakebackend

import (
	"context"
	"strings"

	"github.com/kunpai/hashiru/internal/chatbackend"
)

// Turn is one scripted response: plain text, a function call, or a
// non-retryable error, replayed in order as Stream is called repeatedly.
type Turn struct {
	Text         string
	FunctionCall *chatbackend.Chunk
	Err          error
}

// Backend replays a fixed sequence of Turns, one per Stream call, looping
// the request history so tests can assert on what was passed in.
type Backend struct {
	Turns     []Turn
	Requests  []chatbackend.Request
	callIndex int
}

// New returns a Backend that will emit turns in order across successive
// Stream calls.
func New(turns ...Turn) *Backend {
	return &Backend{Turns: turns}
}

func (b *Backend) Name() string { return "fake" }

func (b *Backend) CountTokens(_ context.Context, text string) (int, error) {
	return len(strings.Fields(text)), nil
}

// Stream emits the next scripted Turn as a Chunk sequence, then ChunkDone.
func (b *Backend) Stream(_ context.Context, req chatbackend.Request) (<-chan chatbackend.Chunk, error) {
	b.Requests = append(b.Requests, req)

	ch := make(chan chatbackend.Chunk, 4)
	go func() {
		defer close(ch)
		if b.callIndex >= len(b.Turns) {
			ch <- chatbackend.Chunk{Kind: chatbackend.ChunkDone}
			return
		}
		turn := b.Turns[b.callIndex]
		b.callIndex++

		if turn.Err != nil {
			ch <- chatbackend.Chunk{Kind: chatbackend.ChunkError, Err: turn.Err}
			return
		}
		if turn.FunctionCall != nil {
			ch <- *turn.FunctionCall
		} else {
			ch <- chatbackend.Chunk{Kind: chatbackend.ChunkText, Text: turn.Text}
		}
		ch <- chatbackend.Chunk{Kind: chatbackend.ChunkDone, InputTokens: 10, OutputTokens: 5}
	}()
	return ch, nil
}
