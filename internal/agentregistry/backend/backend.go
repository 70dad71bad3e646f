// Package backend defines the minimal interface AgentRegistry needs from a
// sub-agent's underlying model, and three concrete adapters (ollama, gemini,
// groq) resolved from a base_model string the same way the Python
// original's AgentManager._get_agent_type does (spec.md §4.5).
package backend

import "context"

// Backend is a single-turn chat completion for a named sub-agent. Unlike
// the top-level ChatBackend the orchestrator drives, sub-agents here are
// asked one question at a time and return a single text answer — matching
// the Python original's Agent.ask_agent, which has no tool-calling loop of
// its own.
type Backend interface {
	// Ask sends systemPrompt plus message and returns the model's reply.
	Ask(ctx context.Context, systemPrompt, message string) (string, error)
	// CountTokens estimates the token cost of text, used to scale
	// invoke-time expense charges (spec.md §4.5 step 6: token-estimate-based
	// expense, len(words)/1_000_000 * rate).
	CountTokens(text string) int
}

// EstimateTokens implements the original's crude but documented estimator:
// word count as a proxy for tokens, scaled per million words by a per-model
// rate. Kept here so every concrete backend shares the same estimate
// instead of drifting per-adapter.
func EstimateTokens(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\n' || r == '\t' || r == '\r'
		if !isSpace && !inWord {
			count++
			inWord = true
		} else if isSpace {
			inWord = false
		}
	}
	return count
}
