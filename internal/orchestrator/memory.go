package orchestrator

import (
	"context"

	"github.com/kunpai/hashiru/internal/memoryretriever"
	"github.com/kunpai/hashiru/pkg/models"
)

// injectMemory appends a RoleMemories message summarizing the top-k recalled
// memories for the conversation's most recent user/assistant turn, unless
// the conversation just ended with a tool response. This departs
// deliberately from the Python original, which re-injects memory on every
// recursive turn including ones following a tool call (see DESIGN.md):
// re-running retrieval after every tool call produced
// duplicate, stale-feeling memory banners mid-turn with no new user intent
// to ground them against.
func injectMemory(ctx context.Context, conv *models.Conversation, retriever *memoryretriever.Retriever, k int, threshold float32) {
	if retriever == nil || conv.EndedWithTool() {
		return
	}

	query := conv.LastUserOrAssistantContent()
	if query == "" {
		return
	}

	scored := retriever.TopK(ctx, query, k, threshold)
	if len(scored) == 0 {
		return
	}

	content := ""
	for _, mem := range scored {
		content += mem.Memory + "\n"
	}
	conv.Append(&models.Message{Role: models.RoleMemories, Content: content})

	// A second, UI-only thinking bubble mirrors the Python original's
	// visual "Memories" card; history formatting skips it via
	// IsThinkingBubble, so it never reaches the backend (spec.md §4.6
	// step 1).
	conv.Append(&models.Message{
		Role:     models.RoleAssistant,
		Content:  content,
		Metadata: &models.Metadata{Title: "Memories"},
	})
}
