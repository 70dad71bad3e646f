package orchestrator

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/kunpai/hashiru/pkg/models"
)

// formatHistory projects a Conversation into the backend-neutral
// ModelContent sequence a ChatBackend consumes, skipping thinking-bubble
// messages the UI injected for display only (spec.md §4.6 step 2).
func formatHistory(conv *models.Conversation) []models.ModelContent {
	out := make([]models.ModelContent, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		if msg.IsThinkingBubble() {
			continue
		}
		out = append(out, toModelContent(msg))
	}
	return out
}

func toModelContent(msg *models.Message) models.ModelContent {
	content := models.ModelContent{Role: msg.Role}

	switch msg.Role {
	case models.RoleFuncCall:
		for _, call := range msg.FunctionCalls {
			content.Parts = append(content.Parts, models.FunctionCallPart(call))
		}
	case models.RoleTool:
		for _, resp := range msg.FunctionResponses {
			content.Parts = append(content.Parts, models.FunctionResponsePart(resp))
		}
	default:
		if msg.Content != "" {
			content.Parts = append(content.Parts, models.TextPart(msg.Content))
		}
		if msg.FileRef != "" {
			content.Parts = append(content.Parts, attachmentPart(msg.FileRef))
		}
	}
	return content
}

// attachmentPart builds a binary attachment Part for a file reference,
// reading its bytes and detecting its MIME type the way spec.md §4.6 step 2
// requires ("user binary part with detected MIME"). The extension is
// checked first since it's cheaper and more precise for common document
// types mime.TypeByExtension knows about; http.DetectContentType's sniff of
// the first 512 bytes is the fallback for extensionless or unrecognized
// files, matching the stdlib's own recommended pairing of the two.
// A file that can't be read still produces a Part (best-effort, matching
// the orchestrator's overall tolerance for external-input failures) with
// its content left empty and the MIME type generic.
func attachmentPart(fileRef string) models.Part {
	data, err := os.ReadFile(fileRef)
	if err != nil {
		return models.BytesPart("application/octet-stream", nil)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(fileRef))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return models.BytesPart(mimeType, data)
}
