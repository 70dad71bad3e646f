package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kunpai/hashiru/pkg/models"
)

func TestFormatHistory_SkipsThinkingBubbles(t *testing.T) {
	conv := &models.Conversation{}
	conv.Append(models.NewMessage("1", models.RoleUser, "hello"))
	bubble := models.NewMessage("2", models.RoleAssistant, "Invoking `GetBudget`")
	bubble.Metadata = &models.Metadata{Title: "Invoking", Status: models.StatusPending}
	conv.Append(bubble)
	conv.Append(models.NewMessage("3", models.RoleAssistant, "done"))

	out := formatHistory(conv)
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2 (thinking bubble skipped)", len(out))
	}
	if out[1].Parts[0].Text != "done" {
		t.Errorf("out[1] text = %q, want %q", out[1].Parts[0].Text, "done")
	}
}

func TestAttachmentPart_DetectsMIMEFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	part := attachmentPart(path)
	if part.Kind != models.PartBytes {
		t.Fatalf("kind = %s, want %s", part.Kind, models.PartBytes)
	}
	if part.MimeType != "application/json" {
		t.Errorf("mime type = %q, want application/json", part.MimeType)
	}
	if string(part.Data) != `{"a":1}` {
		t.Errorf("data = %q, want file contents", part.Data)
	}
}

func TestAttachmentPart_SniffsMIMEWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image")
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	if err := os.WriteFile(path, pngHeader, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	part := attachmentPart(path)
	if part.MimeType != "image/png" {
		t.Errorf("mime type = %q, want image/png", part.MimeType)
	}
}

func TestAttachmentPart_MissingFileDoesNotPanic(t *testing.T) {
	part := attachmentPart(filepath.Join(t.TempDir(), "does-not-exist"))
	if part.Kind != models.PartBytes {
		t.Fatalf("kind = %s, want %s", part.Kind, models.PartBytes)
	}
	if part.MimeType != "application/octet-stream" {
		t.Errorf("mime type = %q, want application/octet-stream fallback", part.MimeType)
	}
	if len(part.Data) != 0 {
		t.Errorf("data should be empty for an unreadable file, got %d bytes", len(part.Data))
	}
}

func TestFormatHistory_UserMessageWithFileRef(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	conv := &models.Conversation{}
	msg := models.NewMessage("1", models.RoleUser, "see attached")
	msg.FileRef = path
	conv.Append(msg)

	out := formatHistory(conv)
	if len(out) != 1 || len(out[0].Parts) != 2 {
		t.Fatalf("expected one content with text + bytes parts, got %+v", out)
	}
	if out[0].Parts[1].Kind != models.PartBytes {
		t.Errorf("second part kind = %s, want %s", out[0].Parts[1].Kind, models.PartBytes)
	}
	if out[0].Parts[1].MimeType != "application/json" {
		t.Errorf("mime type = %q, want application/json", out[0].Parts[1].MimeType)
	}
}
