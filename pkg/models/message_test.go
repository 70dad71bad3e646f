package models

import "testing"

func TestConversation_LastUserOrAssistantContent(t *testing.T) {
	tests := []struct {
		name string
		msgs []*Message
		want string
	}{
		{
			name: "empty conversation",
			msgs: nil,
			want: "",
		},
		{
			name: "skips thinking bubble",
			msgs: []*Message{
				NewMessage("1", RoleUser, "what is my pet's name?"),
				{ID: "2", Role: RoleAssistant, Content: "Invoking `GetBudget`", Metadata: &Metadata{Title: "thinking"}},
			},
			want: "what is my pet's name?",
		},
		{
			name: "prefers most recent",
			msgs: []*Message{
				NewMessage("1", RoleUser, "first"),
				NewMessage("2", RoleAssistant, "second"),
			},
			want: "second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Conversation{Messages: tt.msgs}
			if got := c.LastUserOrAssistantContent(); got != tt.want {
				t.Errorf("LastUserOrAssistantContent() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConversation_EndedWithTool(t *testing.T) {
	c := &Conversation{}
	if c.EndedWithTool() {
		t.Error("empty conversation should not be considered ended with tool")
	}
	c.Append(NewMessage("1", RoleUser, "hi"))
	if c.EndedWithTool() {
		t.Error("user message should not count as ended with tool")
	}
	c.Append(&Message{ID: "2", Role: RoleTool, FunctionResponses: []FunctionResponse{{Name: "GetBudget"}}})
	if !c.EndedWithTool() {
		t.Error("expected conversation to be detected as ended with tool")
	}
}

func TestMessage_IsThinkingBubble(t *testing.T) {
	plain := NewMessage("1", RoleAssistant, "hello")
	if plain.IsThinkingBubble() {
		t.Error("plain assistant message should not be a thinking bubble")
	}
	bubble := &Message{Role: RoleAssistant, Metadata: &Metadata{Title: "Invoking `GetBudget`"}}
	if !bubble.IsThinkingBubble() {
		t.Error("assistant message with metadata should be a thinking bubble")
	}
	userBubble := &Message{Role: RoleUser, Metadata: &Metadata{Title: "x"}}
	if userBubble.IsThinkingBubble() {
		t.Error("only assistant role messages with metadata are thinking bubbles")
	}
}

func TestErrorResultAndSuccessResult(t *testing.T) {
	err := ErrorResult("tool not found: Foo", nil)
	if err.Status != StatusError {
		t.Errorf("expected error status, got %s", err.Status)
	}
	if err.Message != "tool not found: Foo" {
		t.Errorf("unexpected message: %s", err.Message)
	}

	ok := SuccessResult("ok", map[string]int{"a": 1})
	if ok.Status != StatusSuccess {
		t.Errorf("expected success status, got %s", ok.Status)
	}
	if string(ok.Output) != `{"a":1}` {
		t.Errorf("unexpected output: %s", ok.Output)
	}
}
