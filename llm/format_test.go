package llm

import (
	"errors"
	"testing"
)

func TestFormatMessages_PreservesOrderAndContent(t *testing.T) {
	in := []any{
		SystemMessage("be terse"),
		UserMessage("hello"),
		AssistantMessage("hi"),
		ToolMessage("call_1", "42"),
	}

	out, err := FormatMessages(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(out))
	}

	wantRoles := []Role{RoleSystem, RoleUser, RoleAssistant, RoleTool}
	wantContent := []string{"be terse", "hello", "hi", "42"}
	for i, m := range out {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: expected role %q, got %q", i, wantRoles[i], m.Role)
		}
		if m.Content != wantContent[i] {
			t.Errorf("message %d: expected content %q, got %q", i, wantContent[i], m.Content)
		}
	}
}

func TestFormatMessages_RawMaps(t *testing.T) {
	in := []any{
		map[string]any{"role": "user", "content": "hello"},
		map[string]any{"role": "assistant", "tool_calls": []ToolCall{{ID: "c1", Name: "lookup"}}},
		map[string]any{"role": "tool", "content": "done", "tool_call_id": "c1"},
	}

	out, err := FormatMessages(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].Content != "hello" {
		t.Errorf("expected content %q, got %q", "hello", out[0].Content)
	}
	if len(out[1].ToolCalls) != 1 || out[1].ToolCalls[0].Name != "lookup" {
		t.Errorf("tool calls not preserved: %+v", out[1].ToolCalls)
	}
	if out[2].ToolCallID != "c1" {
		t.Errorf("expected tool_call_id %q, got %q", "c1", out[2].ToolCallID)
	}
}

func TestFormatMessages_MultimodalParts(t *testing.T) {
	in := []any{
		map[string]any{"role": "user", "content": []any{
			map[string]any{"type": "text", "text": "what is this?"},
			map[string]any{"type": "image_url", "image_url": map[string]any{"url": "data:image/png;base64,xyz"}},
		}},
	}

	out, err := FormatMessages(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out[0].Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(out[0].Parts))
	}
	if out[0].Parts[1].ImageURL != "data:image/png;base64,xyz" {
		t.Errorf("image url not preserved: %q", out[0].Parts[1].ImageURL)
	}
}

func TestFormatMessages_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want error
	}{
		{"missing role", []any{map[string]any{"content": "hi"}}, ErrValidation},
		{"invalid role", []any{map[string]any{"role": "robot", "content": "hi"}}, ErrValidation},
		{"invalid canonical role", []any{Message{Role: "robot", Content: "hi"}}, ErrValidation},
		{"no content or tool calls", []any{map[string]any{"role": "user"}}, ErrValidation},
		{"empty canonical message", []any{Message{Role: RoleUser}}, ErrValidation},
		{"unsupported type", []any{42}, ErrMessageType},
		{"unsupported string", []any{"just text"}, ErrMessageType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FormatMessages(tt.in)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestFormatMessages_Empty(t *testing.T) {
	out, err := FormatMessages(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no messages, got %d", len(out))
	}
}
