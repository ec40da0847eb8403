package llm

import "fmt"

// FormatMessages normalizes a heterogeneous message sequence into
// canonical messages, preserving input order. Each element must be a
// Message (or *Message) or a raw map in the provider wire shape
// (map[string]any with "role", "content", "tool_calls" keys). The
// transformation is pure; invalid entries fail with an error wrapping
// ErrValidation, unsupported element types with ErrMessageType.
func FormatMessages(messages []any) ([]Message, error) {
	out := make([]Message, 0, len(messages))

	for _, raw := range messages {
		switch v := raw.(type) {
		case Message:
			out = append(out, v)
		case *Message:
			if v == nil {
				return nil, fmt.Errorf("%w: nil message", ErrMessageType)
			}
			out = append(out, *v)
		case map[string]any:
			m, err := messageFromMap(v)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		default:
			return nil, fmt.Errorf("%w: %T", ErrMessageType, raw)
		}
	}

	for _, m := range out {
		if !validRoles[m.Role] {
			return nil, fmt.Errorf("%w: invalid role %q", ErrValidation, m.Role)
		}
		if !m.hasContent() {
			return nil, fmt.Errorf("%w: message must contain either content or tool calls", ErrValidation)
		}
	}
	return out, nil
}

// messageFromMap converts a raw wire-shaped map into a canonical Message.
func messageFromMap(raw map[string]any) (Message, error) {
	roleVal, ok := raw["role"]
	if !ok {
		return Message{}, fmt.Errorf("%w: message map must contain a role field", ErrValidation)
	}
	role, ok := roleVal.(string)
	if !ok {
		return Message{}, fmt.Errorf("%w: role must be a string, got %T", ErrValidation, roleVal)
	}

	m := Message{Role: Role(role)}

	switch content := raw["content"].(type) {
	case nil:
	case string:
		m.Content = content
	case []ContentPart:
		m.Parts = content
	case []any:
		for _, p := range content {
			part, err := partFromAny(p)
			if err != nil {
				return Message{}, err
			}
			m.Parts = append(m.Parts, part)
		}
	default:
		return Message{}, fmt.Errorf("%w: unsupported content type %T", ErrValidation, content)
	}

	switch calls := raw["tool_calls"].(type) {
	case nil:
	case []ToolCall:
		m.ToolCalls = calls
	default:
		return Message{}, fmt.Errorf("%w: unsupported tool_calls type %T", ErrValidation, calls)
	}

	if id, ok := raw["tool_call_id"].(string); ok {
		m.ToolCallID = id
	}
	return m, nil
}

// partFromAny converts one multimodal content element. It accepts a
// ContentPart or a wire-shaped map with a "type" discriminator.
func partFromAny(raw any) (ContentPart, error) {
	switch v := raw.(type) {
	case ContentPart:
		return v, nil
	case map[string]any:
		kind, _ := v["type"].(string)
		switch kind {
		case "text":
			text, _ := v["text"].(string)
			return ContentPart{Type: "text", Text: text}, nil
		case "image_url":
			switch u := v["image_url"].(type) {
			case string:
				return ContentPart{Type: "image_url", ImageURL: u}, nil
			case map[string]any:
				url, _ := u["url"].(string)
				return ContentPart{Type: "image_url", ImageURL: url}, nil
			}
			return ContentPart{}, fmt.Errorf("%w: image_url part missing url", ErrValidation)
		default:
			return ContentPart{}, fmt.Errorf("%w: unsupported content part type %q", ErrValidation, kind)
		}
	default:
		return ContentPart{}, fmt.Errorf("%w: unsupported content part %T", ErrValidation, raw)
	}
}
