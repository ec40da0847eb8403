package llm

// Role identifies the sender of a message in the chat conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// validRoles is the fixed role enumeration accepted by the formatter.
var validRoles = map[Role]bool{
	RoleSystem:    true,
	RoleUser:      true,
	RoleAssistant: true,
	RoleTool:      true,
}

// ContentPart is one element of a multimodal message body.
type ContentPart struct {
	Type     string `json:"type"` // "text" or "image_url"
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ToolCall is a single function invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is the canonical role-tagged entry sent to the provider.
// A message carries either content (text or multimodal parts) or
// tool-call descriptors, never neither.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []ContentPart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

// hasContent reports whether the message carries any body at all.
func (m Message) hasContent() bool {
	return m.Content != "" || len(m.Parts) > 0 || len(m.ToolCalls) > 0
}

// SystemMessage builds a canonical system message.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a canonical user message.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantMessage builds a canonical assistant message.
func AssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// ToolMessage builds a canonical tool-result message for the given call ID.
func ToolMessage(callID, text string) Message {
	return Message{Role: RoleTool, Content: text, ToolCallID: callID}
}

// ToolChoice is the tool-selection strategy for a tool-calling request.
type ToolChoice string

const (
	ToolChoiceNone     ToolChoice = "none"
	ToolChoiceAuto     ToolChoice = "auto"
	ToolChoiceRequired ToolChoice = "required"
)

// valid reports whether the choice is one of the accepted strategies.
func (c ToolChoice) valid() bool {
	switch c {
	case ToolChoiceNone, ToolChoiceAuto, ToolChoiceRequired:
		return true
	}
	return false
}

// ToolDef describes a callable tool offered to the model. Type must be
// set ("function" for function tools).
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Usage carries token consumption reported by the provider for one call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Response is the provider's reply to a single completion call.
type Response struct {
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
	Model   string  `json:"model,omitempty"`
}

// Result pairs a completed response with the monetary cost of the call
// and the client's accumulated cost after recording it.
type Result struct {
	Response        *Response `json:"response"`
	Cost            float64   `json:"cost"`
	AccumulatedCost float64   `json:"accumulated_cost"`
}
