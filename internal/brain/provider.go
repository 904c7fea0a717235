package brain

import (
	"context"
	"encoding/json"
)

// Provider abstracts the AI API (Claude, Gemini, OpenAI-compatible).
type Provider interface {
	Send(ctx context.Context, systemPrompt string, tools []Tool, history []Message) (*Response, error)
}

// Conversation roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Tool describes one operation the model may call.
type Tool struct {
	Name        string
	Description string
	Schema      *Schema // input schema; must be an object
}

// Schema is the subset of JSON Schema that every provider understands.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
}

// asMap renders the schema as a generic JSON object.
func (s *Schema) asMap() map[string]any {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	data, _ := json.Marshal(s)
	var m map[string]any
	_ = json.Unmarshal(data, &m)
	if s.Type == "object" && m["properties"] == nil {
		m["properties"] = map[string]any{}
	}
	return m
}

// Message is a provider-agnostic conversation turn.
type Message struct {
	Role        string       // RoleUser or RoleAssistant
	Text        string       // text content (may be empty if only tool calls/results)
	ToolCalls   []ToolCall   // assistant → tool invocations
	ToolResults []ToolResult // user → tool outputs, one batch per turn
}

// ToolCall is a request from the model to invoke a tool.
type ToolCall struct {
	ID    string          // provider-assigned ID, echoed in the result
	Name  string          // tool/function name
	Input json.RawMessage // JSON arguments
}

// ToolResult is the output of a tool invocation sent back to the model.
type ToolResult struct {
	ID      string // matches ToolCall.ID
	Name    string // Gemini correlates by function name
	Content string // JSON envelope
}

// StopReason is why the model ended its turn.
type StopReason string

const (
	StopEndTurn   StopReason = "end_turn"
	StopToolUse   StopReason = "tool_use"
	StopMaxTokens StopReason = "max_tokens"
	StopOther     StopReason = "other"
)

// Response is what a provider returns from a single Send() call.
type Response struct {
	Text      string     // all text fragments, concatenated
	ToolCalls []ToolCall // in the order the model emitted them
	Stop      StopReason
}
