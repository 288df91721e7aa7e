// Package llm abstracts the chat-model capability: given accumulated
// context and a tool catalog, the model returns either a final answer or
// one tool-call request. The Ollama client is the production
// implementation; tests substitute stubs.
package llm

import (
	"context"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// FunctionCall is the name/arguments pair inside a tool call.
type FunctionCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	Function FunctionCall `json:"function"`
}

// Message is one turn of chat context.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// IsToolCall reports whether the assistant turn requests a tool instead
// of answering.
func (m Message) IsToolCall() bool { return len(m.ToolCalls) > 0 }

// Chat is the model capability contract. Generate blocks for at most the
// client's configured timeout and returns exactly one assistant message.
type Chat interface {
	Generate(ctx context.Context, messages []Message, catalog []model.ToolDescriptor) (Message, error)
}
