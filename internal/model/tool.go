package model

import "fmt"

// ParamType is the declared type of a tool parameter.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamNumber ParamType = "number"
)

// Param is one named, typed parameter in a tool's declared schema.
type Param struct {
	Name        string    `json:"name"`
	Type        ParamType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
	// Enum restricts string parameters to a fixed value set when non-empty.
	Enum []string `json:"enum,omitempty"`
}

// ToolDescriptor declares one callable tool: its wire name, ordered
// parameter schema, and the human description advertised to the model.
// Descriptors are registered once at startup and never mutated.
type ToolDescriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// ToolCallRequest is a single tool invocation requested by the model.
type ToolCallRequest struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCallResult is the outcome of one tool invocation, fed back into the
// orchestration loop as additional model context. A failed result carries
// a machine-readable error description instead of a payload; it is never
// a Go error from the orchestrator's point of view.
type ToolCallResult struct {
	Tool    string `json:"tool"`
	OK      bool   `json:"ok"`
	Payload string `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// FailedCall builds a failed ToolCallResult for the given tool.
func FailedCall(tool, format string, args ...any) ToolCallResult {
	return ToolCallResult{Tool: tool, OK: false, Error: fmt.Sprintf(format, args...)}
}
