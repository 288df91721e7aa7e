package model

import (
	"strings"
	"time"
)

// Question is one immutable natural-language question together with the
// current-date anchor used to ground relative period expressions such as
// "this month".
type Question struct {
	Text string
	Now  time.Time
}

// NewQuestion trims the text and captures the anchor date.
func NewQuestion(text string, now time.Time) Question {
	return Question{Text: strings.TrimSpace(text), Now: now}
}

// Empty reports whether the question carries no text.
func (q Question) Empty() bool { return q.Text == "" }

// OutcomeKind is the terminal state of one orchestration run.
type OutcomeKind string

const (
	OutcomeAnswered OutcomeKind = "answered"
	OutcomeRefused  OutcomeKind = "refused"
	OutcomeFailed   OutcomeKind = "failed"
)

// Outcome is the terminal result of the tool-call loop.
//
// Answered: Text holds the model's final answer and ToolsUsed the ordered
// distinct tool names that produced data on the way there; rejected or
// unknown calls are excluded. Partial is set when the
// answer was synthesized from gathered tool results after the iteration
// bound was exhausted.
//
// Refused: the guardrail declined the question; Cause is ErrOutOfDomain.
//
// Failed: Cause is one of the taxonomy sentinels; Text may still carry a
// best-effort partial answer.
type Outcome struct {
	Kind      OutcomeKind
	Text      string
	ToolsUsed []string
	Partial   bool
	Cause     error
}

// StructuredAnswer is the localized, caller-facing rendering of an Outcome.
type StructuredAnswer struct {
	Answer      string   `json:"answer"`
	Question    string   `json:"question"`
	ToolsUsed   []string `json:"tools_used"`
	Partial     bool     `json:"partial"`
	Error       string   `json:"error,omitempty"`
	Model       string   `json:"model,omitempty"`
	ContextDate string   `json:"context_date,omitempty"`
}

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Error code constants for standard API error codes.
const (
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeOutOfDomain  = "OUT_OF_DOMAIN"
	ErrCodeInternal     = "INTERNAL"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeRateLimited  = "RATE_LIMITED"
)
