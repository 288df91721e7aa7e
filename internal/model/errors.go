package model

import "errors"

// Error taxonomy for the question-answering pipeline. Every failure that
// crosses a package boundary maps onto one of these sentinels so callers
// can branch with errors.Is without inspecting message text.
var (
	// ErrOutOfDomain means the guardrail rejected the question before any
	// model or storage call. User-visible as a polite refusal, not a failure.
	ErrOutOfDomain = errors.New("question is not related to sales data")

	// ErrInvalidPeriodSpec means a period anchor token did not match the
	// expected shape for its granularity or denotes an impossible date.
	ErrInvalidPeriodSpec = errors.New("invalid period specification")

	// ErrUnsafeStatement means a raw query's top-level operation is not a
	// SELECT. The statement is never executed.
	ErrUnsafeStatement = errors.New("only SELECT statements are allowed")

	// ErrMalformedToolCall means the model requested an unregistered tool
	// or supplied arguments that fail schema validation. Recoverable: the
	// result is fed back so the model can self-correct.
	ErrMalformedToolCall = errors.New("malformed tool call")

	// ErrStorageTimeout means a tool's storage call exceeded its deadline.
	// Recoverable at the tool level.
	ErrStorageTimeout = errors.New("storage call timed out")

	// ErrModelTimeout means a model call exceeded its deadline. Fatal for
	// the current question.
	ErrModelTimeout = errors.New("model call timed out")

	// ErrIterationLimit means the tool-call loop hit its round-trip bound.
	// Non-fatal: the orchestrator degrades to a partial answer.
	ErrIterationLimit = errors.New("tool-call iteration limit exceeded")

	// ErrModelProtocol means the model returned empty or unparseable output
	// twice in a row.
	ErrModelProtocol = errors.New("model protocol error")
)
