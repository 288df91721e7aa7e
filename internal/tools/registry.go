// Package tools declares the callable tool catalog and dispatches tool
// calls from the orchestration loop.
//
// The catalog is the contract shown to the model: an ordered, immutable
// set of descriptors registered once at startup. Invoke validates every
// request against the declared parameter schema before dispatch, so a
// malformed call becomes a failed result the model can read and correct,
// never a panic or a raw type failure.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/model"
)

// Handler executes one validated tool call and returns the payload as a
// JSON string.
type Handler func(ctx context.Context, args map[string]any) (string, error)

type entry struct {
	desc    model.ToolDescriptor
	handler Handler
}

// Registry is the immutable tool catalog plus dispatch.
type Registry struct {
	entries []entry
	byName  map[string]int
	logger  *slog.Logger
}

// NewRegistry creates an empty registry. Register all tools before first
// use; the catalog must not change once advertised.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{byName: make(map[string]int), logger: logger}
}

// Register appends a tool to the catalog. Duplicate names are a
// programming error and panic at startup.
func (r *Registry) Register(desc model.ToolDescriptor, h Handler) {
	if _, dup := r.byName[desc.Name]; dup {
		panic(fmt.Sprintf("tools: duplicate tool %q", desc.Name))
	}
	r.byName[desc.Name] = len(r.entries)
	r.entries = append(r.entries, entry{desc: desc, handler: h})
}

// Catalog returns the descriptors in registration order. The slice is a
// copy; the registry itself stays immutable.
func (r *Registry) Catalog() []model.ToolDescriptor {
	descs := make([]model.ToolDescriptor, len(r.entries))
	for i, e := range r.entries {
		descs[i] = e.desc
	}
	return descs
}

// Names returns the tool names in catalog order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.desc.Name
	}
	return names
}

// Invoke validates and executes one tool call. It never returns an
// error: validation and execution failures come back as a failed
// ToolCallResult whose Error field carries a machine-readable
// "kind: detail" description for the model to act on.
func (r *Registry) Invoke(ctx context.Context, req model.ToolCallRequest) model.ToolCallResult {
	idx, ok := r.byName[req.Tool]
	if !ok {
		return model.FailedCall(req.Tool, "unknown_tool: %q is not in the catalog; available tools: %s",
			req.Tool, strings.Join(r.Names(), ", "))
	}
	e := r.entries[idx]

	args, errResult := validateArgs(e.desc, req.Args)
	if errResult != nil {
		return *errResult
	}

	payload, err := e.handler(ctx, args)
	if err != nil {
		r.logger.Warn("tool execution failed", "tool", req.Tool, "error", err)
		return model.FailedCall(req.Tool, "%s", describeError(err))
	}
	return model.ToolCallResult{Tool: req.Tool, OK: true, Payload: payload}
}

// validateArgs checks the request arguments against the declared schema.
// It returns the normalized argument map, or a failed result describing
// the first violation.
func validateArgs(desc model.ToolDescriptor, args map[string]any) (map[string]any, *model.ToolCallResult) {
	declared := make(map[string]model.Param, len(desc.Params))
	for _, p := range desc.Params {
		declared[p.Name] = p
	}

	for name := range args {
		if _, ok := declared[name]; !ok {
			res := model.FailedCall(desc.Name, "unknown_argument: %q is not a parameter of %s", name, desc.Name)
			return nil, &res
		}
	}

	normalized := make(map[string]any, len(args))
	for _, p := range desc.Params {
		raw, present := args[p.Name]
		if !present || raw == nil {
			if p.Required {
				res := model.FailedCall(desc.Name, "missing_argument: %q is required", p.Name)
				return nil, &res
			}
			continue
		}

		switch p.Type {
		case model.ParamString:
			s, ok := raw.(string)
			if !ok {
				res := model.FailedCall(desc.Name, "invalid_argument_type: %q must be a string, got %T", p.Name, raw)
				return nil, &res
			}
			if len(p.Enum) > 0 && !slices.Contains(p.Enum, s) {
				res := model.FailedCall(desc.Name, "invalid_argument_value: %q must be one of %s",
					p.Name, strings.Join(p.Enum, ", "))
				return nil, &res
			}
			normalized[p.Name] = s
		case model.ParamNumber:
			f, ok := toFloat(raw)
			if !ok {
				res := model.FailedCall(desc.Name, "invalid_argument_type: %q must be a number, got %T", p.Name, raw)
				return nil, &res
			}
			normalized[p.Name] = f
		}
	}
	return normalized, nil
}

// toFloat accepts the numeric shapes JSON decoding can produce.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// describeError maps execution errors onto stable machine-readable kinds.
// Raw driver or model messages never cross this boundary.
func describeError(err error) string {
	switch {
	case errors.Is(err, model.ErrUnsafeStatement):
		return "unsafe_statement: only a single SELECT statement is allowed"
	case errors.Is(err, model.ErrInvalidPeriodSpec):
		return fmt.Sprintf("invalid_period: %v", err)
	case errors.Is(err, model.ErrStorageTimeout):
		return "storage_timeout: the query did not complete in time; try a narrower query"
	default:
		return fmt.Sprintf("query_failed: %v", err)
	}
}

func argString(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
