// Package orchestrator drives the bounded tool-call loop between the
// chat model and the tool registry.
//
// The loop is an explicit state machine:
//
//	Start → AwaitingModel → (ExecutingTool → AwaitingModel)* → Done | Aborted
//
// so termination and worst-case cost are provable independent of model
// behavior: every tool round trip consumes one unit of a fixed bound,
// and a stalled model gets exactly one retry.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/oraculo-ai/oraculo/internal/guardrail"
	"github.com/oraculo-ai/oraculo/internal/llm"
	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/tools"
)

// DefaultMaxToolRounds bounds tool-call round trips per question.
const DefaultMaxToolRounds = 6

// Orchestrator owns one question's pipeline: guardrail, model loop, tool
// dispatch. It is stateless across questions; a single instance serves
// concurrent callers.
type Orchestrator struct {
	chat     llm.Chat
	registry *tools.Registry
	guard    *guardrail.Classifier
	logger   *slog.Logger
	maxTool  int
}

// New wires the orchestrator. maxToolRounds <= 0 takes the default.
func New(chat llm.Chat, registry *tools.Registry, guard *guardrail.Classifier, logger *slog.Logger, maxToolRounds int) *Orchestrator {
	if maxToolRounds <= 0 {
		maxToolRounds = DefaultMaxToolRounds
	}
	return &Orchestrator{
		chat:     chat,
		registry: registry,
		guard:    guard,
		logger:   logger,
		maxTool:  maxToolRounds,
	}
}

// Answer runs the full pipeline for one question and always returns a
// terminal outcome; it never panics on model misbehavior.
func (o *Orchestrator) Answer(ctx context.Context, q model.Question) model.Outcome {
	if q.Empty() {
		return model.Outcome{Kind: model.OutcomeFailed, Cause: fmt.Errorf("empty question")}
	}

	// Guardrail: out-of-domain questions never reach the model or the store.
	if !o.guard.InDomain(q.Text) {
		o.logger.Info("question refused by guardrail", "question", q.Text)
		return model.Outcome{Kind: model.OutcomeRefused, Cause: model.ErrOutOfDomain}
	}

	catalog := o.registry.Catalog()
	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt(q)},
		{Role: llm.RoleUser, Content: q.Text},
	}

	var (
		toolsUsed []string
		seen      = map[string]bool{}
		gathered  []model.ToolCallResult
		rounds    int
		retried   bool
	)

	for {
		if err := ctx.Err(); err != nil {
			// Caller is gone; stop issuing calls.
			return o.aborted(err, toolsUsed, gathered)
		}

		reply, err := o.chat.Generate(ctx, messages, catalog)
		switch {
		case err == nil:
			// fall through
		case errors.Is(err, model.ErrModelTimeout):
			o.logger.Warn("model call timed out", "rounds", rounds)
			return o.aborted(model.ErrModelTimeout, toolsUsed, gathered)
		case ctx.Err() != nil:
			return o.aborted(ctx.Err(), toolsUsed, gathered)
		default:
			// Transport or protocol breakdown: one immediate retry.
			if retried {
				o.logger.Error("model protocol error after retry", "error", err)
				return o.aborted(model.ErrModelProtocol, toolsUsed, gathered)
			}
			o.logger.Warn("model call failed, retrying once", "error", err)
			retried = true
			continue
		}

		if reply.IsToolCall() {
			if rounds >= o.maxTool {
				o.logger.Warn("tool-call iteration limit exceeded", "limit", o.maxTool)
				return o.aborted(model.ErrIterationLimit, toolsUsed, gathered)
			}
			rounds++

			// Single call per turn: extra parallel calls are ignored, the
			// model re-requests anything it still needs next round.
			call := reply.ToolCalls[0]
			req := model.ToolCallRequest{Tool: call.Function.Name, Args: call.Function.Arguments}

			// Only successful invocations count as used: a rejected or
			// unknown call produced no data, so it must not show up in
			// the answer's provenance.
			result := o.registry.Invoke(ctx, req)
			if result.OK {
				if !seen[result.Tool] {
					seen[result.Tool] = true
					toolsUsed = append(toolsUsed, result.Tool)
				}
				gathered = append(gathered, result)
			}
			o.logger.Debug("tool invoked",
				"tool", result.Tool, "ok", result.OK, "round", rounds)

			messages = append(messages,
				llm.Message{Role: llm.RoleAssistant, ToolCalls: reply.ToolCalls[:1]},
				llm.Message{Role: llm.RoleTool, ToolName: result.Tool, Content: toolContent(result)},
			)
			continue
		}

		if strings.TrimSpace(reply.Content) == "" {
			if retried {
				o.logger.Error("model returned empty output twice")
				return o.aborted(model.ErrModelProtocol, toolsUsed, gathered)
			}
			o.logger.Warn("model returned empty output, retrying once")
			retried = true
			continue
		}

		return model.Outcome{
			Kind:      model.OutcomeAnswered,
			Text:      reply.Content,
			ToolsUsed: toolsUsed,
		}
	}
}

// aborted terminates the loop with the given cause, salvaging a partial
// answer from whatever tool results were already gathered.
func (o *Orchestrator) aborted(cause error, toolsUsed []string, gathered []model.ToolCallResult) model.Outcome {
	out := model.Outcome{
		Kind:      model.OutcomeFailed,
		Cause:     cause,
		ToolsUsed: toolsUsed,
	}
	if len(gathered) > 0 {
		var b strings.Builder
		for i, res := range gathered {
			if i > 0 {
				b.WriteByte('\n')
			}
			fmt.Fprintf(&b, "%s: %s", res.Tool, res.Payload)
		}
		out.Text = b.String()
		out.Partial = true
	}
	return out
}

// toolContent renders a tool result as model context. Failures go back
// verbatim so the model can correct its next call.
func toolContent(res model.ToolCallResult) string {
	if res.OK {
		return res.Payload
	}
	return fmt.Sprintf(`{"error":%q}`, res.Error)
}

// systemPrompt grounds the model: current-date anchor for relative
// periods, tool-first discipline, and the answer language.
func systemPrompt(q model.Question) string {
	return fmt.Sprintf(`Você é um especialista em análise de dados de vendas.

CONTEXTO TEMPORAL:
- Data atual: %s
- Quando o usuário mencionar "hoje", "esta semana" ou "este mês", use a data atual como referência.

INSTRUÇÕES:
1. Responda sempre em português brasileiro.
2. Toda resposta deve se basear exclusivamente nos resultados das ferramentas disponíveis; nunca invente números.
3. Para consultas por período use a ferramenta get_sales_by_period, que trata timestamps corretamente.
4. Se os dados não cobrirem o período solicitado, explique claramente a limitação.

Responda de forma clara e objetiva.`, q.Now.Format("2006-01-02"))
}
