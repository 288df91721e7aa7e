package orchestrator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraculo-ai/oraculo/internal/guardrail"
	"github.com/oraculo-ai/oraculo/internal/llm"
	"github.com/oraculo-ai/oraculo/internal/model"
	"github.com/oraculo-ai/oraculo/internal/orchestrator"
	"github.com/oraculo-ai/oraculo/internal/testutil"
	"github.com/oraculo-ai/oraculo/internal/tools"
)

// scriptedChat replays a fixed sequence of turns and counts calls.
type scriptedChat struct {
	turns    []func(messages []llm.Message) (llm.Message, error)
	calls    int
	lastMsgs []llm.Message
}

func (s *scriptedChat) Generate(_ context.Context, messages []llm.Message, _ []model.ToolDescriptor) (llm.Message, error) {
	s.lastMsgs = messages
	idx := s.calls
	s.calls++
	if idx >= len(s.turns) {
		idx = len(s.turns) - 1
	}
	return s.turns[idx](messages)
}

func answer(text string) func([]llm.Message) (llm.Message, error) {
	return func([]llm.Message) (llm.Message, error) {
		return llm.Message{Role: llm.RoleAssistant, Content: text}, nil
	}
}

func toolCall(name string, args map[string]any) func([]llm.Message) (llm.Message, error) {
	return func([]llm.Message) (llm.Message, error) {
		return llm.Message{
			Role: llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{
				{Function: llm.FunctionCall{Name: name, Arguments: args}},
			},
		}, nil
	}
}

func newOrchestrator(t *testing.T, chat llm.Chat, maxRounds int) *orchestrator.Orchestrator {
	t.Helper()
	db := testutil.NewSeededDB(t)
	registry := tools.NewSalesRegistry(db, testutil.TestLogger(t))
	return orchestrator.New(chat, registry, guardrail.New(), testutil.TestLogger(t), maxRounds)
}

func question(text string) model.Question {
	return model.Question{
		Text: text,
		Now:  time.Date(2025, time.March, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestAnswerRefusesOutOfDomain(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		answer("should never be called"),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("What is the capital of France?"))

	assert.Equal(t, model.OutcomeRefused, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrOutOfDomain)
	assert.Zero(t, chat.calls, "guardrail must short-circuit before the model")
}

func TestAnswerDirectWithoutTools(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		answer("O faturamento total foi de R$ 15.000,00."),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Qual o faturamento total de vendas?"))

	require.Equal(t, model.OutcomeAnswered, out.Kind)
	assert.Equal(t, "O faturamento total foi de R$ 15.000,00.", out.Text)
	assert.Empty(t, out.ToolsUsed)
	assert.False(t, out.Partial)
	assert.Equal(t, 1, chat.calls)

	require.Len(t, chat.lastMsgs, 2)
	assert.Equal(t, llm.RoleSystem, chat.lastMsgs[0].Role)
	assert.Contains(t, chat.lastMsgs[0].Content, "2025-03-02")
}

func TestAnswerSingleToolRoundTrip(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		toolCall(tools.ToolGetSalesStats, nil),
		answer("Foram registradas 33 vendas no total."),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Quantas vendas temos registradas?"))

	require.Equal(t, model.OutcomeAnswered, out.Kind)
	assert.Equal(t, []string{tools.ToolGetSalesStats}, out.ToolsUsed)

	// Second model call must see the assistant tool call followed by the
	// tool result carrying real data.
	require.Len(t, chat.lastMsgs, 4)
	assert.True(t, chat.lastMsgs[2].IsToolCall())
	assert.Equal(t, llm.RoleTool, chat.lastMsgs[3].Role)
	assert.Equal(t, tools.ToolGetSalesStats, chat.lastMsgs[3].ToolName)
	assert.Contains(t, chat.lastMsgs[3].Content, `"total_orders":33`)
}

func TestAnswerFeedsToolFailureBack(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		toolCall(tools.ToolGetSalesByPeriod, map[string]any{"granularity": "month", "anchor": "2025-02-30"}),
		toolCall(tools.ToolGetSalesByPeriod, map[string]any{"granularity": "month", "anchor": "2025-02"}),
		answer("Fevereiro de 2025 teve 18 vendas."),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Quantas vendas em fevereiro?"))

	require.Equal(t, model.OutcomeAnswered, out.Kind)
	assert.Equal(t, []string{tools.ToolGetSalesByPeriod}, out.ToolsUsed,
		"repeat invocations of one tool are recorded once")

	// The failed first call went back to the model as an error message.
	require.Len(t, chat.lastMsgs, 6)
	assert.Contains(t, chat.lastMsgs[3].Content, `"error"`)
	assert.Contains(t, chat.lastMsgs[5].Content, `"total_sales":18`)
}

func TestAnswerUnknownToolExhaustsBoundExactly(t *testing.T) {
	const maxRounds = 4
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		toolCall("definitely_not_registered", nil),
	}}
	orch := newOrchestrator(t, chat, maxRounds)

	out := orch.Answer(context.Background(), question("Analise as vendas por favor"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrIterationLimit)
	assert.False(t, out.Partial, "failed calls gather nothing to salvage")
	assert.Equal(t, maxRounds+1, chat.calls,
		"the bound admits exactly maxRounds tool round trips")
	assert.Empty(t, out.ToolsUsed, "rejected calls are not recorded as used")
}

func TestAnswerIterationLimitSalvagesPartial(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		toolCall(tools.ToolGetSalesStats, nil),
	}}
	orch := newOrchestrator(t, chat, 2)

	out := orch.Answer(context.Background(), question("Resumo completo das vendas"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrIterationLimit)
	assert.True(t, out.Partial)
	assert.Contains(t, out.Text, tools.ToolGetSalesStats)
	assert.Contains(t, out.Text, `"total_orders":33`)
}

func TestAnswerEmptyOutputRetriesOnce(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		answer("   "),
		answer("Foram 33 vendas."),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Quantas vendas?"))

	require.Equal(t, model.OutcomeAnswered, out.Kind)
	assert.Equal(t, "Foram 33 vendas.", out.Text)
	assert.Equal(t, 2, chat.calls)
}

func TestAnswerEmptyOutputTwiceIsProtocolError(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		answer(""),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Quantas vendas?"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrModelProtocol)
	assert.Equal(t, 2, chat.calls)
}

func TestAnswerTransportErrorRetriesThenFails(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		func([]llm.Message) (llm.Message, error) {
			return llm.Message{}, fmt.Errorf("llm: connection refused")
		},
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Quantas vendas?"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrModelProtocol)
	assert.Equal(t, 2, chat.calls)
}

func TestAnswerModelTimeoutIsTerminal(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		toolCall(tools.ToolGetSalesStats, nil),
		func([]llm.Message) (llm.Message, error) {
			return llm.Message{}, fmt.Errorf("llm: chat request: %w", model.ErrModelTimeout)
		},
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), question("Resumo das vendas"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.ErrorIs(t, out.Cause, model.ErrModelTimeout)
	assert.True(t, out.Partial, "gathered results survive the timeout")
	assert.Equal(t, 2, chat.calls, "no retry after a timeout")
}

func TestAnswerHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		func([]llm.Message) (llm.Message, error) {
			cancel()
			return llm.Message{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
				{Function: llm.FunctionCall{Name: tools.ToolGetSalesStats}},
			}}, nil
		},
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(ctx, question("Quantas vendas?"))

	require.Equal(t, model.OutcomeFailed, out.Kind)
	assert.True(t, errors.Is(out.Cause, context.Canceled))
	assert.LessOrEqual(t, chat.calls, 2)
}

func TestAnswerEmptyQuestionFails(t *testing.T) {
	chat := &scriptedChat{turns: []func([]llm.Message) (llm.Message, error){
		answer("unused"),
	}}
	orch := newOrchestrator(t, chat, 0)

	out := orch.Answer(context.Background(), model.Question{Text: "   "})

	assert.Equal(t, model.OutcomeFailed, out.Kind)
	assert.Zero(t, chat.calls)
}
