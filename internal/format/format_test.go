package format_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oraculo-ai/oraculo/internal/format"
	"github.com/oraculo-ai/oraculo/internal/model"
)

func testQuestion() model.Question {
	return model.Question{
		Text: "Quantas vendas em fevereiro?",
		Now:  time.Date(2025, time.March, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestRenderAnsweredPassesModelTextThrough(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")
	out := model.Outcome{
		Kind:      model.OutcomeAnswered,
		Text:      "Fevereiro de 2025 teve 18 vendas.",
		ToolsUsed: []string{"get_sales_by_period"},
	}

	ans := f.Render("", testQuestion(), out)

	assert.Equal(t, "Fevereiro de 2025 teve 18 vendas.", ans.Answer)
	assert.Equal(t, "Quantas vendas em fevereiro?", ans.Question)
	assert.Equal(t, []string{"get_sales_by_period"}, ans.ToolsUsed)
	assert.Equal(t, "qwen3:30b", ans.Model)
	assert.Equal(t, "2025-03-02", ans.ContextDate)
	assert.Empty(t, ans.Error)
}

func TestRenderRefusalIsLocalized(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")
	out := model.Outcome{Kind: model.OutcomeRefused, Cause: model.ErrOutOfDomain}

	pt := f.Render("pt-BR", testQuestion(), out)
	assert.Contains(t, pt.Answer, "só posso responder perguntas sobre dados de vendas")
	assert.Equal(t, "out_of_domain", pt.Error)

	en := f.Render("en-US", testQuestion(), out)
	assert.Contains(t, en.Answer, "I can only answer questions about sales data")
	assert.Equal(t, "out_of_domain", en.Error)
}

func TestRenderFailureCodes(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")
	cases := []struct {
		cause error
		code  string
	}{
		{model.ErrIterationLimit, "iteration_limit_exceeded"},
		{model.ErrModelTimeout, "model_timeout"},
		{model.ErrModelProtocol, "model_protocol_error"},
		{model.ErrStorageTimeout, "storage_timeout"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range cases {
		ans := f.Render("", testQuestion(), model.Outcome{Kind: model.OutcomeFailed, Cause: tc.cause})
		assert.Equal(t, tc.code, ans.Error, "cause %v", tc.cause)
		require.NotEmpty(t, ans.Answer)
	}
}

func TestRenderPartialKeepsSalvagedData(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")
	out := model.Outcome{
		Kind:    model.OutcomeFailed,
		Cause:   model.ErrIterationLimit,
		Text:    `get_sales_statistics: {"total_orders":33}`,
		Partial: true,
	}

	ans := f.Render("pt-BR", testQuestion(), out)

	assert.True(t, ans.Partial)
	assert.Contains(t, ans.Answer, "Resultados parciais")
	assert.Contains(t, ans.Answer, `"total_orders":33`)
}

func TestRenderUnknownLocaleFallsBack(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")
	out := model.Outcome{Kind: model.OutcomeRefused, Cause: model.ErrOutOfDomain}

	ans := f.Render("zz-ZZ", testQuestion(), out)

	assert.Contains(t, ans.Answer, "só posso responder")
}

func TestMoneyLocalized(t *testing.T) {
	f := format.New("qwen3:30b", "pt-BR")

	assert.Equal(t, "R$ 1.560,00", f.Money("pt-BR", model.Cents(156000)))
	assert.Contains(t, f.Money("en-US", model.Cents(156000)), "1,560.00")
}
