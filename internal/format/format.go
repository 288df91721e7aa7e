// Package format renders terminal outcomes as localized, caller-facing
// answers. Message catalogs cover Brazilian Portuguese (the default) and
// English; unknown locales fall back through the matcher.
package format

import (
	"errors"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/oraculo-ai/oraculo/internal/model"
)

const (
	msgOutOfDomain = "Sorry, I can only answer questions about sales data. Try asking about sales, products, customers or revenue."
	msgInvalidIn   = "Please provide a non-empty question about sales data."
	msgIterLimit   = "I could not finish the full analysis within the allowed number of steps."
	msgPartialNote = "Partial results gathered so far:"
	msgModelSlow   = "The language model took too long to answer. Please try again."
	msgModelBroken = "The language model returned an unusable response. Please try again."
	msgStorageSlow = "The sales database took too long to answer. Please try again."
	msgGeneric     = "Something went wrong while processing your question. Please try again."
)

var supported = []language.Tag{
	language.BrazilianPortuguese, // default
	language.AmericanEnglish,
}

var matcher = language.NewMatcher(supported)

func init() {
	for key, pt := range map[string]string{
		msgOutOfDomain: "Desculpe, só posso responder perguntas sobre dados de vendas. Tente perguntar sobre vendas, produtos, clientes ou faturamento.",
		msgInvalidIn:   "Informe uma pergunta não vazia sobre os dados de vendas.",
		msgIterLimit:   "Não consegui concluir a análise completa dentro do número permitido de etapas.",
		msgPartialNote: "Resultados parciais obtidos até aqui:",
		msgModelSlow:   "O modelo de linguagem demorou demais para responder. Tente novamente.",
		msgModelBroken: "O modelo de linguagem retornou uma resposta inutilizável. Tente novamente.",
		msgStorageSlow: "O banco de dados de vendas demorou demais para responder. Tente novamente.",
		msgGeneric:     "Ocorreu um erro ao processar sua pergunta. Tente novamente.",
	} {
		if err := message.SetString(language.BrazilianPortuguese, key, pt); err != nil {
			panic(err)
		}
	}
}

// Formatter turns outcomes into structured answers for one configured
// default locale. It is immutable and safe for concurrent use.
type Formatter struct {
	modelName     string
	defaultLocale string
}

// New builds a formatter. modelName is echoed into answers for
// provenance; defaultLocale applies when a request names none.
func New(modelName, defaultLocale string) *Formatter {
	if defaultLocale == "" {
		defaultLocale = "pt-BR"
	}
	return &Formatter{modelName: modelName, defaultLocale: defaultLocale}
}

// printer resolves a locale string to a message printer, falling back to
// the default locale and then to Portuguese.
func (f *Formatter) printer(locale string) *message.Printer {
	if locale == "" {
		locale = f.defaultLocale
	}
	tag, _ := language.MatchStrings(matcher, locale)
	return message.NewPrinter(tag)
}

// Render localizes one outcome. The answer text of a successful run is
// the model's own words and passes through untouched; refusals and
// failures get catalog messages, and partial results keep their salvaged
// data under a localized preamble.
func (f *Formatter) Render(locale string, q model.Question, out model.Outcome) model.StructuredAnswer {
	p := f.printer(locale)

	ans := model.StructuredAnswer{
		Question:  q.Text,
		ToolsUsed: out.ToolsUsed,
		Partial:   out.Partial,
		Model:     f.modelName,
	}
	if !q.Now.IsZero() {
		ans.ContextDate = q.Now.Format("2006-01-02")
	}

	switch out.Kind {
	case model.OutcomeAnswered:
		ans.Answer = out.Text
	case model.OutcomeRefused:
		ans.Answer = p.Sprintf(msgOutOfDomain)
		ans.Error = "out_of_domain"
	case model.OutcomeFailed:
		ans.Answer = f.failureText(p, out)
		ans.Error = failureCode(out.Cause)
	}
	return ans
}

func (f *Formatter) failureText(p *message.Printer, out model.Outcome) string {
	text := p.Sprintf(failureKey(out.Cause))
	if out.Partial && out.Text != "" {
		text += "\n\n" + p.Sprintf(msgPartialNote) + "\n" + out.Text
	}
	return text
}

func failureKey(cause error) string {
	switch {
	case errors.Is(cause, model.ErrIterationLimit):
		return msgIterLimit
	case errors.Is(cause, model.ErrModelTimeout):
		return msgModelSlow
	case errors.Is(cause, model.ErrModelProtocol):
		return msgModelBroken
	case errors.Is(cause, model.ErrStorageTimeout):
		return msgStorageSlow
	default:
		return msgGeneric
	}
}

// failureCode is the machine-readable error slug carried alongside the
// localized text.
func failureCode(cause error) string {
	switch {
	case errors.Is(cause, model.ErrIterationLimit):
		return "iteration_limit_exceeded"
	case errors.Is(cause, model.ErrModelTimeout):
		return "model_timeout"
	case errors.Is(cause, model.ErrModelProtocol):
		return "model_protocol_error"
	case errors.Is(cause, model.ErrStorageTimeout):
		return "storage_timeout"
	default:
		return "internal_error"
	}
}

// Money renders an integer-cents amount as a localized BRL string, e.g.
// "R$ 1.560,00" in pt-BR.
func (f *Formatter) Money(locale string, v model.Cents) string {
	p := f.printer(locale)
	amount := number.Decimal(v.Float(),
		number.MinFractionDigits(2), number.MaxFractionDigits(2))
	return p.Sprintf("R$ %v", amount)
}

// Timestamp renders a point in time the way answers reference the
// dataset, date plus wall clock.
func Timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
