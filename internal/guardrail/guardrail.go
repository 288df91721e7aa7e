// Package guardrail pre-filters questions before any model or storage
// call. It is a cheap keyword check, not an intent classifier: a false
// negative just falls through to the model, which can still refuse, and a
// false positive is harmless because the tool layer is read-only.
package guardrail

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// defaultKeywords is the bilingual (pt-BR + en) domain vocabulary.
// Matching is done on normalized text, so accented and unaccented
// spellings are equivalent.
var defaultKeywords = []string{
	"vendas", "venda", "produto", "cliente", "faturamento", "receita",
	"quantidade", "data", "período", "categoria", "preço", "estatística",
	"análise", "ticket", "mês", "semana", "ano", "dia",
	"sales", "sale", "product", "customer", "revenue", "quantity",
	"date", "period", "category", "price", "statistics", "trend",
	"analysis", "month", "week", "year", "order",
}

// Classifier decides whether a question is in the sales domain.
type Classifier struct {
	keywords []string
}

// New builds a classifier from the default vocabulary plus any extra
// configured keywords.
func New(extra ...string) *Classifier {
	c := &Classifier{}
	for _, kw := range defaultKeywords {
		c.keywords = append(c.keywords, Normalize(kw))
	}
	for _, kw := range extra {
		if kw = strings.TrimSpace(kw); kw != "" {
			c.keywords = append(c.keywords, Normalize(kw))
		}
	}
	return c
}

// InDomain reports whether the question mentions at least one domain
// term. It never fails; ambiguous input is classified as in-domain and
// left to the model's own refusal.
func (c *Classifier) InDomain(question string) bool {
	q := Normalize(question)
	for _, kw := range c.keywords {
		if strings.Contains(q, kw) {
			return true
		}
	}
	return false
}

// foldAccents strips combining marks after canonical decomposition, so
// "período" and "periodo" normalize identically.
var foldAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lower-cases and accent-folds text for matching.
func Normalize(s string) string {
	folded, _, err := transform.String(foldAccents, strings.ToLower(s))
	if err != nil {
		// Transform only fails on malformed input; matching on the
		// lower-cased original is the safe fallback.
		return strings.ToLower(s)
	}
	return folded
}
