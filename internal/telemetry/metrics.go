package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the instruments recorded per answered question. All
// instruments come from the global meter provider, so a disabled OTEL
// setup makes every recording a no-op.
type Metrics struct {
	questions   metric.Int64Counter
	toolCalls   metric.Int64Counter
	answerTime  metric.Float64Histogram
}

// NewMetrics registers the question-pipeline instruments.
func NewMetrics() (*Metrics, error) {
	meter := Meter("oraculo")

	questions, err := meter.Int64Counter("oraculo.questions",
		metric.WithDescription("Questions processed, partitioned by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create questions counter: %w", err)
	}

	toolCalls, err := meter.Int64Counter("oraculo.tool_calls",
		metric.WithDescription("Tool invocations issued by the model loop"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create tool_calls counter: %w", err)
	}

	answerTime, err := meter.Float64Histogram("oraculo.answer_duration_seconds",
		metric.WithDescription("Wall-clock time to produce a terminal outcome"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: create answer_duration histogram: %w", err)
	}

	return &Metrics{questions: questions, toolCalls: toolCalls, answerTime: answerTime}, nil
}

// RecordQuestion records one terminal outcome and its latency.
func (m *Metrics) RecordQuestion(ctx context.Context, outcome string, toolsUsed int, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.questions.Add(ctx, 1, attrs)
	if toolsUsed > 0 {
		m.toolCalls.Add(ctx, int64(toolsUsed), attrs)
	}
	m.answerTime.Record(ctx, elapsed.Seconds(), attrs)
}
