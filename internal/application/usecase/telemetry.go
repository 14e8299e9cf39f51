package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/jehnsen/coop-lending/internal/application/usecase"

// Instruments come from the global providers, so they start reporting once
// observability.InitMetrics and InitTracer have installed real ones.
var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)

	loanTransitions, _ = meter.Int64Counter(
		"lending_loans_transitions_total",
		otelmetric.WithDescription("Loan status transitions by target status"),
	)
	paymentsRecorded, _ = meter.Int64Counter(
		"lending_payments_recorded_total",
		otelmetric.WithDescription("Payments recorded against loans"),
	)
	paymentsReversed, _ = meter.Int64Counter(
		"lending_payments_reversed_total",
		otelmetric.WithDescription("Payments reversed"),
	)
	penaltiesAssessed, _ = meter.Int64Counter(
		"lending_penalties_assessed_total",
		otelmetric.WithDescription("Penalties written by penalty computation"),
	)
)

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func countTransition(ctx context.Context, to string) {
	if loanTransitions != nil {
		loanTransitions.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", to)))
	}
}

func count(ctx context.Context, c otelmetric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c != nil && n > 0 {
		c.Add(ctx, n, otelmetric.WithAttributes(attrs...))
	}
}
