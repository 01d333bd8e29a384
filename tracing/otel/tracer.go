package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/blockberries/veilberry/types"
)

// Tracer traces transition and finalize execution.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new OpenTelemetry-based tracer.
// The serviceName is used to identify this service in traces.
func NewTracer(serviceName string) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(serviceName),
	}
}

// NewTracerWithProvider creates a tracer using a specific TracerProvider.
// This is useful for testing or when using a custom provider configuration.
func NewTracerWithProvider(serviceName string, provider trace.TracerProvider) *Tracer {
	return &Tracer{
		tracer: provider.Tracer(serviceName),
	}
}

// NewNopTracer creates a tracer that records nothing.
func NewNopTracer() *Tracer {
	return &Tracer{
		tracer: trace.NewNoopTracerProvider().Tracer("noop"),
	}
}

// StartTransition starts a span for a transition execution.
func (t *Tracer) StartTransition(ctx context.Context, program types.ProgramID, transition string, caller types.Identity) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "transition."+transition,
		trace.WithAttributes(
			attribute.String("ledger.program", program.String()),
			attribute.String("ledger.transition", transition),
			attribute.String("ledger.caller", caller.String()),
		),
	)
}

// StartFinalize starts a span for a finalize execution.
func (t *Tracer) StartFinalize(ctx context.Context, program types.ProgramID, transition string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "finalize."+transition,
		trace.WithAttributes(
			attribute.String("ledger.program", program.String()),
			attribute.String("ledger.transition", transition),
		),
	)
}

// EndSpan finishes a span, recording err when non-nil.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, types.ErrorKind(err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
