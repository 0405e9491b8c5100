package server

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reflow"

// tracer resolves from the global provider, so spans are no-ops until the
// application installs one in main().
func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// startEventSpan opens a span around one client event dispatch. The
// returned end function records the handler outcome.
func startEventSpan(ctx context.Context, sessionID, event string) (context.Context, func(error)) {
	ctx, span := tracer().Start(ctx, "reflow.event",
		trace.WithAttributes(
			attribute.String("reflow.session_id", sessionID),
			attribute.String("reflow.event", event),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}
}

// startRenderSpan opens a span around one pass-and-render cycle.
func startRenderSpan(ctx context.Context, sessionID string) (context.Context, func(error)) {
	ctx, span := tracer().Start(ctx, "reflow.render",
		trace.WithAttributes(
			attribute.String("reflow.session_id", sessionID),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
