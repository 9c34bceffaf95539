package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the serialized W3C trace context stored next to outbox rows.
type TraceContext struct {
	Traceparent string
	Tracestate  string
}

func CaptureTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Traceparent: carrier["traceparent"], Tracestate: carrier["tracestate"]}
}

// Restore returns ctx carrying tc as its remote parent. An empty tc leaves ctx unchanged.
func (tc TraceContext) Restore(ctx context.Context) context.Context {
	if tc.Traceparent == "" && tc.Tracestate == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{
		"traceparent": tc.Traceparent,
		"tracestate":  tc.Tracestate,
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
