package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/volley/internal/request"
)

// StartRequestSpan starts a client span for one descriptor.
func StartRequestSpan(ctx context.Context, tracer trace.Tracer, d request.Descriptor) (context.Context, trace.Span) {
	method := d.Method
	if method == "" {
		method = http.MethodGet
	}
	ctx, span := tracer.Start(ctx, "HTTP "+method,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.full", d.Target),
		attribute.Int64("volley.seq", int64(d.Seq)),
	)
	return ctx, span
}

// OutcomeAttributes describes an outcome as span attributes.
func OutcomeAttributes(o request.Outcome) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("volley.outcome", o.Kind.String()),
		attribute.Int("volley.attempts", o.Attempts),
	}
	switch o.Kind {
	case request.KindSuccess:
		attrs = append(attrs, attribute.Int("http.response.status_code", o.StatusCode))
	case request.KindFailure:
		attrs = append(attrs, attribute.String("error.type", string(o.ErrorKind)))
	}
	return attrs
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders injects W3C trace context into HTTP headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
