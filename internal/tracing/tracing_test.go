package tracing_test

import (
	"context"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/volley/internal/config"
	"github.com/torosent/volley/internal/request"
	"github.com/torosent/volley/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func boolPtr(b bool) *bool { return &b }

func TestInit(t *testing.T) {
	tests := []struct {
		name          string
		cfg           config.TracingConfig
		wantErr       bool
		wantPropagate bool
	}{
		{name: "disabled", cfg: config.TracingConfig{}},
		{
			name:          "grpc endpoint",
			cfg:           config.TracingConfig{Endpoint: "localhost:4317", Protocol: "grpc", ServiceName: "ratelimit-check", SampleRate: 1, Insecure: true},
			wantPropagate: true,
		},
		{
			name:          "http endpoint with ratio sampling",
			cfg:           config.TracingConfig{Endpoint: "localhost:4318", Protocol: "HTTP", SampleRate: 0.5, Insecure: true},
			wantPropagate: true,
		},
		{
			name: "propagation explicitly off",
			cfg:  config.TracingConfig{Endpoint: "localhost:4317", Insecure: true, SampleRate: 1, Propagate: boolPtr(false)},
		},
		{
			name:          "propagation without exporter",
			cfg:           config.TracingConfig{Propagate: boolPtr(true)},
			wantPropagate: true,
		},
		{name: "unsupported protocol", cfg: config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift"}, wantErr: true},
		{name: "negative sample rate", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: -0.5}, wantErr: true},
		{name: "sample rate above one", cfg: config.TracingConfig{Endpoint: "localhost:4317", SampleRate: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
			p, err := tracing.Init(context.Background(), tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Init() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

			if got := p.ShouldPropagate(); got != tt.wantPropagate {
				t.Errorf("ShouldPropagate() = %v, want %v", got, tt.wantPropagate)
			}
			_, span := p.Tracer().Start(context.Background(), "smoke")
			span.End()
		})
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() {
		t.Error("nil provider ShouldPropagate() = true, want false")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "smoke")
	if span.SpanContext().IsValid() {
		t.Error("nil provider produced a recording span")
	}
	span.End()
}

func TestStartRequestSpan(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	tests := []struct {
		name         string
		method       string
		wantSpanName string
		wantMethod   string
	}{
		{"explicit method", "POST", "HTTP POST", "POST"},
		{"default method", "", "HTTP GET", "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			d := request.Descriptor{Seq: 7, Method: tt.method, Target: "http://localhost/api"}
			_, span := tracing.StartRequestSpan(context.Background(), tracer, d)
			tracing.EndSpan(span, nil, tracing.OutcomeAttributes(request.Success(7, 200, 0, "", ""))...)

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			if got := spans[0].Name; got != tt.wantSpanName {
				t.Errorf("span name = %q, want %q", got, tt.wantSpanName)
			}
			if spans[0].SpanKind != trace.SpanKindClient {
				t.Errorf("span kind = %v, want client", spans[0].SpanKind)
			}

			attrs := map[string]string{}
			for _, attr := range spans[0].Attributes {
				attrs[string(attr.Key)] = attr.Value.Emit()
			}
			if attrs["http.request.method"] != tt.wantMethod {
				t.Errorf("http.request.method = %q, want %q", attrs["http.request.method"], tt.wantMethod)
			}
			if attrs["url.full"] != d.Target {
				t.Errorf("url.full = %q", attrs["url.full"])
			}
			if attrs["volley.seq"] != "7" {
				t.Errorf("volley.seq = %q, want 7", attrs["volley.seq"])
			}
			if attrs["http.response.status_code"] != "200" {
				t.Errorf("http.response.status_code = %q, want 200", attrs["http.response.status_code"])
			}
		})
	}
}

func TestOutcomeAttributesFailure(t *testing.T) {
	attrs := tracing.OutcomeAttributes(request.Failure(1, request.ErrorTimeout, 0, nil))
	found := false
	for _, attr := range attrs {
		if string(attr.Key) == "error.type" && attr.Value.AsString() == "timeout" {
			found = true
		}
	}
	if !found {
		t.Errorf("error.type attribute missing from %v", attrs)
	}
}

func TestEndSpanStatus(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"ok", nil, codes.Ok},
		{"error", context.DeadlineExceeded, codes.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()
			_, span := tracer.Start(context.Background(), tt.name)
			tracing.EndSpan(span, tt.err)

			spans := exporter.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("got %d spans, want 1", len(spans))
			}
			if spans[0].Status.Code != tt.want {
				t.Errorf("status = %v, want %v", spans[0].Status.Code, tt.want)
			}
		})
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "test-inject")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	got := headers.Get("Traceparent")
	if got == "" {
		t.Error("traceparent header not injected")
	}
	// traceparent format: version-traceid-spanid-flags (e.g., 00-abc123...-def456...-01)
	if len(got) < 55 {
		t.Errorf("traceparent header too short: %q", got)
	}
}

func TestInjectHTTPHeadersNoSpan(t *testing.T) {
	// Without a span in context, injection should not panic and not set traceparent
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
	))
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)

	got := headers.Get("Traceparent")
	if got != "" {
		t.Errorf("traceparent header should be empty without span, got %q", got)
	}
}
