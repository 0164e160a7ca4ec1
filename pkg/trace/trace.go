package trace

import (
	"context"
	"fmt"

	"github.com/amoylab/hydrowatch/internal/common/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// InitTracing installs the global tracer provider and returns its shutdown func.
// When tracing is disabled the returned func is a no-op.
func InitTracing(ctx context.Context, cfg *config.TracingConfig, lg *zap.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	protocol := cfg.Protocol
	if protocol == "" {
		protocol = "grpc"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if protocol == "http" {
			endpoint = "localhost:4318"
		} else {
			endpoint = "localhost:4317"
		}
	}

	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	var exp *otlptrace.Exporter
	switch protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exp, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	rate := cfg.SamplerRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	lg.Info("tracing enabled",
		zap.String("endpoint", endpoint),
		zap.String("protocol", protocol),
		zap.Float64("sampler_rate", rate),
	)
	return tp.Shutdown, nil
}

// Builder wraps a named tracer
type Builder struct {
	tracer trace.Tracer
}

// Tracer creates a Builder for a named tracer
func Tracer(name string) *Builder {
	return &Builder{tracer: otel.Tracer(name)}
}

// SpanScope holds span and context
type SpanScope struct {
	Ctx  context.Context
	Span trace.Span
}

// Start starts a new span and returns a scope
func (b *Builder) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) *SpanScope {
	nctx, sp := b.tracer.Start(ctx, spanName, opts...)
	return &SpanScope{Ctx: nctx, Span: sp}
}

// WithAttrs sets attributes on the span and returns the scope for chaining
func (s *SpanScope) WithAttrs(attrs ...attribute.KeyValue) *SpanScope {
	if s != nil && s.Span != nil {
		s.Span.SetAttributes(attrs...)
	}
	return s
}

// Fail records err on the span and marks it as errored. nil err is ignored.
func (s *SpanScope) Fail(err error) {
	if s == nil || s.Span == nil || err == nil {
		return
	}
	s.Span.RecordError(err)
	s.Span.SetStatus(codes.Error, err.Error())
}

// End ends the span if present
func (s *SpanScope) End() {
	if s != nil && s.Span != nil {
		s.Span.End()
	}
}
