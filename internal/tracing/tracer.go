// internal/tracing/tracer.go
package tracing

import (
	"github.com/pkg/errors"
	zlog "github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// NewPropagator 返回服务间传递上下文使用的 W3C TraceContext + Baggage 组合
func NewPropagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
}

// InitTracerProvider initializes a TracerProvider exporting to Jaeger.
// An empty jaegerEndpoint keeps spans local (sampled, but never exported).
// The provider and propagator are also registered globally for third-party
// instrumentation; service components receive them explicitly.
func InitTracerProvider(serviceName, jaegerEndpoint string) (*sdktrace.TracerProvider, propagation.TextMapPropagator, error) {
	opts := []sdktrace.TracerProviderOption{
		// 始终采样，上游的采样决定通过 ParentBased 继承
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
		)),
	}

	if jaegerEndpoint != "" {
		// 创建 Jaeger Exporter，用于将 Span 数据发送到 Jaeger
		exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)))
		if err != nil {
			return nil, nil, errors.Wrap(err, "create jaeger exporter")
		}
		// 使用批处理 Span 处理器，提高性能
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	propagator := NewPropagator()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator)

	zlog.Info().
		Str("service", serviceName).
		Str("endpoint", jaegerEndpoint).
		Msg("Tracing initialized")
	return tp, propagator, nil
}
