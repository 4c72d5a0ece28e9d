// internal/tracing/bridge.go
package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
)

// Bridge 连接入站调用元数据与服务端 span：
// 从元数据中提取上游上下文，开启 server span，结束时写入 gRPC 状态码。
// tracer 与 propagator 在构造时注入，请求路径上不读取全局状态。
type Bridge struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

// NewBridge creates a bridge whose spans come from tp under instrumentationName.
func NewBridge(tp trace.TracerProvider, propagator propagation.TextMapPropagator, instrumentationName string) *Bridge {
	return &Bridge{
		tracer:     tp.Tracer(instrumentationName),
		propagator: propagator,
	}
}

// Tracer 返回桥接使用的 tracer，下游组件（例如 HTTP 客户端）共用它
func (b *Bridge) Tracer() trace.Tracer { return b.tracer }

// StartServerSpan extracts the caller's trace context from carrier and starts
// a server span named "<service>/<method>" as its child. Without propagation
// headers the span is a new root. The returned context carries the span and
// must be used for every downstream call made on behalf of this request.
func (b *Bridge) StartServerSpan(ctx context.Context, carrier Carrier, service, method string) (context.Context, trace.Span) {
	parent := b.propagator.Extract(ctx, carrier)

	return b.tracer.Start(parent, service+"/"+method,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.RPCSystemGRPC,
			semconv.RPCServiceKey.String(service),
			semconv.RPCMethodKey.String(method),
		),
	)
}

// Finish 写入 rpc.grpc.status_code（OK=0, UNKNOWN=2 ...）与附加属性并结束 span。
// 每次入站调用的每条退出路径上必须恰好调用一次。
func (b *Bridge) Finish(span trace.Span, code codes.Code, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetAttributes(semconv.RPCGRPCStatusCodeKey.Int(int(code)))
	if code != codes.OK {
		span.SetStatus(otelcodes.Error, code.String())
	}
	span.End()
}

// Inject 用提取入站上下文的同一个 propagator 把 ctx 写入出站 carrier。
// 出站 HTTP 客户端通过它注入，保证下游看到的是本次调用的 span。
func (b *Bridge) Inject(ctx context.Context, carrier propagation.TextMapCarrier) {
	b.propagator.Inject(ctx, carrier)
}
