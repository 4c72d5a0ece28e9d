package tracing

import (
	"go.opentelemetry.io/otel/propagation"
	"google.golang.org/grpc/metadata"
)

// Carrier 是传播头的最小读写能力：按 key 取值（大小写不敏感）与枚举 key。
// 每种传输各自实现，propagation.HeaderCarrier 已满足该接口。
type Carrier interface {
	Get(key string) string
	Set(key, value string)
	Keys() []string
}

var (
	_ Carrier                    = MetadataCarrier{}
	_ Carrier                    = propagation.HeaderCarrier{}
	_ propagation.TextMapCarrier = MetadataCarrier{}
)

// MetadataCarrier adapts gRPC metadata to a propagation carrier.
type MetadataCarrier metadata.MD

// Get returns the first value for key. gRPC metadata keys are stored
// lower-cased, so lookup is case-insensitive.
func (c MetadataCarrier) Get(key string) string {
	values := metadata.MD(c).Get(key)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func (c MetadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c MetadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
