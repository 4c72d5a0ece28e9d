package application

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"shippingservice/internal/pkg/metrics"
	"shippingservice/internal/service/shipping/domain"
	"shippingservice/internal/tracing"
)

// fakeQuotes 按 itemCount×8.99 报价，并记录收到的 context
type fakeQuotes struct {
	err      error
	panics   bool
	counts   []uint32
	spanCtxs []trace.SpanContext
}

func (f *fakeQuotes) RequestQuote(ctx context.Context, itemCount uint32) (float64, error) {
	f.counts = append(f.counts, itemCount)
	f.spanCtxs = append(f.spanCtxs, trace.SpanContextFromContext(ctx))
	if f.panics {
		panic("quote backend exploded")
	}
	if f.err != nil {
		return 0, f.err
	}
	return float64(itemCount) * 8.99, nil
}

type fixture struct {
	svc     *ShippingApplicationService
	quotes  *fakeQuotes
	spans   *tracetest.SpanRecorder
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, gen domain.TrackingIDGenerator) *fixture {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	bridge := tracing.NewBridge(tp, propagator, "shipping-test")
	quotes := &fakeQuotes{}
	m := metrics.New(prometheus.NewRegistry())

	return &fixture{
		svc:     NewShippingApplicationService(bridge, quotes, gen, m),
		quotes:  quotes,
		spans:   sr,
		metrics: m,
	}
}

func attrsOf(s sdktrace.ReadOnlySpan) map[attribute.Key]attribute.Value {
	out := make(map[attribute.Key]attribute.Value)
	for _, kv := range s.Attributes() {
		out[kv.Key] = kv.Value
	}
	return out
}

func eventNames(s sdktrace.ReadOnlySpan) []string {
	var names []string
	for _, e := range s.Events() {
		names = append(names, e.Name)
	}
	return names
}

func TestGetQuote(t *testing.T) {
	tests := []struct {
		name      string
		items     []domain.CartLineItem
		wantCount uint32
		want      domain.Money
		wantTotal string
	}{
		{
			name:      "empty cart",
			wantCount: 0,
			want:      domain.Money{CurrencyCode: domain.CurrencyUSD, Units: 0, Nanos: 0},
			wantTotal: "0.00",
		},
		{
			name:      "single item",
			items:     []domain.CartLineItem{{ProductID: "OLJCESPC7Z", Quantity: 1}},
			wantCount: 1,
			want:      domain.Money{CurrencyCode: domain.CurrencyUSD, Units: 8, Nanos: 990_000_000},
			wantTotal: "8.99",
		},
		{
			name: "two lines",
			items: []domain.CartLineItem{
				{ProductID: "OLJCESPC7Z", Quantity: 1},
				{ProductID: "66VCHSJNUP", Quantity: 2},
			},
			wantCount: 3,
			want:      domain.Money{CurrencyCode: domain.CurrencyUSD, Units: 26, Nanos: 970_000_000},
			wantTotal: "26.97",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			got, err := f.svc.GetQuote(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.QuoteRequest{
				DestinationPostalCode: "94043",
				Items:                 tt.items,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, []uint32{tt.wantCount}, f.quotes.counts)

			ended := f.spans.Ended()
			require.Len(t, ended, 1)
			span := ended[0]
			assert.Equal(t, "oteldemo.ShippingService/GetQuote", span.Name())
			assert.Equal(t, trace.SpanKindServer, span.SpanKind())
			assert.NotEqual(t, otelcodes.Error, span.Status().Code)

			attrs := attrsOf(span)
			assert.Equal(t, "94043", attrs[attrZipCode].AsString())
			assert.Equal(t, int64(tt.wantCount), attrs[attrItemsCount].AsInt64())
			assert.Equal(t, tt.wantTotal, attrs[attrCostTotal].AsString())
			assert.Equal(t, int64(0), attrs["rpc.grpc.status_code"].AsInt64())
			assert.Equal(t, []string{"Processing get quote request", "Received Quote"}, eventNames(span))

			// 定价调用拿到的是 server span 的上下文
			require.Len(t, f.quotes.spanCtxs, 1)
			assert.Equal(t, span.SpanContext().SpanID(), f.quotes.spanCtxs[0].SpanID())

			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues("GetQuote", "OK")))
		})
	}
}

func TestGetQuoteDependencyFailure(t *testing.T) {
	for _, kind := range []domain.FailureKind{domain.FailureUnavailable, domain.FailureInvalidResponse} {
		t.Run(string(kind), func(t *testing.T) {
			f := newFixture(t, nil)
			f.quotes.err = domain.NewPricingFailure(kind, errors.New("boom"))

			got, err := f.svc.GetQuote(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.QuoteRequest{
				Items: []domain.CartLineItem{{ProductID: "OLJCESPC7Z", Quantity: 1}},
			})
			require.Error(t, err)
			assert.Equal(t, codes.Unknown, status.Code(err))
			assert.Contains(t, status.Convert(err).Message(), "boom")
			assert.Equal(t, domain.Money{}, got)

			ended := f.spans.Ended()
			require.Len(t, ended, 1)
			span := ended[0]
			assert.Equal(t, otelcodes.Error, span.Status().Code)

			attrs := attrsOf(span)
			assert.Equal(t, int64(codes.Unknown), attrs["rpc.grpc.status_code"].AsInt64())
			assert.Equal(t, string(kind), attrs[attrQuoteFailure].AsString())
			_, hasTotal := attrs[attrCostTotal]
			assert.False(t, hasTotal)

			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.QuoteFailures.WithLabelValues(string(kind))))
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues("GetQuote", "Unknown")))
		})
	}
}

func TestGetQuoteContinuesInboundTrace(t *testing.T) {
	f := newFixture(t, nil)
	md := metadata.Pairs("traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")

	_, err := f.svc.GetQuote(context.Background(), tracing.MetadataCarrier(md), domain.QuoteRequest{})
	require.NoError(t, err)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", ended[0].SpanContext().TraceID().String())
	assert.Equal(t, "b7ad6b7169203331", ended[0].Parent().SpanID().String())
	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", f.quotes.spanCtxs[0].TraceID().String())
}

func TestShipOrder(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.svc.ShipOrder(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.ShipOrderRequest{
		DestinationPostalCode: "94043",
		Items:                 []domain.CartLineItem{{ProductID: "OLJCESPC7Z", Quantity: 1}},
	})
	require.NoError(t, err)

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), parsed.Version())

	// 没有出站调用
	assert.Empty(t, f.quotes.counts)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	span := ended[0]
	assert.Equal(t, "oteldemo.ShippingService/ShipOrder", span.Name())
	assert.Equal(t, id, attrsOf(span)[attrTrackingID].AsString())
	assert.Equal(t, int64(0), attrsOf(span)["rpc.grpc.status_code"].AsInt64())
	assert.Equal(t, []string{
		"Processing shipping order request",
		"Shipping tracking id created, response sent back",
	}, eventNames(span))
}

func TestShipOrderUsesInjectedGenerator(t *testing.T) {
	f := newFixture(t, func() string { return "fixed-id" })

	first, err := f.svc.ShipOrder(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.ShipOrderRequest{})
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", first)
}

func TestShipOrderUniqueIDs(t *testing.T) {
	f := newFixture(t, nil)
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := f.svc.ShipOrder(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.ShipOrderRequest{})
		require.NoError(t, err)
		seen[id] = struct{}{}
	}
	assert.Len(t, seen, 100)
}

func TestGetQuoteItemCountOverflow(t *testing.T) {
	f := newFixture(t, nil)

	got, err := f.svc.GetQuote(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.QuoteRequest{
		Items: []domain.CartLineItem{
			{ProductID: "a", Quantity: math.MaxInt32},
			{ProductID: "b", Quantity: math.MaxInt32},
			{ProductID: "c", Quantity: 2},
		},
	})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	assert.Equal(t, domain.Money{}, got)
	// 不会用回绕后的件数去询价
	assert.Empty(t, f.quotes.counts)

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, int64(codes.InvalidArgument), attrsOf(ended[0])["rpc.grpc.status_code"].AsInt64())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues("GetQuote", "InvalidArgument")))
}

func TestGetQuotePanicEndsSpanAsInternal(t *testing.T) {
	f := newFixture(t, nil)
	f.quotes.panics = true

	assert.Panics(t, func() {
		_, _ = f.svc.GetQuote(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.QuoteRequest{
			Items: []domain.CartLineItem{{ProductID: "OLJCESPC7Z", Quantity: 1}},
		})
	})

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, int64(codes.Internal), attrsOf(ended[0])["rpc.grpc.status_code"].AsInt64())
	assert.Equal(t, otelcodes.Error, ended[0].Status().Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues("GetQuote", "Internal")))
}

func TestShipOrderPanicEndsSpanAsInternal(t *testing.T) {
	f := newFixture(t, func() string { panic("no entropy") })

	assert.Panics(t, func() {
		_, _ = f.svc.ShipOrder(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.ShipOrderRequest{})
	})

	ended := f.spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, int64(codes.Internal), attrsOf(ended[0])["rpc.grpc.status_code"].AsInt64())
}

func TestServiceWithoutMetrics(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	bridge := tracing.NewBridge(tp, propagation.TraceContext{}, "shipping-test")
	svc := NewShippingApplicationService(bridge, &fakeQuotes{}, nil, nil)

	got, err := svc.GetQuote(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.QuoteRequest{
		Items: []domain.CartLineItem{{ProductID: "OLJCESPC7Z", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(8), got.Units)

	_, err = svc.ShipOrder(context.Background(), tracing.MetadataCarrier(metadata.MD{}), domain.ShipOrderRequest{})
	require.NoError(t, err)
	assert.Len(t, sr.Ended(), 2)
}
