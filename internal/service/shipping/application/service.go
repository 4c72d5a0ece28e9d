// internal/service/shipping/application/service.go
package application

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"shippingservice/api/oteldemo"
	"shippingservice/internal/pkg/logger"
	"shippingservice/internal/pkg/metrics"
	"shippingservice/internal/service/shipping/domain"
	"shippingservice/internal/service/shipping/domain/port"
	"shippingservice/internal/tracing"
)

// span 上的业务属性
const (
	attrZipCode      = attribute.Key("app.shipping.zip_code")
	attrItemsCount   = attribute.Key("app.shipping.items.count")
	attrCostTotal    = attribute.Key("app.shipping.cost.total")
	attrTrackingID   = attribute.Key("app.shipping.tracking.id")
	attrQuoteFailure = attribute.Key("app.shipping.quote.failure")
)

// ShippingApplicationService 编排两个无状态的调用流程：询价与发货。
// 调用之间不共享可变状态，可被任意多个 goroutine 并发使用。
type ShippingApplicationService struct {
	bridge      *tracing.Bridge
	quotes      port.QuoteService
	newTracking domain.TrackingIDGenerator
	metrics     *metrics.Metrics
}

func NewShippingApplicationService(bridge *tracing.Bridge, quotes port.QuoteService, newTracking domain.TrackingIDGenerator, m *metrics.Metrics) *ShippingApplicationService {
	if newTracking == nil {
		newTracking = domain.NewTrackingID
	}
	return &ShippingApplicationService{
		bridge:      bridge,
		quotes:      quotes,
		newTracking: newTracking,
		metrics:     m,
	}
}

// GetQuote 计算购物车的运费。
// 定价依赖失败时返回 codes.Unknown 的 gRPC 错误，不返回任何部分结果，也不重试。
func (s *ShippingApplicationService) GetQuote(ctx context.Context, md tracing.Carrier, req domain.QuoteRequest) (domain.Money, error) {
	start := time.Now()
	ctx, span := s.bridge.StartServerSpan(ctx, md, oteldemo.ServiceName, oteldemo.MethodGetQuote)

	// 未正常返回（panic）时按 Internal 结束 span
	code := codes.Internal
	var finishAttrs []attribute.KeyValue
	defer func() {
		s.bridge.Finish(span, code, finishAttrs...)
		s.metrics.ObserveRPC(oteldemo.MethodGetQuote, code, start)
	}()

	log := logger.Ctx(ctx)
	itemCount, err := req.ItemCount()
	if err != nil {
		code = codes.InvalidArgument
		span.RecordError(err)
		log.Warn().Err(err).Int("lines", len(req.Items)).Msg("rejecting quote request")
		return domain.Money{}, status.Error(codes.InvalidArgument, err.Error())
	}
	log.Info().
		Str("zip_code", req.DestinationPostalCode).
		Int("lines", len(req.Items)).
		Uint32("items", itemCount).
		Msg("GetQuoteRequest received")

	span.AddEvent("Processing get quote request")
	span.SetAttributes(attrZipCode.String(req.DestinationPostalCode))

	total, err := s.quotes.RequestQuote(ctx, itemCount)
	if err != nil {
		code = codes.Unknown
		kind, _ := domain.FailureKindOf(err)
		span.RecordError(err)
		finishAttrs = append(finishAttrs, attrQuoteFailure.String(string(kind)))
		s.metrics.ObserveQuoteFailure(string(kind))

		log.Error().Err(err).Str("failure", string(kind)).Msg("quote service call failed")
		return domain.Money{}, status.Error(codes.Unknown, err.Error())
	}

	q := domain.QuoteFromFloat(total)
	span.AddEvent("Received Quote", trace.WithAttributes(attrCostTotal.String(q.String())))
	span.SetAttributes(
		attrItemsCount.Int64(int64(itemCount)),
		attrCostTotal.String(q.String()),
	)
	s.metrics.ObserveQuote(total)

	log.Info().Str("quote", q.String()).Msg("Sending Quote")
	code = codes.OK
	return q.Money(), nil
}

// ShipOrder 为订单生成追踪号。没有出站调用，span 仍然包裹整个流程。
func (s *ShippingApplicationService) ShipOrder(ctx context.Context, md tracing.Carrier, req domain.ShipOrderRequest) (string, error) {
	start := time.Now()
	ctx, span := s.bridge.StartServerSpan(ctx, md, oteldemo.ServiceName, oteldemo.MethodShipOrder)

	code := codes.Internal
	defer func() {
		s.bridge.Finish(span, code)
		s.metrics.ObserveRPC(oteldemo.MethodShipOrder, code, start)
	}()

	log := logger.Ctx(ctx)
	log.Info().Str("zip_code", req.DestinationPostalCode).Int("lines", len(req.Items)).Msg("ShipOrderRequest received")
	span.AddEvent("Processing shipping order request")

	trackingID := s.newTracking()
	span.SetAttributes(attrTrackingID.String(trackingID))
	log.Info().Str("tracking_id", trackingID).Msg("Tracking ID Created")

	span.AddEvent("Shipping tracking id created, response sent back")
	code = codes.OK
	return trackingID, nil
}
