package interfaces

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"shippingservice/api/oteldemo"
	"shippingservice/internal/service/shipping/application"
	"shippingservice/internal/service/shipping/domain"
	"shippingservice/internal/tracing"
)

// ShippingHandler 把 oteldemo.ShippingService 的 gRPC 调用转给应用服务。
// 消息按 Schema 中的描述符动态解码，不依赖生成代码。
type ShippingHandler struct {
	schema  *oteldemo.Schema
	service *application.ShippingApplicationService
}

// NewShippingHandler 创建一个新的 gRPC 处理器实例
func NewShippingHandler(schema *oteldemo.Schema, service *application.ShippingApplicationService) *ShippingHandler {
	return &ShippingHandler{schema: schema, service: service}
}

// Register 在 gRPC server 上注册 ShippingService
func (h *ShippingHandler) Register(s grpc.ServiceRegistrar) {
	s.RegisterService(h.ServiceDesc(), h)
}

// ServiceDesc 构造与 demo.proto 一致的服务描述
func (h *ShippingHandler) ServiceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: oteldemo.ServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			{
				MethodName: oteldemo.MethodGetQuote,
				Handler:    h.unary(h.schema.GetQuote, h.getQuote),
			},
			{
				MethodName: oteldemo.MethodShipOrder,
				Handler:    h.unary(h.schema.ShipOrder, h.shipOrder),
			},
		},
		Metadata: h.schema.File.Path(),
	}
}

type unaryFunc func(ctx context.Context, req protoreflect.Message) (any, error)

// unary 负责解码请求并串上拦截器链，和生成代码中的 _Xxx_Handler 做的事一样
func (h *ShippingHandler) unary(method protoreflect.MethodDescriptor, fn unaryFunc) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := oteldemo.FullMethod(string(method.Name()))

	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := dynamicpb.NewMessage(method.Input())
		if err := dec(in); err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "failed to decode request: %v", err)
		}
		if interceptor == nil {
			return fn(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(ctx, req.(protoreflect.ProtoMessage).ProtoReflect())
		})
	}
}

func (h *ShippingHandler) getQuote(ctx context.Context, msg protoreflect.Message) (any, error) {
	req := oteldemo.GetQuoteRequestFromMessage(msg)

	cost, err := h.service.GetQuote(ctx, incomingCarrier(ctx), domain.QuoteRequest{
		DestinationPostalCode: zipCode(req.Address),
		Items:                 lineItems(req.Items),
	})
	if err != nil {
		return nil, err
	}

	resp := oteldemo.GetQuoteResponse{CostUsd: &oteldemo.Money{
		CurrencyCode: cost.CurrencyCode,
		Units:        cost.Units,
		Nanos:        cost.Nanos,
	}}
	return resp.Message(h.schema.GetQuote.Output()), nil
}

func (h *ShippingHandler) shipOrder(ctx context.Context, msg protoreflect.Message) (any, error) {
	req := oteldemo.ShipOrderRequestFromMessage(msg)

	trackingID, err := h.service.ShipOrder(ctx, incomingCarrier(ctx), domain.ShipOrderRequest{
		DestinationPostalCode: zipCode(req.Address),
		Items:                 lineItems(req.Items),
	})
	if err != nil {
		return nil, err
	}

	resp := oteldemo.ShipOrderResponse{TrackingID: trackingID}
	return resp.Message(h.schema.ShipOrder.Output()), nil
}

// incomingCarrier 取入站元数据，没有时返回空 carrier（span 将成为根 span）
func incomingCarrier(ctx context.Context) tracing.MetadataCarrier {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		md = metadata.MD{}
	}
	return tracing.MetadataCarrier(md)
}

// 缺少 address 时邮编按空串处理
func zipCode(a *oteldemo.Address) string {
	if a == nil {
		return ""
	}
	return a.ZipCode
}

func lineItems(items []oteldemo.CartItem) []domain.CartLineItem {
	out := make([]domain.CartLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.CartLineItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}
