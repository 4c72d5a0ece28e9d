package oteldemo

import (
	"fmt"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// 以下类型是 demo.proto 中消息的 Go 视图，在 dynamicpb 消息与业务代码之间做映射。

type CartItem struct {
	ProductID string
	Quantity  int32
}

type Address struct {
	StreetAddress string
	City          string
	State         string
	Country       string
	ZipCode       string
}

type Money struct {
	CurrencyCode string
	Units        int64
	Nanos        int32
}

type GetQuoteRequest struct {
	Address *Address
	Items   []CartItem
}

type GetQuoteResponse struct {
	CostUsd *Money
}

type ShipOrderRequest struct {
	Address *Address
	Items   []CartItem
}

type ShipOrderResponse struct {
	TrackingID string
}

func field(md protoreflect.MessageDescriptor, name string) protoreflect.FieldDescriptor {
	fd := md.Fields().ByName(protoreflect.Name(name))
	if fd == nil {
		panic(fmt.Sprintf("oteldemo: message %s has no field %q", md.FullName(), name))
	}
	return fd
}

// ---- GetQuote ----

// GetQuoteRequestFromMessage 将收到的 protobuf 消息转换为 GetQuoteRequest。
// 未设置的 address 保持为 nil。
func GetQuoteRequestFromMessage(m protoreflect.Message) GetQuoteRequest {
	md := m.Descriptor()
	return GetQuoteRequest{
		Address: optionalAddress(m, field(md, "address")),
		Items:   cartItemsFromList(m.Get(field(md, "items")).List()),
	}
}

func (r GetQuoteRequest) Message(md protoreflect.MessageDescriptor) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	if r.Address != nil {
		r.Address.fill(m.Mutable(field(md, "address")).Message())
	}
	appendCartItems(m.Mutable(field(md, "items")).List(), r.Items)
	return m
}

func GetQuoteResponseFromMessage(m protoreflect.Message) GetQuoteResponse {
	fd := field(m.Descriptor(), "cost_usd")
	if !m.Has(fd) {
		return GetQuoteResponse{}
	}
	money := moneyFromMessage(m.Get(fd).Message())
	return GetQuoteResponse{CostUsd: &money}
}

func (r GetQuoteResponse) Message(md protoreflect.MessageDescriptor) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	if r.CostUsd != nil {
		r.CostUsd.fill(m.Mutable(field(md, "cost_usd")).Message())
	}
	return m
}

// ---- ShipOrder ----

func ShipOrderRequestFromMessage(m protoreflect.Message) ShipOrderRequest {
	md := m.Descriptor()
	return ShipOrderRequest{
		Address: optionalAddress(m, field(md, "address")),
		Items:   cartItemsFromList(m.Get(field(md, "items")).List()),
	}
}

func (r ShipOrderRequest) Message(md protoreflect.MessageDescriptor) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	if r.Address != nil {
		r.Address.fill(m.Mutable(field(md, "address")).Message())
	}
	appendCartItems(m.Mutable(field(md, "items")).List(), r.Items)
	return m
}

func ShipOrderResponseFromMessage(m protoreflect.Message) ShipOrderResponse {
	return ShipOrderResponse{
		TrackingID: m.Get(field(m.Descriptor(), "tracking_id")).String(),
	}
}

func (r ShipOrderResponse) Message(md protoreflect.MessageDescriptor) *dynamicpb.Message {
	m := dynamicpb.NewMessage(md)
	m.Set(field(md, "tracking_id"), protoreflect.ValueOfString(r.TrackingID))
	return m
}

// ---- nested messages ----

func optionalAddress(m protoreflect.Message, fd protoreflect.FieldDescriptor) *Address {
	if !m.Has(fd) {
		return nil
	}
	a := addressFromMessage(m.Get(fd).Message())
	return &a
}

func addressFromMessage(m protoreflect.Message) Address {
	md := m.Descriptor()
	return Address{
		StreetAddress: m.Get(field(md, "street_address")).String(),
		City:          m.Get(field(md, "city")).String(),
		State:         m.Get(field(md, "state")).String(),
		Country:       m.Get(field(md, "country")).String(),
		ZipCode:       m.Get(field(md, "zip_code")).String(),
	}
}

func (a Address) fill(m protoreflect.Message) {
	md := m.Descriptor()
	m.Set(field(md, "street_address"), protoreflect.ValueOfString(a.StreetAddress))
	m.Set(field(md, "city"), protoreflect.ValueOfString(a.City))
	m.Set(field(md, "state"), protoreflect.ValueOfString(a.State))
	m.Set(field(md, "country"), protoreflect.ValueOfString(a.Country))
	m.Set(field(md, "zip_code"), protoreflect.ValueOfString(a.ZipCode))
}

func cartItemsFromList(list protoreflect.List) []CartItem {
	items := make([]CartItem, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		m := list.Get(i).Message()
		md := m.Descriptor()
		items = append(items, CartItem{
			ProductID: m.Get(field(md, "product_id")).String(),
			Quantity:  int32(m.Get(field(md, "quantity")).Int()),
		})
	}
	return items
}

func appendCartItems(list protoreflect.List, items []CartItem) {
	for _, item := range items {
		el := list.NewElement()
		m := el.Message()
		md := m.Descriptor()
		m.Set(field(md, "product_id"), protoreflect.ValueOfString(item.ProductID))
		m.Set(field(md, "quantity"), protoreflect.ValueOfInt32(item.Quantity))
		list.Append(el)
	}
}

func moneyFromMessage(m protoreflect.Message) Money {
	md := m.Descriptor()
	return Money{
		CurrencyCode: m.Get(field(md, "currency_code")).String(),
		Units:        m.Get(field(md, "units")).Int(),
		Nanos:        int32(m.Get(field(md, "nanos")).Int()),
	}
}

func (mo Money) fill(m protoreflect.Message) {
	md := m.Descriptor()
	m.Set(field(md, "currency_code"), protoreflect.ValueOfString(mo.CurrencyCode))
	m.Set(field(md, "units"), protoreflect.ValueOfInt64(mo.Units))
	m.Set(field(md, "nanos"), protoreflect.ValueOfInt32(mo.Nanos))
}
