package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrItemCountOverflow 表示购物车总件数超出了定价请求能表达的范围
var ErrItemCountOverflow = errors.New("cart item count exceeds uint32")

// CartLineItem 是购物车中的一行
type CartLineItem struct {
	ProductID string
	Quantity  int32
}

// QuoteRequest 是一次询价的输入，只在单次调用内存活
type QuoteRequest struct {
	DestinationPostalCode string
	Items                 []CartLineItem
}

// ItemCount 汇总所有行的数量。空购物车返回 0；负数数量按 0 计。
// 总数超过 math.MaxUint32 时返回 ErrItemCountOverflow，不做截断。
func (r QuoteRequest) ItemCount() (uint32, error) {
	var n uint64
	for _, item := range r.Items {
		if item.Quantity > 0 {
			n += uint64(item.Quantity)
		}
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("%w: %d", ErrItemCountOverflow, n)
	}
	return uint32(n), nil
}

// ShipOrderRequest 是发货请求。订单字段对本服务是不透明的。
type ShipOrderRequest struct {
	DestinationPostalCode string
	Items                 []CartLineItem
}
