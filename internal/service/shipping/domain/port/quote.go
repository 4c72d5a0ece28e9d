package port

import "context"

// QuoteService 是定价依赖的出站端口。
type QuoteService interface {
	// RequestQuote 返回 itemCount 件商品的运费总价。
	// 失败时返回 *domain.PricingFailure。
	RequestQuote(ctx context.Context, itemCount uint32) (float64, error)
}
