// internal/service/shipping/domain/quote.go
package domain

import (
	"fmt"
	"math"
)

// Quote 是运费报价的内部表示：整数美元 + 美分。
// 它只由定价依赖返回的总价拆分而来，不做任何定价计算。
type Quote struct {
	Dollars int64
	Cents   int32 // [0, 100)
}

// QuoteFromFloat 将浮点总价拆分为美元和美分:
// dollars = floor(total), cents = floor(total*100) mod 100。
// total 必须是有限且非负的数，校验由调用方 (定价适配器) 负责。
func QuoteFromFloat(total float64) Quote {
	return Quote{
		Dollars: int64(math.Floor(total)),
		Cents:   int32(int64(math.Floor(total*100)) % 100),
	}
}

// Money 转换为对外的定点货币表示。
func (q Quote) Money() Money {
	return Money{
		CurrencyCode: CurrencyUSD,
		Units:        q.Dollars,
		Nanos:        q.Cents * NanosPerCent,
	}
}

func (q Quote) String() string {
	return fmt.Sprintf("%d.%02d", q.Dollars, q.Cents)
}
