// internal/service/shipping/domain/money.go
package domain

const (
	CurrencyUSD = "USD"

	// NanosPerCent: nanos 以 10^9 为基数，而报价精度是 10^-2
	NanosPerCent int32 = 10_000_000
	nanosMod     int32 = 1_000_000_000
)

// Money 是定点货币值: Units + Nanos/10^9
type Money struct {
	CurrencyCode string
	Units        int64
	Nanos        int32
}

// IsValid 报告 Money 是否满足非负报价的不变式
func (m Money) IsValid() bool {
	return m.Units >= 0 && m.Nanos >= 0 && m.Nanos < nanosMod
}
