// internal/pkg/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc/codes"
)

// Metrics holds the shipping service's Prometheus collectors.
type Metrics struct {
	RPCRequests   *prometheus.CounterVec
	RPCDuration   *prometheus.HistogramVec
	QuoteFailures *prometheus.CounterVec
	QuoteTotal    prometheus.Histogram
}

// New registers the collectors on reg. Use prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_rpc_requests_total",
				Help: "Total number of handled RPC calls",
			},
			[]string{"method", "code"},
		),
		RPCDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipping_rpc_duration_seconds",
				Help:    "RPC handling latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		QuoteFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipping_quote_failures_total",
				Help: "Quote dependency failures by kind",
			},
			[]string{"kind"},
		),
		QuoteTotal: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "shipping_quote_total_usd",
				Help:    "Distribution of quoted shipping totals in USD",
				Buckets: []float64{0, 10, 25, 50, 100, 250, 500},
			},
		),
	}
}

// 以下方法允许 nil 接收者，未配置指标时什么也不做

// ObserveRPC 记录一次 RPC 调用的状态码与耗时
func (m *Metrics) ObserveRPC(method string, code codes.Code, start time.Time) {
	if m == nil {
		return
	}
	m.RPCRequests.WithLabelValues(method, code.String()).Inc()
	m.RPCDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveQuoteFailure(kind string) {
	if m == nil {
		return
	}
	m.QuoteFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveQuote(totalUSD float64) {
	if m == nil {
		return
	}
	m.QuoteTotal.Observe(totalUSD)
}
