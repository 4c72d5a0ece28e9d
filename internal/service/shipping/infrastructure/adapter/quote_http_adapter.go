package adapter

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"shippingservice/internal/pkg/httpclient"
	"shippingservice/internal/pkg/logger"
	"shippingservice/internal/service/shipping/domain"
	"shippingservice/internal/service/shipping/domain/port"
)

// QuotePath 是定价服务的固定路径
const QuotePath = "/getquote"

var _ port.QuoteService = (*QuoteHTTPAdapter)(nil)

// quoteRequest 是发往定价服务的请求体
type quoteRequest struct {
	NumberOfItems uint32 `json:"numberOfItems"`
}

// QuoteHTTPAdapter 实现了 port.QuoteService，通过 HTTP 调用定价服务。
type QuoteHTTPAdapter struct {
	client   *httpclient.Client
	endpoint string
	timeout  time.Duration
}

// NewQuoteHTTPAdapter 创建适配器。baseAddr 在启动时解析一次，之后不再变化；
// timeout 为 0 表示不额外设置超时，由调用方的 context 决定。
func NewQuoteHTTPAdapter(client *httpclient.Client, baseAddr string, timeout time.Duration) *QuoteHTTPAdapter {
	return &QuoteHTTPAdapter{
		client:   client,
		endpoint: strings.TrimRight(baseAddr, "/") + QuotePath,
		timeout:  timeout,
	}
}

// Endpoint returns the fully resolved URL the adapter posts to.
func (a *QuoteHTTPAdapter) Endpoint() string { return a.endpoint }

// RequestQuote 实现了调用定价服务的逻辑。
func (a *QuoteHTTPAdapter) RequestQuote(ctx context.Context, itemCount uint32) (float64, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	body, err := a.client.PostJSON(ctx, a.endpoint, quoteRequest{NumberOfItems: itemCount})
	if err != nil {
		return 0, domain.NewPricingFailure(domain.FailureUnavailable, err)
	}

	text := strings.TrimSpace(string(body))
	logger.Ctx(ctx).Debug().Str("body", text).Uint32("items", itemCount).Msg("quote service responded")

	total, err := parseTotal(text)
	if err != nil {
		return 0, domain.NewPricingFailure(domain.FailureInvalidResponse, err)
	}
	return total, nil
}

// parseTotal 只接受有限、非负的十进制数
func parseTotal(text string) (float64, error) {
	if text == "" {
		return 0, errors.New("empty response body")
	}
	total, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse quote %q", text)
	}
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, errors.Errorf("quote %q is not a finite number", text)
	}
	if total < 0 {
		return 0, errors.Errorf("quote %q is negative", text)
	}
	return total, nil
}
