// internal/service/shipping/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// 定价依赖的失败分类。对 RPC 调用方统一表现为 Unknown，
// 分类只用于日志、span 属性和指标。
var (
	ErrQuoteUnavailable     = errors.New("quote service unavailable")
	ErrQuoteInvalidResponse = errors.New("quote service returned an invalid response")
)

// FailureKind 标识失败类别
type FailureKind string

const (
	FailureUnavailable     FailureKind = "unavailable"
	FailureInvalidResponse FailureKind = "invalid_response"
)

// PricingFailure 是定价适配器边界上唯一的错误类型
type PricingFailure struct {
	Kind FailureKind
	Err  error
}

func NewPricingFailure(kind FailureKind, err error) *PricingFailure {
	return &PricingFailure{Kind: kind, Err: err}
}

func (f *PricingFailure) Error() string {
	if f.Err == nil {
		return f.sentinel().Error()
	}
	return fmt.Sprintf("%s: %v", f.sentinel(), f.Err)
}

func (f *PricingFailure) Unwrap() error { return f.Err }

// Is lets errors.Is match a failure against its kind sentinel.
func (f *PricingFailure) Is(target error) bool {
	return target == f.sentinel()
}

func (f *PricingFailure) sentinel() error {
	if f.Kind == FailureInvalidResponse {
		return ErrQuoteInvalidResponse
	}
	return ErrQuoteUnavailable
}

// FailureKindOf 返回 err 链中 PricingFailure 的类别
func FailureKindOf(err error) (FailureKind, bool) {
	var f *PricingFailure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
