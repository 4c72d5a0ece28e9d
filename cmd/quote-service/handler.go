package main

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"shippingservice/internal/pkg/logger"
)

const costPerItem = 8.99

// quoteHandler 是定价依赖的开发替身：POST /getquote，返回 numberOfItems × 8.99 的纯文本
type quoteHandler struct {
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
}

func (h *quoteHandler) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/getquote", h.getQuote)
	return mux
}

func (h *quoteHandler) getQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// 先提取 trace 上下文，再开启 server span
	ctx := h.propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "quote-service.GetQuote", trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()
	log := logger.Ctx(ctx)

	var req struct {
		NumberOfItems uint32 `json:"numberOfItems"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request body")
		log.Warn().Err(err).Msg("invalid quote request")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	total := calculateQuote(req.NumberOfItems)
	span.SetAttributes(
		attribute.Int64("app.quote.items.count", int64(req.NumberOfItems)),
		attribute.Float64("app.quote.cost.total", total),
	)
	span.AddEvent("Quote calculated")
	log.Info().Uint32("items", req.NumberOfItems).Float64("total", total).Msg("Calculated quote")

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(strconv.FormatFloat(total, 'f', 2, 64)))
}

// calculateQuote 按件计价，保留两位小数
func calculateQuote(items uint32) float64 {
	return math.Round(float64(items)*costPerItem*100) / 100
}
