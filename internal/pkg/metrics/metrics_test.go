package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestObserve(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRPC("GetQuote", codes.OK, time.Now())
	m.ObserveRPC("GetQuote", codes.Unknown, time.Now())
	m.ObserveRPC("GetQuote", codes.OK, time.Now())
	m.ObserveQuoteFailure("unavailable")
	m.ObserveQuote(8.99)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("GetQuote", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RPCRequests.WithLabelValues("GetQuote", "Unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.QuoteFailures.WithLabelValues("unavailable")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RPCDuration))
}

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	assert.Panics(t, func() { New(reg) }, "registering twice on the same registry must fail")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRPC("GetQuote", codes.OK, time.Now())
		m.ObserveQuoteFailure("unavailable")
		m.ObserveQuote(8.99)
	})
}
