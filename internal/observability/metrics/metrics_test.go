package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMessagingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMessagingMetrics(reg)
	m.ObserveInbound("accepted")
	m.ObserveInbound("accepted")
	m.ObserveWebhookLatency("reply", 0.5)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.inboundTotal.WithLabelValues("accepted")))
}

func TestRoutingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRoutingMetrics(reg)
	m.ObserveRoute("success", 0.01)
	m.ObserveRoute("spam_blocked", 0.002)
	m.ObserveSpamScore(1.0)
	m.ObserveIdentification("anonymous")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.routedTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.identification.WithLabelValues("anonymous")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestMetricsNilSafe(t *testing.T) {
	var mm *MessagingMetrics
	mm.ObserveInbound("status")
	mm.ObserveWebhookLatency("reply", 0.1)

	var rm *RoutingMetrics
	rm.ObserveRoute("failed", 0.1)
	rm.ObserveSpamScore(0.2)
	rm.ObserveIdentification("primary")
}
