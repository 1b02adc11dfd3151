package metrics

import "github.com/prometheus/client_golang/prometheus"

// MessagingMetrics exposes counters/histograms for the webhook transport.
type MessagingMetrics struct {
	inboundTotal   *prometheus.CounterVec
	webhookLatency *prometheus.HistogramVec
}

func NewMessagingMetrics(reg prometheus.Registerer) *MessagingMetrics {
	m := &MessagingMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsrouter",
			Subsystem: "messaging",
			Name:      "inbound_webhook_total",
			Help:      "Total inbound SMS webhooks by handling status",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smsrouter",
			Subsystem: "messaging",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of inbound webhook handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.webhookLatency)
	return m
}

func (m *MessagingMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(status).Inc()
}

func (m *MessagingMetrics) ObserveWebhookLatency(kind string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.WithLabelValues(kind).Observe(seconds)
}

// RoutingMetrics mirrors the engine's running statistics for scraping.
type RoutingMetrics struct {
	routedTotal    *prometheus.CounterVec
	routeLatency   *prometheus.HistogramVec
	spamScore      prometheus.Histogram
	identification *prometheus.CounterVec
}

func NewRoutingMetrics(reg prometheus.Registerer) *RoutingMetrics {
	m := &RoutingMetrics{
		routedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsrouter",
			Subsystem: "routing",
			Name:      "routed_total",
			Help:      "Inbound messages routed, by outcome",
		}, []string{"outcome"}),
		routeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smsrouter",
			Subsystem: "routing",
			Name:      "route_latency_seconds",
			Help:      "Wall-clock time spent in Route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		spamScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smsrouter",
			Subsystem: "routing",
			Name:      "spam_score",
			Help:      "Distribution of spam scores for processed messages",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		}),
		identification: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smsrouter",
			Subsystem: "routing",
			Name:      "identification_total",
			Help:      "Sender identification results",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.routedTotal, m.routeLatency, m.spamScore, m.identification)
	return m
}

func (m *RoutingMetrics) ObserveRoute(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.routedTotal.WithLabelValues(outcome).Inc()
	m.routeLatency.WithLabelValues(outcome).Observe(seconds)
}

func (m *RoutingMetrics) ObserveSpamScore(score float64) {
	if m == nil {
		return
	}
	m.spamScore.Observe(score)
}

func (m *RoutingMetrics) ObserveIdentification(result string) {
	if m == nil {
		return
	}
	m.identification.WithLabelValues(result).Inc()
}
