// Package messaging is the SMS webhook transport: signature checks, form
// parsing and TwiML responses around the routing engine.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/sms-router/internal/observability/metrics"
	"github.com/wolfman30/sms-router/internal/reply"
	"github.com/wolfman30/sms-router/pkg/logging"
)

var twilioTracer = otel.Tracer("smsrouter.internal.messaging.twilio")

// Router is the routing engine as seen by the transport.
type Router interface {
	Route(ctx context.Context, phone, body, messageID string) reply.Response
}

// Handler handles messaging webhook requests.
type Handler struct {
	router  Router
	metrics *metrics.MessagingMetrics
	logger  *logging.Logger
}

// NewHandler creates a new messaging handler. metrics may be nil.
func NewHandler(router Router, m *metrics.MessagingMetrics, logger *logging.Logger) *Handler {
	if router == nil {
		panic("messaging: router cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{router: router, metrics: m, logger: logger}
}

// TwilioWebhook handles POST /messaging/twilio/webhook. It always answers 200
// with TwiML; providers retry non-2xx responses.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.webhook")
	defer span.End()

	webhook, err := ParseWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		span.RecordError(err)
		h.writeTwiML(w, reply.Response{Body: reply.GenericErrorMessage, Kind: reply.KindError}, "parse_error", start)
		return
	}

	messageID := webhook.MessageSid
	if messageID == "" {
		messageID = uuid.NewString()
		h.logger.Warn("twilio webhook missing MessageSid", "generated_id", messageID)
	}
	span.SetAttributes(
		attribute.String("smsrouter.twilio.message_sid", messageID),
		attribute.String("smsrouter.twilio.from", logging.MaskPhone(webhook.From)),
	)
	if webhook.From == "" {
		span.RecordError(errors.New("missing From"))
	}

	resp := h.router.Route(ctx, webhook.From, webhook.Body, messageID)
	h.writeTwiML(w, resp, string(resp.Kind), start)
}

func (h *Handler) writeTwiML(w http.ResponseWriter, resp reply.Response, status string, start time.Time) {
	h.metrics.ObserveInbound(status)
	h.metrics.ObserveWebhookLatency("sms", time.Since(start).Seconds())

	if utf8.RuneCountInString(resp.Body) > MaxMessageLength {
		h.logger.Warn("reply exceeds provider limit; truncating",
			"runes", utf8.RuneCountInString(resp.Body), "limit", MaxMessageLength)
		resp.Body = truncateRunes(resp.Body, MaxMessageLength)
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(resp.TwiML()))
}

// RequireSignature rejects requests whose signature does not match secret
// with 401. An empty secret disables the check. publicBaseURL, when set,
// replaces scheme and host of the URL that was signed.
func RequireSignature(secret, publicBaseURL string, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				next.ServeHTTP(w, r)
				return
			}
			webhookURL := buildAbsoluteURL(r, publicBaseURL)
			if !ValidateSignature(r, secret, webhookURL) {
				logger.Warn("invalid twilio signature", "url", webhookURL)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func buildAbsoluteURL(r *http.Request, publicBaseURL string) string {
	if r.URL == nil {
		return ""
	}
	if base := strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"); base != "" {
		return base + r.URL.RequestURI()
	}
	if r.URL.Scheme != "" && r.URL.Host != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
