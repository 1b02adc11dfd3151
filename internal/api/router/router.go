package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/sms-router/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sms-router/internal/http/middleware"
	"github.com/wolfman30/sms-router/internal/messaging"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger           *logging.Logger
	MessagingHandler *messaging.Handler
	StatusHandler    *handlers.StatusHandler
	AdminCache       *handlers.AdminCacheHandler
	MetricsHandler   http.Handler

	// WebhookSecret enables signature checks on the SMS webhook.
	WebhookSecret string
	PublicBaseURL string

	// IPRateLimiter throttles every request per client IP (optional).
	IPRateLimiter *httpmiddleware.RateLimiter

	AdminAuthSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	r.Use(httpmiddleware.RateLimit(cfg.IPRateLimiter))

	r.Group(func(public chi.Router) {
		if cfg.StatusHandler != nil {
			public.Get("/health", cfg.StatusHandler.Health)
			public.Get("/stats", cfg.StatusHandler.Stats)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.MessagingHandler != nil {
			public.Route("/messaging", func(r chi.Router) {
				r.Use(messaging.RequireSignature(cfg.WebhookSecret, cfg.PublicBaseURL, cfg.Logger))
				r.Post("/twilio/webhook", cfg.MessagingHandler.TwilioWebhook)
			})
		}
	})

	if cfg.AdminAuthSecret != "" && cfg.AdminCache != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Delete("/identities/{phone}", cfg.AdminCache.ForgetIdentity)
			admin.Delete("/ratelimit/{phone}", cfg.AdminCache.ResetSender)
			admin.Post("/caches/{name}/flush", cfg.AdminCache.FlushCache)
		})
	}

	return r
}
