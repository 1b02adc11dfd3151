package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/sms-router/internal/agent"
	"github.com/wolfman30/sms-router/internal/api/router"
	"github.com/wolfman30/sms-router/internal/app/bootstrap"
	"github.com/wolfman30/sms-router/internal/cache"
	appconfig "github.com/wolfman30/sms-router/internal/config"
	"github.com/wolfman30/sms-router/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/sms-router/internal/http/middleware"
	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/internal/messaging"
	"github.com/wolfman30/sms-router/internal/observability/metrics"
	"github.com/wolfman30/sms-router/internal/ratelimit"
	"github.com/wolfman30/sms-router/internal/reply"
	"github.com/wolfman30/sms-router/internal/routing"
	"github.com/wolfman30/sms-router/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sms-router API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"agent_provider", cfg.AgentProvider,
	)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	app, err := buildApp(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	app.janitor.Start()
	defer app.janitor.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AgentTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	final := app.engine.Stats()
	logger.Info("server stopped",
		"total_processed", final.TotalProcessed,
		"successful_routes", final.SuccessfulRoutes,
		"failed_routes", final.FailedRoutes,
		"spam_blocked", final.SpamBlocked,
	)
	fmt.Println("Server exited gracefully")
}

type application struct {
	handler http.Handler
	engine  *routing.Engine
	janitor *cache.Janitor
	closers []func()
}

// Close releases the store pool and the Redis client.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func setupMetrics() (http.Handler, *metrics.MessagingMetrics, *metrics.RoutingMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewMessagingMetrics(reg), metrics.NewRoutingMetrics(reg)
}

// newAdminCacheHandler flushes sender counters through the active limiter,
// which may keep them in Redis rather than in the local cache.
func newAdminCacheHandler(identities *identity.Service, identityCache *cache.Manager[identity.UserIdentity], senders ratelimit.Limiter, logger *logging.Logger) *handlers.AdminCacheHandler {
	caches := map[string]handlers.Clearer{
		"identity": handlers.LocalCache(identityCache),
	}
	var resetter handlers.SenderResetter
	if senders != nil {
		caches["ratelimit"] = senders
		resetter = senders
	}
	return handlers.NewAdminCacheHandler(identities, resetter, caches, logger)
}

func buildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*application, error) {
	app := &application{}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	store, closeStore, err := bootstrap.BuildIdentityStore(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.closers = append(app.closers, closeStore)

	proc, err := bootstrap.BuildProcessor(cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	agentClient, err := bootstrap.BuildAgentClient(ctx, cfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	identityCache := cache.New[identity.UserIdentity](cache.WithDefaultTTL(cfg.CacheDefaultTTL))
	counters := cache.New[int](cache.WithDefaultTTL(cfg.CacheDefaultTTL))
	identities := identity.NewService(store, identityCache, cfg.IdentityCacheTTL, logger.Component("identity"))

	metricsHandler, messagingMetrics, routingMetrics := setupMetrics()

	senderLimiter := bootstrap.BuildSenderLimiter(cfg, redisClient, counters, logger)

	app.engine = routing.NewEngine(routing.Deps{
		Identifier: identities,
		Processor:  proc,
		Agent:      agent.NewService(agentClient, cfg.AgentTimeout, logger.Component("agent")),
		Formatter:  reply.NewFormatter(logger.Component("reply")),
		Limiter:    senderLimiter,
		Metrics:    routingMetrics,
		Logger:     logger.Component("routing"),
	})

	sweepers := map[string]cache.Sweeper{
		"identity":  identityCache,
		"ratelimit": counters,
	}
	var ipLimiter *httpmiddleware.RateLimiter
	if cfg.HTTPRateLimit > 0 {
		ipLimiter = httpmiddleware.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateBurst, nil)
		sweepers["http_clients"] = ipLimiter.Buckets()
	}

	app.janitor, err = cache.NewJanitor(cfg.CacheSweepSchedule, sweepers, logger.Component("cache"))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.handler = router.New(&router.Config{
		Logger:           logger,
		MessagingHandler: messaging.NewHandler(app.engine, messagingMetrics, logger.Component("messaging")),
		StatusHandler:    handlers.NewStatusHandler(app.engine, sweepers, logger),
		AdminCache:       newAdminCacheHandler(identities, identityCache, senderLimiter, logger),
		MetricsHandler:   metricsHandler,
		WebhookSecret:    cfg.TwilioWebhookSecret,
		PublicBaseURL:    cfg.PublicBaseURL,
		IPRateLimiter:    ipLimiter,
		AdminAuthSecret:  cfg.AdminJWTSecret,
	})
	if cfg.TwilioWebhookSecret == "" {
		logger.Warn("TWILIO_WEBHOOK_SECRET not set; webhook signatures are not checked")
	}
	return app, nil
}
