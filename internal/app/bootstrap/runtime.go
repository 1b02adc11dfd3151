package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/sms-router/internal/cache"
	appconfig "github.com/wolfman30/sms-router/internal/config"
	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/internal/processor"
	"github.com/wolfman30/sms-router/internal/ratelimit"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildIdentityStore picks the phone-to-user store: Postgres when
// DATABASE_URL is set, else the YAML seed file, else an empty memory store.
// The returned close func is never nil.
func BuildIdentityStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (identity.Store, func(), error) {
	noop := func() {}
	if cfg == nil {
		return nil, noop, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	if url := strings.TrimSpace(cfg.DatabaseURL); url != "" {
		pool, err := pgxpool.New(ctx, url)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			// The health endpoint reports the outage; routing degrades to anonymous.
			logger.Warn("postgres not reachable at startup", "error", err)
		}
		logger.Info("identity store: postgres")
		return identity.NewPostgresStore(pool), pool.Close, nil
	}

	if path := strings.TrimSpace(cfg.IdentitySeedFile); path != "" {
		store, err := identity.LoadMemoryStore(path)
		if err != nil {
			return nil, noop, fmt.Errorf("bootstrap: %w", err)
		}
		logger.Info("identity store: seed file", "path", path)
		return store, noop, nil
	}

	logger.Warn("no DATABASE_URL or IDENTITY_SEED_FILE; every sender is anonymous")
	return identity.NewMemoryStore(), noop, nil
}

// BuildProcessor builds the message processor, applying SPAM_POLICY_FILE
// when set.
func BuildProcessor(cfg *appconfig.Config) (*processor.Processor, error) {
	policy := processor.DefaultSpamPolicy()
	if cfg != nil && strings.TrimSpace(cfg.SpamPolicyFile) != "" {
		loaded, err := processor.LoadSpamPolicy(cfg.SpamPolicyFile)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		policy = loaded
	}
	scorer, err := processor.NewHeuristicScorer(policy)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return processor.New(processor.WithScorer(scorer)), nil
}

// BuildSenderLimiter counts per-sender messages in Redis when a client is
// available, otherwise in counters. It returns nil when limiting is off.
func BuildSenderLimiter(cfg *appconfig.Config, redisClient *redis.Client, counters *cache.Manager[int], logger *logging.Logger) ratelimit.Limiter {
	if cfg == nil || cfg.SenderRateLimit <= 0 {
		return nil
	}
	limits := ratelimit.Config{Limit: cfg.SenderRateLimit, Window: cfg.SenderRateWindow}
	if redisClient != nil {
		return ratelimit.NewRedisLimiter(redisClient, limits, logger)
	}
	return ratelimit.NewMemoryLimiter(counters, limits)
}
