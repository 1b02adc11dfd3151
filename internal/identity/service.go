// Package identity resolves inbound phone numbers to account owners.
package identity

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/sms-router/internal/cache"
	"github.com/wolfman30/sms-router/pkg/logging"
)

var tracer = otel.Tracer("smsrouter.internal.identity")

// DefaultCacheTTL bounds how long a positive identification is reused.
const DefaultCacheTTL = 5 * time.Minute

const cacheKeyPrefix = "identity:"

// Service identifies senders. Misses and store failures both come back as
// not-found; identification never fails the pipeline.
type Service struct {
	store    Store
	cache    *cache.Manager[UserIdentity]
	cacheTTL time.Duration
	logger   *logging.Logger
}

// NewService wires the store and the shared identity cache. A nil cache
// disables memoization.
func NewService(store Store, identityCache *cache.Manager[UserIdentity], cacheTTL time.Duration, logger *logging.Logger) *Service {
	if store == nil {
		panic("identity: store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	return &Service{
		store:    store,
		cache:    identityCache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// IdentifyByPhone returns the owner of phone. Primary mappings win over
// verified secondary mappings; unverified secondaries never match.
func (s *Service) IdentifyByPhone(ctx context.Context, phone string) (*UserIdentity, bool) {
	ctx, span := tracer.Start(ctx, "identity.identify_by_phone")
	defer span.End()

	normalized := NormalizePhone(phone)
	if normalized == "" {
		span.SetAttributes(attribute.String("identity.result", "malformed"))
		return nil, false
	}

	key := cacheKeyPrefix + normalized
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			span.SetAttributes(attribute.String("identity.result", "cache_hit"))
			identity := cached
			return &identity, true
		}
	}

	matches, err := s.store.LookupPhone(ctx, normalized)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("identity lookup failed", "error", err, "phone", logging.MaskPhone(normalized))
		return nil, false
	}

	identity, ok := selectMatch(normalized, matches)
	if !ok {
		span.SetAttributes(attribute.String("identity.result", "miss"))
		return nil, false
	}
	if s.cache != nil {
		s.cache.Set(key, identity, s.cacheTTL)
	}
	span.SetAttributes(
		attribute.String("identity.result", string(identity.MatchSource)),
		attribute.Int64("identity.user_id", identity.UserID),
	)
	return &identity, true
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Forget drops a cached identification, e.g. after a phone is re-assigned.
func (s *Service) Forget(phone string) bool {
	normalized := NormalizePhone(phone)
	if normalized == "" || s.cache == nil {
		return false
	}
	return s.cache.Delete(cacheKeyPrefix + normalized)
}

func selectMatch(phone string, matches []PhoneMatch) (UserIdentity, bool) {
	for _, m := range matches {
		if m.IsPrimary {
			return toIdentity(phone, m, MatchPrimary), true
		}
	}
	for _, m := range matches {
		if !m.IsPrimary && m.IsVerified {
			return toIdentity(phone, m, MatchSecondary), true
		}
	}
	return UserIdentity{}, false
}

func toIdentity(phone string, m PhoneMatch, source MatchSource) UserIdentity {
	matched := NormalizePhone(m.Phone)
	if matched == "" {
		matched = phone
	}
	return UserIdentity{
		UserID:       m.UserID,
		Email:        m.Email,
		FullName:     m.FullName,
		IsActive:     m.IsActive,
		MatchedPhone: matched,
		MatchSource:  source,
	}
}
