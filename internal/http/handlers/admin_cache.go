package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/sms-router/internal/http/middleware"
	"github.com/wolfman30/sms-router/internal/identity"
	"github.com/wolfman30/sms-router/pkg/logging"
)

// IdentityForgetter drops one cached identity.
type IdentityForgetter interface {
	Forget(phone string) bool
}

// SenderResetter forgets one sender's rate-limit counter.
type SenderResetter interface {
	Reset(ctx context.Context, phone string) error
}

// Clearer empties a cache or counter store.
type Clearer interface {
	Clear(ctx context.Context) error
}

// ClearFunc adapts a function to Clearer.
type ClearFunc func(ctx context.Context) error

// Clear implements Clearer.
func (f ClearFunc) Clear(ctx context.Context) error { return f(ctx) }

// LocalCache adapts an in-process cache.Manager to Clearer.
func LocalCache(c interface{ Clear() bool }) Clearer {
	return ClearFunc(func(context.Context) error {
		c.Clear()
		return nil
	})
}

// AdminCacheHandler lets operators evict cached identities, e.g. right after
// a number was re-assigned, and unblock throttled senders.
type AdminCacheHandler struct {
	identities IdentityForgetter
	senders    SenderResetter
	caches     map[string]Clearer
	logger     *logging.Logger
}

// NewAdminCacheHandler creates the admin cache handler. senders may be nil
// when sender limiting is off.
func NewAdminCacheHandler(identities IdentityForgetter, senders SenderResetter, caches map[string]Clearer, logger *logging.Logger) *AdminCacheHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminCacheHandler{identities: identities, senders: senders, caches: caches, logger: logger}
}

// ForgetIdentity handles DELETE /admin/identities/{phone}.
func (h *AdminCacheHandler) ForgetIdentity(w http.ResponseWriter, r *http.Request) {
	if h.identities == nil {
		http.Error(w, "identity service not configured", http.StatusServiceUnavailable)
		return
	}
	phone := identity.NormalizePhone(chi.URLParam(r, "phone"))
	if phone == "" {
		http.Error(w, "invalid phone", http.StatusBadRequest)
		return
	}
	removed := h.identities.Forget(phone)
	h.logger.Info("admin: identity forgotten", "operator", operator(r), "phone", logging.MaskPhone(phone), "removed", removed)
	writeJSON(w, http.StatusOK, map[string]any{"phone": phone, "removed": removed})
}

// ResetSender handles DELETE /admin/ratelimit/{phone}.
func (h *AdminCacheHandler) ResetSender(w http.ResponseWriter, r *http.Request) {
	if h.senders == nil {
		http.Error(w, "sender rate limiting disabled", http.StatusNotFound)
		return
	}
	phone := identity.NormalizePhone(chi.URLParam(r, "phone"))
	if phone == "" {
		http.Error(w, "invalid phone", http.StatusBadRequest)
		return
	}
	if err := h.senders.Reset(r.Context(), phone); err != nil {
		h.logger.Error("admin: sender reset failed", "operator", operator(r), "phone", logging.MaskPhone(phone), "error", err)
		http.Error(w, "reset failed", http.StatusBadGateway)
		return
	}
	h.logger.Info("admin: sender reset", "operator", operator(r), "phone", logging.MaskPhone(phone))
	writeJSON(w, http.StatusOK, map[string]any{"phone": phone, "reset": true})
}

// FlushCache handles POST /admin/caches/{name}/flush.
func (h *AdminCacheHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(chi.URLParam(r, "name"))
	c, ok := h.caches[name]
	if !ok || c == nil {
		http.Error(w, "unknown cache", http.StatusNotFound)
		return
	}
	if err := c.Clear(r.Context()); err != nil {
		h.logger.Error("admin: cache flush failed", "operator", operator(r), "cache", name, "error", err)
		http.Error(w, "flush failed", http.StatusBadGateway)
		return
	}
	h.logger.Info("admin: cache flushed", "operator", operator(r), "cache", name)
	writeJSON(w, http.StatusOK, map[string]any{"cache": name, "flushed": true})
}

// operator is the admin token subject, empty when the route is unauthenticated.
func operator(r *http.Request) string {
	claims, ok := middleware.AdminClaimsFromContext(r.Context())
	if !ok {
		return ""
	}
	return claims.Subject
}
