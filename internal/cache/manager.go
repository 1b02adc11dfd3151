// Package cache provides the process-wide TTL store shared by identification
// memoization and webhook rate limiting.
package cache

import (
	"strings"
	"sync"
	"time"
)

// DefaultTTL is used by SetDefault when the manager was built without one.
const DefaultTTL = 5 * time.Minute

// Entry is a cached value and the instant it stops being visible.
type Entry[V any] struct {
	Value     V
	ExpiresAt time.Time
}

func (e Entry[V]) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats is a point-in-time view of the cache contents.
type Stats struct {
	TotalKeys   int           `json:"total_keys"`
	ActiveKeys  int           `json:"active_keys"`
	ExpiredKeys int           `json:"expired_keys"`
	DefaultTTL  time.Duration `json:"default_ttl"`
}

// Option configures a Manager.
type Option func(*options)

type options struct {
	defaultTTL time.Duration
	now        func() time.Time
}

// WithDefaultTTL sets the TTL used by SetDefault.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.defaultTTL = ttl
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Manager is a concurrency-safe TTL map. Expired entries are invisible to
// readers and removed lazily on access or by Sweep.
type Manager[V any] struct {
	mu         sync.RWMutex
	entries    map[string]Entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// New builds an empty Manager.
func New[V any](opts ...Option) *Manager[V] {
	o := options{defaultTTL: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Manager[V]{
		entries:    make(map[string]Entry[V]),
		defaultTTL: o.defaultTTL,
		now:        o.now,
	}
}

// Set stores value under key for ttl. An empty key is rejected. A zero or
// negative ttl is stored but already expired.
func (m *Manager[V]) Set(key string, value V, ttl time.Duration) bool {
	if key == "" {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = Entry[V]{Value: value, ExpiresAt: m.now().Add(ttl)}
	return true
}

// SetDefault stores value with the manager's default TTL.
func (m *Manager[V]) SetDefault(key string, value V) bool {
	return m.Set(key, value, m.defaultTTL)
}

// Get returns the live value for key.
func (m *Manager[V]) Get(key string) (V, bool) {
	var zero V
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !entry.expired(m.now()) {
		return entry.Value, true
	}

	m.mu.Lock()
	// Re-check: a concurrent Set may have refreshed the key.
	if current, ok := m.entries[key]; ok && current.expired(m.now()) {
		delete(m.entries, key)
	}
	m.mu.Unlock()
	return zero, false
}

// Update applies fn to the current value atomically and stores the result.
// fn sees ok=false when the key is absent or expired. A new entry expires
// after ttl; a live entry keeps its original expiry (fixed-window counters).
func (m *Manager[V]) Update(key string, ttl time.Duration, fn func(old V, ok bool) V) (V, bool) {
	return m.update(key, ttl, false, fn)
}

// UpdateRefresh is Update that always resets the expiry to now+ttl.
func (m *Manager[V]) UpdateRefresh(key string, ttl time.Duration, fn func(old V, ok bool) V) (V, bool) {
	return m.update(key, ttl, true, fn)
}

func (m *Manager[V]) update(key string, ttl time.Duration, refresh bool, fn func(old V, ok bool) V) (V, bool) {
	var zero V
	if key == "" || fn == nil {
		return zero, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.entries[key]
	live := ok && !entry.expired(now)
	if !live {
		entry = Entry[V]{}
	}
	next := fn(entry.Value, live)
	expiresAt := entry.ExpiresAt
	if !live || refresh {
		expiresAt = now.Add(ttl)
	}
	m.entries[key] = Entry[V]{Value: next, ExpiresAt: expiresAt}
	return next, true
}

// Delete removes key. It reports whether a live entry was removed.
func (m *Manager[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return false
	}
	delete(m.entries, key)
	return !entry.expired(m.now())
}

// Clear drops every entry.
func (m *Manager[V]) Clear() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]Entry[V])
	return true
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// how many were removed. An empty prefix removes nothing.
func (m *Manager[V]) DeletePrefix(prefix string) int {
	if prefix == "" {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep evicts expired entries and returns how many were removed.
func (m *Manager[V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	removed := 0
	for key, entry := range m.entries {
		if entry.expired(now) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Stats counts live and expired-but-unswept entries.
func (m *Manager[V]) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := m.now()
	stats := Stats{TotalKeys: len(m.entries), DefaultTTL: m.defaultTTL}
	for _, entry := range m.entries {
		if entry.expired(now) {
			stats.ExpiredKeys++
		} else {
			stats.ActiveKeys++
		}
	}
	return stats
}

// Sweeper is implemented by every Manager regardless of value type, so
// schedulers can hold managers of different types in one list.
type Sweeper interface {
	Sweep() int
	Stats() Stats
}
