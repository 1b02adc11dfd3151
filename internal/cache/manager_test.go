package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestSetThenGet(t *testing.T) {
	clock := newFakeClock()
	m := New[string](WithClock(clock.Now))

	require.True(t, m.Set("k", "v", time.Minute))
	got, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	clock.Advance(time.Minute)
	_, ok = m.Get("k")
	assert.False(t, ok, "entry must be invisible once ttl has elapsed")
	assert.Equal(t, 0, m.Stats().TotalKeys, "expired entry is removed lazily by Get")
}

func TestSetRejectsEmptyKey(t *testing.T) {
	m := New[int]()
	assert.False(t, m.Set("", 1, time.Minute))
	assert.Equal(t, 0, m.Stats().TotalKeys)

	// Only the empty string is invalid; whitespace is an ordinary key.
	assert.True(t, m.Set(" ", 2, time.Minute))
	v, ok := m.Get(" ")
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = m.Update("", time.Minute, func(int, bool) int { return 1 })
	assert.False(t, ok)
}

func TestDeletePrefix(t *testing.T) {
	m := New[int]()
	m.SetDefault("ratelimit:+15550001111", 1)
	m.SetDefault("ratelimit:+15550002222", 2)
	m.SetDefault("identity:+15550001111", 3)

	assert.Equal(t, 0, m.DeletePrefix(""))
	assert.Equal(t, 2, m.DeletePrefix("ratelimit:"))
	assert.Equal(t, 1, m.Stats().TotalKeys)
	_, ok := m.Get("identity:+15550001111")
	assert.True(t, ok)
}

func TestNonPositiveTTLIsStoredButExpired(t *testing.T) {
	m := New[int]()
	assert.True(t, m.Set("zero", 1, 0))
	assert.True(t, m.Set("neg", 1, -time.Second))

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalKeys)
	assert.Equal(t, 2, stats.ExpiredKeys)

	_, ok := m.Get("zero")
	assert.False(t, ok)
}

func TestDeleteAndClear(t *testing.T) {
	m := New[int]()
	m.Set("a", 1, time.Minute)
	m.Set("b", 2, time.Minute)

	assert.True(t, m.Delete("a"))
	assert.False(t, m.Delete("a"))
	assert.False(t, m.Delete("missing"))

	assert.True(t, m.Clear())
	_, ok := m.Get("b")
	assert.False(t, ok)
}

func TestStatsAndSweep(t *testing.T) {
	clock := newFakeClock()
	m := New[int](WithClock(clock.Now), WithDefaultTTL(time.Minute))
	m.SetDefault("short", 1)
	m.Set("long", 2, time.Hour)

	clock.Advance(2 * time.Minute)
	stats := m.Stats()
	assert.Equal(t, Stats{TotalKeys: 2, ActiveKeys: 1, ExpiredKeys: 1, DefaultTTL: time.Minute}, stats)

	assert.Equal(t, 1, m.Sweep())
	assert.Equal(t, 1, m.Stats().TotalKeys)
}

func TestUpdateKeepsWindowExpiry(t *testing.T) {
	clock := newFakeClock()
	m := New[int](WithClock(clock.Now))
	incr := func(old int, ok bool) int {
		if !ok {
			return 1
		}
		return old + 1
	}

	v, _ := m.Update("ctr", time.Minute, incr)
	assert.Equal(t, 1, v)
	clock.Advance(30 * time.Second)
	v, _ = m.Update("ctr", time.Minute, incr)
	assert.Equal(t, 2, v)

	clock.Advance(30 * time.Second)
	v, _ = m.Update("ctr", time.Minute, incr)
	assert.Equal(t, 1, v, "window started at first increment and has closed")
}

func TestUpdateRefreshExtendsExpiry(t *testing.T) {
	clock := newFakeClock()
	m := New[string](WithClock(clock.Now))
	keep := func(old string, ok bool) string { return "x" }

	m.UpdateRefresh("k", time.Minute, keep)
	clock.Advance(50 * time.Second)
	m.UpdateRefresh("k", time.Minute, keep)
	clock.Advance(50 * time.Second)

	_, ok := m.Get("k")
	assert.True(t, ok)
}

func TestUpdateRejectsEmptyKey(t *testing.T) {
	m := New[int]()
	_, ok := m.Update("", time.Minute, func(int, bool) int { return 1 })
	assert.False(t, ok)
}

func TestConcurrentUpdatesAreNotLost(t *testing.T) {
	m := New[int]()
	const workers = 64
	const perWorker = 250

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				m.Update("shared", time.Hour, func(old int, ok bool) int { return old + 1 })
			}
		}()
	}
	wg.Wait()

	got, ok := m.Get("shared")
	require.True(t, ok)
	assert.Equal(t, workers*perWorker, got)
}

func TestConcurrentSetGetDelete(t *testing.T) {
	m := New[string]()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%17)
				m.Set(key, fmt.Sprintf("w%d", i), time.Minute)
				m.Get(key)
				if j%5 == 0 {
					m.Delete(key)
				}
				m.Stats()
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, m.Stats().TotalKeys, 17)
}

func TestJanitorSweepsAllManagers(t *testing.T) {
	clock := newFakeClock()
	a := New[int](WithClock(clock.Now))
	b := New[string](WithClock(clock.Now))
	a.Set("x", 1, time.Second)
	b.Set("y", "z", time.Second)
	b.Set("keep", "z", time.Hour)
	clock.Advance(time.Minute)

	j, err := NewJanitor("@every 1m", map[string]Sweeper{"a": a, "b": b}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, j.SweepAll())
	assert.Equal(t, 1, b.Stats().TotalKeys)
}

func TestJanitorScheduledJobSweeps(t *testing.T) {
	clock := newFakeClock()
	m := New[int](WithClock(clock.Now))
	m.Set("old", 1, time.Second)
	clock.Advance(time.Minute)

	j, err := NewJanitor("@every 1m", map[string]Sweeper{"m": m}, nil)
	require.NoError(t, err)

	entries := j.cron.Entries()
	require.Len(t, entries, 1)
	entries[0].Job.Run()
	assert.Equal(t, 0, m.Stats().TotalKeys)
}

func TestJanitorRejectsBadSchedule(t *testing.T) {
	_, err := NewJanitor("not a schedule", nil, nil)
	assert.Error(t, err)
}
