package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Memory is an in-process limiter. Each client gets a token bucket of maxFails
// failures refilled over window; an empty bucket blocks the client for blockFor.
// Idle clients are evicted by the cache.
type Memory struct {
	mu       sync.Mutex
	clients  *cache.Cache
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

type clientState struct {
	bucket       *rate.Limiter
	blockedUntil time.Time
}

// NewMemory constructs an in-memory limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	if maxFails < 1 {
		maxFails = 1
	}
	ttl := window + blockFor
	return &Memory{
		clients:  cache.New(ttl, ttl),
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
	}
}

func (m *Memory) key(client string) string { return string(HashIP(client)) }

// Allow reports whether the client may attempt a login now.
func (m *Memory) Allow(_ context.Context, client string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.clients.Get(m.key(client))
	if !ok {
		return true, 0, nil
	}
	if left := v.(*clientState).blockedUntil.Sub(m.now()); left > 0 {
		return false, left, nil
	}
	return true, 0, nil
}

// Success forgets the client's failures.
func (m *Memory) Success(_ context.Context, client string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients.Delete(m.key(client))
	return nil
}

// Failure consumes one token and blocks the client when the bucket is empty.
func (m *Memory) Failure(_ context.Context, client string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := m.key(client)
	var st *clientState
	if v, ok := m.clients.Get(k); ok {
		st = v.(*clientState)
	} else {
		every := m.window / time.Duration(m.maxFails)
		// The last token is the one that blocks, so the bucket holds maxFails-1.
		st = &clientState{bucket: rate.NewLimiter(rate.Every(every), m.maxFails-1)}
	}
	now := m.now()
	blocked := !st.bucket.AllowN(now, 1)
	if blocked {
		st.blockedUntil = now.Add(m.blockFor)
	}
	m.clients.Set(k, st, cache.DefaultExpiration)
	if blocked {
		return true, m.blockFor, nil
	}
	return false, 0, nil
}
