// Package ratelimit gates request admission with a sliding window per
// client identifier.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/envrelay/envrelay/internal/log"
)

const (
	// DefaultWindow is the default sliding window length.
	DefaultWindow = 60 * time.Second
	// DefaultMaxRequests is the default number of admitted requests per
	// window per client.
	DefaultMaxRequests = 30
)

// Store keeps per-client request timestamps. Implementations must be safe
// for concurrent use. The interface is explicit so the in-memory store can
// be swapped for a shared one without touching the limiter's logic.
type Store interface {
	// Prune drops timestamps older than the cutoff for a key and returns
	// how many remain.
	Prune(ctx context.Context, key string, cutoff time.Time) (remaining int, err error)
	// Append records a request timestamp for a key.
	Append(ctx context.Context, key string, ts time.Time) error
}

// MemoryStore is an in-memory Store implementation. State lives for the
// server's lifetime and is not persisted.
type MemoryStore struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{hits: map[string][]time.Time{}}
}

// Prune drops timestamps older than the cutoff for a key.
func (s *MemoryStore) Prune(ctx context.Context, key string, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.hits[key][:0]
	for _, ts := range s.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	s.hits[key] = kept

	return len(kept), nil
}

// Append records a request timestamp for a key.
func (s *MemoryStore) Append(ctx context.Context, key string, ts time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hits[key] = append(s.hits[key], ts)
	return nil
}

// LimiterConfig is the configuration for the limiter.
type LimiterConfig struct {
	Window      time.Duration
	MaxRequests int
	Store       Store
	Logger      log.Logger
}

func (c *LimiterConfig) defaults() error {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRequests <= 0 {
		c.MaxRequests = DefaultMaxRequests
	}
	if c.Store == nil {
		c.Store = NewMemoryStore()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "ratelimit.Limiter"})
	return nil
}

// Limiter admits or rejects requests per client identifier using a sliding
// window. Rejection is terminal, there is no queuing or backoff.
type Limiter struct {
	window      time.Duration
	maxRequests int
	store       Store
	logger      log.Logger
}

// NewLimiter creates a new limiter.
func NewLimiter(cfg LimiterConfig) (*Limiter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Limiter{
		window:      cfg.Window,
		maxRequests: cfg.MaxRequests,
		store:       cfg.Store,
		logger:      cfg.Logger,
	}, nil
}

// Admit prunes the client's window and admits (and records) the request if
// the pruned count is below the maximum.
func (l *Limiter) Admit(ctx context.Context, clientID string) (bool, error) {
	now := time.Now()

	remaining, err := l.store.Prune(ctx, clientID, now.Add(-l.window))
	if err != nil {
		return false, fmt.Errorf("could not prune rate limit window: %w", err)
	}

	if remaining >= l.maxRequests {
		l.logger.Debugf("Rejected request from %q: %d requests in window", clientID, remaining)
		return false, nil
	}

	if err := l.store.Append(ctx, clientID, now); err != nil {
		return false, fmt.Errorf("could not record request: %w", err)
	}

	return true, nil
}
