// Package cache is the request-level cache: entries with a time-to-live,
// at most one concurrent computation per key, and a fresh copy on every read.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/otel"
)

// ErrMiss is returned by Peek when no live entry exists.
var ErrMiss = errors.New("cache miss")

// Store wraps a Backend with singleflight computation and lazy expiry.
type Store struct {
	backend Backend
	group   singleflight.Group
	now     func() time.Time
	events  *otel.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithEvents records hits, misses and sweeps.
func WithEvents(l *otel.Logger) Option {
	return func(s *Store) { s.events = l }
}

// New creates a Store over b.
func New(b Backend, opts ...Option) *Store {
	s := &Store{backend: b, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Backend returns the underlying backend name.
func (s *Store) Backend() string { return s.backend.Name() }

// lookup returns a live entry. Expired entries are deleted on read; backend
// errors count as misses.
func (s *Store) lookup(ctx context.Context, key string) ([]byte, bool) {
	value, expires, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		logging.Warn("cache read failed", "backend", s.backend.Name(), "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if now := s.now(); !now.Before(expires) {
		if err := s.backend.Evict(ctx, key, now); err != nil {
			logging.Warn("cache evict failed", "backend", s.backend.Name(), "key", key, "error", err)
		}
		return nil, false
	}
	return value, true
}

type flight struct {
	data []byte
	hit  bool
}

// GetOrCompute returns the cached value for key, or runs compute once across
// all concurrent callers and caches the result for ttl. hit is true when
// this caller did not run compute itself. Compute errors are not cached.
func GetOrCompute[V any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, bool, error) {
	return GetOrComputeIf(ctx, s, key, ttl, compute, nil)
}

// GetOrComputeIf is GetOrCompute with a keep predicate: a computed value is
// returned but only stored when keep is nil or reports true.
func GetOrComputeIf[V any](ctx context.Context, s *Store, key string, ttl time.Duration, compute func(context.Context) (V, error), keep func(V) bool) (V, bool, error) {
	var zero V

	if data, ok := s.lookup(ctx, key); ok {
		v, err := decode[V](data)
		if err == nil {
			s.emit(otel.KindCacheHit, key)
			return v, true, nil
		}
		logging.Warn("cache entry undecodable, recomputing", "key", key, "error", err)
	}

	ran := false
	res, err, _ := s.group.Do(key, func() (any, error) {
		ran = true
		// A flight that finished between our lookup and Do already stored it.
		if data, ok := s.lookup(ctx, key); ok {
			if _, err := decode[V](data); err == nil {
				return flight{data: data, hit: true}, nil
			}
		}

		s.emit(otel.KindCacheMiss, key)
		// The computation outlives a cancelled leader so waiters still get it.
		v, err := compute(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode cache value: %w", err)
		}
		if keep == nil || keep(v) {
			if err := s.backend.Set(ctx, key, data, s.now().Add(ttl)); err != nil {
				logging.Warn("cache write failed", "backend", s.backend.Name(), "key", key, "error", err)
			}
		}
		return flight{data: data}, nil
	})
	if err != nil {
		return zero, false, err
	}

	f := res.(flight)
	v, err := decode[V](f.data)
	if err != nil {
		return zero, false, err
	}
	hit := f.hit || !ran
	if hit {
		s.emit(otel.KindCacheHit, key)
	}
	return v, hit, nil
}

// Peek returns the live value for key without computing. ErrMiss when absent.
func Peek[V any](ctx context.Context, s *Store, key string) (V, error) {
	var zero V
	data, ok := s.lookup(ctx, key)
	if !ok {
		return zero, ErrMiss
	}
	return decode[V](data)
}

// Put stores v under key for ttl.
func Put[V any](ctx context.Context, s *Store, key string, v V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}
	return s.backend.Set(ctx, key, data, s.now().Add(ttl))
}

// Invalidate removes key and forgets any in-flight computation so the next
// caller recomputes.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	s.group.Forget(key)
	if err := s.backend.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate %s: %w", key, err)
	}
	s.emit(otel.KindCacheInvalidate, key)
	return nil
}

// Sweep removes every expired entry.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	n, err := s.backend.Sweep(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep %s cache: %w", s.backend.Name(), err)
	}
	if n > 0 {
		logging.Info("cache sweep", "backend", s.backend.Name(), "removed", n)
	}
	s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindCacheSweep, Comp: "cache", Count: n})
	return n, nil
}

// Len reports the number of stored entries, including not yet swept ones.
func (s *Store) Len(ctx context.Context) (int, error) {
	return s.backend.Len(ctx)
}

func (s *Store) emit(kind otel.EventKind, key string) {
	s.events.Emit(otel.Event{Level: otel.LevelDebug, Kind: kind, Comp: "cache", Key: key})
}

func decode[V any](data []byte) (V, error) {
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode cache value: %w", err)
	}
	return v, nil
}
