package cache

import (
	"context"
	"sync"
	"time"

	"github.com/abelbrown/reactions/internal/store"
)

// Backend persists raw cache entries. Implementations must be safe for
// concurrent use. Get may return expired entries; Store evicts them.
type Backend interface {
	Get(ctx context.Context, key string) (value []byte, expires time.Time, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, expires time.Time) error
	Delete(ctx context.Context, key string) error
	// Evict removes key only if it is still expired at now. A concurrent
	// Set with a later expiry must survive.
	Evict(ctx context.Context, key string, now time.Time) error
	// Sweep removes entries expired at now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
	Len(ctx context.Context) (int, error)
	Name() string
}

type memEntry struct {
	value   []byte
	expires time.Time
}

// Memory keeps entries in process.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

// NewMemory creates an empty in-process backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memEntry)}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Get(_ context.Context, key string) ([]byte, time.Time, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, time.Time{}, false, nil
	}
	return e.value, e.expires, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, expires time.Time) error {
	cp := append([]byte(nil), value...)
	m.mu.Lock()
	m.entries[key] = memEntry{value: cp, expires: expires}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Evict(_ context.Context, key string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[key]; ok && !now.Before(e.expires) {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory) Sweep(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// SQLite persists entries in the cache_entries table.
type SQLite struct {
	st *store.Store
}

// NewSQLite wraps an open store.
func NewSQLite(st *store.Store) *SQLite { return &SQLite{st: st} }

func (s *SQLite) Name() string { return "sqlite" }

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	return s.st.GetEntry(ctx, key)
}

func (s *SQLite) Set(ctx context.Context, key string, value []byte, expires time.Time) error {
	return s.st.PutEntry(ctx, key, value, expires)
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	return s.st.DeleteEntry(ctx, key)
}

func (s *SQLite) Evict(ctx context.Context, key string, now time.Time) error {
	_, err := s.st.DeleteIfExpired(ctx, key, now)
	return err
}

func (s *SQLite) Sweep(ctx context.Context, now time.Time) (int, error) {
	return s.st.DeleteExpired(ctx, now)
}

func (s *SQLite) Len(ctx context.Context) (int, error) {
	return s.st.EntryCount(ctx)
}
