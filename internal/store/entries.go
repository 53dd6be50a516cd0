package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetEntry returns the stored value for key and its expiry. ok is false when
// the key is absent. Expired rows are returned as-is; the caller decides.
func (s *Store) GetEntry(ctx context.Context, key string) (value []byte, expires time.Time, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var exp int64
	err = s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &exp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("get entry: %w", err)
	}
	return value, time.Unix(0, exp), true, nil
}

// PutEntry stores value under key, replacing any previous entry.
func (s *Store) PutEntry(ctx context.Context, key string, value []byte, expires time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		key, value, expires.UnixNano(), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

// DeleteEntry removes key. Deleting a missing key is not an error.
func (s *Store) DeleteEntry(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// DeleteIfExpired removes key only when its stored expiry is at or before
// now, so an entry rewritten since it was read survives. Reports whether a
// row was removed.
func (s *Store) DeleteIfExpired(ctx context.Context, key string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE key = ? AND expires_at <= ?`, key, now.UnixNano())
	if err != nil {
		return false, fmt.Errorf("delete expired entry: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteExpired removes entries whose expiry is at or before now and returns
// how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// EntryCount returns the number of stored entries, expired or not.
func (s *Store) EntryCount(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}
