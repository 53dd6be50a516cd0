package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// SearchRecord is one logged aggregation request.
type SearchRecord struct {
	ID           int64
	RequestID    string
	Query        string
	SearchType   string // "url" or "topic"
	CreatedAt    time.Time
	ResultsCount int
	Processing   time.Duration
	CacheHit     bool
	Providers    []string // providers that returned results
}

// ResultRecord is one logged result row.
type ResultRecord struct {
	ResultType string // "web", "reddit", "twitter"
	Title      string
	URL        string
	Snippet    string
	Source     string
	Category   string
	MatchType  string
	Score      int
}

// SearchStats summarizes the search log over a window.
type SearchStats struct {
	TotalSearches int
	UniqueQueries int
	AvgResults    float64
	CacheHitRate  float64
}

// LogSearch stores a search and its results in one transaction and returns
// the new search ID. Result positions are 1-based in slice order.
func (s *Store) LogSearch(ctx context.Context, rec SearchRecord, results []ResultRecord) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO searches (request_id, query, search_type, created_at, results_count, processing_ms, cache_hit, providers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RequestID, rec.Query, rec.SearchType, rec.CreatedAt.UTC(), rec.ResultsCount,
		float64(rec.Processing)/float64(time.Millisecond), boolToInt(rec.CacheHit), strings.Join(rec.Providers, ","))
	if err != nil {
		return 0, fmt.Errorf("insert search: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("search id: %w", err)
	}

	if len(results) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO search_results (search_id, result_type, position, title, url, snippet, source, category, match_type, score)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return 0, fmt.Errorf("prepare result insert: %w", err)
		}
		defer stmt.Close()

		for i, r := range results {
			if _, err := stmt.ExecContext(ctx, id, r.ResultType, i+1, r.Title, r.URL, r.Snippet, r.Source, r.Category, r.MatchType, r.Score); err != nil {
				return 0, fmt.Errorf("insert result: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// RecentSearches returns up to limit searches, newest first. searchType
// filters when non-empty.
func (s *Store) RecentSearches(ctx context.Context, limit int, searchType string) ([]SearchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, request_id, query, search_type, created_at, results_count, processing_ms, cache_hit, providers
		FROM searches`
	args := []any{}
	if searchType != "" {
		query += ` WHERE search_type = ?`
		args = append(args, searchType)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query searches: %w", err)
	}
	defer rows.Close()

	records := []SearchRecord{}
	for rows.Next() {
		var (
			r         SearchRecord
			ms        float64
			hit       int
			providers string
		)
		if err := rows.Scan(&r.ID, &r.RequestID, &r.Query, &r.SearchType, &r.CreatedAt, &r.ResultsCount, &ms, &hit, &providers); err != nil {
			return nil, fmt.Errorf("scan search: %w", err)
		}
		r.Processing = time.Duration(ms * float64(time.Millisecond))
		r.CacheHit = hit == 1
		if providers != "" {
			r.Providers = strings.Split(providers, ",")
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SearchResults returns the logged results of one search in position order.
func (s *Store) SearchResults(ctx context.Context, searchID int64) ([]ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT result_type, title, url, snippet, source, category, match_type, score
		FROM search_results WHERE search_id = ? ORDER BY position`, searchID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ResultRecord{}
	for rows.Next() {
		var r ResultRecord
		if err := rows.Scan(&r.ResultType, &r.Title, &r.URL, &r.Snippet, &r.Source, &r.Category, &r.MatchType, &r.Score); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Stats summarizes searches created at or after since.
func (s *Store) Stats(ctx context.Context, since time.Time) (SearchStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st SearchStats
	var avg, hitRate *float64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT lower(query)), AVG(results_count), AVG(cache_hit)
		FROM searches WHERE created_at >= ?`, since.UTC(),
	).Scan(&st.TotalSearches, &st.UniqueQueries, &avg, &hitRate)
	if err != nil {
		return SearchStats{}, fmt.Errorf("search stats: %w", err)
	}
	if avg != nil {
		st.AvgResults = *avg
	}
	if hitRate != nil {
		st.CacheHitRate = *hitRate
	}
	return st, nil
}
