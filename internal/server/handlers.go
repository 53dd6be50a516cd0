package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/reactions/internal/cache"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/reactions"
	"github.com/abelbrown/reactions/internal/store"
)

type aggregateRequest struct {
	Query     string `json:"query"`
	SkipCache bool   `json:"skip_cache"`
}

// Health reports liveness plus provider and cache status.
func (h *Handler) Health(c *gin.Context) {
	st := h.svc.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"providers":     st.Providers,
		"cache_backend": st.CacheBackend,
		"cache_entries": st.CacheEntries,
	})
}

// Aggregate runs or serves a cached aggregation.
func (h *Handler) Aggregate(c *gin.Context) {
	var req aggregateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.Aggregate(c.Request.Context(), req.Query, req.SkipCache)
	if err != nil {
		if errors.Is(err, model.ErrEmptyQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Error("aggregate failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "aggregation failed"})
		return
	}
	c.JSON(http.StatusOK, res)
}

// CheckCache returns the cached aggregation for ?query= or 404.
func (h *Handler) CheckCache(c *gin.Context) {
	res, err := h.svc.CheckCache(c.Request.Context(), c.Query("query"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, model.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, cache.ErrMiss):
		c.JSON(http.StatusNotFound, gin.H{"error": "not cached"})
	default:
		logging.Error("cache check failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache check failed"})
	}
}

// ClearCache drops the cached aggregation for ?query=.
func (h *Handler) ClearCache(c *gin.Context) {
	err := h.svc.ClearCache(c.Request.Context(), c.Query("query"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, model.ErrEmptyQuery):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logging.Error("cache clear failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache clear failed"})
	}
}

// Commentary writes commentary for an article and its reactions.
func (h *Handler) Commentary(c *gin.Context) {
	var req reactions.CommentaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	res, err := h.svc.GenerateCommentary(c.Request.Context(), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, reactions.ErrNoArticle):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, reactions.ErrCommentaryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		logging.Error("commentary failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "commentary failed"})
	}
}

// Curated lists followed authors with their latest posts.
func (h *Handler) Curated(c *gin.Context) {
	authors, err := h.svc.CuratedFeeds(c.Request.Context())
	if err != nil {
		logging.Error("curated feeds failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "curated feeds failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authors": authors})
}

// Events returns recent pipeline events, optionally filtered by ?kind= prefix.
func (h *Handler) Events(c *gin.Context) {
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event buffer not configured"})
		return
	}
	n := intQuery(c, "n", 100)
	c.JSON(http.StatusOK, gin.H{
		"events": h.events.Recent(n, strings.TrimSpace(c.Query("kind"))),
		"stats":  h.events.Stats(),
	})
}

type searchDTO struct {
	ID           int64     `json:"id"`
	RequestID    string    `json:"request_id"`
	Query        string    `json:"query"`
	SearchType   string    `json:"search_type"`
	CreatedAt    time.Time `json:"created_at"`
	ResultsCount int       `json:"results_count"`
	ProcessingMs int64     `json:"processing_ms"`
	CacheHit     bool      `json:"cache_hit"`
	Providers    []string  `json:"providers"`
}

type resultDTO struct {
	ResultType string `json:"result_type"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Snippet    string `json:"snippet,omitempty"`
	Source     string `json:"source,omitempty"`
	Category   string `json:"category,omitempty"`
	MatchType  string `json:"match_type,omitempty"`
	Score      int    `json:"score,omitempty"`
}

// Searches lists recent searches (?limit=, ?type=url|topic) and 24h stats.
func (h *Handler) Searches(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search log not configured"})
		return
	}
	ctx := c.Request.Context()
	recs, err := h.history.RecentSearches(ctx, intQuery(c, "limit", 20), c.Query("type"))
	if err != nil {
		logging.Error("recent searches failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search log unavailable"})
		return
	}
	stats, err := h.history.Stats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		logging.Warn("search stats failed", "error", err)
	}

	out := make([]searchDTO, 0, len(recs))
	for _, r := range recs {
		out = append(out, toSearchDTO(r))
	}
	c.JSON(http.StatusOK, gin.H{
		"searches": out,
		"stats": gin.H{
			"total_searches": stats.TotalSearches,
			"unique_queries": stats.UniqueQueries,
			"avg_results":    stats.AvgResults,
			"cache_hit_rate": stats.CacheHitRate,
		},
	})
}

// SearchResults lists the logged results of one search.
func (h *Handler) SearchResults(c *gin.Context) {
	if h.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "search log not configured"})
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid search id"})
		return
	}
	rows, err := h.history.SearchResults(c.Request.Context(), id)
	if err != nil {
		logging.Error("search results failed", "id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search log unavailable"})
		return
	}
	out := make([]resultDTO, 0, len(rows))
	for _, r := range rows {
		out = append(out, resultDTO(r))
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func toSearchDTO(r store.SearchRecord) searchDTO {
	providers := r.Providers
	if providers == nil {
		providers = []string{}
	}
	return searchDTO{
		ID:           r.ID,
		RequestID:    r.RequestID,
		Query:        r.Query,
		SearchType:   r.SearchType,
		CreatedAt:    r.CreatedAt,
		ResultsCount: r.ResultsCount,
		ProcessingMs: r.Processing.Milliseconds(),
		CacheHit:     r.CacheHit,
		Providers:    providers,
	}
}

func intQuery(c *gin.Context, key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
