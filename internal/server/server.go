// Package server is the HTTP adapter over the reactions service.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/reactions"
	"github.com/abelbrown/reactions/internal/store"
)

// Service is the inbound contract the handlers call.
type Service interface {
	Aggregate(ctx context.Context, raw string, skipCache bool) (model.AggregationResult, error)
	GenerateCommentary(ctx context.Context, req reactions.CommentaryRequest) (model.CommentaryResult, error)
	ClearCache(ctx context.Context, raw string) error
	CheckCache(ctx context.Context, raw string) (model.AggregationResult, error)
	CuratedFeeds(ctx context.Context) ([]model.CuratedAuthor, error)
	Status(ctx context.Context) reactions.Status
}

// History reads the search log. Optional.
type History interface {
	RecentSearches(ctx context.Context, limit int, searchType string) ([]store.SearchRecord, error)
	SearchResults(ctx context.Context, searchID int64) ([]store.ResultRecord, error)
	Stats(ctx context.Context, since time.Time) (store.SearchStats, error)
}

// Handler serves the JSON API.
type Handler struct {
	svc     Service
	history History
	events  *otel.RingBuffer
}

// NewHandler creates a Handler. history and events may be nil.
func NewHandler(svc Service, history History, events *otel.RingBuffer) *Handler {
	return &Handler{svc: svc, history: history, events: events}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/reactions", h.Aggregate)
		api.GET("/cache", h.CheckCache)
		api.DELETE("/cache", h.ClearCache)
		api.POST("/commentary", h.Commentary)
		api.GET("/curated", h.Curated)
		api.GET("/events", h.Events)
		api.GET("/searches", h.Searches)
		api.GET("/searches/:id", h.SearchResults)
	}
	return router
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Run serves handler on addr until ctx is cancelled, then shuts down
// gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Info("http server stopped")
	return nil
}
