package reactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/reactions/internal/article"
	"github.com/abelbrown/reactions/internal/brain"
	"github.com/abelbrown/reactions/internal/cache"
	"github.com/abelbrown/reactions/internal/curated"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/store"
)

// ErrEmptyQuery is the only error Aggregate returns.
var ErrEmptyQuery = model.ErrEmptyQuery

var (
	// ErrNoArticle means a commentary request had neither URL nor title.
	ErrNoArticle = errors.New("article url or title is required")
	// ErrCommentaryUnavailable means every text provider failed outright.
	ErrCommentaryUnavailable = errors.New("commentary unavailable")
)

const (
	curatedKey = "curated:authors"

	noSummary = "Summary not available for this article."
)

// ArticleFetcher looks up article identity for URL queries.
type ArticleFetcher interface {
	Fetch(ctx context.Context, rawURL string) (article.Page, error)
}

// Summarizer condenses text. It never fails; it falls back to truncation.
type Summarizer interface {
	Summarize(ctx context.Context, text, task string) string
}

// Commentator writes and narrates commentary.
type Commentator interface {
	Write(ctx context.Context, a model.Article, web []model.Candidate, reddit []model.RankedCandidate) brain.Outcome[brain.Response]
	Narrate(ctx context.Context, text string) brain.Outcome[brain.Audio]
}

// FeedReader fetches curated author feeds.
type FeedReader interface {
	Latest(ctx context.Context, authors []curated.Author) []model.CuratedAuthor
}

// SearchLog records computed aggregations.
type SearchLog interface {
	LogSearch(ctx context.Context, rec store.SearchRecord, results []store.ResultRecord) (int64, error)
}

// Settings are the service tunables.
type Settings struct {
	AggregateTTL  time.Duration // default 24h
	CommentaryTTL time.Duration // default 72h
	CuratedTTL    time.Duration // default 72h
	SweepInterval time.Duration // default 15m
	Authors       []curated.Author
}

func (s Settings) withDefaults() Settings {
	if s.AggregateTTL <= 0 {
		s.AggregateTTL = 24 * time.Hour
	}
	if s.CommentaryTTL <= 0 {
		s.CommentaryTTL = 72 * time.Hour
	}
	if s.CuratedTTL <= 0 {
		s.CuratedTTL = 72 * time.Hour
	}
	if s.SweepInterval <= 0 {
		s.SweepInterval = 15 * time.Minute
	}
	return s
}

// Deps are the collaborators a Service is built from. Only Orchestrator and
// Cache are required.
type Deps struct {
	Orchestrator *Orchestrator
	Cache        *cache.Store
	Articles     ArticleFetcher
	Summarizer   Summarizer
	Commentator  Commentator
	Feeds        FeedReader
	SearchLog    SearchLog
	Events       *otel.Logger
}

// Service is the inbound contract: aggregation, commentary and cache control.
// It is constructed once at startup and safe for concurrent use.
type Service struct {
	Deps
	settings Settings
	now      func() time.Time
}

// NewService wires a Service.
func NewService(d Deps, s Settings) *Service {
	return &Service{Deps: d, settings: s.withDefaults(), now: time.Now}
}

// Settings returns the effective tunables.
func (s *Service) Settings() Settings { return s.settings }

// Aggregate returns reactions to raw, computing them at most once per TTL.
// Provider failures only shrink the result; ErrEmptyQuery is the only error.
func (s *Service) Aggregate(ctx context.Context, raw string, skipCache bool) (model.AggregationResult, error) {
	q, err := model.ParseQuery(raw)
	if err != nil {
		return model.AggregationResult{}, err
	}
	rid := uuid.NewString()
	key := q.Key()
	start := time.Now()

	if skipCache {
		if err := s.Cache.Invalidate(ctx, key); err != nil {
			logging.Warn("cache bypass failed", "rid", rid, "key", key, "error", err)
		}
	}
	s.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindAggregateStart, Comp: "reactions", RequestID: rid, Query: q.Text})

	var responded []string
	compute := func(ctx context.Context) (model.AggregationResult, error) {
		res, names := s.compute(ctx, rid, q)
		responded = names
		return res, nil
	}
	res, hit, err := cache.GetOrCompute(ctx, s.Cache, key, s.settings.AggregateTTL, compute)
	if err != nil {
		// compute never fails, so this is an encoding problem; serve uncached
		logging.Error("aggregation cache failed", "rid", rid, "key", key, "error", err)
		res, responded = s.compute(ctx, rid, q)
	}
	dur := time.Since(start)

	count := len(res.Web) + len(res.Reddit) + len(res.Twitter)
	s.Events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindAggregateComplete, Comp: "reactions",
		RequestID: rid, Query: q.Text, Dur: dur, Count: count,
		Extra: map[string]any{"cache_hit": hit},
	})
	logging.Info("aggregation complete", "rid", rid, "query", q.Text, "results", count, "cache_hit", hit, "duration", dur)

	s.logSearch(ctx, rid, q, res, dur, hit, responded)
	return res.Clone(), nil
}

func (s *Service) compute(ctx context.Context, rid string, q model.Query) (model.AggregationResult, []string) {
	var (
		art   *model.Article
		title string
	)
	if q.IsURL() {
		a := s.lookupArticle(ctx, rid, q)
		if a.FetchError == "" && a.Title != "" {
			title = a.Title
			q = q.WithTitle(title)
		}
		art = &a
	}

	fan := s.Orchestrator.Run(ctx, rid, q, title)
	return model.AggregationResult{
		Query:      q,
		Article:    art,
		Web:        fan.Web,
		Reddit:     fan.Reddit,
		Twitter:    fan.Twitter,
		ComputedAt: s.now(),
	}, fan.Responded
}

// lookupArticle fetches identity and a short summary for a URL query.
func (s *Service) lookupArticle(ctx context.Context, rid string, q model.Query) model.Article {
	if s.Articles == nil {
		return model.Article{
			URL:    q.URL,
			Title:  "Article from " + q.Domain,
			Source: article.SourceName(q.URL),
			Domain: q.Domain,
		}
	}
	page, err := s.Articles.Fetch(ctx, q.URL)
	if err != nil {
		logging.Warn("article fetch failed", "rid", rid, "url", q.URL, "error", err)
	}
	a := page.Article
	switch {
	case page.Content != "" && s.Summarizer != nil:
		a.Summary = s.Summarizer.Summarize(ctx, page.Content, brain.ArticleSummaryTask)
	case a.FetchError != "":
		a.Summary = a.FetchError
	default:
		a.Summary = noSummary
	}
	return a
}

func (s *Service) logSearch(ctx context.Context, rid string, q model.Query, res model.AggregationResult, dur time.Duration, hit bool, providers []string) {
	if s.SearchLog == nil {
		return
	}
	searchType := "topic"
	if q.IsURL() {
		searchType = "url"
	}
	var rows []store.ResultRecord
	for _, c := range res.Web {
		rows = append(rows, store.ResultRecord{ResultType: string(c.Kind), Title: c.Title, URL: c.URL, Snippet: c.Snippet, Source: c.Source, Category: c.Category})
	}
	for _, group := range [][]model.RankedCandidate{res.Reddit, res.Twitter} {
		for _, c := range group {
			rows = append(rows, store.ResultRecord{
				ResultType: string(c.Kind), Title: c.Title, URL: c.URL, Snippet: c.Snippet,
				Source: c.Subreddit, MatchType: string(c.MatchType), Score: c.EngagementScore,
			})
		}
	}
	rec := store.SearchRecord{
		RequestID:    rid,
		Query:        q.Text,
		SearchType:   searchType,
		ResultsCount: len(rows),
		Processing:   dur,
		CacheHit:     hit,
		Providers:    providers,
	}
	// the search log is best effort
	if _, err := s.SearchLog.LogSearch(context.WithoutCancel(ctx), rec, rows); err != nil {
		logging.Warn("search log write failed", "rid", rid, "error", err)
		s.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindStoreError, Comp: "reactions", RequestID: rid, Err: err.Error()})
	}
}

// CommentaryRequest is the input to GenerateCommentary.
type CommentaryRequest struct {
	Article model.Article           `json:"article"`
	Web     []model.Candidate       `json:"web"`
	Reddit  []model.RankedCandidate `json:"reddit"`
}

// GenerateCommentary writes and narrates commentary for an article, cached by
// the article's URL or title. Refusals yield deterministic fallback text
// that is returned but not cached; a failed narration leaves AudioError set.
func (s *Service) GenerateCommentary(ctx context.Context, req CommentaryRequest) (model.CommentaryResult, error) {
	a := req.Article
	if strings.TrimSpace(a.URL) == "" && strings.TrimSpace(a.Title) == "" {
		return model.CommentaryResult{}, ErrNoArticle
	}
	if s.Commentator == nil {
		return model.CommentaryResult{}, fmt.Errorf("%w: no commentator configured", ErrCommentaryUnavailable)
	}
	key := a.CommentaryKey()

	compute := func(ctx context.Context) (model.CommentaryResult, error) {
		return s.writeCommentary(ctx, key, req)
	}
	complete := func(r model.CommentaryResult) bool {
		return !r.Fallback && r.AudioError == ""
	}
	res, _, err := cache.GetOrComputeIf(ctx, s.Cache, key, s.settings.CommentaryTTL, compute, complete)
	if err != nil {
		return model.CommentaryResult{}, err
	}
	return res, nil
}

func (s *Service) writeCommentary(ctx context.Context, key string, req CommentaryRequest) (model.CommentaryResult, error) {
	res := model.CommentaryResult{SourceCacheKey: key}

	out := s.Commentator.Write(ctx, req.Article, req.Web, req.Reddit)
	switch {
	case out.OK():
		res.Text = strings.TrimSpace(out.Value.Content)
		res.Provider = out.Provider
	case out.Refused():
		src := req.Article.Summary
		if strings.TrimSpace(src) == "" {
			src = req.Article.Title
		}
		res.Text = brain.Fallback(src)
		res.Fallback = true
		logging.Warn("commentary refused, using fallback", "key", key)
	default:
		return res, fmt.Errorf("%w: %s", ErrCommentaryUnavailable, out.Reason)
	}

	audio := s.Commentator.Narrate(ctx, res.Text)
	if audio.OK() {
		res.Audio = audio.Value.Data
		res.MimeType = audio.Value.MimeType
		res.AudioProvider = audio.Provider
	} else {
		res.AudioError = audio.Reason
		s.Events.Emit(otel.Event{Level: otel.LevelWarn, Kind: otel.KindAudioFailed, Comp: "reactions", Key: key, Err: audio.Reason})
		logging.Warn("commentary narration failed", "key", key, "reason", audio.Reason)
	}
	s.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindGenComplete, Comp: "reactions", Key: key, Source: res.Provider})
	return res, nil
}

// ClearCache drops the cached aggregation for raw. The commentary cache is
// left alone.
func (s *Service) ClearCache(ctx context.Context, raw string) error {
	q, err := model.ParseQuery(raw)
	if err != nil {
		return err
	}
	return s.Cache.Invalidate(ctx, q.Key())
}

// CheckCache returns the cached aggregation for raw, or cache.ErrMiss.
func (s *Service) CheckCache(ctx context.Context, raw string) (model.AggregationResult, error) {
	q, err := model.ParseQuery(raw)
	if err != nil {
		return model.AggregationResult{}, err
	}
	res, err := cache.Peek[model.AggregationResult](ctx, s.Cache, q.Key())
	if err != nil {
		return model.AggregationResult{}, err
	}
	return res.Clone(), nil
}

// CuratedFeeds returns the configured authors with their latest posts.
func (s *Service) CuratedFeeds(ctx context.Context) ([]model.CuratedAuthor, error) {
	if s.Feeds == nil || len(s.settings.Authors) == 0 {
		return []model.CuratedAuthor{}, nil
	}
	authors, _, err := cache.GetOrCompute(ctx, s.Cache, curatedKey, s.settings.CuratedTTL,
		func(ctx context.Context) ([]model.CuratedAuthor, error) {
			return s.Feeds.Latest(ctx, s.settings.Authors), nil
		})
	if err != nil {
		return nil, err
	}
	return authors, nil
}

// RefreshCurated fetches the curated feeds and overwrites the cached entry,
// so readers keep hitting a warm cache across TTL boundaries.
func (s *Service) RefreshCurated(ctx context.Context) error {
	if s.Feeds == nil || len(s.settings.Authors) == 0 {
		return nil
	}
	authors := s.Feeds.Latest(ctx, s.settings.Authors)
	return cache.Put(ctx, s.Cache, curatedKey, authors, s.settings.CuratedTTL)
}

// Sweep removes expired cache entries.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	return s.Cache.Sweep(ctx)
}

// Status describes the running service.
type Status struct {
	Providers    map[string]bool `json:"providers"`
	CacheBackend string          `json:"cache_backend"`
	CacheEntries int             `json:"cache_entries"`
}

// Status reports provider availability and cache size.
func (s *Service) Status(ctx context.Context) Status {
	st := Status{Providers: s.Orchestrator.Providers(), CacheBackend: s.Cache.Backend()}
	if n, err := s.Cache.Len(ctx); err == nil {
		st.CacheEntries = n
	}
	return st
}
