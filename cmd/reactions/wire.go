package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/abelbrown/reactions/internal/article"
	"github.com/abelbrown/reactions/internal/brain"
	"github.com/abelbrown/reactions/internal/cache"
	"github.com/abelbrown/reactions/internal/config"
	"github.com/abelbrown/reactions/internal/curated"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/reactions"
	"github.com/abelbrown/reactions/internal/reddit"
	"github.com/abelbrown/reactions/internal/store"
	"github.com/abelbrown/reactions/internal/twitter"
	"github.com/abelbrown/reactions/internal/websearch"
)

// eventBufferSize is how many recent events /api/events can show.
const eventBufferSize = 1000

// app is the process-wide object graph, built once at startup.
type app struct {
	cfg     *config.Config
	svc     *reactions.Service
	store   *store.Store // nil without a data directory
	events  *otel.Logger
	recent  *otel.RingBuffer
	closers []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build wires providers, cache, store and service from cfg.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	events, err := otel.OpenFile(cfg.EventsDir())
	if err != nil {
		logging.Warn("event log unavailable, discarding events", "error", err)
		events = otel.NewNullLogger()
	}
	a.events = events
	a.recent = otel.NewRingBuffer(eventBufferSize)
	events.SetRingBuffer(a.recent)
	a.closers = append(a.closers, events.Close)

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, func() { st.Close() })

	backend, err := cacheBackend(ctx, cfg, st)
	if err != nil {
		a.Close()
		return nil, err
	}
	if closer, ok := backend.(interface{ Close() error }); ok {
		a.closers = append(a.closers, func() { closer.Close() })
	}
	cacheStore := cache.New(backend, cache.WithEvents(events))

	// Generation: OpenAI, then Gemini, then Claude; Gemini narrates first.
	openaiOpts := brain.OpenAIOptions{APIKey: cfg.Keys.OpenAI, Model: cfg.Models.OpenAI}
	text := brain.NewTextChain(
		brain.NewOpenAIProvider(openaiOpts),
		brain.NewHTTPProvider(brain.GeminiConfig(cfg.Keys.Gemini, cfg.Models.Gemini)),
		brain.NewHTTPProvider(brain.ClaudeConfig(cfg.Keys.Anthropic, cfg.Models.Anthropic)),
	)
	text.SetEvents(events)
	speech := brain.NewSpeechChain(
		brain.NewGeminiSpeaker(cfg.Keys.Gemini, cfg.Models.GeminiTTS),
		brain.NewOpenAISpeaker(openaiOpts),
	)
	speech.SetEvents(events)
	summarizer := brain.NewSummarizer(text)

	web := websearch.New(cfg.Keys.SerpAPI, cfg.Search.WebResults)
	redditSearcher := reddit.NewSearcher(reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.Keys.RedditClientID,
		ClientSecret: cfg.Keys.RedditClientSecret,
		UserAgent:    cfg.Keys.RedditUserAgent,
	}), summarizer)

	var tweets reactions.TweetSearcher
	if cfg.Search.Twitter {
		tweets = twitter.NewSearcher(twitter.New(cfg.Keys.TwitterBearer), cfg.Search.TwitterLimit)
	}

	opts := reactions.OrchestratorOptions{
		Timeout:     cfg.ProviderTimeout(),
		RedditLimit: cfg.Search.RedditLimit,
		Events:      events,
	}
	if cfg.Search.Classify {
		opts.Classifier = brain.NewClassifier(text)
	}
	orch := reactions.NewOrchestrator(web, redditSearcher, tweets, opts)

	a.svc = reactions.NewService(reactions.Deps{
		Orchestrator: orch,
		Cache:        cacheStore,
		Articles:     article.NewFetcher(nil),
		Summarizer:   summarizer,
		Commentator:  brain.NewCommentator(text, speech),
		Feeds:        curated.NewReader(nil),
		SearchLog:    st,
		Events:       events,
	}, reactions.Settings{
		AggregateTTL:  cfg.AggregateTTL(),
		CommentaryTTL: cfg.CommentaryTTL(),
		CuratedTTL:    cfg.CuratedTTL(),
		SweepInterval: cfg.SweepInterval(),
		Authors:       cfg.FollowedAuthors(),
	})

	logging.Info("providers configured",
		"status", cfg.ProviderStatus(),
		"cache", backend.Name(),
		"text", text.Providers(),
		"speech", speech.Providers(),
	)
	events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindStartup, Comp: "main", Msg: version, Extra: map[string]any{"cache": backend.Name()}})
	return a, nil
}

func cacheBackend(ctx context.Context, cfg *config.Config, st *store.Store) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case "sqlite":
		return cache.NewSQLite(st), nil
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		r, err := cache.DialRedis(dialCtx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis cache: %w", err)
		}
		return r, nil
	default:
		return cache.NewMemory(), nil
	}
}
