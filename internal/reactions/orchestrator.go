// Package reactions aggregates how the web, Reddit and X responded to an
// article or topic, and writes commentary about it.
package reactions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reactions/internal/filter"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/otel"
	"github.com/abelbrown/reactions/internal/provider"
)

// DefaultProviderTimeout bounds each provider in a fan-out.
const DefaultProviderTimeout = 30 * time.Second

// WebSearcher finds web coverage for free text.
type WebSearcher interface {
	Name() string
	Available() bool
	Search(ctx context.Context, q string) ([]model.Candidate, error)
}

// RedditSearcher finds ranked Reddit discussions. It absorbs its own errors.
type RedditSearcher interface {
	Name() string
	Available() bool
	Search(ctx context.Context, q model.Query, articleTitle string, limit int) []model.RankedCandidate
}

// TweetSearcher finds ranked posts on X.
type TweetSearcher interface {
	Name() string
	Available() bool
	Search(ctx context.Context, q model.Query) ([]model.RankedCandidate, error)
}

// Classifier labels web candidates. Failures leave them unlabeled.
type Classifier interface {
	Classify(ctx context.Context, web []model.Candidate) []model.Candidate
}

// OrchestratorOptions tune a fan-out.
type OrchestratorOptions struct {
	Timeout     time.Duration // per provider, default 30s
	RedditLimit int           // default 5
	Classifier  Classifier    // nil disables classification
	Events      *otel.Logger
}

// Orchestrator runs the search providers concurrently, each under its own
// deadline, and filters the merged output.
type Orchestrator struct {
	web     WebSearcher
	reddit  RedditSearcher
	twitter TweetSearcher
	opts    OrchestratorOptions
	skipped sync.Map // provider name -> struct{}, for log-once
}

// NewOrchestrator wires providers. Any of them may be nil.
func NewOrchestrator(web WebSearcher, reddit RedditSearcher, twitter TweetSearcher, opts OrchestratorOptions) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProviderTimeout
	}
	if opts.RedditLimit <= 0 {
		opts.RedditLimit = 5
	}
	return &Orchestrator{web: web, reddit: reddit, twitter: twitter, opts: opts}
}

// Fanout is the filtered output of one fan-out.
type Fanout struct {
	Web       []model.Candidate
	Reddit    []model.RankedCandidate
	Twitter   []model.RankedCandidate
	Responded []string // providers that finished without error
}

// Providers reports whether each configured provider is available.
func (o *Orchestrator) Providers() map[string]bool {
	out := make(map[string]bool, 3)
	if o.web != nil {
		out[o.web.Name()] = o.web.Available()
	}
	if o.reddit != nil {
		out[o.reddit.Name()] = o.reddit.Available()
	}
	if o.twitter != nil {
		out[o.twitter.Name()] = o.twitter.Available()
	}
	return out
}

// Run dispatches every provider and waits until each has returned or hit
// its deadline. It never fails: a provider that errors or times out
// contributes an empty list.
func (o *Orchestrator) Run(ctx context.Context, rid string, q model.Query, articleTitle string) Fanout {
	var (
		webRes    provider.Result[[]model.Candidate]
		redditRes provider.Result[[]model.RankedCandidate]
		tweetRes  provider.Result[[]model.RankedCandidate]
	)

	// one worker per provider; none of them fail the group
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(3)

	if o.web != nil {
		g.Go(func() error {
			webRes = runProvider(gctx, o, rid, o.web.Name(), o.web.Available(), func(ctx context.Context) ([]model.Candidate, error) {
				return o.web.Search(ctx, q.SearchText())
			})
			return nil
		})
	}
	if o.reddit != nil {
		g.Go(func() error {
			redditRes = runProvider(gctx, o, rid, o.reddit.Name(), o.reddit.Available(), func(ctx context.Context) ([]model.RankedCandidate, error) {
				return o.reddit.Search(ctx, q, articleTitle, o.opts.RedditLimit), nil
			})
			return nil
		})
	}
	if o.twitter != nil {
		g.Go(func() error {
			tweetRes = runProvider(gctx, o, rid, o.twitter.Name(), o.twitter.Available(), func(ctx context.Context) ([]model.RankedCandidate, error) {
				return o.twitter.Search(ctx, q)
			})
			return nil
		})
	}
	_ = g.Wait()

	out := Fanout{
		Web:    orEmpty(webRes.OrEmpty()),
		Reddit: orEmpty(redditRes.OrEmpty()),
	}
	if o.twitter != nil {
		out.Twitter = orEmpty(tweetRes.OrEmpty())
	}
	for _, r := range []struct {
		name string
		err  error
	}{{webRes.Provider, webRes.Err}, {redditRes.Provider, redditRes.Err}, {tweetRes.Provider, tweetRes.Err}} {
		if r.name != "" && r.err == nil {
			out.Responded = append(out.Responded, r.name)
		}
	}

	before := len(out.Web)
	out.Web = filter.Apply(q, out.Web, out.Reddit)
	if o.opts.Classifier != nil && len(out.Web) > 0 {
		out.Web = o.opts.Classifier.Classify(ctx, out.Web)
	}
	logging.Debug("fan-out filtered", "rid", rid, "web_before", before, "web_after", len(out.Web))
	return out
}

// runProvider calls fn under the per-provider deadline. If fn overruns, its
// result is abandoned and the worker returns without waiting for it.
func runProvider[T any](ctx context.Context, o *Orchestrator, rid, name string, available bool, fn func(context.Context) (T, error)) provider.Result[T] {
	res := provider.Result[T]{Provider: name}
	if !available {
		if _, seen := o.skipped.LoadOrStore(name, struct{}{}); !seen {
			logging.Warn("provider not configured, skipping", "provider", name)
		}
		res.Err = provider.Unavailable(name, "not configured")
		o.opts.Events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindProviderSkipped, Comp: "reactions", RequestID: rid, Source: name})
		return res
	}

	pctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	type outcome struct {
		v   T
		err error
	}
	// buffered so an abandoned call can still deliver and exit
	ch := make(chan outcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- outcome{err: provider.Failed(name, 0, fmt.Errorf("panic: %v", r))}
			}
		}()
		v, err := fn(pctx)
		ch <- outcome{v, err}
	}()

	select {
	case r := <-ch:
		res.Value, res.Err = r.v, r.err
	case <-pctx.Done():
		res.Err = provider.Classify(name, pctx.Err())
	}
	dur := time.Since(start)

	ev := otel.Event{Comp: "reactions", RequestID: rid, Source: name, Dur: dur}
	switch {
	case res.Err == nil:
		ev.Level, ev.Kind, ev.Count = otel.LevelInfo, otel.KindProviderComplete, countOf(res.Value)
		logging.Debug("provider complete", "rid", rid, "provider", name, "count", ev.Count, "duration", dur)
	case errors.Is(res.Err, provider.ErrTimeout):
		ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindProviderTimeout, res.Err.Error()
		logging.Warn("provider timed out", "rid", rid, "provider", name, "timeout", o.opts.Timeout)
	default:
		ev.Level, ev.Kind, ev.Err = otel.LevelWarn, otel.KindProviderError, res.Err.Error()
		logging.Warn("provider failed", "rid", rid, "provider", name, "error", res.Err)
	}
	o.opts.Events.Emit(ev)
	return res
}

func countOf(v any) int {
	switch s := v.(type) {
	case []model.Candidate:
		return len(s)
	case []model.RankedCandidate:
		return len(s)
	}
	return 0
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
