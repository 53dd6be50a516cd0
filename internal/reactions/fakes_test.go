package reactions

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abelbrown/reactions/internal/article"
	"github.com/abelbrown/reactions/internal/brain"
	"github.com/abelbrown/reactions/internal/cache"
	"github.com/abelbrown/reactions/internal/curated"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/store"
)

type fakeWeb struct {
	results []model.Candidate
	err     error
	delay   time.Duration
	block   chan struct{} // when set, Search ignores ctx and waits for close
	panics  bool
	off     bool

	calls atomic.Int32
	mu    sync.Mutex
	last  string
}

func (f *fakeWeb) Name() string    { return "serpapi" }
func (f *fakeWeb) Available() bool { return !f.off }

func (f *fakeWeb) Search(ctx context.Context, q string) ([]model.Candidate, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = q
	f.mu.Unlock()
	if f.panics {
		panic("boom")
	}
	if f.block != nil {
		<-f.block
	}
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.results, f.err
}

func (f *fakeWeb) lastQuery() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type fakeReddit struct {
	results []model.RankedCandidate

	calls atomic.Int32
	mu    sync.Mutex
	title string
}

func (f *fakeReddit) Name() string    { return "reddit" }
func (f *fakeReddit) Available() bool { return true }

func (f *fakeReddit) Search(_ context.Context, _ model.Query, articleTitle string, limit int) []model.RankedCandidate {
	f.calls.Add(1)
	f.mu.Lock()
	f.title = articleTitle
	f.mu.Unlock()
	if len(f.results) > limit {
		return f.results[:limit]
	}
	return f.results
}

func (f *fakeReddit) articleTitle() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.title
}

type fakeTweets struct {
	results []model.RankedCandidate
	err     error
	calls   atomic.Int32
}

func (f *fakeTweets) Name() string    { return "twitter" }
func (f *fakeTweets) Available() bool { return true }

func (f *fakeTweets) Search(context.Context, model.Query) ([]model.RankedCandidate, error) {
	f.calls.Add(1)
	return f.results, f.err
}

type fakeArticles struct {
	page  article.Page
	err   error
	calls atomic.Int32
}

func (f *fakeArticles) Fetch(_ context.Context, rawURL string) (article.Page, error) {
	f.calls.Add(1)
	p := f.page
	p.URL = rawURL
	return p, f.err
}

type fakeSummarizer struct{ calls atomic.Int32 }

func (f *fakeSummarizer) Summarize(_ context.Context, text, _ string) string {
	f.calls.Add(1)
	return "summary of " + text
}

type fakeCommentator struct {
	text  brain.Outcome[brain.Response]
	audio brain.Outcome[brain.Audio]

	writes  atomic.Int32
	narrate atomic.Int32
}

func (f *fakeCommentator) Write(context.Context, model.Article, []model.Candidate, []model.RankedCandidate) brain.Outcome[brain.Response] {
	f.writes.Add(1)
	return f.text
}

func (f *fakeCommentator) Narrate(context.Context, string) brain.Outcome[brain.Audio] {
	f.narrate.Add(1)
	return f.audio
}

type fakeFeeds struct{ calls atomic.Int32 }

func (f *fakeFeeds) Latest(_ context.Context, authors []curated.Author) []model.CuratedAuthor {
	f.calls.Add(1)
	out := make([]model.CuratedAuthor, len(authors))
	for i, a := range authors {
		out[i] = model.CuratedAuthor{Name: a.Name, FeedURL: a.FeedURL, LatestTitle: "latest from " + a.Name}
	}
	return out
}

type fakeSearchLog struct {
	mu      sync.Mutex
	records []store.SearchRecord
	err     error
}

func (f *fakeSearchLog) LogSearch(_ context.Context, rec store.SearchRecord, _ []store.ResultRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.records = append(f.records, rec)
	return int64(len(f.records)), nil
}

func (f *fakeSearchLog) all() []store.SearchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.SearchRecord(nil), f.records...)
}

var errBoom = errors.New("boom")

func webHits(urls ...string) []model.Candidate {
	out := make([]model.Candidate, len(urls))
	for i, u := range urls {
		out[i] = model.Candidate{Kind: model.SourceWeb, Title: "Web " + u, URL: u, Source: "Example"}
	}
	return out
}

func redditHits(permalinks ...string) []model.RankedCandidate {
	out := make([]model.RankedCandidate, len(permalinks))
	for i, p := range permalinks {
		out[i] = model.RankedCandidate{
			Candidate: model.Candidate{
				Kind:       model.SourceReddit,
				Title:      "Thread " + p,
				URL:        p,
				Subreddit:  "news",
				Engagement: model.Engagement{Score: 10, NumComments: 5},
			},
			MatchType:       model.MatchTopic,
			EngagementScore: 20,
		}
	}
	return out
}

func newTestService(web *fakeWeb, rd *fakeReddit, d Deps) *Service {
	var ws WebSearcher
	if web != nil {
		ws = web
	}
	var rs RedditSearcher
	if rd != nil {
		rs = rd
	}
	if d.Orchestrator == nil {
		d.Orchestrator = NewOrchestrator(ws, rs, nil, OrchestratorOptions{Timeout: time.Second})
	}
	if d.Cache == nil {
		d.Cache = cache.New(cache.NewMemory())
	}
	return NewService(d, Settings{})
}
