package reddit

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/provider"
)

const (
	defaultLimit = 5

	// commentsPerPost is how many top-level comments feed a summary.
	commentsPerPost = 3

	// selfTextSummaryMin: longer self-text is summarized directly.
	selfTextSummaryMin = 100

	// commentExcerptLen caps each comment before summarization.
	commentExcerptLen = 200

	// enrichConcurrency bounds parallel comment fetch + summarize.
	enrichConcurrency = 3

	// maxEnrichTime caps summary enrichment when the caller sets no deadline.
	maxEnrichTime = 20 * time.Second

	postSummaryTask    = "Summarize this Reddit post in two sentences. Describe what the poster is saying."
	commentSummaryTask = "Summarize the reaction in these Reddit comments in two sentences. Describe the overall sentiment."
)

// Summarizer turns text into a short summary. Implementations must never
// surface refusals; they return a deterministic fallback instead.
type Summarizer interface {
	Summarize(ctx context.Context, text, task string) string
}

// Searcher is the hybrid Reddit searcher.
type Searcher struct {
	api        API
	summarizer Summarizer // nil disables summary enrichment
}

// NewSearcher creates a Searcher. summarizer may be nil.
func NewSearcher(api API, summarizer Summarizer) *Searcher {
	return &Searcher{api: api, summarizer: summarizer}
}

func (s *Searcher) Name() string { return providerName }

// Available reports whether the underlying API can be called.
func (s *Searcher) Available() bool {
	if a, ok := s.api.(interface{ Available() bool }); ok {
		return a.Available()
	}
	return s.api != nil
}

// Search returns up to limit ranked discussions for q. It never fails:
// any provider error is logged and yields an empty list.
func (s *Searcher) Search(ctx context.Context, q model.Query, articleTitle string, limit int) []model.RankedCandidate {
	if limit <= 0 {
		limit = defaultLimit
	}
	if articleTitle == "" {
		articleTitle = q.Title
	}

	var (
		ranked []model.RankedCandidate
		err    error
	)
	if q.IsURL() {
		ranked, err = s.searchURL(ctx, q, articleTitle, limit)
	} else {
		ranked, err = s.searchText(ctx, q.Text, limit)
	}
	if err != nil {
		logSearchError(q, err)
		return []model.RankedCandidate{}
	}

	if ranked == nil {
		ranked = []model.RankedCandidate{}
	}
	Rank(ranked)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	s.enrich(ctx, ranked)
	return ranked
}

func logSearchError(q model.Query, err error) {
	switch {
	case errors.Is(err, provider.ErrUnavailable), errors.Is(err, provider.ErrTimeout):
		logging.Warn("reddit search skipped", "query", q.Text, "error", err)
	default:
		logging.Error("reddit search failed", "query", q.Text, "error", err)
	}
}

// collector deduplicates permalinks across phases. First phase wins.
type collector struct {
	seen       map[string]bool
	out        []model.RankedCandidate
	selfDomain string
}

func newCollector(selfDomain string) *collector {
	return &collector{seen: make(map[string]bool), selfDomain: selfDomain}
}

func (c *collector) add(p Post, mt model.MatchType, relevance int) {
	if p.NumComments < minComments || p.Permalink == "" {
		return
	}
	key := strings.ToLower(model.StripURL(p.Permalink))
	if c.seen[key] {
		return
	}
	if c.selfDomain != "" && model.Domain(p.Permalink) == c.selfDomain {
		return
	}
	c.seen[key] = true
	c.out = append(c.out, model.RankedCandidate{
		Candidate:      toCandidate(p),
		MatchType:      mt,
		RelevanceScore: relevance,
	})
}

func (s *Searcher) searchURL(ctx context.Context, q model.Query, title string, limit int) ([]model.RankedCandidate, error) {
	stripped := model.StripURL(q.URL)
	col := newCollector(q.Domain)

	// Phase 1: posts linking the exact URL.
	posts, err := s.api.Search(ctx, SearchParams{
		Query:      `url:"` + stripped + `"`,
		Sort:       SortRelevance,
		TimeFilter: TimeAll,
		Limit:      2 * limit,
	})
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		col.add(p, model.MatchURLExact, 0)
	}
	logging.Debug("reddit phase complete", "phase", model.MatchURLExact, "kept", len(col.out))

	// Phase 2: recent topical discussion, gated on key word relevance.
	if len(col.out) < 2*limit && strings.TrimSpace(title) != "" {
		keys := KeyWords(title)
		if len(keys) > 0 {
			posts, err := s.api.Search(ctx, SearchParams{
				Query:      TopicQuery(title),
				Sort:       SortRelevance,
				TimeFilter: TimeMonth,
				Limit:      2 * limit,
			})
			if err != nil {
				return nil, err
			}
			need := requiredMatches(keys)
			for _, p := range posts {
				if n := relevance(p, keys); n >= need {
					col.add(p, model.MatchTopic, n)
				}
			}
			logging.Debug("reddit phase complete", "phase", model.MatchTopic, "kept", len(col.out), "keys", len(keys))
		}
	}

	// Phase 3: the stripped URL as free text.
	if len(col.out) < limit {
		posts, err := s.api.Search(ctx, SearchParams{
			Query:      stripped,
			Sort:       SortRelevance,
			TimeFilter: TimeAll,
			Limit:      2 * limit,
		})
		if err != nil {
			return nil, err
		}
		for _, p := range posts {
			col.add(p, model.MatchURLText, 0)
		}
		logging.Debug("reddit phase complete", "phase", model.MatchURLText, "kept", len(col.out))
	}

	return col.out, nil
}

func (s *Searcher) searchText(ctx context.Context, text string, limit int) ([]model.RankedCandidate, error) {
	posts, err := s.api.Search(ctx, SearchParams{
		Query:      text,
		Sort:       SortRelevance,
		TimeFilter: TimeMonth,
		Limit:      2 * limit,
	})
	if err != nil {
		return nil, err
	}
	col := newCollector("")
	for _, p := range posts {
		col.add(p, model.MatchTopic, 0)
	}
	return col.out, nil
}

// enrich fills summaries within a budget that ends before ctx's deadline.
// Candidates whose summary is not ready when the budget runs out keep an
// empty Summary; abandoned workers finish into a buffered channel.
func (s *Searcher) enrich(ctx context.Context, cands []model.RankedCandidate) {
	if s.summarizer == nil || len(cands) == 0 {
		return
	}
	ectx, cancel := context.WithTimeout(ctx, enrichBudget(ctx))

	type summary struct {
		i    int
		text string
	}
	inputs := make([]model.Candidate, len(cands))
	for i := range cands {
		inputs[i] = cands[i].Candidate
	}
	results := make(chan summary, len(inputs))

	go func() {
		defer cancel()
		defer close(results)
		var g errgroup.Group
		g.SetLimit(enrichConcurrency)
		for i, c := range inputs {
			if ectx.Err() != nil {
				break
			}
			g.Go(func() error {
				if ectx.Err() != nil {
					return nil
				}
				results <- summary{i: i, text: s.summarize(ectx, c)}
				return nil
			})
		}
		_ = g.Wait()
	}()

	for {
		select {
		case r, ok := <-results:
			if !ok {
				return
			}
			cands[r.i].Summary = r.text
		case <-ectx.Done():
			logging.Debug("reddit enrichment cut short", "error", ectx.Err())
			return
		}
	}
}

// enrichBudget leaves a quarter of the remaining deadline for the caller.
func enrichBudget(ctx context.Context) time.Duration {
	budget := maxEnrichTime
	if dl, ok := ctx.Deadline(); ok {
		remaining := time.Until(dl)
		if r := remaining - remaining/4; r < budget {
			budget = r
		}
	}
	return budget
}

func (s *Searcher) summarize(ctx context.Context, c model.Candidate) string {
	if utf8.RuneCountInString(strings.TrimSpace(c.SelfText)) > selfTextSummaryMin {
		return s.summarizer.Summarize(ctx, c.SelfText, postSummaryTask)
	}

	comments, err := s.api.TopComments(ctx, c.ID, commentsPerPost)
	if err != nil {
		logging.Debug("reddit comments unavailable", "post", c.ID, "error", err)
		return ""
	}
	if len(comments) == 0 {
		return ""
	}
	excerpts := make([]string, len(comments))
	for i, body := range comments {
		excerpts[i] = "- " + excerpt(body, commentExcerptLen)
	}
	return s.summarizer.Summarize(ctx, strings.Join(excerpts, "\n"), commentSummaryTask)
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func toCandidate(p Post) model.Candidate {
	return model.Candidate{
		Kind:    model.SourceReddit,
		ID:      p.ID,
		Title:   p.Title,
		URL:     p.Permalink,
		Snippet: excerpt(p.SelfText, commentExcerptLen),
		Engagement: model.Engagement{
			Score:       p.Score,
			NumComments: p.NumComments,
		},
		Author:    p.Author,
		CreatedAt: p.Created,
		Subreddit: p.Subreddit,
		LinkedURL: p.URL,
		SelfText:  p.SelfText,
	}
}
