package twitter

import (
	"context"
	"strings"

	"github.com/abelbrown/reactions/internal/model"
)

// topicExpansions widens known shorthand topics into boolean queries.
var topicExpansions = map[string]string{
	"ai governance": "AI (governance OR regulation OR policy OR safety) -crypto",
}

// ExpandTopic returns the boolean query for a known topic, else q.
func ExpandTopic(q string) string {
	if exp, ok := topicExpansions[strings.ToLower(strings.TrimSpace(q))]; ok {
		return exp
	}
	return q
}

// Searcher adapts a Client to the fan-out: search, then rank.
type Searcher struct {
	client *Client
	limit  int
}

// NewSearcher wraps c. limit <= 0 keeps 10.
func NewSearcher(c *Client, limit int) *Searcher {
	if limit <= 0 {
		limit = 10
	}
	return &Searcher{client: c, limit: limit}
}

func (s *Searcher) Name() string { return providerName }

func (s *Searcher) Available() bool { return s.client != nil && s.client.Available() }

// Search runs the query and returns ranked tweets.
func (s *Searcher) Search(ctx context.Context, q model.Query) ([]model.RankedCandidate, error) {
	// URL search on X matches on the shared link.
	text := `url:"` + model.StripURL(q.URL) + `"`
	if !q.IsURL() {
		text = ExpandTopic(q.Text)
	}
	tweets, err := s.client.Search(ctx, text, s.limit*2)
	if err != nil {
		return nil, err
	}
	return Rank(tweets, s.limit), nil
}
