// Package twitter searches recent posts on X/Twitter and ranks them by
// engagement.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/provider"
)

const (
	providerName    = "twitter"
	defaultEndpoint = "https://api.twitter.com/2/tweets/search/recent"
	queryFilters    = " -is:retweet -is:reply lang:en"
	minResults      = 10
	maxResults      = 100
)

// Client calls the v2 recent search endpoint with an app bearer token.
type Client struct {
	bearer   string
	endpoint string
	caller   *httpclient.Caller
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the search URL (tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.caller.Client = hc }
}

// New creates a client. Rate limits on this API are tight, so 429 is not retried.
func New(bearer string, opts ...Option) *Client {
	c := &Client{
		bearer:   bearer,
		endpoint: defaultEndpoint,
		caller:   httpclient.NewCaller(providerName, httpclient.Default(), time.Second, 1),
	}
	c.caller.Backoffs = nil
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return providerName }

func (c *Client) Available() bool { return c.bearer != "" }

type searchResponse struct {
	Data []struct {
		ID            string    `json:"id"`
		Text          string    `json:"text"`
		AuthorID      string    `json:"author_id"`
		CreatedAt     time.Time `json:"created_at"`
		PublicMetrics struct {
			Likes    int `json:"like_count"`
			Retweets int `json:"retweet_count"`
			Replies  int `json:"reply_count"`
			Quotes   int `json:"quote_count"`
		} `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Users []struct {
			ID              string `json:"id"`
			Name            string `json:"name"`
			Username        string `json:"username"`
			Verified        bool   `json:"verified"`
			ProfileImageURL string `json:"profile_image_url"`
		} `json:"users"`
	} `json:"includes"`
}

// BuildQuery appends the retweet/reply/language filters unless the caller
// already supplied them.
func BuildQuery(q string) string {
	q = strings.TrimSpace(q)
	if strings.Contains(q, "-is:retweet") {
		return q
	}
	return q + queryFilters
}

func clamp(n int) int {
	if n < minResults {
		return minResults
	}
	if n > maxResults {
		return maxResults
	}
	return n
}

// Search fetches recent tweets for q. n is clamped to [10, 100].
func (c *Client) Search(ctx context.Context, q string, n int) ([]model.Candidate, error) {
	if !c.Available() {
		return nil, provider.Unavailable(providerName, "TWITTER_BEARER_TOKEN not set")
	}
	if strings.TrimSpace(q) == "" {
		return []model.Candidate{}, nil
	}

	v := url.Values{}
	v.Set("query", BuildQuery(q))
	v.Set("max_results", strconv.Itoa(clamp(n)))
	v.Set("tweet.fields", "created_at,public_metrics,author_id")
	v.Set("expansions", "author_id")
	v.Set("user.fields", "name,username,verified,profile_image_url")
	endpoint := c.endpoint + "?" + v.Encode()

	body, err := c.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.bearer)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Failed(providerName, 0, fmt.Errorf("decode response: %w", err))
	}

	type user struct {
		name, username, image string
		verified              bool
	}
	users := make(map[string]user, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = user{name: u.Name, username: u.Username, image: u.ProfileImageURL, verified: u.Verified}
	}

	out := make([]model.Candidate, 0, len(resp.Data))
	for _, t := range resp.Data {
		u := users[t.AuthorID]
		username := u.username
		if username == "" {
			username = "i"
		}
		out = append(out, model.Candidate{
			Kind:    model.SourceTwitter,
			ID:      t.ID,
			Title:   firstLine(t.Text, 120),
			URL:     fmt.Sprintf("https://twitter.com/%s/status/%s", username, t.ID),
			Snippet: t.Text,
			Engagement: model.Engagement{
				Likes:    t.PublicMetrics.Likes,
				Retweets: t.PublicMetrics.Retweets,
				Replies:  t.PublicMetrics.Replies,
				Quotes:   t.PublicMetrics.Quotes,
			},
			Author:         username,
			CreatedAt:      t.CreatedAt,
			AuthorName:     u.name,
			AuthorVerified: u.verified,
			AuthorImage:    u.image,
		})
	}

	logging.Debug("twitter search complete", "query", q, "results", len(out))
	return out, nil
}

func firstLine(s string, n int) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// Engagement is likes + 2×retweets + replies.
func Engagement(c model.Candidate) int {
	return c.Engagement.Likes + 2*c.Engagement.Retweets + c.Engagement.Replies
}

// Rank scores tweets by engagement, sorts descending and keeps limit.
// Tweets carry match type topic since they come from a text search.
func Rank(tweets []model.Candidate, limit int) []model.RankedCandidate {
	out := make([]model.RankedCandidate, 0, len(tweets))
	for _, t := range tweets {
		out = append(out, model.RankedCandidate{
			Candidate:       t,
			MatchType:       model.MatchTopic,
			EngagementScore: Engagement(t),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EngagementScore > out[j].EngagementScore
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
