// Package reddit finds Reddit discussions about a query: a read-only OAuth
// client plus the hybrid exact-URL / topic / free-text searcher.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/provider"
)

const (
	providerName     = "reddit"
	defaultAPIBase   = "https://oauth.reddit.com"
	defaultTokenURL  = "https://www.reddit.com/api/v1/access_token"
	defaultUserAgent = "reactions/1.0 (read-only reaction search)"
	permalinkBase    = "https://reddit.com"
)

// Post is a submission as returned by the listing API.
type Post struct {
	ID          string
	Title       string
	SelfText    string
	URL         string // linked URL, or the post itself for self posts
	Permalink   string // absolute https://reddit.com/... form
	Subreddit   string
	Author      string
	Score       int
	NumComments int
	Created     time.Time
}

// Sort and time filter values accepted by the search endpoint.
const (
	SortRelevance = "relevance"
	TimeAll       = "all"
	TimeMonth     = "month"
)

// SearchParams is one listing search across all subreddits.
type SearchParams struct {
	Query      string
	Sort       string
	TimeFilter string
	Limit      int
}

// API is the subset of Reddit the searcher depends on.
type API interface {
	Search(ctx context.Context, p SearchParams) ([]Post, error)
	TopComments(ctx context.Context, postID string, limit int) ([]string, error)
}

// Credentials for Reddit's application-only OAuth flow.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// Client talks to the Reddit OAuth API.
type Client struct {
	creds   Credentials
	apiBase string
	caller  *httpclient.Caller
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	apiBase  string
	tokenURL string
	base     *http.Client
	backoffs []time.Duration
}

// WithEndpoints overrides the API and token URLs (tests).
func WithEndpoints(apiBase, tokenURL string) Option {
	return func(o *clientOptions) {
		o.apiBase = apiBase
		o.tokenURL = tokenURL
	}
}

// WithHTTPClient sets the client used for both token and API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.base = hc }
}

// WithBackoffs overrides the retry schedule.
func WithBackoffs(b []time.Duration) Option {
	return func(o *clientOptions) { o.backoffs = b }
}

// NewClient builds a client. Tokens are fetched lazily and reused until expiry.
func NewClient(creds Credentials, opts ...Option) *Client {
	o := clientOptions{
		apiBase:  defaultAPIBase,
		tokenURL: defaultTokenURL,
		base:     httpclient.Default(),
		backoffs: httpclient.DefaultBackoffs,
	}
	for _, fn := range opts {
		fn(&o)
	}
	if creds.UserAgent == "" {
		creds.UserAgent = defaultUserAgent
	}

	// Reddit rejects requests without a descriptive User-Agent, token calls included.
	uaClient := &http.Client{
		Transport: &userAgentTransport{ua: creds.UserAgent, base: transportOf(o.base)},
		Timeout:   o.base.Timeout,
	}

	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     o.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, uaClient)
	authed := cc.Client(tokenCtx)

	caller := httpclient.NewCaller(providerName, authed, 600*time.Millisecond, 5)
	caller.Backoffs = o.backoffs

	return &Client{
		creds:   creds,
		apiBase: strings.TrimRight(o.apiBase, "/"),
		caller:  caller,
	}
}

func transportOf(hc *http.Client) http.RoundTripper {
	if hc != nil && hc.Transport != nil {
		return hc.Transport
	}
	return httpclient.Transport()
}

type userAgentTransport struct {
	ua   string
	base http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.base.RoundTrip(r)
}

func (c *Client) Name() string { return providerName }

// Available reports whether OAuth credentials are configured.
func (c *Client) Available() bool {
	return c.creds.ClientID != "" && c.creds.ClientSecret != ""
}

type listing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Subreddit   string  `json:"subreddit"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
}

type commentData struct {
	Body     string `json:"body"`
	Author   string `json:"author"`
	Stickied bool   `json:"stickied"`
}

// Search runs a site-wide listing search.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]Post, error) {
	if !c.Available() {
		return nil, provider.Unavailable(providerName, "REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET not set")
	}
	if p.Sort == "" {
		p.Sort = SortRelevance
	}
	if p.TimeFilter == "" {
		p.TimeFilter = TimeAll
	}
	if p.Limit <= 0 {
		p.Limit = 10
	}

	v := url.Values{}
	v.Set("q", p.Query)
	v.Set("sort", p.Sort)
	v.Set("t", p.TimeFilter)
	v.Set("limit", strconv.Itoa(p.Limit))
	v.Set("type", "link")
	v.Set("raw_json", "1")
	endpoint := c.apiBase + "/r/all/search?" + v.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, provider.Failed(providerName, 0, fmt.Errorf("decode search: %w", err))
	}

	posts := make([]Post, 0, len(l.Data.Children))
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var d postData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			continue
		}
		posts = append(posts, d.toPost())
	}
	return posts, nil
}

// TopComments returns up to limit top-level comment bodies, best-sorted.
// Deleted, removed and stickied (moderator) comments are skipped.
func (c *Client) TopComments(ctx context.Context, postID string, limit int) ([]string, error) {
	if !c.Available() {
		return nil, provider.Unavailable(providerName, "REDDIT_CLIENT_ID/REDDIT_CLIENT_SECRET not set")
	}
	if limit <= 0 {
		limit = 3
	}

	v := url.Values{}
	v.Set("sort", "best")
	v.Set("limit", strconv.Itoa(limit*2))
	v.Set("depth", "1")
	v.Set("raw_json", "1")
	endpoint := c.apiBase + "/comments/" + url.PathEscape(postID) + "?" + v.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	// The response is [post listing, comment listing].
	var listings []listing
	if err := json.Unmarshal(body, &listings); err != nil {
		return nil, provider.Failed(providerName, 0, fmt.Errorf("decode comments: %w", err))
	}
	if len(listings) < 2 {
		return []string{}, nil
	}

	out := make([]string, 0, limit)
	for _, child := range listings[1].Data.Children {
		if len(out) >= limit {
			break
		}
		if child.Kind != "t1" {
			continue
		}
		var d commentData
		if err := json.Unmarshal(child.Data, &d); err != nil {
			continue
		}
		b := strings.TrimSpace(d.Body)
		if b == "" || b == "[deleted]" || b == "[removed]" || d.Stickied {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	return c.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
}

func (d postData) toPost() Post {
	permalink := d.Permalink
	if strings.HasPrefix(permalink, "/") {
		permalink = permalinkBase + permalink
	}
	return Post{
		ID:          d.ID,
		Title:       d.Title,
		SelfText:    d.SelfText,
		URL:         d.URL,
		Permalink:   permalink,
		Subreddit:   d.Subreddit,
		Author:      d.Author,
		Score:       d.Score,
		NumComments: d.NumComments,
		Created:     time.Unix(int64(d.CreatedUTC), 0).UTC(),
	}
}
