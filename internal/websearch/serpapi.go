// Package websearch queries a Google web search API for articles that
// react to or discuss a query.
package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/abelbrown/reactions/internal/article"
	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/provider"
)

const (
	providerName    = "serpapi"
	defaultEndpoint = "https://serpapi.com/search"
	defaultNum      = 10
)

// Client is the SerpAPI web search adapter.
type Client struct {
	apiKey   string
	endpoint string
	num      int
	caller   *httpclient.Caller
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint points the client at a different base URL (tests).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.caller.Client = hc }
}

// WithBackoffs overrides the retry schedule.
func WithBackoffs(b []time.Duration) Option {
	return func(c *Client) { c.caller.Backoffs = b }
}

// New creates a web search client. num <= 0 uses the default of 10.
func New(apiKey string, num int, opts ...Option) *Client {
	if num <= 0 {
		num = defaultNum
	}
	c := &Client{
		apiKey:   apiKey,
		endpoint: defaultEndpoint,
		num:      num,
		caller:   httpclient.NewCaller(providerName, httpclient.Default(), 500*time.Millisecond, 2),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Name() string { return providerName }

func (c *Client) Available() bool { return c.apiKey != "" }

type serpResponse struct {
	Error          string `json:"error"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Source  string `json:"source"`
	} `json:"organic_results"`
}

// Search returns organic results for q. An empty result set is not an error.
func (c *Client) Search(ctx context.Context, q string) ([]model.Candidate, error) {
	if !c.Available() {
		return nil, provider.Unavailable(providerName, "SERPAPI_API_KEY not set")
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.Candidate{}, nil
	}

	params := url.Values{}
	params.Set("engine", "google")
	params.Set("q", q)
	params.Set("api_key", c.apiKey)
	params.Set("num", strconv.Itoa(c.num))
	params.Set("hl", "en")
	params.Set("gl", "us")
	endpoint := c.endpoint + "?" + params.Encode()

	body, err := c.caller.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	})
	if err != nil {
		return nil, err
	}

	var resp serpResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, provider.Failed(providerName, 0, fmt.Errorf("decode response: %w", err))
	}
	if resp.Error != "" {
		// SerpAPI reports "no results" through the error field.
		if strings.Contains(strings.ToLower(resp.Error), "hasn't returned any results") {
			return []model.Candidate{}, nil
		}
		return nil, provider.Failed(providerName, 0, fmt.Errorf("%s", resp.Error))
	}

	out := make([]model.Candidate, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if r.Link == "" || r.Title == "" {
			continue
		}
		src := r.Source
		if src == "" {
			src = article.SourceName(r.Link)
		}
		out = append(out, model.Candidate{
			Kind:    model.SourceWeb,
			Title:   r.Title,
			URL:     r.Link,
			Snippet: r.Snippet,
			Source:  src,
		})
	}

	logging.Debug("web search complete", "query", q, "results", len(out))
	return out, nil
}
