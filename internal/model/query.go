package model

import (
	"errors"
	"net/url"
	"strings"
)

// ErrEmptyQuery is the only caller-visible aggregation error.
var ErrEmptyQuery = errors.New("query is required")

// QueryKind selects which search strategy runs.
type QueryKind string

const (
	QueryTopic QueryKind = "topic"
	QueryURL   QueryKind = "url"
)

// Query is a TopicQuery or a UrlQuery. Treat as a value; helpers return copies.
type Query struct {
	Kind   QueryKind `json:"type"`
	Text   string    `json:"text"`
	URL    string    `json:"url,omitempty"`
	Title  string    `json:"title,omitempty"`
	Domain string    `json:"domain,omitempty"`
}

// ParseQuery classifies raw input. Strings with an http(s) scheme and a host
// become URL queries; everything else is a topic.
func ParseQuery(raw string) (Query, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Query{}, ErrEmptyQuery
	}
	if looksLikeURL(raw) {
		return NewURLQuery(raw, ""), nil
	}
	return NewTopicQuery(raw), nil
}

// NewTopicQuery builds a topic query with whitespace collapsed.
func NewTopicQuery(text string) Query {
	text = strings.Join(strings.Fields(text), " ")
	return Query{Kind: QueryTopic, Text: text}
}

// NewURLQuery builds a URL query. Title may be empty until the article is looked up.
func NewURLQuery(rawURL, title string) Query {
	rawURL = strings.TrimSpace(rawURL)
	return Query{
		Kind:   QueryURL,
		Text:   rawURL,
		URL:    rawURL,
		Title:  strings.TrimSpace(title),
		Domain: Domain(rawURL),
	}
}

// IsURL reports whether the query is a UrlQuery.
func (q Query) IsURL() bool { return q.Kind == QueryURL }

// WithTitle returns a copy carrying a derived article title.
func (q Query) WithTitle(title string) Query {
	q.Title = strings.TrimSpace(title)
	return q
}

// Key is the normalized cache key for the query.
func (q Query) Key() string {
	if q.IsURL() {
		return "agg:url:" + strings.ToLower(StripURL(q.URL))
	}
	return "agg:topic:" + strings.ToLower(q.Text)
}

// SearchText is what free-text providers should be sent.
func (q Query) SearchText() string {
	if q.IsURL() {
		if q.Title != "" {
			return q.Title
		}
		return StripURL(q.URL)
	}
	return q.Text
}

func looksLikeURL(s string) bool {
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.ContainsAny(s, " \t\n") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

// StripURL drops query string, fragment and trailing slash.
func StripURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimRight(s, "/")
}

// Domain returns the lowercased host without a leading "www.".
func Domain(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// IsRedditURL reports whether raw points at reddit or its short domain.
func IsRedditURL(raw string) bool {
	d := Domain(raw)
	return d == "reddit.com" || strings.HasSuffix(d, ".reddit.com") || d == "redd.it"
}
