package model

import (
	"strings"
	"time"
)

// Article identifies the piece a commentary is written about.
type Article struct {
	URL     string `json:"url,omitempty"`
	Title   string `json:"title"`
	Source  string `json:"source,omitempty"`
	Domain  string `json:"domain,omitempty"`
	Author  string `json:"author,omitempty"`
	Summary string `json:"summary,omitempty"`

	Published  string `json:"published,omitempty"`   // "January 2, 2006"
	FetchError string `json:"fetch_error,omitempty"` // why the page could not be read
}

// CommentaryKey identifies an article in the commentary cache:
// the URL when present, else the title.
func (a Article) CommentaryKey() string {
	if u := strings.TrimSpace(a.URL); u != "" {
		return "commentary:url:" + strings.ToLower(StripURL(u))
	}
	return "commentary:title:" + strings.ToLower(strings.Join(strings.Fields(a.Title), " "))
}

// AggregationResult is the unit cached and returned by Aggregate.
type AggregationResult struct {
	Query      Query             `json:"query"`
	Article    *Article          `json:"article,omitempty"`
	Web        []Candidate       `json:"web"`
	Reddit     []RankedCandidate `json:"reddit"`
	Twitter    []RankedCandidate `json:"twitter,omitempty"`
	ComputedAt time.Time         `json:"computed_at"`
}

// Clone returns a deep copy so callers never alias a cached value.
func (r AggregationResult) Clone() AggregationResult {
	out := r
	if r.Article != nil {
		a := *r.Article
		out.Article = &a
	}
	out.Web = append([]Candidate(nil), r.Web...)
	out.Reddit = append([]RankedCandidate(nil), r.Reddit...)
	if r.Twitter != nil {
		out.Twitter = append([]RankedCandidate(nil), r.Twitter...)
	}
	if out.Web == nil {
		out.Web = []Candidate{}
	}
	if out.Reddit == nil {
		out.Reddit = []RankedCandidate{}
	}
	return out
}

// CommentaryResult is the generated narrative plus optional audio.
type CommentaryResult struct {
	Text           string `json:"text"`
	Audio          []byte `json:"audio,omitempty"`
	MimeType       string `json:"mime_type,omitempty"`
	SourceCacheKey string `json:"source_cache_key"`
	Provider       string `json:"provider,omitempty"`
	AudioProvider  string `json:"audio_provider,omitempty"`
	AudioError     string `json:"audio_error,omitempty"`
	// Fallback marks text substituted after the providers refused.
	Fallback bool `json:"fallback,omitempty"`
}

// CuratedAuthor is a followed writer with their latest post.
type CuratedAuthor struct {
	Name        string    `json:"name"`
	Handle      string    `json:"handle,omitempty"`
	Bio         string    `json:"bio,omitempty"`
	Publication string    `json:"publication,omitempty"`
	Category    string    `json:"category,omitempty"`
	ProfileURL  string    `json:"profile_url,omitempty"`
	FeedURL     string    `json:"feed_url"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LatestTitle string    `json:"latest_title,omitempty"`
	LatestURL   string    `json:"latest_url,omitempty"`
	LatestDate  time.Time `json:"latest_date,omitempty"`
}
