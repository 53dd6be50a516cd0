// Package model defines the records that flow through reaction discovery:
// queries, provider candidates, ranked candidates and the cached results.
package model

import "time"

// SourceKind discriminates where a Candidate came from.
type SourceKind string

const (
	SourceWeb     SourceKind = "web"
	SourceReddit  SourceKind = "reddit"
	SourceTwitter SourceKind = "twitter"
)

// MatchType records which search phase produced a RankedCandidate.
type MatchType string

const (
	MatchURLExact MatchType = "url_exact"
	MatchTopic    MatchType = "topic"
	MatchURLText  MatchType = "url_text"
)

// Priority orders match types for tie-breaks. Lower wins.
func (m MatchType) Priority() int {
	switch m {
	case MatchURLExact:
		return 0
	case MatchTopic:
		return 1
	case MatchURLText:
		return 2
	default:
		return 3
	}
}

// Engagement holds source-specific signals. Web candidates leave it zero.
type Engagement struct {
	Score       int `json:"score,omitempty"`
	NumComments int `json:"num_comments,omitempty"`
	Likes       int `json:"likes,omitempty"`
	Retweets    int `json:"retweets,omitempty"`
	Replies     int `json:"replies,omitempty"`
	Quotes      int `json:"quotes,omitempty"`
}

// Candidate is one discovered reaction before ranking.
// Fields outside the common block are only set for the matching Kind.
type Candidate struct {
	Kind    SourceKind `json:"source_kind"`
	ID      string     `json:"id,omitempty"`
	Title   string     `json:"title"`
	URL     string     `json:"url"`
	Snippet string     `json:"snippet,omitempty"`

	Engagement Engagement `json:"engagement"`
	Author     string     `json:"author,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`

	// Web
	Source         string `json:"source,omitempty"`
	DownloadRisk   bool   `json:"download_risk,omitempty"`
	Category       string `json:"category,omitempty"`
	CategoryReason string `json:"category_reason,omitempty"`

	// Reddit. URL is the permalink; LinkedURL is what the post links to.
	Subreddit string `json:"subreddit,omitempty"`
	LinkedURL string `json:"linked_url,omitempty"`
	SelfText  string `json:"selftext,omitempty"`
	Summary   string `json:"summary,omitempty"`

	// Twitter
	AuthorName     string `json:"author_name,omitempty"`
	AuthorVerified bool   `json:"author_verified,omitempty"`
	AuthorImage    string `json:"author_image,omitempty"`
}

// RankedCandidate is a Candidate scored by a ranker.
// MatchType is set at creation and never changed.
type RankedCandidate struct {
	Candidate
	MatchType       MatchType `json:"match_type"`
	RelevanceScore  int       `json:"relevance_score"`
	EngagementScore int       `json:"engagement_score"`
}
