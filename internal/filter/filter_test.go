package filter

import (
	"testing"

	"github.com/abelbrown/reactions/internal/model"
)

func TestSameDomainExcludesSelfCitation(t *testing.T) {
	q := model.NewURLQuery("http://news.example.com/a", "")
	web := []model.Candidate{
		{URL: "http://news.example.com/b", Title: "Sibling story"},
		{URL: "https://www.news.example.com/c", Title: "Same site, www"},
		{URL: "https://other.example/d", Title: "Elsewhere"},
	}

	result := SameDomain(web, q)

	if len(result) != 1 || result[0].URL != "https://other.example/d" {
		t.Errorf("expected only the other-domain candidate, got %+v", result)
	}
}

func TestSameDomainTopicQueryKeepsAll(t *testing.T) {
	web := []model.Candidate{{URL: "http://news.example.com/b"}}
	if got := SameDomain(web, model.NewTopicQuery("news")); len(got) != 1 {
		t.Errorf("topic query should not filter, got %d", len(got))
	}
}

func TestSameDomainEmpty(t *testing.T) {
	result := SameDomain(nil, model.NewTopicQuery("x"))
	if result == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestRedditURLs(t *testing.T) {
	web := []model.Candidate{
		{URL: "https://www.reddit.com/r/news/comments/abc/x/"},
		{URL: "https://old.reddit.com/r/news/comments/def/y/"},
		{URL: "https://redd.it/abc"},
		{URL: "https://blog.example/post"},
	}

	result := RedditURLs(web)

	if len(result) != 1 || result[0].URL != "https://blog.example/post" {
		t.Errorf("expected only the blog post, got %+v", result)
	}
}

func TestCrossSourceTitles(t *testing.T) {
	reddit := []model.RankedCandidate{
		{Candidate: model.Candidate{Title: "Acme Corp Cuts Jobs"}},
	}
	web := []model.Candidate{
		{URL: "https://a.example", Title: "  acme corp cuts jobs "},
		{URL: "https://b.example", Title: "BREAKING: Acme Corp Cuts Jobs"},
		{URL: "https://c.example", Title: "Acme cuts jobs, analysts react"},
	}

	result := CrossSourceTitles(web, reddit)

	if len(result) != 1 || result[0].URL != "https://c.example" {
		t.Errorf("expected only the distinct title, got %+v", result)
	}
}

func TestDedupURLs(t *testing.T) {
	web := []model.Candidate{
		{URL: "https://a.example/story?utm_source=x", Title: "first"},
		{URL: "https://a.example/story/", Title: "second"},
		{URL: "https://b.example/story", Title: "third"},
	}

	result := DedupURLs(web)

	if len(result) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(result))
	}
	if result[0].Title != "first" {
		t.Errorf("first occurrence should win, got %q", result[0].Title)
	}
}

func TestIsDownload(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.gov/report.PDF", true},
		{"https://example.com/files/setup.exe", true},
		{"https://example.com/download/12345", true},
		{"https://example.com/doc?download=1", true},
		{"https://example.com/news/story.html", false},
		{"https://example.com/2024/03/layoffs", false},
		{"::not a url", false},
	}
	for _, tt := range tests {
		if got := IsDownload(tt.url); got != tt.want {
			t.Errorf("IsDownload(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestTagDownloadRiskDoesNotFilter(t *testing.T) {
	web := []model.Candidate{
		{URL: "https://example.gov/report.pdf"},
		{URL: "https://example.com/story"},
	}

	result := TagDownloadRisk(web)

	if len(result) != 2 {
		t.Fatalf("tagging must not remove candidates, got %d", len(result))
	}
	if !result[0].DownloadRisk || result[1].DownloadRisk {
		t.Errorf("unexpected tags: %v %v", result[0].DownloadRisk, result[1].DownloadRisk)
	}
	if web[0].DownloadRisk {
		t.Error("input must not be modified")
	}
}

func TestApplyPipeline(t *testing.T) {
	q := model.NewURLQuery("http://news.example.com/a", "")
	reddit := []model.RankedCandidate{{Candidate: model.Candidate{Title: "Thread title"}}}
	web := []model.Candidate{
		{URL: "http://news.example.com/b", Title: "Same domain"},
		{URL: "https://reddit.com/r/x/comments/1/y", Title: "Reddit link"},
		{URL: "https://c.example/1", Title: "thread title"},
		{URL: "https://d.example/report.pdf", Title: "Report"},
		{URL: "https://e.example/take", Title: "A take"},
	}

	result := Apply(q, web, reddit)

	if len(result) != 2 {
		t.Fatalf("expected 2 survivors, got %+v", result)
	}
	if result[0].URL != "https://d.example/report.pdf" || !result[0].DownloadRisk {
		t.Errorf("expected tagged pdf first, got %+v", result[0])
	}
	if result[1].DownloadRisk {
		t.Error("plain page should not be tagged")
	}
}
