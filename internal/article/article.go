// Package article reads the identity of a news page: headline, publication,
// date and body text for summarization.
package article

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
)

// maxContent bounds the body text handed to summarization.
const maxContent = 5000

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

var (
	sourceSelectors = []string{
		`meta[property="og:site_name"]`,
		`meta[name="author"]`,
		`meta[property="article:publisher"]`,
		`meta[name="publisher"]`,
	}
	dateSelectors = []string{
		`meta[property="article:published_time"]`,
		`meta[name="publish_date"]`,
		`meta[name="date"]`,
		`meta[property="og:published_time"]`,
		`time[datetime]`,
	}
	contentSelectors = []string{
		"article",
		`[role="main"]`,
		".article-content",
		".post-content",
		".entry-content",
		"main",
	}
	spaceRe = regexp.MustCompile(`\s+`)
)

// Page is an article plus the text used for its summary.
type Page struct {
	model.Article
	Content string
}

// Fetcher downloads and parses article pages.
type Fetcher struct {
	client *http.Client
	now    func() time.Time
}

// NewFetcher creates a Fetcher. A nil client uses the shared default.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = httpclient.Default()
	}
	return &Fetcher{client: client, now: time.Now}
}

// Fetch reads rawURL. On any failure it still returns a usable Page built
// from the URL alone, with FetchError describing what went wrong.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fallback(rawURL, "Unable to access article content."), fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return fallback(rawURL, "Unable to access article content."), fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("article fetch refused", "url", rawURL, "status", resp.StatusCode)
		return fallback(rawURL, statusMessage(resp.StatusCode)), fmt.Errorf("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	page, err := parse(rawURL, io.LimitReader(resp.Body, 8<<20), f.now())
	if err != nil {
		return fallback(rawURL, "Unable to read article content."), err
	}
	return page, nil
}

// Parse extracts a Page from HTML.
func Parse(rawURL string, r io.Reader) (Page, error) {
	return parse(rawURL, r, time.Now())
}

func parse(rawURL string, r io.Reader, now time.Time) (Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Page{}, fmt.Errorf("parse html: %w", err)
	}

	domain := model.Domain(rawURL)
	page := Page{Article: model.Article{URL: rawURL, Domain: domain}}

	page.Title = CleanTitle(doc.Find("title").First().Text())
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	if page.Title == "" {
		page.Title = "Article"
	}

	for _, sel := range sourceSelectors {
		if v := strings.TrimSpace(doc.Find(sel).First().AttrOr("content", "")); v != "" {
			page.Source = v
			break
		}
	}
	if page.Source == "" {
		page.Source = SourceName(rawURL)
	}

	page.Author = strings.TrimSpace(doc.Find(`meta[name="author"]`).First().AttrOr("content", ""))
	page.Published = publishedDate(doc, now)
	page.Content = bodyText(doc)
	return page, nil
}

// CleanTitle drops a trailing site name after "|" or " - ".
func CleanTitle(title string) string {
	title = strings.TrimSpace(spaceRe.ReplaceAllString(title, " "))
	if i := strings.Index(title, "|"); i >= 0 {
		return strings.TrimSpace(title[:i])
	}
	if i := strings.Index(title, " - "); i > 0 {
		return strings.TrimSpace(title[:i])
	}
	return title
}

func publishedDate(doc *goquery.Document, now time.Time) string {
	for _, sel := range dateSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		raw := strings.TrimSpace(s.AttrOr("content", s.AttrOr("datetime", "")))
		if raw == "" {
			continue
		}
		t, ok := parseDate(raw)
		// future dates are parse mistakes
		if !ok || t.After(now) {
			continue
		}
		return t.Format("January 2, 2006")
	}
	return ""
}

func parseDate(raw string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func bodyText(doc *goquery.Document) string {
	var text string
	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		s.Find("script, style, noscript").Remove()
		text = s.Text()
		break
	}
	if strings.TrimSpace(text) == "" {
		var parts []string
		doc.Find("p").Each(func(_ int, p *goquery.Selection) {
			parts = append(parts, p.Text())
		})
		text = strings.Join(parts, " ")
	}

	text = strings.TrimSpace(spaceRe.ReplaceAllString(text, " "))
	if r := []rune(text); len(r) > maxContent {
		text = string(r[:maxContent])
	}
	return text
}

func fallback(rawURL, reason string) Page {
	domain := model.Domain(rawURL)
	title := "Article"
	if domain != "" {
		title = "Article from " + domain
	}
	return Page{Article: model.Article{
		URL:        rawURL,
		Title:      title,
		Domain:     domain,
		Source:     SourceName(rawURL),
		FetchError: reason,
	}}
}

func statusMessage(code int) string {
	switch code {
	case http.StatusUnauthorized:
		return "Article requires subscription or login to access content."
	case http.StatusForbidden:
		return "Access to article content is restricted."
	case http.StatusTooManyRequests:
		return "Too many requests - article content temporarily unavailable."
	default:
		return fmt.Sprintf("Unable to access article content (HTTP %d).", code)
	}
}
