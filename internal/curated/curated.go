// Package curated reads the latest post of each followed author from their
// RSS or Atom feed.
package curated

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/abelbrown/reactions/internal/httpclient"
	"github.com/abelbrown/reactions/internal/logging"
	"github.com/abelbrown/reactions/internal/model"
)

const (
	// maxConcurrentFeeds bounds parallel feed fetches.
	maxConcurrentFeeds = 6
	// feedTimeout is the per-feed deadline.
	feedTimeout = 8 * time.Second
	userAgent   = "MediaReactionFinder/1.0"
)

// Author is a followed writer as configured.
type Author struct {
	Name         string `yaml:"name"`
	Handle       string `yaml:"handle"`
	Bio          string `yaml:"bio"`
	Publication  string `yaml:"publication"`
	Category     string `yaml:"category"`
	ProfileURL   string `yaml:"profile_url"`
	FeedURL      string `yaml:"feed_url"`
	ProfileImage string `yaml:"profile_image"`
}

func (a Author) profile() model.CuratedAuthor {
	return model.CuratedAuthor{
		Name:        a.Name,
		Handle:      a.Handle,
		Bio:         a.Bio,
		Publication: a.Publication,
		Category:    a.Category,
		ProfileURL:  a.ProfileURL,
		FeedURL:     a.FeedURL,
		AvatarURL:   a.ProfileImage,
	}
}

// Reader fetches author feeds.
type Reader struct {
	client  *http.Client
	timeout time.Duration
}

// NewReader creates a Reader. A nil client uses the shared default.
func NewReader(client *http.Client) *Reader {
	if client == nil {
		client = httpclient.Default()
	}
	return &Reader{client: client, timeout: feedTimeout}
}

// Latest returns one entry per author in input order. A feed that fails or
// times out leaves its author without a latest post; it never fails the batch.
func (r *Reader) Latest(ctx context.Context, authors []Author) []model.CuratedAuthor {
	out := make([]model.CuratedAuthor, len(authors))
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFeeds)

	for i, a := range authors {
		out[i] = a.profile()
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, r.timeout)
			defer cancel()
			if err := r.fill(fctx, &out[i]); err != nil {
				logging.Warn("curated feed failed", "author", a.Name, "feed", a.FeedURL, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	logging.Info("curated feeds fetched", "authors", len(out), "duration", time.Since(start))
	return out
}

// fill adds the avatar and latest post from the author's feed.
func (r *Reader) fill(ctx context.Context, entry *model.CuratedAuthor) error {
	parser := gofeed.NewParser()
	parser.Client = r.client
	parser.UserAgent = userAgent

	feed, err := parser.ParseURLWithContext(entry.FeedURL, ctx)
	if err != nil {
		return err
	}

	if entry.AvatarURL == "" && feed.Image != nil {
		entry.AvatarURL = strings.TrimSpace(feed.Image.URL)
	}
	if len(feed.Items) == 0 {
		return nil
	}

	item := feed.Items[0]
	title, link := strings.TrimSpace(item.Title), strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		return nil
	}
	entry.LatestTitle = title
	entry.LatestURL = link
	switch {
	case item.PublishedParsed != nil:
		entry.LatestDate = *item.PublishedParsed
	case item.UpdatedParsed != nil:
		entry.LatestDate = *item.UpdatedParsed
	}
	return nil
}

// DefaultAuthors is the built-in follow list used when none is configured.
var DefaultAuthors = []Author{
	{
		Name:         "Ryan Grim",
		Handle:       "ryangrim",
		Bio:          "Reporter for Drop Site, co-host of Breaking Points.",
		Publication:  "Drop Site News",
		Category:     "News",
		ProfileURL:   "https://www.dropsitenews.com/",
		FeedURL:      "https://www.dropsitenews.com/feed",
		ProfileImage: "https://substack-post-media.s3.amazonaws.com/public/images/edaeaa11-4322-4732-86b8-3cb754a225bc_458x510.png",
	},
	{
		Name:        "Anu",
		Handle:      "anu",
		Bio:         "Essays about people, technology, art & the future.",
		Publication: "Working Theorys",
		Category:    "Tech",
		ProfileURL:  "https://substack.com/@anu",
		FeedURL:     "https://anu.substack.com/feed",
	},
	{
		Name:        "Catherine Liu",
		Handle:      "cliuanon",
		Bio:         "Author of Virtue Hoarders, American Idyll, and Traumatized.",
		Publication: "CLiuAnon",
		Category:    "Culture",
		ProfileURL:  "https://substack.com/@cliuanon",
		FeedURL:     "https://cliuanon.substack.com/feed",
	},
	{
		Name:        "Juan Sebastián Pinto",
		Handle:      "cafepinto",
		Bio:         "Writing about tech and civil rights.",
		Publication: "Ziggurat",
		Category:    "Tech",
		ProfileURL:  "https://www.zig.art/",
		FeedURL:     "https://www.zig.art/feed",
	},
	{
		Name:        "Nader Dabit",
		Handle:      "nader",
		Bio:         "Software engineer, author, and teacher.",
		Publication: "Nader's Thoughts",
		Category:    "Tech",
		ProfileURL:  "https://substack.com/@nader",
		FeedURL:     "https://nader.substack.com/feed",
	},
}
