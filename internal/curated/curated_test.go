package curated

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>Writer</title>
<image><url>https://cdn.example/avatar.png</url><title>Writer</title><link>https://writer.example</link></image>
<item><title>Newest essay</title><link>https://writer.example/p/newest</link><pubDate>Tue, 05 Mar 2024 10:00:00 GMT</pubDate></item>
<item><title>Older essay</title><link>https://writer.example/p/older</link></item>
</channel></rss>`

func TestLatest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, sampleFeed)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	authors := []Author{
		{Name: "Writer", FeedURL: srv.URL + "/ok"},
		{Name: "Broken", FeedURL: srv.URL + "/broken", ProfileImage: "https://cdn.example/b.png"},
	}

	got := NewReader(srv.Client()).Latest(context.Background(), authors)

	require.Len(t, got, 2)
	assert.Equal(t, "Writer", got[0].Name)
	assert.Equal(t, "Newest essay", got[0].LatestTitle)
	assert.Equal(t, "https://writer.example/p/newest", got[0].LatestURL)
	assert.Equal(t, 2024, got[0].LatestDate.Year())
	assert.Equal(t, "https://cdn.example/avatar.png", got[0].AvatarURL)

	assert.Equal(t, "Broken", got[1].Name)
	assert.Empty(t, got[1].LatestTitle)
	assert.Equal(t, "https://cdn.example/b.png", got[1].AvatarURL)
}

func TestLatestSlowFeedTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	r := NewReader(srv.Client())
	r.timeout = 50 * time.Millisecond

	start := time.Now()
	got := r.Latest(context.Background(), []Author{{Name: "Slow", FeedURL: srv.URL}})

	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].LatestURL)
}

func TestDefaultAuthorsHaveFeeds(t *testing.T) {
	for _, a := range DefaultAuthors {
		assert.NotEmpty(t, a.FeedURL, a.Name)
	}
}
