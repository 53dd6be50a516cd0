package websearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/reactions/internal/model"
	"github.com/abelbrown/reactions/internal/provider"
)

func TestSearchParsesOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google" || q.Get("q") != "acme layoffs" || q.Get("api_key") != "k" {
			t.Errorf("unexpected params: %v", q)
		}
		if q.Get("num") != "5" {
			t.Errorf("num = %q, want 5", q.Get("num"))
		}
		w.Write([]byte(`{"organic_results":[
			{"title":"Acme cuts jobs","link":"https://www.example.com/acme","snippet":"s1"},
			{"title":"","link":"https://skip.example.com"},
			{"title":"Analysis","link":"https://blog.test/a","snippet":"s2","source":"Blog Test"}
		]}`))
	}))
	defer srv.Close()

	c := New("k", 5, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	got, err := c.Search(context.Background(), "acme layoffs")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].Kind != model.SourceWeb || got[0].Source != "Example" {
		t.Errorf("first result = %+v", got[0])
	}
	if got[1].Source != "Blog Test" {
		t.Errorf("source = %q, want Blog Test", got[1].Source)
	}
}

func TestSearchWithoutKeyIsUnavailable(t *testing.T) {
	c := New("", 0)
	if c.Available() {
		t.Fatal("client without key should be unavailable")
	}
	_, err := c.Search(context.Background(), "x")
	if !errors.Is(err, provider.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestSearchNoResultsIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	}))
	defer srv.Close()

	c := New("k", 0, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()))
	got, err := c.Search(context.Background(), "zzzz")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", got)
	}
}

func TestSearchServerErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("k", 0, WithEndpoint(srv.URL), WithHTTPClient(srv.Client()), WithBackoffs([]time.Duration{time.Millisecond}))
	_, err := c.Search(context.Background(), "x")
	if !errors.Is(err, provider.ErrFailed) {
		t.Errorf("expected ErrFailed, got %v", err)
	}
}

func TestSearchTransportErrorHidesAPIKey(t *testing.T) {
	c := New("SECRET-KEY-123", 10, WithEndpoint("http://127.0.0.1:1/search"), WithBackoffs(nil))
	_, err := c.Search(context.Background(), "iran")
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") {
		t.Errorf("API key leaked into error: %v", err)
	}
}
