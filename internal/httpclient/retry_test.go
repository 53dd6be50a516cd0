package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/abelbrown/reactions/internal/provider"
)

func getReq(url string) func(ctx context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func fastCaller(client *http.Client) *Caller {
	return &Caller{
		Name:     "test",
		Client:   client,
		Backoffs: []time.Duration{time.Millisecond, time.Millisecond},
	}
}

func TestCallerRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	body, err := fastCaller(srv.Client()).Do(context.Background(), getReq(srv.URL))
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("body = %q", body)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestCallerDoesNotRetry401(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fastCaller(srv.Client()).Do(context.Background(), getReq(srv.URL))
	var pe *provider.Error
	if !errors.As(err, &pe) || pe.Status != http.StatusUnauthorized {
		t.Fatalf("expected provider error with 401, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestCallerGivesUpAfterBackoffs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := fastCaller(srv.Client()).Do(context.Background(), getReq(srv.URL))
	if !errors.Is(err, provider.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestCallerTimeoutIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := fastCaller(srv.Client()).Do(ctx, getReq(srv.URL))
	if !errors.Is(err, provider.ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestRetryAfterCapped(t *testing.T) {
	resp := &http.Response{StatusCode: http.StatusTooManyRequests, Header: http.Header{}}
	resp.Header.Set("Retry-After", "120")
	if got := retryAfter(resp); got != 30*time.Second {
		t.Errorf("retryAfter = %v, want 30s", got)
	}
	resp.Header.Set("Retry-After", "garbage")
	if got := retryAfter(resp); got != 0 {
		t.Errorf("retryAfter(garbage) = %v, want 0", got)
	}
}

func TestCallerRedactsQueryFromTransportErrors(t *testing.T) {
	// Nothing listens on port 1.
	_, err := fastCaller(&http.Client{}).Do(context.Background(),
		getReq("http://127.0.0.1:1/search?api_key=SECRET-KEY-123&q=iran"))
	if err == nil {
		t.Fatal("expected a transport error")
	}
	if strings.Contains(err.Error(), "SECRET-KEY-123") || strings.Contains(err.Error(), "api_key") {
		t.Errorf("error leaks the query string: %v", err)
	}
	if !strings.Contains(err.Error(), "127.0.0.1:1/search") {
		t.Errorf("error lost the endpoint: %v", err)
	}
}

func TestCallerRateLimitsEveryAttempt(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastCaller(srv.Client())
	c.Limiter = rate.NewLimiter(rate.Every(time.Hour), 2)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, getReq(srv.URL)); err == nil {
		t.Fatal("expected an error once the limiter runs dry")
	}
	if calls.Load() != 2 {
		t.Errorf("expected the limiter to allow 2 attempts, got %d", calls.Load())
	}
}

func TestCallerDoesNotRetryTokenFailures(t *testing.T) {
	var tokenCalls, apiCalls atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid_client"}`))
	}))
	defer tokenSrv.Close()
	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiCalls.Add(1)
	}))
	defer apiSrv.Close()

	cc := &clientcredentials.Config{
		ClientID:     "id",
		ClientSecret: "bad",
		TokenURL:     tokenSrv.URL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	_, err := fastCaller(cc.Client(context.Background())).Do(context.Background(), getReq(apiSrv.URL))
	if !errors.Is(err, provider.ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", pe.Status)
	}
	if tokenCalls.Load() != 1 {
		t.Errorf("token endpoint hit %d times, want 1", tokenCalls.Load())
	}
	if apiCalls.Load() != 0 {
		t.Errorf("api should not be reached, got %d calls", apiCalls.Load())
	}
}
