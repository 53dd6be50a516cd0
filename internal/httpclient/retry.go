package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/abelbrown/reactions/internal/provider"
)

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 4 << 20

// DefaultBackoffs is the retry schedule for transient failures.
var DefaultBackoffs = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

// Caller performs rate-limited requests with retry on 429 and 5xx.
// The zero Limiter disables rate limiting.
type Caller struct {
	Name     string
	Client   *http.Client
	Limiter  *rate.Limiter
	Backoffs []time.Duration
}

// NewCaller returns a Caller limited to one request per interval.
func NewCaller(name string, client *http.Client, every time.Duration, burst int) *Caller {
	if client == nil {
		client = Default()
	}
	return &Caller{
		Name:     name,
		Client:   client,
		Limiter:  rate.NewLimiter(rate.Every(every), burst),
		Backoffs: DefaultBackoffs,
	}
}

// Do sends the request built by newReq, retrying transient failures.
// newReq is called per attempt so bodies can be re-read.
// Non-2xx responses come back as *provider.Error with the status set.
func (c *Caller) Do(ctx context.Context, newReq func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.Backoffs); attempt++ {
		if c.Limiter != nil {
			if err := c.Limiter.Wait(ctx); err != nil {
				return nil, provider.Classify(c.Name, fmt.Errorf("rate limiter: %w", err))
			}
		}

		req, err := newReq(ctx)
		if err != nil {
			return nil, provider.Failed(c.Name, 0, fmt.Errorf("create request: %w", err))
		}

		resp, err := c.Client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, provider.Classify(c.Name, ctx.Err())
			}
			err = redact(err)
			var tokenErr *oauth2.RetrieveError
			if errors.As(err, &tokenErr) {
				status := 0
				if tokenErr.Response != nil {
					status = tokenErr.Response.StatusCode
				}
				return nil, provider.Failed(c.Name, status, fmt.Errorf("token request failed: %w", err))
			}
			lastErr = provider.Classify(c.Name, fmt.Errorf("request failed: %w", err))
			if !c.sleep(ctx, attempt, 0) {
				return nil, provider.Classify(c.Name, ctx.Err())
			}
			continue
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		resp.Body.Close()
		if readErr != nil {
			lastErr = provider.Failed(c.Name, resp.StatusCode, fmt.Errorf("read response: %w", readErr))
			if !c.sleep(ctx, attempt, 0) {
				return nil, provider.Classify(c.Name, ctx.Err())
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		statusErr := provider.Failed(c.Name, resp.StatusCode, fmt.Errorf("%s", truncate(string(body), 200)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = statusErr
			if !c.sleep(ctx, attempt, retryAfter(resp)) {
				return nil, provider.Classify(c.Name, ctx.Err())
			}
			continue
		}

		// 400, 401, 403, 404 are not worth retrying.
		return nil, statusErr
	}

	return nil, lastErr
}

// sleep waits out the backoff for attempt. Returns false if ctx ended first.
// Nothing is slept after the final attempt.
func (c *Caller) sleep(ctx context.Context, attempt int, override time.Duration) bool {
	if attempt >= len(c.Backoffs) {
		return true
	}
	delay := c.Backoffs[attempt]
	if override > 0 {
		delay = override
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}

// retryAfter parses a seconds-valued Retry-After header, capped at 30s.
func retryAfter(resp *http.Response) time.Duration {
	if resp.StatusCode != http.StatusTooManyRequests {
		return 0
	}
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	seconds, err := strconv.Atoi(ra)
	if err != nil || seconds <= 0 {
		return 0
	}
	d := time.Duration(seconds) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

// redact drops the query string from a transport error's URL.
// Query parameters can carry API keys.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		return &url.Error{Op: ue.Op, URL: "[redacted]", Err: ue.Err}
	}
	u.RawQuery = ""
	u.User = nil
	return &url.Error{Op: ue.Op, URL: u.String(), Err: ue.Err}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
