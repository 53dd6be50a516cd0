// Package httpclient provides shared HTTP clients with connection pooling.
//
// Callers MUST close response bodies, even on non-2xx status.
//
// Every provider adapter in the service takes an *http.Client so tests can
// point it at an httptest server; production wiring passes one of these.
package httpclient

import (
	"net"
	"net/http"
	"sync"
	"time"
)

var (
	// Shared transport for connection pooling
	sharedTransport *http.Transport
	transportOnce   sync.Once

	defaultClient     *http.Client
	longTimeoutClient *http.Client
	clientOnce        sync.Once
)

func getSharedTransport() *http.Transport {
	transportOnce.Do(func() {
		sharedTransport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
		}
	})
	return sharedTransport
}

func initClients() {
	clientOnce.Do(func() {
		transport := getSharedTransport()

		// Search providers and feeds
		defaultClient = &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		}

		// Generation and speech synthesis
		longTimeoutClient = &http.Client{
			Transport: transport,
			Timeout:   120 * time.Second,
		}
	})
}

// Default returns a shared HTTP client with a 30-second timeout.
func Default() *http.Client {
	initClients()
	return defaultClient
}

// LongTimeout returns a shared HTTP client with a 2-minute timeout.
// Suitable for LLM and TTS calls that may take longer to respond.
func LongTimeout() *http.Client {
	initClients()
	return longTimeoutClient
}

// Transport exposes the pooled transport for clients that wrap it
// (the Reddit OAuth client layers token injection on top).
func Transport() http.RoundTripper {
	return getSharedTransport()
}
