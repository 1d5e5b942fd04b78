package ics

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	appLog "teamcal/internal/log"
	"teamcal/internal/model"
)

const defaultFetchAttempts = 3

// Client fetches iCalendar feeds over HTTP with a bounded retry policy.
// An optional trust-anchor certificate is appended to the system root pool
// for environments that re-sign outbound TLS.
type Client struct {
	http     *http.Client
	attempts int
	backoff  time.Duration // per-attempt backoff unit
}

// NewClient builds a feed client. certPath may be empty; when set it must
// point at a PEM file whose certificates are added to the TLS root pool.
func NewClient(certPath string, attempts int, timeout time.Duration) (*Client, error) {
	if attempts <= 0 {
		attempts = defaultFetchAttempts
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if certPath != "" {
		pem, err := os.ReadFile(certPath)
		if err != nil {
			return nil, fmt.Errorf("reading trust anchor %s: %w", certPath, err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", certPath)
		}
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	}

	return &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		attempts: attempts,
		backoff:  2 * time.Second,
	}, nil
}

// Fetch retrieves one feed body, retrying with backoff. Exhausted attempts
// yield a NetworkError; the caller treats that as fatal to the run.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, &model.NetworkError{Op: "fetch feed", Err: errors.New("empty feed URL")}
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if attempt > 1 {
			backoff := time.Duration(attempt-1) * c.backoff
			appLog.Warn("feed fetch retrying", "url", redactURL(url), "attempt", attempt, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &model.NetworkError{Op: "fetch " + redactURL(url), Err: ctx.Err()}
			}
		}

		body, err := c.fetchOnce(ctx, url)
		if err == nil {
			appLog.Info("feed fetched", "url", redactURL(url), "bytes", len(body), "attempt", attempt)
			return body, nil
		}
		lastErr = err
		appLog.Warn("feed fetch failed", "url", redactURL(url), "attempt", attempt, "fetch_err", err)
	}

	return nil, &model.NetworkError{Op: "fetch " + redactURL(url), Err: lastErr}
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.New(resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// redactURL hides path and query of a feed URL for logging; private feed
// URLs usually embed a secret token.
func redactURL(u string) string {
	const redacted = "/...(redacted)"
	i := -1
	for idx := 0; idx+2 < len(u); idx++ {
		if u[idx:idx+3] == "://" {
			i = idx + 3
			break
		}
	}
	if i == -1 {
		return "ics://...(redacted)"
	}
	j := i
	for j < len(u) && u[j] != '/' {
		j++
	}
	return u[:j] + redacted
}
