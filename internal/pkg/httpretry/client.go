// Package httpretry wraps HTTP clients with retry, backoff, and
// rate-limit handling for the customer-data source APIs. Each source
// throttles differently, so callers pick a Profile matching the API
// they talk to instead of sharing one generic policy.
package httpretry

import (
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/ignite/customer-intel/internal/pkg/logger"
)

// HTTPDoer executes HTTP requests. Both *http.Client and *RetryClient
// satisfy it, so connectors can swap in a fake for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Profile is one API's retry policy. BaseDelay grows exponentially
// per attempt with full jitter, capped at MaxDelay. RateLimitDelay is
// the wait after a 429 when the API sends no Retry-After header.
type Profile struct {
	MaxRetries     int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	RateLimitDelay time.Duration
}

// Retry profiles per source API.
var (
	// Intercom throttles per 10-second window and sends Retry-After
	// on 429, so short backoff with header deference works.
	Intercom = Profile{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 15 * time.Second, RateLimitDelay: 10 * time.Second}

	// Calendly publishes no hard window; standard backoff.
	Calendly = Profile{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, RateLimitDelay: 10 * time.Second}

	// SmartLead allows roughly 10 requests per 2 seconds and 429s
	// aggressively during campaign listing.
	SmartLead = Profile{MaxRetries: 4, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, RateLimitDelay: 5 * time.Second}

	// Airtable caps at 5 requests per second per base and expects a
	// 30-second pause after a 429; it sends no Retry-After.
	Airtable = Profile{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, RateLimitDelay: 30 * time.Second}

	// Fathom's export API is slow but rarely throttles.
	Fathom = Profile{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, RateLimitDelay: 10 * time.Second}

	// Slack incoming webhooks allow about one message per second and
	// send Retry-After on 429.
	Slack = Profile{MaxRetries: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second, RateLimitDelay: time.Second}
)

// RetryClient wraps an HTTPDoer with a Profile's retry policy.
type RetryClient struct {
	client  HTTPDoer
	profile Profile
}

// NewClient builds a RetryClient for one source API. A nil client gets
// a default http.Client with a 30s timeout.
func NewClient(client HTTPDoer, p Profile) *RetryClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = time.Second
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 30 * time.Second
	}
	return &RetryClient{client: client, profile: p}
}

// Do executes the request, retrying on 429/5xx and transient network
// errors. Client errors (400, 401, 403, 404) and context cancellation
// are returned immediately. The final attempt's response comes back
// as-is so callers can read the status and body.
func (rc *RetryClient) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	wait := time.Duration(0)

	for attempt := 0; attempt <= rc.profile.MaxRetries; attempt++ {
		if req.Context().Err() != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, req.Context().Err()
		}

		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("reset request body: %w", err)
				}
				req.Body = body
			}

			logger.Debug("retrying request",
				"attempt", attempt,
				"max", rc.profile.MaxRetries,
				"method", req.Method,
				"host", req.URL.Host,
				"wait", wait.String(),
			)
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-req.Context().Done():
				timer.Stop()
				if lastErr != nil {
					return nil, lastErr
				}
				return nil, req.Context().Err()
			}
		}

		resp, err := rc.client.Do(req)
		if err != nil {
			lastErr = err
			if req.Context().Err() != nil {
				return nil, err
			}
			wait = rc.backoff(attempt + 1)
			continue
		}

		if !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if attempt == rc.profile.MaxRetries {
			return resp, nil
		}

		wait = rc.waitFor(resp, attempt+1)

		// Drain so the connection can be reused.
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("retryable status %d from %s", resp.StatusCode, req.URL.Host)
	}

	return nil, lastErr
}

// waitFor picks the delay before the next attempt. A Retry-After
// header wins; a bare 429 uses the profile's rate-limit pause.
func (rc *RetryClient) waitFor(resp *http.Response, attempt int) time.Duration {
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		d := time.Duration(secs) * time.Second
		if d > rc.profile.MaxDelay {
			d = rc.profile.MaxDelay
		}
		return d
	}
	if resp.StatusCode == http.StatusTooManyRequests && rc.profile.RateLimitDelay > 0 {
		return rc.profile.RateLimitDelay
	}
	return rc.backoff(attempt)
}

// backoff is exponential with full jitter, floored at 100ms so a tiny
// base delay cannot busy-loop.
func (rc *RetryClient) backoff(attempt int) time.Duration {
	d := float64(rc.profile.BaseDelay) * math.Pow(2, float64(attempt-1))
	if d > float64(rc.profile.MaxDelay) {
		d = float64(rc.profile.MaxDelay)
	}
	jittered := time.Duration(rand.Float64() * d)
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
