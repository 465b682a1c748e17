package githubclient

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRateLimit is the authenticated core limit (5000/hour)
	DefaultRateLimit = 5000

	// DefaultRequestsPerSecond keeps a single client just under 5000/hour
	DefaultRequestsPerSecond = 1.2

	// DefaultMinRemaining is how many requests are held back before waiting for reset
	DefaultMinRemaining = 100

	// fallbackRetryDelay is used when a 429 carries no usable timing hint
	fallbackRetryDelay = 60 * time.Second

	HeaderRateLimit     = "X-RateLimit-Limit"
	HeaderRateRemaining = "X-RateLimit-Remaining"
	HeaderRateReset     = "X-RateLimit-Reset"
	HeaderRetryAfter    = "Retry-After"
)

// sleepFunc blocks for d or until ctx is done
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RateLimiter combines a token bucket with the quota GitHub reports in
// response headers. One limiter belongs to one client, so a throttled scrape
// never blocks another scrape's client.
type RateLimiter struct {
	mu        sync.Mutex
	remaining int
	limit     int
	resetTime time.Time
	bucket    *rate.Limiter
	minBuffer int
	sleep     sleepFunc
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests and holding
// minBuffer requests in reserve.
func NewRateLimiter(perSecond float64, minBuffer int) *RateLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &RateLimiter{
		remaining: DefaultRateLimit,
		limit:     DefaultRateLimit,
		bucket:    rate.NewLimiter(limit, 1),
		minBuffer: minBuffer,
		sleep:     sleepContext,
		now:       time.Now,
	}
}

// Wait blocks until the bucket has a token and, when the reported quota is
// below the reserve, until the quota resets.
func (r *RateLimiter) Wait(ctx context.Context) (waited bool, err error) {
	if err := r.bucket.Wait(ctx); err != nil {
		return false, err
	}

	r.mu.Lock()
	remaining := r.remaining
	resetTime := r.resetTime
	r.mu.Unlock()

	now := r.now()
	if remaining < r.minBuffer && now.Before(resetTime) {
		return true, r.sleep(ctx, resetTime.Sub(now))
	}
	return false, nil
}

// UpdateFromResponse records the quota headers of resp
func (r *RateLimiter) UpdateFromResponse(resp *http.Response) {
	if resp == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if v := resp.Header.Get(HeaderRateRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.remaining = n
		}
	}
	if v := resp.Header.Get(HeaderRateLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			r.limit = n
		}
	}
	if v := resp.Header.Get(HeaderRateReset); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			r.resetTime = time.Unix(n, 0)
		}
	}
}

// Update records a quota snapshot read from the rate limit endpoint
func (r *RateLimiter) Update(limit, remaining int, reset time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.limit = limit
	r.remaining = remaining
	r.resetTime = reset
}

// RetryDelay computes how long to wait after a 429. Retry-After wins, then
// the reset header of the response, then the cached reset time.
func (r *RateLimiter) RetryDelay(resp *http.Response) time.Duration {
	now := r.now()

	if resp != nil {
		if v := resp.Header.Get(HeaderRetryAfter); v != "" {
			if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
				return time.Duration(seconds) * time.Second
			}
		}
		if v := resp.Header.Get(HeaderRateReset); v != "" {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				if reset := time.Unix(n, 0); reset.After(now) {
					return reset.Sub(now)
				}
			}
		}
	}

	r.mu.Lock()
	resetTime := r.resetTime
	r.mu.Unlock()

	if resetTime.After(now) {
		return resetTime.Sub(now)
	}
	return fallbackRetryDelay
}

// WaitUntil blocks until t or until ctx is done
func (r *RateLimiter) WaitUntil(ctx context.Context, t time.Time) error {
	return r.sleep(ctx, t.Sub(r.now()))
}

// WaitFor blocks for d or until ctx is done
func (r *RateLimiter) WaitFor(ctx context.Context, d time.Duration) error {
	return r.sleep(ctx, d)
}

