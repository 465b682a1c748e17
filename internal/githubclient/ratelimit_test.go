package githubclient

import (
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedLimiter(now time.Time) (*RateLimiter, *[]time.Duration) {
	r := NewRateLimiter(0, DefaultMinRemaining)
	r.now = func() time.Time { return now }

	var slept []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return r, &slept
}

func headerResponse(headers map[string]string) *http.Response {
	resp := &http.Response{Header: http.Header{}}
	for k, v := range headers {
		resp.Header.Set(k, v)
	}
	return resp
}

func TestWaitBlocksWhenQuotaLow(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r, slept := fixedLimiter(now)

	r.Update(5000, 50, now.Add(90*time.Second))

	waited, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.True(t, waited)
	assert.Equal(t, []time.Duration{90 * time.Second}, *slept)
}

func TestWaitPassesWithQuota(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	r, slept := fixedLimiter(now)

	r.Update(5000, 4000, now.Add(time.Hour))

	waited, err := r.Wait(context.Background())
	require.NoError(t, err)
	assert.False(t, waited)
	assert.Empty(t, *slept)
}

func TestUpdateFromResponse(t *testing.T) {
	r, _ := fixedLimiter(time.Now())

	r.UpdateFromResponse(headerResponse(map[string]string{
		HeaderRateLimit:     "60",
		HeaderRateRemaining: "12",
		HeaderRateReset:     "1700000000",
	}))

	assert.Equal(t, 60, r.limit)
	assert.Equal(t, 12, r.remaining)
	assert.Equal(t, time.Unix(1700000000, 0), r.resetTime)
}

func TestRetryDelay(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name    string
		headers map[string]string
		cached  time.Time
		want    time.Duration
	}{
		{
			name:    "retry after wins",
			headers: map[string]string{HeaderRetryAfter: "3", HeaderRateReset: strconv.FormatInt(now.Add(time.Minute).Unix(), 10)},
			want:    3 * time.Second,
		},
		{
			name:    "reset header",
			headers: map[string]string{HeaderRateReset: strconv.FormatInt(now.Add(time.Minute).Unix(), 10)},
			want:    time.Minute,
		},
		{
			name:   "cached reset",
			cached: now.Add(2 * time.Minute),
			want:   2 * time.Minute,
		},
		{
			name: "fallback",
			want: fallbackRetryDelay,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := fixedLimiter(now)
			if !tt.cached.IsZero() {
				r.Update(5000, 0, tt.cached)
			}
			assert.Equal(t, tt.want, r.RetryDelay(headerResponse(tt.headers)))
		})
	}
}

func TestSleepContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sleepContext(ctx, time.Hour), context.Canceled)
	assert.NoError(t, sleepContext(ctx, 0))
}
