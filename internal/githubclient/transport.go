package githubclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
)

// rateLimitTransport throttles outgoing requests and retries a 429 once after
// the advertised delay. Empty or non-JSON success bodies become an empty body
// so decoding yields a zero value. Non-JSON error bodies are wrapped as a JSON
// message so their text reaches the returned error.
type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *RateLimiter
	metrics *metrics.Metrics
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := logger.Component("github").WithField("path", req.URL.Path)

	waited, err := t.limiter.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	if waited {
		t.metrics.RateLimitWaited()
		log.Info("Waited for rate limit reset before request")
	}

	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		delay := t.limiter.RetryDelay(resp)
		drain(resp)

		log.WithField("delay", delay.String()).Warn("Rate limited by GitHub, retrying after delay")
		t.metrics.RateLimitWaited()
		if err := t.limiter.WaitFor(ctx, delay); err != nil {
			return nil, fmt.Errorf("rate limit retry wait: %w", err)
		}

		retry := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewind request body: %w", err)
			}
			retry.Body = body
		}

		resp, err = t.send(retry)
		if err != nil {
			return nil, err
		}
	}

	return normalizeBody(resp)
}

func (t *rateLimitTransport) send(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.limiter.UpdateFromResponse(resp)
	t.metrics.GitHubResponse(resp.StatusCode)
	return resp, nil
}

// maxErrorMessage caps the error body text kept from non-JSON responses
const maxErrorMessage = 512

func normalizeBody(resp *http.Response) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read github response: %w", err)
	}

	trimmed := bytes.TrimSpace(body)
	valid := len(trimmed) > 0 && json.Valid(trimmed)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		if !valid {
			body = nil
		}
	case !valid && len(trimmed) > 0:
		body, err = json.Marshal(map[string]string{"message": errorText(trimmed)})
		if err != nil {
			return nil, fmt.Errorf("wrap github error body: %w", err)
		}
		resp.Header.Set("Content-Type", "application/json")
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func errorText(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) > maxErrorMessage {
		text = text[:maxErrorMessage] + "..."
	}
	return text
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
