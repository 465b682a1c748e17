// Package githubclient is a thin paginating wrapper over the GitHub REST API
// for the endpoints contributor discovery needs.
package githubclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// PerPage is the page size used for every paginated endpoint
const PerPage = 100

// Repository is the subset of a repository listing the scraper uses
type Repository struct {
	FullName string
	Fork     bool
	Archived bool
}

// Contributor is one entry of a repository's contributor list
type Contributor struct {
	Login         string
	AvatarURL     string
	Contributions int
	Type          string
}

// User is a full GitHub profile
type User struct {
	Login           string
	Name            string
	AvatarURL       string
	Bio             string
	Email           string
	Blog            string
	TwitterUsername string
	Location        string
	Company         string
	Type            string
}

// SocialAccount is a link the user configured in their GitHub settings
type SocialAccount struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// RateLimit is the core API quota
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// Client talks to the GitHub REST API with one token and one rate limiter
type Client struct {
	gh      *github.Client
	limiter *RateLimiter
}

type options struct {
	baseURL           string
	requestsPerSecond float64
	minRemaining      int
	metrics           *metrics.Metrics
	base              http.RoundTripper
}

// Option configures a Client
type Option func(*options)

// WithBaseURL points the client at a GitHub Enterprise or test server
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = baseURL }
}

// WithRequestRate sets the proactive request rate; zero or less disables it
func WithRequestRate(perSecond float64) Option {
	return func(o *options) { o.requestsPerSecond = perSecond }
}

// WithMinRemaining sets how many requests are held in reserve
func WithMinRemaining(n int) Option {
	return func(o *options) { o.minRemaining = n }
}

// WithMetrics records response and rate limit metrics
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTransport replaces the underlying HTTP transport
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.base = rt }
}

// New creates a client authenticated with token. An empty token makes
// unauthenticated requests.
func New(token string, opts ...Option) (*Client, error) {
	o := options{
		requestsPerSecond: DefaultRequestsPerSecond,
		minRemaining:      DefaultMinRemaining,
		base:              http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}

	limiter := NewRateLimiter(o.requestsPerSecond, o.minRemaining)

	var transport http.RoundTripper = &rateLimitTransport{
		base:    o.base,
		limiter: limiter,
		metrics: o.metrics,
	}
	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   transport,
		}
	}

	gh := github.NewClient(&http.Client{Transport: transport})
	if o.baseURL != "" {
		baseURL := o.baseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse github base url: %w", err)
		}
		gh.BaseURL = u
	}

	return &Client{gh: gh, limiter: limiter}, nil
}

// ListOrgRepos returns every repository of org, forks and archived included
func (c *Client) ListOrgRepos(ctx context.Context, org string) ([]Repository, error) {
	opts := &github.RepositoryListByOrgOptions{
		Type:        "all",
		ListOptions: github.ListOptions{PerPage: PerPage},
	}

	var all []Repository
	for {
		var (
			page []*github.Repository
			resp *github.Response
		)
		err := c.call(ctx, "list org repos", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Repositories.ListByOrg(ctx, org, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, r := range page {
			all = append(all, Repository{
				FullName: r.GetFullName(),
				Fork:     r.GetFork(),
				Archived: r.GetArchived(),
			})
		}

		if len(page) < PerPage || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// ListContributors returns the contributors of an owner/repo in listing order
func (c *Client) ListContributors(ctx context.Context, fullName string) ([]Contributor, error) {
	owner, repo, err := parseRepoFullName(fullName)
	if err != nil {
		return nil, err
	}

	opts := &github.ListContributorsOptions{
		ListOptions: github.ListOptions{PerPage: PerPage},
	}

	var all []Contributor
	for {
		var (
			page []*github.Contributor
			resp *github.Response
		)
		err := c.call(ctx, "list contributors", func() (*github.Response, error) {
			var err error
			page, resp, err = c.gh.Repositories.ListContributors(ctx, owner, repo, opts)
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, contributor := range page {
			if contributor.GetLogin() == "" {
				continue
			}
			all = append(all, Contributor{
				Login:         contributor.GetLogin(),
				AvatarURL:     contributor.GetAvatarURL(),
				Contributions: contributor.GetContributions(),
				Type:          contributor.GetType(),
			})
		}

		if len(page) < PerPage || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// GetUser fetches the full profile of login
func (c *Client) GetUser(ctx context.Context, login string) (*User, error) {
	var user *github.User
	err := c.call(ctx, "get user", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		user, resp, err = c.gh.Users.Get(ctx, login)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	return &User{
		Login:           firstNonEmpty(user.GetLogin(), login),
		Name:            user.GetName(),
		AvatarURL:       user.GetAvatarURL(),
		Bio:             user.GetBio(),
		Email:           user.GetEmail(),
		Blog:            user.GetBlog(),
		TwitterUsername: user.GetTwitterUsername(),
		Location:        user.GetLocation(),
		Company:         user.GetCompany(),
		Type:            user.GetType(),
	}, nil
}

// ListSocialAccounts returns the user's configured social links. Failures
// are logged and yield an empty list since most users have none.
func (c *Client) ListSocialAccounts(ctx context.Context, login string) []SocialAccount {
	var accounts []SocialAccount
	err := c.call(ctx, "list social accounts", func() (*github.Response, error) {
		req, err := c.gh.NewRequest(http.MethodGet, fmt.Sprintf("users/%s/social_accounts?per_page=%d", url.PathEscape(login), PerPage), nil)
		if err != nil {
			return nil, err
		}
		accounts = nil
		return c.gh.Do(ctx, req, &accounts)
	})
	if err != nil {
		logger.Component("github").WithField("login", login).WithError(err).Debug("Social accounts unavailable")
		return []SocialAccount{}
	}

	if accounts == nil {
		return []SocialAccount{}
	}
	return accounts
}

// RateLimit returns the core quota and seeds the limiter with it
func (c *Client) RateLimit(ctx context.Context) (*RateLimit, error) {
	var limits *github.RateLimits
	err := c.call(ctx, "get rate limit", func() (*github.Response, error) {
		var (
			resp *github.Response
			err  error
		)
		limits, resp, err = c.gh.RateLimits(ctx)
		return resp, err
	})
	if err != nil {
		return nil, err
	}

	core := limits.GetCore()
	if core == nil {
		return nil, fmt.Errorf("get rate limit: missing core resource")
	}

	rl := &RateLimit{Limit: core.Limit, Remaining: core.Remaining, Reset: core.Reset.Time}
	c.limiter.Update(rl.Limit, rl.Remaining, rl.Reset)
	return rl, nil
}

// call runs fn, waiting out a primary or secondary rate limit once before
// retrying, and maps the outcome to this package's errors.
func (c *Client) call(ctx context.Context, op string, fn func() (*github.Response, error)) error {
	_, err := fn()

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	switch {
	case errors.As(err, &rateErr):
		logger.Component("github").WithField("reset", rateErr.Rate.Reset.Time).Warn("Primary rate limit exhausted, waiting for reset")
		if werr := c.limiter.WaitUntil(ctx, rateErr.Rate.Reset.Time); werr != nil {
			return fmt.Errorf("%s: %w", op, werr)
		}
		_, err = fn()
	case errors.As(err, &abuseErr):
		delay := fallbackRetryDelay
		if abuseErr.RetryAfter != nil {
			delay = *abuseErr.RetryAfter
		}
		logger.Component("github").WithField("delay", delay.String()).Warn("Secondary rate limit hit, waiting before retry")
		if werr := c.limiter.WaitFor(ctx, delay); werr != nil {
			return fmt.Errorf("%s: %w", op, werr)
		}
		_, err = fn()
	}

	return wrapError(err, op)
}

func wrapError(err error, op string) error {
	if err == nil {
		return nil
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(apiErr.StatusCode)
		}
		return apiErr
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return &APIError{StatusCode: rateErr.Response.StatusCode, Message: rateErr.Message}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func parseRepoFullName(fullName string) (owner, repo string, err error) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository name format: %s", fullName)
	}
	return parts[0], parts[1], nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
