package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
)

// ErrRateLimitTooLow is returned when the token has too little quota left to
// start a scrape
var ErrRateLimitTooLow = errors.New("GitHub API rate limit too low")

// StartScrapeRequest is the input for starting a scrape
type StartScrapeRequest struct {
	Type   models.ScrapeType `json:"type"`
	Target string            `json:"target"`
	Token  string            `json:"token"`
}

// StartScrapeResult is the created scrape and the quota observed before it
type StartScrapeResult struct {
	Scrape    *models.Scrape          `json:"scrape"`
	RateLimit *githubclient.RateLimit `json:"rateLimit"`
}

// ScrapeService starts scrapes and serves their results
type ScrapeService struct {
	store        ScrapeStore
	clients      ClientFactory
	launcher     Launcher
	defaultToken string
	minRemaining int
	metrics      *metrics.Metrics
}

func NewScrapeService(
	store ScrapeStore,
	clients ClientFactory,
	launcher Launcher,
	defaultToken string,
	minRemaining int,
	m *metrics.Metrics,
) *ScrapeService {
	return &ScrapeService{
		store:        store,
		clients:      clients,
		launcher:     launcher,
		defaultToken: defaultToken,
		minRemaining: minRemaining,
		metrics:      m,
	}
}

// StartScrape validates the request, checks the token's quota, records the
// scrape and hands it to the launcher. It returns without waiting for the
// scrape to run.
func (s *ScrapeService) StartScrape(ctx context.Context, req StartScrapeRequest) (*StartScrapeResult, error) {
	scrape := models.NewScrape(req.Type, req.Target)
	if err := scrape.Validate(); err != nil {
		return nil, err
	}

	api, rl, err := s.checkedClient(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateScrape(ctx, scrape); err != nil {
		return nil, err
	}

	s.metrics.ScrapeStarted(string(scrape.Type))
	logger.Component("scrape").WithFields(map[string]interface{}{
		"scrape_id": scrape.ID,
		"type":      scrape.Type,
		"target":    scrape.Target,
		"remaining": rl.Remaining,
	}).Info("Scrape started")

	s.launcher.LaunchScrape(*scrape, api)

	return &StartScrapeResult{Scrape: scrape, RateLimit: rl}, nil
}

func (s *ScrapeService) checkedClient(ctx context.Context, token string) (GitHubAPI, *githubclient.RateLimit, error) {
	api, err := s.client(token)
	if err != nil {
		return nil, nil, err
	}

	rl, err := api.RateLimit(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("check rate limit: %w", err)
	}

	if rl.Remaining < s.minRemaining {
		return nil, rl, fmt.Errorf("%w: %d requests remaining, resets at %s",
			ErrRateLimitTooLow, rl.Remaining, rl.Reset.Format("15:04:05 MST"))
	}
	return api, rl, nil
}

func (s *ScrapeService) client(token string) (GitHubAPI, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = s.defaultToken
	}
	if token == "" {
		return nil, models.ErrTokenRequired
	}
	return s.clients(token)
}

// RateLimit returns the quota of a token, falling back to the configured one
func (s *ScrapeService) RateLimit(ctx context.Context, token string) (*githubclient.RateLimit, error) {
	api, err := s.client(token)
	if err != nil {
		return nil, err
	}
	return api.RateLimit(ctx)
}

// GetScrape returns a scrape with every contributor
func (s *ScrapeService) GetScrape(ctx context.Context, id string) (*models.Scrape, error) {
	return s.store.GetScrape(ctx, id)
}

// GetScrapePage returns a scrape's metadata and one page of contributors
func (s *ScrapeService) GetScrapePage(ctx context.Context, id string, page int) (*models.ScrapePage, error) {
	scrape, err := s.store.GetScrapeMetadata(ctx, id)
	if err != nil {
		return nil, err
	}

	contributors, err := s.store.GetScrapeContributorsPage(ctx, id, page)
	if err != nil {
		return nil, err
	}

	scrape.Contributors = contributors.Contributors
	return &models.ScrapePage{
		Scrape:           *scrape,
		ContributorTotal: contributors.Total,
		Page:             contributors.Page,
		HasMore:          contributors.HasMore,
	}, nil
}

func (s *ScrapeService) ListScrapes(ctx context.Context) (*models.ScrapeList, error) {
	return s.store.ListScrapes(ctx)
}

// DeleteScrape removes a scrape. A running scrape keeps going but its
// results are discarded.
func (s *ScrapeService) DeleteScrape(ctx context.Context, id string) error {
	scrape, err := s.store.GetScrapeMetadata(ctx, id)
	if err != nil {
		return err
	}
	if scrape.IsActive() {
		logger.Component("scrape").WithField("scrape_id", id).Info("Deleting running scrape, its results will be discarded")
	}
	return s.store.DeleteScrape(ctx, id)
}

// UpdateOutreach records the operator's outreach state for a contributor and
// returns the updated record
func (s *ScrapeService) UpdateOutreach(ctx context.Context, username string, u models.OutreachUpdate) (*models.Contributor, error) {
	if strings.TrimSpace(username) == "" {
		return nil, &models.ValidationError{Field: "username", Message: "Username is required"}
	}
	if u.IsEmpty() {
		return nil, &models.ValidationError{Field: "update", Message: "No outreach fields to update"}
	}
	if err := s.store.UpdateContributorOutreach(ctx, username, u); err != nil {
		return nil, err
	}
	return s.store.GetContributor(ctx, username)
}
