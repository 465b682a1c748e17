package services

import (
	"context"
	"time"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
)

// GitHubAPI is the subset of the GitHub client that discovery needs
type GitHubAPI interface {
	ListOrgRepos(ctx context.Context, org string) ([]githubclient.Repository, error)
	ListContributors(ctx context.Context, fullName string) ([]githubclient.Contributor, error)
	GetUser(ctx context.Context, login string) (*githubclient.User, error)
	ListSocialAccounts(ctx context.Context, login string) []githubclient.SocialAccount
	RateLimit(ctx context.Context) (*githubclient.RateLimit, error)
}

// ClientFactory builds a GitHub client for a token
type ClientFactory func(token string) (GitHubAPI, error)

// ScrapeStore persists scrapes and their contributors
type ScrapeStore interface {
	CreateScrape(ctx context.Context, scrape *models.Scrape) error
	UpdateScrapeProgress(ctx context.Context, id string, p models.ScrapeProgress) error
	FailScrape(ctx context.Context, id, message string) error
	CompleteScrape(ctx context.Context, id string, contributors []models.Contributor) error
	GetScrape(ctx context.Context, id string) (*models.Scrape, error)
	GetScrapeMetadata(ctx context.Context, id string) (*models.Scrape, error)
	GetScrapeContributorsPage(ctx context.Context, id string, page int) (*models.ContributorPage, error)
	ListScrapes(ctx context.Context) (*models.ScrapeList, error)
	DeleteScrape(ctx context.Context, id string) error
	UpdateContributorOutreach(ctx context.Context, username string, u models.OutreachUpdate) error
	GetContributor(ctx context.Context, username string) (*models.Contributor, error)
	UpsertContributor(ctx context.Context, c *models.Contributor) error
}

// WatchedRepoStore persists watched repos and the logins seen on them
type WatchedRepoStore interface {
	Create(ctx context.Context, w *models.WatchedRepo) error
	GetByID(ctx context.Context, id string) (*models.WatchedRepo, error)
	List(ctx context.Context) ([]models.WatchedRepo, error)
	Delete(ctx context.Context, id string) error
	MarkChecked(ctx context.Context, id string, at time.Time) error
	KnownContributors(ctx context.Context, id string) (map[string]bool, error)
	AddKnownContributor(ctx context.Context, id, login string, at time.Time) error
}

// ShareStore persists share links
type ShareStore interface {
	Create(ctx context.Context, s *models.SharedScrape) error
	GetByToken(ctx context.Context, token string) (*models.SharedScrape, error)
}

// Notifier delivers a batch of newly seen contributors
type Notifier interface {
	NotifyNewContributors(ctx context.Context, repo string, contributors []models.Contributor) error
}

// Launcher runs a scrape in the background
type Launcher interface {
	LaunchScrape(scrape models.Scrape, api GitHubAPI)
}

// NewGitHubClientFactory returns a factory building rate-limited clients
// sharing the given options
func NewGitHubClientFactory(opts ...githubclient.Option) ClientFactory {
	return func(token string) (GitHubAPI, error) {
		client, err := githubclient.New(token, opts...)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
