package app

import (
	"fmt"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/repositories"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/internal/workers"
	"github.com/alimgiray/gitreach/pkg/config"
	"github.com/alimgiray/gitreach/pkg/database"
	"github.com/alimgiray/gitreach/pkg/metrics"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// App holds the wired services shared by the server and the CLI
type App struct {
	Config   *config.Config
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	Store        *repositories.SQLStore
	WatchedRepos *repositories.WatchedRepoRepository
	Shares       *repositories.ShareRepository

	Clients  services.ClientFactory
	Enricher *services.EnrichmentService
	Filter   *services.ContributorFilter
	Notifier *services.SlackNotifier
	Workers  *workers.WorkerManager

	Scrapes *services.ScrapeService
	Watch   *services.WatchService
	Export  *services.ExportService
	Share   *services.ShareService
}

// New opens and migrates the database and wires every service from cfg
func New(cfg *config.Config) (*App, error) {
	if err := database.Init(cfg.Database.Path); err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	db := database.DB

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []githubclient.Option{
		githubclient.WithRequestRate(cfg.GitHub.RequestsPerSecond),
		githubclient.WithMinRemaining(cfg.GitHub.MinRemaining),
		githubclient.WithMetrics(m),
	}
	if cfg.GitHub.APIURL != "" {
		opts = append(opts, githubclient.WithBaseURL(cfg.GitHub.APIURL))
	}

	a := &App{
		Config:       cfg,
		DB:           db,
		Registry:     reg,
		Metrics:      m,
		Store:        repositories.NewSQLStore(db),
		WatchedRepos: repositories.NewWatchedRepoRepository(db),
		Shares:       repositories.NewShareRepository(db),
		Clients:      services.NewGitHubClientFactory(opts...),
		Enricher:     services.NewEnrichmentService(m),
		Filter:       services.NewContributorFilter(cfg.Filter),
		Notifier:     services.NewSlackNotifier(cfg.Slack.WebhookURL, m),
	}

	a.Workers = workers.NewWorkerManager(a.Store, a.Enricher, a.Filter, m)
	a.Scrapes = services.NewScrapeService(a.Store, a.Clients, a.Workers, cfg.GitHub.Token, cfg.GitHub.MinRemaining, m)
	a.Watch = services.NewWatchService(a.WatchedRepos, a.Store, a.Clients, cfg.GitHub.Token, a.Enricher, a.Filter, a.Notifier, m)
	a.Export = services.NewExportService(a.Store)
	a.Share = services.NewShareService(a.Shares, a.Store)

	return a, nil
}

// Close releases the database
func (a *App) Close() error {
	return database.Close()
}
