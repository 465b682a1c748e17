package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// terminalWriteTimeout bounds the final store write of a scrape. It runs on
// a fresh context so a shutdown still records the outcome.
const terminalWriteTimeout = 30 * time.Second

// maxRunningProgress is held back from 100 until the results are stored
const maxRunningProgress = 99

// emptyResultError is a whole-scrape failure shown to the user as is
type emptyResultError string

func (e emptyResultError) Error() string {
	return string(e)
}

// ScrapeWorker runs one scrape from enumeration to its terminal state
type ScrapeWorker struct {
	*BaseWorker
	scrape   models.Scrape
	api      services.GitHubAPI
	store    services.ScrapeStore
	enricher *services.EnrichmentService
	filter   *services.ContributorFilter
	metrics  *metrics.Metrics
	log      *logrus.Entry

	progress int
}

// NewScrapeWorker creates a worker for an already stored active scrape
func NewScrapeWorker(
	scrape models.Scrape,
	api services.GitHubAPI,
	store services.ScrapeStore,
	enricher *services.EnrichmentService,
	filter *services.ContributorFilter,
	m *metrics.Metrics,
) *ScrapeWorker {
	return &ScrapeWorker{
		BaseWorker: NewBaseWorker("scrape-" + scrape.ID),
		scrape:     scrape,
		api:        api,
		store:      store,
		enricher:   enricher,
		filter:     filter,
		metrics:    m,
		log: logger.Component("scrape").WithFields(logrus.Fields{
			"scrape_id": scrape.ID,
			"type":      scrape.Type,
			"target":    scrape.Target,
		}),
	}
}

// Start runs the scrape to completion. The outcome is written to the store;
// the returned error is informational only.
func (w *ScrapeWorker) Start(ctx context.Context) (err error) {
	w.setRunning(true)
	started := time.Now()
	status := "completed"

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scrape panicked: %v", r)
			w.log.WithField("panic", r).Error("Scrape panicked")
			w.fail("Internal error while scraping")
			status = "failed"
		}
		w.setRunning(false)
		w.metrics.ScrapeFinished(string(w.scrape.Type), status, time.Since(started).Seconds())
	}()

	w.log.Info("Scrape running")

	contributors, err := w.collect(ctx)
	if err != nil {
		status = "failed"
		w.log.WithError(err).Warn("Scrape failed")
		w.fail(w.failureMessage(err))
		return err
	}

	contributors = w.filter.Apply(contributors)

	writeCtx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	if err := w.store.CompleteScrape(writeCtx, w.scrape.ID, contributors); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			status = "discarded"
			w.log.Info("Scrape was deleted while running, results discarded")
			return nil
		}
		status = "failed"
		w.log.WithError(err).Error("Failed to store scrape results")
		w.fail("Failed to save scrape results")
		return err
	}

	w.log.WithFields(logrus.Fields{
		"contributors": len(contributors),
		"duration":     time.Since(started).Round(time.Millisecond).String(),
	}).Info("Scrape completed")
	return nil
}

func (w *ScrapeWorker) collect(ctx context.Context) ([]models.Contributor, error) {
	switch w.scrape.Type {
	case models.ScrapeTypeOrganization:
		return w.collectOrganization(ctx)
	case models.ScrapeTypeRepository:
		return w.collectRepository(ctx)
	default:
		return nil, fmt.Errorf("unsupported scrape type %q", w.scrape.Type)
	}
}

func (w *ScrapeWorker) collectOrganization(ctx context.Context) ([]models.Contributor, error) {
	org := w.scrape.Target

	repos, err := w.api.ListOrgRepos(ctx, org)
	if err != nil {
		return nil, err
	}

	eligible := make([]githubclient.Repository, 0, len(repos))
	for _, r := range repos {
		if r.Fork || r.Archived {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return nil, emptyResultError(fmt.Sprintf("No public, non-fork, non-archived repositories found for organization %q", org))
	}

	w.log.WithFields(logrus.Fields{
		"repos":    len(repos),
		"eligible": len(eligible),
	}).Info("Enumerated organization repositories")

	acc := newContributorAccumulator()
	total := len(eligible)

	for i, repo := range eligible {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.reportProgress(ctx, maxRunningProgress*i/total, i, total, "")

		listed, err := w.api.ListContributors(ctx, repo.FullName)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			w.log.WithField("repo", repo.FullName).WithError(err).Warn("Failed to list repository contributors, skipping")
			continue
		}

		fresh := w.accumulate(acc, listed)
		for j, c := range fresh {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			pct := maxRunningProgress * (i*len(fresh) + j) / (total * len(fresh))
			w.reportProgress(ctx, pct, i, total, c.Login)
			w.enrich(ctx, acc, c)
		}
	}

	if acc.len() == 0 {
		return nil, emptyResultError(fmt.Sprintf("No contributors found for organization %q", org))
	}
	return acc.list(), nil
}

func (w *ScrapeWorker) collectRepository(ctx context.Context) ([]models.Contributor, error) {
	repo := w.scrape.Target

	listed, err := w.api.ListContributors(ctx, repo)
	if err != nil {
		return nil, err
	}

	acc := newContributorAccumulator()
	fresh := w.accumulate(acc, listed)
	if acc.len() == 0 {
		return nil, emptyResultError(fmt.Sprintf("No contributors found for repository %q", repo))
	}

	for i, c := range fresh {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w.reportProgress(ctx, maxRunningProgress*i/len(fresh), i, len(fresh), c.Login)
		w.enrich(ctx, acc, c)
	}
	return acc.list(), nil
}

// accumulate folds a listing into acc and returns the logins seen for the
// first time, in listing order
func (w *ScrapeWorker) accumulate(acc *contributorAccumulator, listed []githubclient.Contributor) []githubclient.Contributor {
	var fresh []githubclient.Contributor
	for _, c := range listed {
		if w.filter.Excludes(c.Login, c.Type) {
			continue
		}
		if acc.add(c) {
			fresh = append(fresh, c)
		}
	}
	return fresh
}

func (w *ScrapeWorker) enrich(ctx context.Context, acc *contributorAccumulator, listed githubclient.Contributor) {
	if !acc.needsEnrichment(listed.Login) {
		return
	}

	c, err := w.enricher.Enrich(ctx, w.api, listed)
	if err != nil {
		w.log.WithField("login", listed.Login).WithError(err).Warn("Failed to enrich contributor, keeping listing data")
		acc.markAttempted(listed.Login)
		return
	}
	acc.setEnriched(listed.Login, c)
}

// reportProgress stores progress, never letting it move backwards
func (w *ScrapeWorker) reportProgress(ctx context.Context, pct, current, total int, login string) {
	if pct < w.progress {
		pct = w.progress
	}
	w.progress = pct

	err := w.store.UpdateScrapeProgress(ctx, w.scrape.ID, models.ScrapeProgress{
		Progress:         pct,
		Current:          current,
		Total:            total,
		CurrentUserLogin: login,
	})
	if err != nil && ctx.Err() == nil {
		w.log.WithError(err).Debug("Failed to update scrape progress")
	}
}

func (w *ScrapeWorker) fail(message string) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	if err := w.store.FailScrape(ctx, w.scrape.ID, message); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			w.log.Debug("Scrape no longer active, failure not recorded")
			return
		}
		w.log.WithError(err).Error("Failed to mark scrape as failed")
	}
}

func (w *ScrapeWorker) failureMessage(err error) string {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "Scrape interrupted by shutdown"
	}

	kind := "Repository"
	if w.scrape.Type == models.ScrapeTypeOrganization {
		kind = "Organization"
	}
	return services.FriendlyError(err, kind, w.scrape.Target)
}
