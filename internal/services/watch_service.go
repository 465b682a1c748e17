package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
	"github.com/sirupsen/logrus"
)

// ErrCheckInProgress is returned when a watched repo check is already running
var ErrCheckInProgress = errors.New("watched repo check already in progress")

// markCheckedTimeout bounds the last-checked write, which outlives the caller's context
const markCheckedTimeout = 10 * time.Second

// WatchService manages watched repos and finds their new contributors
type WatchService struct {
	repos    WatchedRepoStore
	store    ScrapeStore
	clients  ClientFactory
	token    string
	enricher *EnrichmentService
	filter   *ContributorFilter
	notifier Notifier
	metrics  *metrics.Metrics
	now      func() time.Time

	running sync.Mutex
}

func NewWatchService(
	repos WatchedRepoStore,
	store ScrapeStore,
	clients ClientFactory,
	token string,
	enricher *EnrichmentService,
	filter *ContributorFilter,
	notifier Notifier,
	m *metrics.Metrics,
) *WatchService {
	return &WatchService{
		repos:    repos,
		store:    store,
		clients:  clients,
		token:    token,
		enricher: enricher,
		filter:   filter,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}
}

// Add starts watching an owner/repo every intervalHours
func (s *WatchService) Add(ctx context.Context, repo string, intervalHours int) (*models.WatchedRepo, error) {
	w := models.NewWatchedRepo(repo, intervalHours)
	if err := w.Validate(); err != nil {
		return nil, err
	}
	if err := s.repos.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *WatchService) List(ctx context.Context) ([]models.WatchedRepo, error) {
	return s.repos.List(ctx)
}

func (s *WatchService) Delete(ctx context.Context, id string) error {
	return s.repos.Delete(ctx, id)
}

// CheckDue checks every active watched repo whose interval has elapsed.
// Only one check runs at a time.
func (s *WatchService) CheckDue(ctx context.Context) (*models.WatchCheckResult, error) {
	if !s.running.TryLock() {
		return nil, ErrCheckInProgress
	}
	defer s.running.Unlock()

	now := s.now()

	all, err := s.repos.List(ctx)
	if err != nil {
		return nil, err
	}

	var due []models.WatchedRepo
	for _, w := range all {
		if w.IsDue(now) {
			due = append(due, w)
		}
	}

	result := &models.WatchCheckResult{Checked: len(due), Results: []models.WatchRepoResult{}}
	if len(due) == 0 {
		return result, nil
	}

	api, err := s.clients(s.token)
	if err != nil {
		return nil, err
	}

	logger.Component("watch").WithFields(logrus.Fields{
		"due":     len(due),
		"watched": len(all),
	}).Info("Checking watched repos")

	for _, w := range due {
		result.Results = append(result.Results, s.checkRepo(ctx, api, w, now))
	}
	return result, nil
}

func (s *WatchService) checkRepo(ctx context.Context, api GitHubAPI, w models.WatchedRepo, now time.Time) models.WatchRepoResult {
	log := logger.Component("watch").WithFields(logrus.Fields{
		"watched_repo_id": w.ID,
		"repo":            w.Repo,
	})
	result := models.WatchRepoResult{Repo: w.Repo, NewContributors: []models.Contributor{}}

	// a broken repo must not be retried on every tick
	defer func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), markCheckedTimeout)
		defer cancel()
		if err := s.repos.MarkChecked(writeCtx, w.ID, now); err != nil {
			log.WithError(err).Error("Failed to update last checked time")
		}
	}()

	fresh, err := s.newContributors(ctx, api, w, log)
	if err != nil {
		log.WithError(err).Warn("Watched repo check failed")
		result.Error = FriendlyError(err, "Repository", w.Repo)
		s.metrics.WatchChecked("error", 0)
		return result
	}
	result.NewContributors = fresh
	s.metrics.WatchChecked("ok", len(fresh))

	if len(fresh) > 0 && s.notifier != nil {
		if err := s.notifier.NotifyNewContributors(ctx, w.Repo, fresh); err != nil {
			log.WithError(err).Warn("New contributor notification failed")
		}
	}

	log.WithField("new_contributors", len(fresh)).Info("Watched repo checked")
	return result
}

func (s *WatchService) newContributors(ctx context.Context, api GitHubAPI, w models.WatchedRepo, log *logrus.Entry) ([]models.Contributor, error) {
	listed, err := api.ListContributors(ctx, w.Repo)
	if err != nil {
		return nil, err
	}
	if len(listed) == 0 {
		return []models.Contributor{}, nil
	}

	known, err := s.repos.KnownContributors(ctx, w.ID)
	if err != nil {
		return nil, err
	}

	fresh := []models.Contributor{}
	for _, c := range listed {
		if known[c.Login] || s.filter.Excludes(c.Login, c.Type) {
			continue
		}

		contributor, err := s.enricher.Enrich(ctx, api, c)
		if err != nil {
			// left unrecorded so the next check retries it
			log.WithField("login", c.Login).WithError(err).Warn("Failed to enrich new contributor")
			continue
		}
		if err := s.store.UpsertContributor(ctx, &contributor); err != nil {
			log.WithField("login", c.Login).WithError(err).Error("Failed to store new contributor")
			continue
		}
		if err := s.repos.AddKnownContributor(ctx, w.ID, c.Login, s.now()); err != nil {
			log.WithField("login", c.Login).WithError(err).Error("Failed to record known contributor")
			continue
		}
		fresh = append(fresh, contributor)
	}

	return fresh, nil
}

// FriendlyError rewrites GitHub 404s into a spelling hint
func FriendlyError(err error, kind, name string) string {
	if githubclient.IsNotFound(err) {
		return fmt.Sprintf("%s %q not found. Please check the spelling and try again.", kind, name)
	}
	return err.Error()
}
