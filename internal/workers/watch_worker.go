package workers

import (
	"context"
	"errors"
	"fmt"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DueChecker runs one pass over the watched repos
type DueChecker interface {
	CheckDue(ctx context.Context) (*models.WatchCheckResult, error)
}

// WatchWorker triggers the watched repo check on a cron schedule
type WatchWorker struct {
	*BaseWorker
	schedule string
	checker  DueChecker
	log      *logrus.Entry
}

// NewWatchWorker creates a watch worker. The schedule is a standard five
// field cron expression.
func NewWatchWorker(workerID, schedule string, checker DueChecker) (*WatchWorker, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid watch schedule %q: %w", schedule, err)
	}
	return &WatchWorker{
		BaseWorker: NewBaseWorker(workerID),
		schedule:   schedule,
		checker:    checker,
		log:        logger.Component("watch").WithField("worker_id", workerID),
	}, nil
}

// Start begins the watch worker process
func (w *WatchWorker) Start(ctx context.Context) error {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(w.schedule, func() { w.runCheck(ctx) }); err != nil {
		return fmt.Errorf("schedule watch check: %w", err)
	}

	w.setRunning(true)
	scheduler.Start()
	w.log.WithField("schedule", w.schedule).Info("Watch worker started")

	select {
	case <-ctx.Done():
		w.log.Info("Watch worker stopping due to context cancellation")
	case <-w.StopChan:
		w.log.Info("Watch worker stopping")
	}

	// wait for a check in flight
	<-scheduler.Stop().Done()
	w.setRunning(false)
	return nil
}

func (w *WatchWorker) runCheck(ctx context.Context) {
	result, err := w.checker.CheckDue(ctx)
	if err != nil {
		if errors.Is(err, services.ErrCheckInProgress) {
			w.log.Debug("Previous watch check still running, skipping")
			return
		}
		w.log.WithError(err).Error("Watch check failed")
		return
	}

	found := 0
	for _, r := range result.Results {
		found += len(r.NewContributors)
	}
	w.log.WithFields(logrus.Fields{
		"checked":          result.Checked,
		"new_contributors": found,
	}).Info("Watch check finished")
}
