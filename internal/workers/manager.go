package workers

import (
	"context"
	"sync"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/logger"
	"github.com/alimgiray/gitreach/pkg/metrics"
)

// WorkerManager runs long-lived workers and the background scrapes
type WorkerManager struct {
	store    services.ScrapeStore
	enricher *services.EnrichmentService
	filter   *services.ContributorFilter
	metrics  *metrics.Metrics

	mu      sync.Mutex
	workers []Worker
	scrapes map[string]*ScrapeWorker
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(
	store services.ScrapeStore,
	enricher *services.EnrichmentService,
	filter *services.ContributorFilter,
	m *metrics.Metrics,
) *WorkerManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerManager{
		store:    store,
		enricher: enricher,
		filter:   filter,
		metrics:  m,
		scrapes:  make(map[string]*ScrapeWorker),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register adds a long-lived worker to be started by StartAll
func (wm *WorkerManager) Register(worker Worker) {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	wm.workers = append(wm.workers, worker)
}

// StartAll starts all registered workers
func (wm *WorkerManager) StartAll() {
	wm.mu.Lock()
	workers := append([]Worker(nil), wm.workers...)
	wm.mu.Unlock()

	for _, worker := range workers {
		wm.startWorker(worker, nil)
	}
	logger.Infof("Started %d workers", len(workers))
}

// LaunchScrape runs a scrape in the background and returns immediately
func (wm *WorkerManager) LaunchScrape(scrape models.Scrape, api services.GitHubAPI) {
	worker := NewScrapeWorker(scrape, api, wm.store, wm.enricher, wm.filter, wm.metrics)

	wm.mu.Lock()
	wm.scrapes[scrape.ID] = worker
	wm.mu.Unlock()

	wm.startWorker(worker, func() {
		wm.mu.Lock()
		delete(wm.scrapes, scrape.ID)
		wm.mu.Unlock()
	})
}

// StopAll cancels every worker and waits for them to finish
func (wm *WorkerManager) StopAll() {
	logger.Infof("Stopping all workers...")

	wm.cancel()

	wm.mu.Lock()
	workers := append([]Worker(nil), wm.workers...)
	wm.mu.Unlock()

	for _, worker := range workers {
		if err := worker.Stop(); err != nil {
			logger.WithField("worker_id", worker.GetWorkerID()).WithError(err).Warn("Error stopping worker")
		}
	}

	wm.wg.Wait()
	logger.Infof("All workers stopped")
}

// startWorker starts a single worker in a goroutine
func (wm *WorkerManager) startWorker(worker Worker, done func()) {
	wm.wg.Add(1)
	go func() {
		defer wm.wg.Done()
		if done != nil {
			defer done()
		}
		if err := worker.Start(wm.ctx); err != nil {
			logger.WithField("worker_id", worker.GetWorkerID()).WithError(err).Debug("Worker stopped with error")
		}
	}()
}

// GetWorkerStatus returns the running state of every worker and in-flight scrape
func (wm *WorkerManager) GetWorkerStatus() map[string]bool {
	wm.mu.Lock()
	defer wm.mu.Unlock()

	status := make(map[string]bool, len(wm.workers)+len(wm.scrapes))
	for _, worker := range wm.workers {
		if r, ok := worker.(interface{ IsRunning() bool }); ok {
			status[worker.GetWorkerID()] = r.IsRunning()
		} else {
			status[worker.GetWorkerID()] = false
		}
	}
	for id, worker := range wm.scrapes {
		status["scrape-"+id] = worker.IsRunning()
	}
	return status
}

// ActiveScrapes returns how many scrapes are running in this process
func (wm *WorkerManager) ActiveScrapes() int {
	wm.mu.Lock()
	defer wm.mu.Unlock()
	return len(wm.scrapes)
}

// Wait blocks until every launched scrape and worker has returned
func (wm *WorkerManager) Wait() {
	wm.wg.Wait()
}
