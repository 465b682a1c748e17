package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingChecker struct {
	calls atomic.Int32
	err   error
}

func (c *countingChecker) CheckDue(ctx context.Context) (*models.WatchCheckResult, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return &models.WatchCheckResult{}, nil
}

func TestWorkerManagerLaunchScrape(t *testing.T) {
	api := newFakeAPI()
	api.contributors["acme/widget"] = []githubclient.Contributor{{Login: "amy", Contributions: 2}}

	store := newRecordingStore()
	scrape := models.NewScrape(models.ScrapeTypeRepository, "acme/widget")
	require.NoError(t, store.CreateScrape(context.Background(), scrape))

	wm := NewWorkerManager(store, services.NewEnrichmentService(nil), nil, nil)
	var launcher services.Launcher = wm
	launcher.LaunchScrape(*scrape, api)
	wm.Wait()

	stored, err := store.GetScrapeMetadata(context.Background(), scrape.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ScrapeStatusCompleted, stored.Status)
	assert.Equal(t, 0, wm.ActiveScrapes())
}

func TestWorkerManagerStartStop(t *testing.T) {
	checker := &countingChecker{}
	watch, err := NewWatchWorker("watch-1", "@every 1h", checker)
	require.NoError(t, err)

	wm := NewWorkerManager(newRecordingStore(), services.NewEnrichmentService(nil), nil, nil)
	wm.Register(watch)
	wm.StartAll()

	assert.Eventually(t, watch.IsRunning, time.Second, 10*time.Millisecond)
	assert.Equal(t, map[string]bool{"watch-1": true}, wm.GetWorkerStatus())

	done := make(chan struct{})
	go func() {
		wm.StopAll()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("StopAll did not return")
	}
	assert.False(t, watch.IsRunning())
}

func TestNewWatchWorkerRejectsBadSchedule(t *testing.T) {
	_, err := NewWatchWorker("watch-1", "every tuesday", &countingChecker{})
	assert.Error(t, err)
}

func TestWatchWorkerRunCheck(t *testing.T) {
	checker := &countingChecker{}
	watch, err := NewWatchWorker("watch-1", "0 * * * *", checker)
	require.NoError(t, err)

	watch.runCheck(context.Background())
	assert.Equal(t, int32(1), checker.calls.Load())

	checker.err = services.ErrCheckInProgress
	watch.runCheck(context.Background())
	assert.Equal(t, int32(2), checker.calls.Load())
}
