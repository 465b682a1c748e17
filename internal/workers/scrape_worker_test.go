package workers

import (
	"context"
	"testing"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
	"github.com/alimgiray/gitreach/internal/services"
	"github.com/alimgiray/gitreach/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScrape(t *testing.T, api *fakeAPI, scrapeType models.ScrapeType, target string, filter *services.ContributorFilter) (*recordingStore, models.Scrape) {
	t.Helper()
	store := newRecordingStore()
	scrape := models.NewScrape(scrapeType, target)
	require.NoError(t, store.CreateScrape(context.Background(), scrape))

	worker := NewScrapeWorker(*scrape, api, store, services.NewEnrichmentService(nil), filter, nil)
	_ = worker.Start(context.Background())
	assert.False(t, worker.IsRunning())

	stored, err := store.GetScrapeMetadata(context.Background(), scrape.ID)
	require.NoError(t, err)
	return store, *stored
}

func byLogin(contributors []models.Contributor) map[string]models.Contributor {
	out := make(map[string]models.Contributor, len(contributors))
	for _, c := range contributors {
		out[c.Username] = c
	}
	return out
}

func TestOrganizationScrape(t *testing.T) {
	t.Run("fork and archived repos are skipped", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{
			{FullName: "acme/a"},
			{FullName: "acme/b", Fork: true},
			{FullName: "acme/c", Archived: true},
		}
		api.contributors["acme/a"] = []githubclient.Contributor{{Login: "bob", Contributions: 5}}
		api.contributors["acme/b"] = []githubclient.Contributor{{Login: "bob", Contributions: 10}}

		store, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		assert.Equal(t, models.ScrapeStatusCompleted, scrape.Status)
		assert.Equal(t, []string{"acme/a"}, api.listCalls)
		result := store.completed[scrape.ID]
		require.Len(t, result, 1)
		assert.Equal(t, "bob", result[0].Username)
		assert.Equal(t, 5, result[0].Contributions)
	})

	t.Run("logins across repos are merged and enriched once", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{{FullName: "acme/a"}, {FullName: "acme/b"}}
		api.contributors["acme/a"] = []githubclient.Contributor{
			{Login: "bob", Contributions: 3},
			{Login: "alice", Contributions: 1},
		}
		api.contributors["acme/b"] = []githubclient.Contributor{{Login: "bob", Contributions: 5}}
		api.users["bob"] = &githubclient.User{Login: "bob", Name: "Bob", Bio: "bob@example.com"}

		store, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		result := byLogin(store.completed[scrape.ID])
		require.Len(t, result, 2)
		assert.Equal(t, 8, result["bob"].Contributions)
		assert.Equal(t, "Bob", result["bob"].Name)
		assert.Equal(t, "bob@example.com", result["bob"].Contacts.Email)
		assert.Equal(t, 1, api.userCalls["bob"])
		assert.Equal(t, 1, api.userCalls["alice"])
	})

	t.Run("no eligible repos fails the scrape", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{{FullName: "acme/b", Fork: true}}

		store, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		assert.Equal(t, models.ScrapeStatusFailed, scrape.Status)
		require.NotNil(t, scrape.Error)
		assert.Contains(t, *scrape.Error, "No public, non-fork, non-archived repositories")
		assert.Empty(t, store.completed)
	})

	t.Run("repos without contributors fail the scrape", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{{FullName: "acme/a"}}

		store, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		assert.Equal(t, models.ScrapeStatusFailed, scrape.Status)
		assert.Equal(t, `No contributors found for organization "acme"`, *scrape.Error)
		assert.Empty(t, store.completed)
	})

	t.Run("unknown organization gets a friendly message", func(t *testing.T) {
		api := newFakeAPI()
		api.repoErr = &githubclient.APIError{StatusCode: 404, Message: "Not Found"}

		_, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acmee", nil)

		assert.Equal(t, models.ScrapeStatusFailed, scrape.Status)
		assert.Equal(t, `Organization "acmee" not found. Please check the spelling and try again.`, *scrape.Error)
	})

	t.Run("a failing repo does not abort the scrape", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{{FullName: "acme/a"}, {FullName: "acme/b"}}
		api.listErrs["acme/a"] = &githubclient.APIError{StatusCode: 500, Message: "boom"}
		api.contributors["acme/b"] = []githubclient.Contributor{{Login: "carol", Contributions: 2}}

		store, scrape := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		assert.Equal(t, models.ScrapeStatusCompleted, scrape.Status)
		require.Len(t, store.completed[scrape.ID], 1)
	})

	t.Run("progress never moves backwards", func(t *testing.T) {
		api := newFakeAPI()
		api.repos["acme"] = []githubclient.Repository{{FullName: "acme/a"}, {FullName: "acme/b"}, {FullName: "acme/c"}}
		api.contributors["acme/a"] = []githubclient.Contributor{{Login: "a1"}, {Login: "a2"}, {Login: "a3"}, {Login: "a4"}}
		api.contributors["acme/b"] = []githubclient.Contributor{{Login: "b1"}}
		api.contributors["acme/c"] = []githubclient.Contributor{{Login: "c1"}, {Login: "c2"}}

		store, _ := runScrape(t, api, models.ScrapeTypeOrganization, "acme", nil)

		require.NotEmpty(t, store.progress)
		last := -1
		for _, p := range store.progress {
			assert.GreaterOrEqual(t, p.Progress, last)
			assert.Less(t, p.Progress, 100)
			last = p.Progress
		}
	})
}

func TestRepositoryScrape(t *testing.T) {
	t.Run("enriches every contributor in listing order", func(t *testing.T) {
		api := newFakeAPI()
		api.contributors["acme/widget"] = []githubclient.Contributor{
			{Login: "zed", Contributions: 9},
			{Login: "amy", Contributions: 4},
		}

		store, scrape := runScrape(t, api, models.ScrapeTypeRepository, "acme/widget", nil)

		assert.Equal(t, models.ScrapeStatusCompleted, scrape.Status)
		result := store.completed[scrape.ID]
		require.Len(t, result, 2)
		assert.Equal(t, "zed", result[0].Username)
		assert.Equal(t, "amy", result[1].Username)
		assert.Equal(t, []string{"zed", "amy"}, []string{store.progress[0].CurrentUserLogin, store.progress[1].CurrentUserLogin})
	})

	t.Run("enrichment failure keeps the contributor without contacts", func(t *testing.T) {
		api := newFakeAPI()
		api.contributors["acme/widget"] = []githubclient.Contributor{
			{Login: "ghost", Contributions: 2},
			{Login: "amy", Contributions: 4},
		}
		api.userErrs["ghost"] = &githubclient.APIError{StatusCode: 404, Message: "Not Found"}
		api.users["amy"] = &githubclient.User{Login: "amy", Bio: "amy@example.com"}

		store, scrape := runScrape(t, api, models.ScrapeTypeRepository, "acme/widget", nil)

		assert.Equal(t, models.ScrapeStatusCompleted, scrape.Status)
		result := byLogin(store.completed[scrape.ID])
		require.Len(t, result, 2)
		assert.True(t, result["ghost"].Contacts.IsEmpty())
		assert.Equal(t, 2, result["ghost"].Contributions)
		assert.Equal(t, "amy@example.com", result["amy"].Contacts.Email)
	})

	t.Run("empty repository fails the scrape", func(t *testing.T) {
		api := newFakeAPI()

		store, scrape := runScrape(t, api, models.ScrapeTypeRepository, "acme/empty", nil)

		assert.Equal(t, models.ScrapeStatusFailed, scrape.Status)
		assert.Equal(t, `No contributors found for repository "acme/empty"`, *scrape.Error)
		assert.Empty(t, store.completed)
	})

	t.Run("filter drops bots before enrichment and low counts after", func(t *testing.T) {
		api := newFakeAPI()
		api.contributors["acme/widget"] = []githubclient.Contributor{
			{Login: "dependabot[bot]", Contributions: 50, Type: "Bot"},
			{Login: "amy", Contributions: 4},
			{Login: "drive-by", Contributions: 1},
		}
		filter := services.NewContributorFilter(config.FilterConfig{MinContributions: 2, ExcludeBots: true})

		store, scrape := runScrape(t, api, models.ScrapeTypeRepository, "acme/widget", filter)

		result := store.completed[scrape.ID]
		require.Len(t, result, 1)
		assert.Equal(t, "amy", result[0].Username)
		assert.Zero(t, api.userCalls["dependabot[bot]"])
	})

	t.Run("panic marks the scrape failed", func(t *testing.T) {
		api := newFakeAPI()
		api.contributors["acme/widget"] = []githubclient.Contributor{{Login: "boom"}}
		api.panicOn = "boom"

		_, scrape := runScrape(t, api, models.ScrapeTypeRepository, "acme/widget", nil)

		assert.Equal(t, models.ScrapeStatusFailed, scrape.Status)
		assert.Equal(t, "Internal error while scraping", *scrape.Error)
	})
}

func TestScrapeDeletedWhileRunning(t *testing.T) {
	api := newFakeAPI()
	api.contributors["acme/widget"] = []githubclient.Contributor{{Login: "amy"}}

	store := newRecordingStore()
	scrape := models.NewScrape(models.ScrapeTypeRepository, "acme/widget")

	worker := NewScrapeWorker(*scrape, api, store, services.NewEnrichmentService(nil), nil, nil)
	assert.NoError(t, worker.Start(context.Background()))
	assert.Empty(t, store.completed)
	assert.Empty(t, store.failures)
}

func TestScrapeCancelled(t *testing.T) {
	api := newFakeAPI()
	api.contributors["acme/widget"] = []githubclient.Contributor{{Login: "amy"}}

	store := newRecordingStore()
	scrape := models.NewScrape(models.ScrapeTypeRepository, "acme/widget")
	require.NoError(t, store.CreateScrape(context.Background(), scrape))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	worker := NewScrapeWorker(*scrape, api, store, services.NewEnrichmentService(nil), nil, nil)
	assert.ErrorIs(t, worker.Start(ctx), context.Canceled)
	assert.Equal(t, "Scrape interrupted by shutdown", store.failures[scrape.ID])
}

func TestContributorAccumulator(t *testing.T) {
	acc := newContributorAccumulator()

	assert.True(t, acc.add(githubclient.Contributor{Login: "bob", Contributions: 3}))
	assert.True(t, acc.needsEnrichment("bob"))
	acc.setEnriched("bob", models.Contributor{Username: "bob", Name: "Bob", Contributions: 99})
	assert.False(t, acc.needsEnrichment("bob"))

	assert.False(t, acc.add(githubclient.Contributor{Login: "bob", Contributions: 5}))
	assert.False(t, acc.needsEnrichment("bob"))
	assert.False(t, acc.needsEnrichment("nobody"))

	list := acc.list()
	require.Len(t, list, 1)
	assert.Equal(t, "Bob", list[0].Name)
	assert.Equal(t, 8, list[0].Contributions)
}
