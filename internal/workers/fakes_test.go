package workers

import (
	"context"
	"sync"
	"time"

	"github.com/alimgiray/gitreach/internal/githubclient"
	"github.com/alimgiray/gitreach/internal/models"
)

type fakeAPI struct {
	mu           sync.Mutex
	repos        map[string][]githubclient.Repository
	contributors map[string][]githubclient.Contributor
	users        map[string]*githubclient.User
	userErrs     map[string]error
	repoErr      error
	listErrs     map[string]error
	listCalls    []string
	userCalls    map[string]int
	panicOn      string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		repos:        map[string][]githubclient.Repository{},
		contributors: map[string][]githubclient.Contributor{},
		users:        map[string]*githubclient.User{},
		userErrs:     map[string]error{},
		listErrs:     map[string]error{},
		userCalls:    map[string]int{},
	}
}

func (f *fakeAPI) ListOrgRepos(ctx context.Context, org string) ([]githubclient.Repository, error) {
	if f.repoErr != nil {
		return nil, f.repoErr
	}
	return f.repos[org], nil
}

func (f *fakeAPI) ListContributors(ctx context.Context, fullName string) ([]githubclient.Contributor, error) {
	f.mu.Lock()
	f.listCalls = append(f.listCalls, fullName)
	f.mu.Unlock()
	if err := f.listErrs[fullName]; err != nil {
		return nil, err
	}
	return f.contributors[fullName], nil
}

func (f *fakeAPI) GetUser(ctx context.Context, login string) (*githubclient.User, error) {
	if login == f.panicOn {
		panic("unexpected profile shape")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls[login]++
	if err := f.userErrs[login]; err != nil {
		return nil, err
	}
	if u, ok := f.users[login]; ok {
		return u, nil
	}
	return &githubclient.User{Login: login, Name: login}, nil
}

func (f *fakeAPI) ListSocialAccounts(ctx context.Context, login string) []githubclient.SocialAccount {
	return nil
}

func (f *fakeAPI) RateLimit(ctx context.Context) (*githubclient.RateLimit, error) {
	return &githubclient.RateLimit{Limit: 5000, Remaining: 5000, Reset: time.Now().Add(time.Hour)}, nil
}

// recordingStore keeps one scrape's lifecycle in memory
type recordingStore struct {
	mu        sync.Mutex
	scrapes   map[string]*models.Scrape
	progress  []models.ScrapeProgress
	completed map[string][]models.Contributor
	failures  map[string]string
}

func newRecordingStore() *recordingStore {
	return &recordingStore{
		scrapes:   map[string]*models.Scrape{},
		completed: map[string][]models.Contributor{},
		failures:  map[string]string{},
	}
}

func (s *recordingStore) CreateScrape(ctx context.Context, scrape *models.Scrape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *scrape
	s.scrapes[scrape.ID] = &cp
	return nil
}

func (s *recordingStore) UpdateScrapeProgress(ctx context.Context, id string, p models.ScrapeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = append(s.progress, p)
	return nil
}

func (s *recordingStore) FailScrape(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scrapes[id]
	if !ok || sc.Status != models.ScrapeStatusActive {
		return models.ErrNotFound
	}
	sc.Status = models.ScrapeStatusFailed
	sc.Error = &message
	s.failures[id] = message
	return nil
}

func (s *recordingStore) CompleteScrape(ctx context.Context, id string, contributors []models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scrapes[id]
	if !ok {
		return models.ErrNotFound
	}
	sc.Status = models.ScrapeStatusCompleted
	sc.Progress = 100
	s.completed[id] = contributors
	return nil
}

func (s *recordingStore) GetScrape(ctx context.Context, id string) (*models.Scrape, error) {
	return s.GetScrapeMetadata(ctx, id)
}

func (s *recordingStore) GetScrapeMetadata(ctx context.Context, id string) (*models.Scrape, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.scrapes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *sc
	return &cp, nil
}

func (s *recordingStore) GetScrapeContributorsPage(ctx context.Context, id string, page int) (*models.ContributorPage, error) {
	return &models.ContributorPage{Page: page}, nil
}

func (s *recordingStore) ListScrapes(ctx context.Context) (*models.ScrapeList, error) {
	return &models.ScrapeList{}, nil
}

func (s *recordingStore) DeleteScrape(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scrapes, id)
	return nil
}

func (s *recordingStore) UpdateContributorOutreach(ctx context.Context, username string, u models.OutreachUpdate) error {
	return nil
}

func (s *recordingStore) GetContributor(ctx context.Context, username string) (*models.Contributor, error) {
	return nil, models.ErrNotFound
}

func (s *recordingStore) UpsertContributor(ctx context.Context, c *models.Contributor) error {
	return nil
}
