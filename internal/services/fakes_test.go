package services

import (
	"context"
	"sort"
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
	social       map[string][]githubclient.SocialAccount
	userErrs     map[string]error
	listErr      error
	onList       func()
	rateLimit    *githubclient.RateLimit
	userCalls    map[string]int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		repos:        map[string][]githubclient.Repository{},
		contributors: map[string][]githubclient.Contributor{},
		users:        map[string]*githubclient.User{},
		social:       map[string][]githubclient.SocialAccount{},
		userErrs:     map[string]error{},
		rateLimit:    &githubclient.RateLimit{Limit: 5000, Remaining: 4999, Reset: time.Now().Add(time.Hour)},
		userCalls:    map[string]int{},
	}
}

func (f *fakeAPI) ListOrgRepos(ctx context.Context, org string) ([]githubclient.Repository, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.repos[org], nil
}

func (f *fakeAPI) ListContributors(ctx context.Context, fullName string) ([]githubclient.Contributor, error) {
	if f.onList != nil {
		f.onList()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.contributors[fullName], nil
}

func (f *fakeAPI) GetUser(ctx context.Context, login string) (*githubclient.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userCalls[login]++
	if err := f.userErrs[login]; err != nil {
		return nil, err
	}
	if u, ok := f.users[login]; ok {
		return u, nil
	}
	return &githubclient.User{Login: login}, nil
}

func (f *fakeAPI) ListSocialAccounts(ctx context.Context, login string) []githubclient.SocialAccount {
	return f.social[login]
}

func (f *fakeAPI) RateLimit(ctx context.Context) (*githubclient.RateLimit, error) {
	return f.rateLimit, nil
}

func (f *fakeAPI) totalUserCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.userCalls {
		n += c
	}
	return n
}

func factoryFor(api GitHubAPI) ClientFactory {
	return func(token string) (GitHubAPI, error) {
		return api, nil
	}
}

// memoryStore is an in-memory ScrapeStore
type memoryStore struct {
	mu           sync.Mutex
	scrapes      map[string]*models.Scrape
	contributors map[string]models.Contributor
	results      map[string][]models.Contributor
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		scrapes:      map[string]*models.Scrape{},
		contributors: map[string]models.Contributor{},
		results:      map[string][]models.Contributor{},
	}
}

func (m *memoryStore) CreateScrape(ctx context.Context, scrape *models.Scrape) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *scrape
	m.scrapes[scrape.ID] = &cp
	return nil
}

func (m *memoryStore) UpdateScrapeProgress(ctx context.Context, id string, p models.ScrapeProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scrapes[id]
	if !ok || !s.IsActive() {
		return nil
	}
	if p.Progress > s.Progress {
		s.Progress = p.Progress
	}
	s.Current, s.Total = p.Current, p.Total
	login := p.CurrentUserLogin
	s.CurrentUserLogin = &login
	return nil
}

func (m *memoryStore) FailScrape(ctx context.Context, id, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scrapes[id]
	if !ok || !s.IsActive() {
		return models.ErrNotFound
	}
	now := time.Now()
	s.Status = models.ScrapeStatusFailed
	s.Error = &message
	s.CompletedAt = &now
	return nil
}

func (m *memoryStore) CompleteScrape(ctx context.Context, id string, contributors []models.Contributor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scrapes[id]
	if !ok {
		return models.ErrNotFound
	}
	now := time.Now()
	s.Status = models.ScrapeStatusCompleted
	s.Progress = 100
	s.CompletedAt = &now
	s.ContributorCount = len(contributors)
	m.results[id] = contributors
	for _, c := range contributors {
		m.contributors[c.Username] = c
	}
	return nil
}

func (m *memoryStore) GetScrape(ctx context.Context, id string) (*models.Scrape, error) {
	s, err := m.GetScrapeMetadata(ctx, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Contributors = append([]models.Contributor{}, m.results[id]...)
	return s, nil
}

func (m *memoryStore) GetScrapeMetadata(ctx context.Context, id string) (*models.Scrape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scrapes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memoryStore) GetScrapeContributorsPage(ctx context.Context, id string, page int) (*models.ContributorPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.results[id]
	start := (page - 1) * 2
	if start > len(all) {
		start = len(all)
	}
	end := start + 2
	if end > len(all) {
		end = len(all)
	}
	return &models.ContributorPage{
		Contributors: all[start:end],
		Total:        len(all),
		Page:         page,
		HasMore:      end < len(all),
	}, nil
}

func (m *memoryStore) ListScrapes(ctx context.Context) (*models.ScrapeList, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := &models.ScrapeList{Active: []models.Scrape{}, Completed: []models.Scrape{}, Failed: []models.Scrape{}}
	for _, s := range m.scrapes {
		switch s.Status {
		case models.ScrapeStatusActive:
			list.Active = append(list.Active, *s)
		case models.ScrapeStatusCompleted:
			list.Completed = append(list.Completed, *s)
		default:
			list.Failed = append(list.Failed, *s)
		}
	}
	return list, nil
}

func (m *memoryStore) DeleteScrape(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scrapes[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.scrapes, id)
	delete(m.results, id)
	return nil
}

func (m *memoryStore) UpdateContributorOutreach(ctx context.Context, username string, u models.OutreachUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contributors[username]
	if !ok {
		return models.ErrNotFound
	}
	if u.Contacted != nil {
		c.Contacted = *u.Contacted
	}
	if u.Notes != nil {
		c.Notes = u.Notes
	}
	m.contributors[username] = c
	return nil
}

func (m *memoryStore) GetContributor(ctx context.Context, username string) (*models.Contributor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contributors[username]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &c, nil
}

func (m *memoryStore) UpsertContributor(ctx context.Context, c *models.Contributor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = "id-" + c.Username
	}
	m.contributors[c.Username] = *c
	return nil
}

func (m *memoryStore) scrape(id string) models.Scrape {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.scrapes[id]
}

type memoryWatchedRepos struct {
	mu      sync.Mutex
	repos   map[string]*models.WatchedRepo
	known   map[string]map[string]bool
	checked map[string]time.Time
}

func newMemoryWatchedRepos() *memoryWatchedRepos {
	return &memoryWatchedRepos{
		repos:   map[string]*models.WatchedRepo{},
		known:   map[string]map[string]bool{},
		checked: map[string]time.Time{},
	}
}

func (m *memoryWatchedRepos) Create(ctx context.Context, w *models.WatchedRepo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.repos[w.ID] = &cp
	return nil
}

func (m *memoryWatchedRepos) GetByID(ctx context.Context, id string) (*models.WatchedRepo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.repos[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *memoryWatchedRepos) List(ctx context.Context) ([]models.WatchedRepo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]models.WatchedRepo, 0, len(m.repos))
	for _, w := range m.repos {
		list = append(list, *w)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Repo < list[j].Repo })
	return list, nil
}

func (m *memoryWatchedRepos) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.repos, id)
	delete(m.known, id)
	return nil
}

func (m *memoryWatchedRepos) MarkChecked(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.repos[id]; ok {
		w.LastCheckedAt = &at
	}
	m.checked[id] = at
	return nil
}

func (m *memoryWatchedRepos) KnownContributors(ctx context.Context, id string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := map[string]bool{}
	for login := range m.known[id] {
		known[login] = true
	}
	return known, nil
}

func (m *memoryWatchedRepos) AddKnownContributor(ctx context.Context, id, login string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.known[id] == nil {
		m.known[id] = map[string]bool{}
	}
	m.known[id][login] = true
	return nil
}

type memoryShares struct {
	shares map[string]models.SharedScrape
}

func (m *memoryShares) Create(ctx context.Context, s *models.SharedScrape) error {
	if m.shares == nil {
		m.shares = map[string]models.SharedScrape{}
	}
	m.shares[s.Token] = *s
	return nil
}

func (m *memoryShares) GetByToken(ctx context.Context, token string) (*models.SharedScrape, error) {
	s, ok := m.shares[token]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &s, nil
}

type recordingNotifier struct {
	calls []notification
	err   error
}

type notification struct {
	repo         string
	contributors []models.Contributor
}

func (n *recordingNotifier) NotifyNewContributors(ctx context.Context, repo string, contributors []models.Contributor) error {
	n.calls = append(n.calls, notification{repo: repo, contributors: contributors})
	return n.err
}

type recordingLauncher struct {
	launched []models.Scrape
}

func (l *recordingLauncher) LaunchScrape(scrape models.Scrape, api GitHubAPI) {
	l.launched = append(l.launched, scrape)
}
