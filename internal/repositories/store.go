package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/alimgiray/gitreach/internal/models"
	"github.com/jmoiron/sqlx"
)

// ContributorPageSize is the number of contributors per page on read paths
const ContributorPageSize = 100

// SQLStore is the SQLite-backed scrape store. Writes are serialized so a
// scrape's progress, completion and deletion never interleave.
type SQLStore struct {
	db           *sqlx.DB
	mu           sync.RWMutex
	scrapes      *ScrapeRepository
	contributors *ContributorRepository
}

// NewSQLStore creates a store over db
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:           db,
		scrapes:      NewScrapeRepository(db),
		contributors: NewContributorRepository(db),
	}
}

func (s *SQLStore) CreateScrape(ctx context.Context, scrape *models.Scrape) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrapes.Create(ctx, scrape)
}

func (s *SQLStore) UpdateScrapeProgress(ctx context.Context, id string, p models.ScrapeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrapes.UpdateProgress(ctx, id, p)
}

func (s *SQLStore) FailScrape(ctx context.Context, id, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrapes.Fail(ctx, id, message)
}

// CompleteScrape upserts every contributor, links it to the scrape with its
// contribution count and marks the scrape completed, all in one transaction.
// A scrape deleted while running yields ErrNotFound and writes nothing.
func (s *SQLStore) CompleteScrape(ctx context.Context, id string, contributors []models.Contributor) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	ok, err := s.scrapes.exists(ctx, tx, id)
	if err != nil {
		return err
	}
	if !ok {
		return models.ErrNotFound
	}

	for i := range contributors {
		contributorID, err := s.contributors.Upsert(ctx, tx, &contributors[i])
		if err != nil {
			return err
		}
		if err := s.contributors.linkToScrape(ctx, tx, id, contributorID, contributors[i].Contributions); err != nil {
			return err
		}
	}

	if err := s.scrapes.complete(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scrape completion: %w", err)
	}
	return nil
}

// GetScrape returns a scrape with all of its contributors
func (s *SQLStore) GetScrape(ctx context.Context, id string) (*models.Scrape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scrape, err := s.scrapes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	contributors, err := s.contributors.ListByScrape(ctx, id)
	if err != nil {
		return nil, err
	}
	scrape.Contributors = contributors
	return scrape, nil
}

// GetScrapeMetadata returns a scrape without loading contributors
func (s *SQLStore) GetScrapeMetadata(ctx context.Context, id string) (*models.Scrape, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scrapes.GetByID(ctx, id)
}

// GetScrapeContributorsPage returns a 1-based page of a scrape's contributors
func (s *SQLStore) GetScrapeContributorsPage(ctx context.Context, id string, page int) (*models.ContributorPage, error) {
	if page < 1 {
		page = 1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	contributors, total, err := s.contributors.PageByScrape(ctx, id, page, ContributorPageSize)
	if err != nil {
		return nil, err
	}

	return &models.ContributorPage{
		Contributors: contributors,
		Total:        total,
		Page:         page,
		HasMore:      page*ContributorPageSize < total,
	}, nil
}

// ListScrapes groups all scrapes by status, newest first
func (s *SQLStore) ListScrapes(ctx context.Context) (*models.ScrapeList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scrapes, err := s.scrapes.List(ctx)
	if err != nil {
		return nil, err
	}

	list := &models.ScrapeList{
		Active:    []models.Scrape{},
		Completed: []models.Scrape{},
		Failed:    []models.Scrape{},
	}
	for _, scrape := range scrapes {
		switch scrape.Status {
		case models.ScrapeStatusActive:
			list.Active = append(list.Active, scrape)
		case models.ScrapeStatusCompleted:
			list.Completed = append(list.Completed, scrape)
		case models.ScrapeStatusFailed:
			list.Failed = append(list.Failed, scrape)
		}
	}
	return list, nil
}

func (s *SQLStore) DeleteScrape(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrapes.Delete(ctx, id)
}

func (s *SQLStore) UpdateContributorOutreach(ctx context.Context, username string, u models.OutreachUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contributors.UpdateOutreach(ctx, username, u)
}

// GetContributor returns a contributor without scrape context
func (s *SQLStore) GetContributor(ctx context.Context, username string) (*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contributors.GetByUsername(ctx, username)
}

// UpsertContributor stores a contributor outside of any scrape
func (s *SQLStore) UpsertContributor(ctx context.Context, c *models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.contributors.Upsert(ctx, s.db, c)
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}
